// Package domain holds the lead lifecycle vocabulary shared across the
// leads, signal and rating packages.
package domain

import "strings"

// Lead pipeline statuses.
const (
	StatusNew        = "new"
	StatusContacted  = "contacted"
	StatusQualified  = "qualified"
	StatusJunk       = "junk"
	StatusNotReached = "not_reached"
	StatusClosed     = "closed"
)

// Quality verdicts. A lead starts as QualityPending and is moved exactly
// once to qualified or unqualified by a rating action.
const (
	QualityPending     = "pending"
	QualityQualified   = "qualified"
	QualityUnqualified = "unqualified"
)

// Feedback dispatch states. A lead's conversion signal moves
// pending -> sending -> sent and never leaves sent.
const (
	FeedbackPending = "pending"
	FeedbackSending = "sending"
	FeedbackSent    = "sent"
)

// Channels through which a quality verdict can arrive.
const (
	ChannelDashboard = "dashboard"
	ChannelPortal    = "portal"
	ChannelEmail     = "email"
	ChannelAutomatic = "automatic"
)

var validStatuses = map[string]bool{
	StatusNew:        true,
	StatusContacted:  true,
	StatusQualified:  true,
	StatusJunk:       true,
	StatusNotReached: true,
	StatusClosed:     true,
}

var validQualities = map[string]bool{
	QualityQualified:   true,
	QualityUnqualified: true,
}

var validChannels = map[string]bool{
	ChannelDashboard: true,
	ChannelPortal:    true,
	ChannelEmail:     true,
	ChannelAutomatic: true,
}

// IsValidStatus reports whether s is a known pipeline status.
func IsValidStatus(s string) bool { return validStatuses[s] }

// IsValidQuality reports whether q is a terminal quality verdict.
// The initial "pending" state is not a valid rating input.
func IsValidQuality(q string) bool { return validQualities[q] }

// IsValidChannel reports whether c is a known feedback channel.
func IsValidChannel(c string) bool { return validChannels[c] }

// PositiveStatusSet turns the configured status list into the set of
// pipeline statuses that mark a lead as qualified when reached. Unknown
// names are dropped so a typo in configuration cannot qualify junk.
func PositiveStatusSet(names []string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range names {
		s := strings.TrimSpace(strings.ToLower(part))
		if validStatuses[s] {
			set[s] = true
		}
	}
	if len(set) == 0 {
		set[StatusQualified] = true
	}
	return set
}
