// Package signal builds and dispatches conversion-event feedback for
// rated leads.
package signal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"leadsignal_backend/internal/metaapi"
)

// HashForMeta normalizes a user-data value the way the ads platform
// expects before hashing: trimmed, lowercased, SHA-256, hex encoded.
func HashForMeta(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// NormalizePhoneForHash strips spaces and dashes from a phone number
// while preserving a leading plus, so the same number always hashes to
// the same digest regardless of formatting.
func NormalizePhoneForHash(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range strings.TrimSpace(v) {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewQualifiedLeadEvent builds the conversion event reporting a lead's
// quality verdict back to the ads platform. Empty email or phone fields
// are omitted from user_data rather than hashed.
func NewQualifiedLeadEvent(email, phoneNumber, leadgenID, sourceName string, qualified bool) metaapi.ConversionEvent {
	status := "unqualified"
	if qualified {
		status = "qualified"
	}

	user := metaapi.UserData{LeadID: leadgenID}
	if strings.TrimSpace(email) != "" {
		user.Emails = []string{HashForMeta(email)}
	}
	if strings.TrimSpace(phoneNumber) != "" {
		user.Phones = []string{HashForMeta(NormalizePhoneForHash(phoneNumber))}
	}

	return metaapi.ConversionEvent{
		EventName:    "Lead",
		EventTime:    time.Now().Unix(),
		ActionSource: "system_generated",
		UserData:     user,
		CustomData: metaapi.CustomData{
			LeadEventSource:     sourceName,
			QualificationStatus: status,
		},
	}
}
