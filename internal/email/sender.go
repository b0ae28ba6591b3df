// Package email delivers transactional notifications over SMTP.
package email

import "context"

// NewLeadData carries everything the new-lead notification renders,
// including the one-click rating links.
type NewLeadData struct {
	LeadName       string
	FormName       string
	Email          string
	Phone          string
	QualifiedURL   string
	UnqualifiedURL string
}

// AssignmentData carries the agent assignment notification payload.
type AssignmentData struct {
	LeadName  string
	FormName  string
	PortalURL string
}

// Sender delivers notification emails.
type Sender interface {
	SendNewLeadNotification(ctx context.Context, toEmail string, data NewLeadData) error
	SendAssignmentNotification(ctx context.Context, toEmail string, data AssignmentData) error
}
