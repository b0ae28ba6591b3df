// Package transport defines the HTTP request and response shapes for the
// leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type LeadResponse struct {
	ID                uuid.UUID  `json:"id"`
	LeadgenID         string     `json:"leadgenId"`
	PageID            string     `json:"pageId"`
	FormID            string     `json:"formId"`
	AdID              *string    `json:"adId,omitempty"`
	FormName          string     `json:"formName"`
	FullName          string     `json:"fullName"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	Status            string     `json:"status"`
	Quality           string     `json:"quality"`
	SourceCreatedAt   *time.Time `json:"sourceCreatedAt,omitempty"`
	AssignedTo        *uuid.UUID `json:"assignedTo,omitempty"`
	FeedbackStatus    string     `json:"feedbackStatus"`
	FeedbackSentAt    *time.Time `json:"feedbackSentAt,omitempty"`
	FeedbackChannel   *string    `json:"feedbackChannel,omitempty"`
	FeedbackAttempts  int        `json:"feedbackAttempts"`
	FeedbackLastError *string    `json:"feedbackLastError,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type ListLeadsResponse struct {
	Items  []LeadResponse `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type UpdateLeadRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,min=3,max=32"`
	FormName *string `json:"formName" validate:"omitempty,min=1,max=255"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type AssignRequest struct {
	AgentID *uuid.UUID `json:"agentId"`
}

type RateLeadRequest struct {
	Quality string `json:"quality" validate:"required,oneof=qualified unqualified"`
}

type StatusUpdateResponse struct {
	Lead     LeadResponse     `json:"lead"`
	Dispatch *DispatchOutcome `json:"dispatch,omitempty"`
}

// DispatchOutcome reports what happened to the automatic conversion
// signal triggered by a status change. The status write itself succeeded
// regardless.
type DispatchOutcome struct {
	Attempted bool       `json:"attempted"`
	Sent      bool       `json:"sent"`
	Channel   string     `json:"channel"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type DispatchResponse struct {
	LeadID  uuid.UUID `json:"leadId"`
	SentAt  time.Time `json:"sentAt"`
	Channel string    `json:"channel"`
}
