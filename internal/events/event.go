package events

import "github.com/google/uuid"

// Event names for subscription.
const (
	LeadCreatedName      = "lead.created"
	LeadAssignedName     = "lead.assigned"
	SignalDispatchedName = "signal.dispatched"
)

// LeadCreated is published after a webhook lead has been persisted.
type LeadCreated struct {
	BaseEvent
	LeadID   uuid.UUID
	TenantID uuid.UUID
	FullName string
	Email    string
	Phone    string
	FormName string
}

// EventName returns the unique event identifier.
func (e LeadCreated) EventName() string { return LeadCreatedName }

// LeadAssigned is published when a lead is assigned to an agent.
type LeadAssigned struct {
	BaseEvent
	LeadID   uuid.UUID
	TenantID uuid.UUID
	AgentID  uuid.UUID
	FullName string
	FormName string
}

// EventName returns the unique event identifier.
func (e LeadAssigned) EventName() string { return LeadAssignedName }

// SignalDispatched is published after a conversion event was delivered.
type SignalDispatched struct {
	BaseEvent
	LeadID        uuid.UUID
	TenantID      uuid.UUID
	Qualification string
	Channel       string
}

// EventName returns the unique event identifier.
func (e SignalDispatched) EventName() string { return SignalDispatchedName }
