package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"leadsignal_backend/internal/email"
	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/notify/sse"
	"leadsignal_backend/internal/rating"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeEmail struct {
	mu          sync.Mutex
	newLeads    []email.NewLeadData
	assignments []email.AssignmentData
	fail        bool
}

func (s *fakeEmail) SendNewLeadNotification(_ context.Context, _ string, data email.NewLeadData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.newLeads = append(s.newLeads, data)
	return nil
}

func (s *fakeEmail) SendAssignmentNotification(_ context.Context, _ string, data email.AssignmentData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp down")
	}
	s.assignments = append(s.assignments, data)
	return nil
}

type fakeWhatsApp struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (s *fakeWhatsApp) SendMessage(_ context.Context, _, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sidecar down")
	}
	s.messages = append(s.messages, message)
	return nil
}

type fakeLinks struct{}

func (fakeLinks) IssueRatingLinks(_ context.Context, _, leadID uuid.UUID) (rating.RatingLinks, error) {
	return rating.RatingLinks{
		Qualified:   "https://app.example.com/r/tok?rating=qualified",
		Unqualified: "https://app.example.com/r/tok?rating=unqualified",
	}, nil
}

func (fakeLinks) IssuePortalLink(context.Context, uuid.UUID, uuid.UUID) (string, error) {
	return "https://app.example.com/portal?token=ptok", nil
}

type fanoutConfig struct{}

func (fanoutConfig) GetAppBaseURL() string              { return "https://app.example.com" }
func (fanoutConfig) GetNotificationFromAddress() string { return "no-reply@example.com" }
func (fanoutConfig) GetNotificationEmailTo() string     { return "team@example.com" }
func (fanoutConfig) GetNotificationWhatsAppTo() string  { return "+491701234567" }

func newTestFanout() (*Fanout, *fakeEmail, *fakeWhatsApp) {
	log := logger.New("test")
	mail := &fakeEmail{}
	wa := &fakeWhatsApp{}
	f := NewFanout(mail, wa, sse.New(log), fakeLinks{}, fanoutConfig{}, metrics.New(prometheus.NewRegistry()), log)
	return f, mail, wa
}

func leadCreated() events.LeadCreated {
	return events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		TenantID:  uuid.New(),
		FullName:  "Jane Doe",
		Email:     "jane@example.com",
		Phone:     "+491701234567",
		FormName:  "Summer Campaign",
	}
}

func TestOnLeadCreatedNotifiesAllChannels(t *testing.T) {
	f, mail, wa := newTestFanout()

	if err := f.OnLeadCreated(context.Background(), leadCreated()); err != nil {
		t.Fatalf("fan-out: %v", err)
	}

	if len(mail.newLeads) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.newLeads))
	}
	got := mail.newLeads[0]
	if got.QualifiedURL == "" || got.UnqualifiedURL == "" {
		t.Error("rating links missing from email")
	}
	if len(wa.messages) != 1 {
		t.Fatalf("expected 1 whatsapp message, got %d", len(wa.messages))
	}
}

func TestOnLeadCreatedChannelFailureIsIsolated(t *testing.T) {
	f, mail, wa := newTestFanout()
	mail.fail = true

	if err := f.OnLeadCreated(context.Background(), leadCreated()); err != nil {
		t.Fatalf("channel failure must be swallowed, got %v", err)
	}
	if len(wa.messages) != 1 {
		t.Fatalf("whatsapp should still send, got %d messages", len(wa.messages))
	}
}

func TestOnLeadAssignedSendsPortalLink(t *testing.T) {
	f, mail, _ := newTestFanout()

	err := f.OnLeadAssigned(context.Background(), events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		TenantID:  uuid.New(),
		AgentID:   uuid.New(),
		FullName:  "Jane Doe",
		FormName:  "Summer Campaign",
	})
	if err != nil {
		t.Fatalf("fan-out: %v", err)
	}
	if len(mail.assignments) != 1 || mail.assignments[0].PortalURL == "" {
		t.Fatalf("assignment email with portal link expected, got %+v", mail.assignments)
	}
}
