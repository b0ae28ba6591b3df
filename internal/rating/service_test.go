package rating

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*ratingTokenRow
	portal map[string]PortalToken
	leads  *fakeLeadStore
}

type ratingTokenRow struct {
	organizationID uuid.UUID
	leadID         uuid.UUID
	expiresAt      time.Time
	used           bool
}

func newFakeTokenStore(leads *fakeLeadStore) *fakeTokenStore {
	return &fakeTokenStore{
		tokens: make(map[string]*ratingTokenRow),
		portal: make(map[string]PortalToken),
		leads:  leads,
	}
}

func (s *fakeTokenStore) IssueRatingToken(_ context.Context, organizationID, leadID uuid.UUID, ttl time.Duration) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[hashToken(raw)] = &ratingTokenRow{
		organizationID: organizationID,
		leadID:         leadID,
		expiresAt:      time.Now().Add(ttl),
	}
	return raw, nil
}

func (s *fakeTokenStore) ConsumeAndRate(_ context.Context, rawToken, quality string) (RatedLead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.tokens[hashToken(rawToken)]
	if !ok {
		return RatedLead{}, ErrTokenNotFound
	}
	if row.used {
		return RatedLead{}, ErrTokenUsed
	}
	if time.Now().After(row.expiresAt) {
		return RatedLead{}, ErrTokenExpired
	}
	row.used = true

	lead := s.leads.setQuality(row.organizationID, row.leadID, quality)
	return RatedLead{LeadID: row.leadID, OrganizationID: row.organizationID, Lead: lead}, nil
}

func (s *fakeTokenStore) IssuePortalToken(_ context.Context, organizationID, agentID uuid.UUID, ttl time.Duration) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portal[hashToken(raw)] = PortalToken{
		OrganizationID: organizationID,
		AgentID:        agentID,
		ExpiresAt:      time.Now().Add(ttl),
	}
	return raw, nil
}

func (s *fakeTokenStore) ResolvePortalToken(_ context.Context, rawToken string) (PortalToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.portal[hashToken(rawToken)]
	if !ok {
		return PortalToken{}, ErrTokenNotFound
	}
	if time.Now().After(grant.ExpiresAt) {
		return PortalToken{}, ErrTokenExpired
	}
	return grant, nil
}

type fakeLeadStore struct {
	mu    sync.Mutex
	leads map[uuid.UUID]repository.Lead
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[uuid.UUID]repository.Lead)}
}

func (s *fakeLeadStore) add(lead repository.Lead) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead.Quality == "" {
		lead.Quality = "pending"
	}
	s.leads[lead.ID] = lead
}

func (s *fakeLeadStore) setQuality(organizationID, id uuid.UUID, quality string) repository.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := s.leads[id]
	if lead.OrganizationID != organizationID {
		return repository.Lead{}
	}
	if lead.Quality == "pending" {
		lead.Quality = quality
		s.leads[id] = lead
	}
	return lead
}

func (s *fakeLeadStore) GetByID(_ context.Context, organizationID, id uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.OrganizationID != organizationID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (s *fakeLeadStore) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Lead
	for _, lead := range s.leads {
		if lead.OrganizationID != params.OrganizationID {
			continue
		}
		if params.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *params.AssignedTo) {
			continue
		}
		out = append(out, lead)
	}
	return out, len(out), nil
}

func (s *fakeLeadStore) SetQuality(_ context.Context, organizationID, id uuid.UUID, quality string) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok || lead.OrganizationID != organizationID {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.Quality != "pending" {
		return lead, repository.ErrAlreadyRated
	}
	lead.Quality = quality
	s.leads[id] = lead
	return lead, nil
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, _, _ uuid.UUID, quality, channel string) (time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, channel+":"+quality)
	if d.err != nil {
		return time.Time{}, d.err
	}
	return time.Now(), nil
}

type fakeConfig struct{}

func (fakeConfig) GetRatingTokenTTL() time.Duration { return 168 * time.Hour }
func (fakeConfig) GetPortalTokenTTL() time.Duration { return 720 * time.Hour }
func (fakeConfig) GetAppBaseURL() string            { return "https://app.example.com" }

func newTestService(t *testing.T) (*Service, *fakeTokenStore, *fakeLeadStore, *fakeDispatcher) {
	t.Helper()
	leads := newFakeLeadStore()
	tokens := newFakeTokenStore(leads)
	dispatcher := &fakeDispatcher{}
	svc := NewService(tokens, leads, dispatcher, fakeConfig{}, logger.New("test"))
	return svc, tokens, leads, dispatcher
}

func seedLead(leads *fakeLeadStore, agentID *uuid.UUID) repository.Lead {
	lead := repository.Lead{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		FullName:       "Jane Doe",
		Quality:        "pending",
		AssignedTo:     agentID,
	}
	leads.add(lead)
	return lead
}

func TestRateByTokenSingleUse(t *testing.T) {
	svc, _, leads, dispatcher := newTestService(t)
	lead := seedLead(leads, nil)

	links, err := svc.IssueRatingLinks(context.Background(), lead.OrganizationID, lead.ID)
	if err != nil {
		t.Fatalf("issue links: %v", err)
	}
	raw := links.Qualified[len("https://app.example.com/r/") : len(links.Qualified)-len("?rating=qualified")]

	resp, err := svc.RateByToken(context.Background(), raw, "qualified")
	if err != nil {
		t.Fatalf("first click: %v", err)
	}
	if resp.Quality != "qualified" {
		t.Fatalf("quality = %q", resp.Quality)
	}

	_, err = svc.RateByToken(context.Background(), raw, "unqualified")
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second click: expected conflict, got %v", err)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "email:qualified" {
		t.Fatalf("dispatch calls = %v", dispatcher.calls)
	}
}

func TestRateByTokenInvalidValue(t *testing.T) {
	svc, _, leads, _ := newTestService(t)
	lead := seedLead(leads, nil)
	links, _ := svc.IssueRatingLinks(context.Background(), lead.OrganizationID, lead.ID)
	raw := links.Qualified[len("https://app.example.com/r/") : len(links.Qualified)-len("?rating=qualified")]

	if _, err := svc.RateByToken(context.Background(), raw, "sideways"); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRateByTokenUnknown(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	if _, err := svc.RateByToken(context.Background(), "does-not-exist", "qualified"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRateByTokenDispatchFailureStillConfirms(t *testing.T) {
	svc, _, leads, dispatcher := newTestService(t)
	dispatcher.err = apperr.Upstream("graph down")
	lead := seedLead(leads, nil)
	links, _ := svc.IssueRatingLinks(context.Background(), lead.OrganizationID, lead.ID)
	raw := links.Unqualified[len("https://app.example.com/r/") : len(links.Unqualified)-len("?rating=unqualified")]

	resp, err := svc.RateByToken(context.Background(), raw, "unqualified")
	if err != nil {
		t.Fatalf("dispatch failure must not fail the rating: %v", err)
	}
	if resp.Quality != "unqualified" {
		t.Fatalf("quality = %q", resp.Quality)
	}
}

func TestPortalRateRequiresAssignment(t *testing.T) {
	svc, tokens, leads, _ := newTestService(t)
	agent := uuid.New()
	lead := seedLead(leads, nil)

	raw, _ := tokens.IssuePortalToken(context.Background(), lead.OrganizationID, agent, time.Hour)
	grant, err := svc.ResolvePortalToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}

	if _, err := svc.PortalRate(context.Background(), grant, lead.ID, "qualified"); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden for unassigned lead, got %v", err)
	}
}

func TestPortalTenantIsolation(t *testing.T) {
	svc, tokens, leads, _ := newTestService(t)
	agent := uuid.New()
	lead := seedLead(leads, &agent)

	otherOrg := uuid.New()
	raw, _ := tokens.IssuePortalToken(context.Background(), otherOrg, agent, time.Hour)
	grant, err := svc.ResolvePortalToken(context.Background(), raw)
	if err != nil {
		t.Fatalf("resolve token: %v", err)
	}

	if _, err := svc.PortalRate(context.Background(), grant, lead.ID, "qualified"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found across tenants, got %v", err)
	}

	resp, err := svc.PortalLeads(context.Background(), grant, 25, 0)
	if err != nil {
		t.Fatalf("portal list: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("foreign tenant token must see no leads, got %d", len(resp.Items))
	}
}

func TestPortalRateDispatchesOnce(t *testing.T) {
	svc, tokens, leads, dispatcher := newTestService(t)
	agent := uuid.New()
	lead := seedLead(leads, &agent)

	raw, _ := tokens.IssuePortalToken(context.Background(), lead.OrganizationID, agent, time.Hour)
	grant, _ := svc.ResolvePortalToken(context.Background(), raw)

	if _, err := svc.PortalRate(context.Background(), grant, lead.ID, "qualified"); err != nil {
		t.Fatalf("portal rate: %v", err)
	}
	if _, err := svc.PortalRate(context.Background(), grant, lead.ID, "qualified"); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second rate: expected conflict, got %v", err)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "portal:qualified" {
		t.Fatalf("dispatch calls = %v", dispatcher.calls)
	}
}

func TestExpiredPortalTokenRejected(t *testing.T) {
	svc, tokens, leads, _ := newTestService(t)
	agent := uuid.New()
	lead := seedLead(leads, &agent)

	raw, _ := tokens.IssuePortalToken(context.Background(), lead.OrganizationID, agent, -time.Minute)
	if _, err := svc.ResolvePortalToken(context.Background(), raw); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
