package management

import (
	"context"
	"sync"
	"testing"
	"time"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/leads/domain"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	mu    sync.Mutex
	leads map[uuid.UUID]repository.Lead
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{leads: make(map[uuid.UUID]repository.Lead)}
}

func (r *fakeRepo) add(lead repository.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[lead.ID] = lead
}

func (r *fakeRepo) get(orgID, id uuid.UUID) (repository.Lead, error) {
	lead, ok := r.leads[id]
	if !ok || lead.OrganizationID != orgID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *fakeRepo) GetByID(_ context.Context, orgID, id uuid.UUID) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(orgID, id)
}

func (r *fakeRepo) List(_ context.Context, params repository.ListParams) ([]repository.Lead, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []repository.Lead
	for _, lead := range r.leads {
		if lead.OrganizationID == params.OrganizationID {
			items = append(items, lead)
		}
	}
	return items, len(items), nil
}

func (r *fakeRepo) Update(_ context.Context, orgID, id uuid.UUID, patch repository.LeadPatch) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, err := r.get(orgID, id)
	if err != nil {
		return repository.Lead{}, err
	}
	if patch.FullName != nil {
		lead.FullName = *patch.FullName
	}
	if patch.Phone != nil {
		lead.Phone = *patch.Phone
	}
	r.leads[id] = lead
	return lead, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, orgID, id uuid.UUID, status string) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, err := r.get(orgID, id)
	if err != nil {
		return repository.Lead{}, err
	}
	lead.Status = status
	r.leads[id] = lead
	return lead, nil
}

func (r *fakeRepo) Assign(_ context.Context, orgID, id uuid.UUID, agentID *uuid.UUID) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, err := r.get(orgID, id)
	if err != nil {
		return repository.Lead{}, err
	}
	lead.AssignedTo = agentID
	r.leads[id] = lead
	return lead, nil
}

func (r *fakeRepo) SetQuality(_ context.Context, orgID, id uuid.UUID, quality string) (repository.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, err := r.get(orgID, id)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.Quality != domain.QualityPending {
		return lead, repository.ErrAlreadyRated
	}
	lead.Quality = quality
	r.leads[id] = lead
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

type fakeRetries struct {
	mu       sync.Mutex
	enqueued []int
}

func (f *fakeRetries) EnqueueDispatchRetry(_ context.Context, _, _ uuid.UUID, attempt int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, attempt)
	return nil
}

func newTestService(repo *fakeRepo, dispatcher *fakeDispatcher, retries *fakeRetries) *Service {
	log := logger.New("test")
	positive := domain.PositiveStatusSet([]string{"qualified"})
	var sched RetryScheduler
	if retries != nil {
		sched = retries
	}
	return New(repo, dispatcher, sched, events.NewInMemoryBus(log), positive, log)
}

func pendingLead(orgID uuid.UUID) repository.Lead {
	return repository.Lead{
		ID:             uuid.New(),
		OrganizationID: orgID,
		LeadgenID:      "lg-1",
		FullName:       "Jane Visser",
		Status:         domain.StatusNew,
		Quality:        domain.QualityPending,
		FeedbackStatus: domain.FeedbackPending,
	}
}

func TestUpdateStatusPositiveTriggersDispatch(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, dispatcher, nil)

	resp, err := svc.UpdateStatus(context.Background(), orgID, lead.ID, domain.StatusQualified)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if resp.Lead.Status != domain.StatusQualified {
		t.Fatalf("status = %q", resp.Lead.Status)
	}
	if resp.Dispatch == nil || !resp.Dispatch.Sent {
		t.Fatalf("dispatch outcome = %+v", resp.Dispatch)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "automatic:qualified" {
		t.Fatalf("dispatch calls = %v", dispatcher.calls)
	}

	got, _ := repo.GetByID(context.Background(), orgID, lead.ID)
	if got.Quality != domain.QualityQualified {
		t.Fatalf("quality = %q", got.Quality)
	}
}

func TestUpdateStatusNeutralSkipsDispatch(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, dispatcher, nil)

	resp, err := svc.UpdateStatus(context.Background(), orgID, lead.ID, domain.StatusContacted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if resp.Dispatch != nil {
		t.Fatalf("no dispatch expected, got %+v", resp.Dispatch)
	}
	if len(dispatcher.calls) != 0 {
		t.Fatalf("dispatch calls = %v", dispatcher.calls)
	}
}

func TestUpdateStatusKeepsPriorVerdict(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	lead.Quality = domain.QualityUnqualified
	repo.add(lead)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, dispatcher, nil)

	if _, err := svc.UpdateStatus(context.Background(), orgID, lead.ID, domain.StatusQualified); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "automatic:unqualified" {
		t.Fatalf("dispatch calls = %v, want the stored verdict", dispatcher.calls)
	}
}

func TestUpdateStatusSurvivesDispatchFailure(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)
	dispatcher := &fakeDispatcher{err: apperr.Upstream("graph returned 500")}
	retries := &fakeRetries{}
	svc := newTestService(repo, dispatcher, retries)

	resp, err := svc.UpdateStatus(context.Background(), orgID, lead.ID, domain.StatusQualified)
	if err != nil {
		t.Fatalf("the status write must stand, got %v", err)
	}
	if resp.Lead.Status != domain.StatusQualified {
		t.Fatalf("status = %q", resp.Lead.Status)
	}
	if resp.Dispatch == nil || resp.Dispatch.Sent || resp.Dispatch.Error == "" {
		t.Fatalf("dispatch outcome = %+v", resp.Dispatch)
	}
	if len(retries.enqueued) != 1 || retries.enqueued[0] != 1 {
		t.Fatalf("retry enqueues = %v", retries.enqueued)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeDispatcher{}, nil)
	_, err := svc.UpdateStatus(context.Background(), uuid.New(), uuid.New(), "maybe")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestRateDispatchesVerdict(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)
	dispatcher := &fakeDispatcher{}
	svc := newTestService(repo, dispatcher, nil)

	resp, err := svc.Rate(context.Background(), orgID, lead.ID, domain.QualityUnqualified)
	if err != nil {
		t.Fatalf("rate: %v", err)
	}
	if resp.Channel != domain.ChannelDashboard {
		t.Fatalf("channel = %q", resp.Channel)
	}
	if len(dispatcher.calls) != 1 || dispatcher.calls[0] != "dashboard:unqualified" {
		t.Fatalf("dispatch calls = %v", dispatcher.calls)
	}
}

func TestRateSecondVerdictConflicts(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)
	svc := newTestService(repo, &fakeDispatcher{}, nil)

	if _, err := svc.Rate(context.Background(), orgID, lead.ID, domain.QualityQualified); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	_, err := svc.Rate(context.Background(), orgID, lead.ID, domain.QualityUnqualified)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestRateIsTenantScoped(t *testing.T) {
	repo := newFakeRepo()
	lead := pendingLead(uuid.New())
	repo.add(lead)
	svc := newTestService(repo, &fakeDispatcher{}, nil)

	_, err := svc.Rate(context.Background(), uuid.New(), lead.ID, domain.QualityQualified)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestAssignPublishesEvent(t *testing.T) {
	orgID := uuid.New()
	repo := newFakeRepo()
	lead := pendingLead(orgID)
	repo.add(lead)

	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	var mu sync.Mutex
	var assigned []events.LeadAssigned
	bus.Subscribe(events.LeadAssignedName, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if evt, ok := e.(events.LeadAssigned); ok {
			mu.Lock()
			assigned = append(assigned, evt)
			mu.Unlock()
		}
		return nil
	}))
	svc := New(repo, &fakeDispatcher{}, nil, bus, domain.PositiveStatusSet(nil), log)

	agentID := uuid.New()
	resp, err := svc.Assign(context.Background(), orgID, lead.ID, &agentID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if resp.AssignedTo == nil || *resp.AssignedTo != agentID {
		t.Fatalf("assignedTo = %v", resp.AssignedTo)
	}

	bus.Wait()
	mu.Lock()
	defer mu.Unlock()
	if len(assigned) != 1 || assigned[0].AgentID != agentID {
		t.Fatalf("assigned events = %+v", assigned)
	}
}
