// Package management handles dashboard-facing lead operations: listing,
// editing, assignment, status transitions and manual quality ratings.
package management

import (
	"context"
	"errors"
	"time"

	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/leads/domain"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/leads/transport"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/phone"

	"github.com/google/uuid"
)

// Repository is the data access surface the management service needs.
type Repository interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
	Update(ctx context.Context, organizationID, id uuid.UUID, patch repository.LeadPatch) (repository.Lead, error)
	UpdateStatus(ctx context.Context, organizationID, id uuid.UUID, status string) (repository.Lead, error)
	Assign(ctx context.Context, organizationID, id uuid.UUID, agentID *uuid.UUID) (repository.Lead, error)
	SetQuality(ctx context.Context, organizationID, id uuid.UUID, quality string) (repository.Lead, error)
}

// Dispatcher submits the conversion signal for a rated lead.
type Dispatcher interface {
	Dispatch(ctx context.Context, organizationID, leadID uuid.UUID, quality, channel string) (time.Time, error)
}

// RetryScheduler enqueues a deferred dispatch retry after an automatic
// trigger fails.
type RetryScheduler interface {
	EnqueueDispatchRetry(ctx context.Context, organizationID, leadID uuid.UUID, attempt int) error
}

// Service handles lead management operations.
type Service struct {
	repo             Repository
	dispatcher       Dispatcher
	retries          RetryScheduler
	eventBus         events.Bus
	positiveStatuses map[string]bool
	log              *logger.Logger
}

func New(repo Repository, dispatcher Dispatcher, retries RetryScheduler, eventBus events.Bus, positiveStatuses map[string]bool, log *logger.Logger) *Service {
	return &Service{
		repo:             repo,
		dispatcher:       dispatcher,
		retries:          retries,
		eventBus:         eventBus,
		positiveStatuses: positiveStatuses,
		log:              log,
	}
}

// List returns leads for the organization, newest first.
func (s *Service) List(ctx context.Context, params repository.ListParams) (transport.ListLeadsResponse, error) {
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ListLeadsResponse{}, err
	}
	return ToListResponse(leads, total, params.Limit, params.Offset), nil
}

// GetByID retrieves a single lead.
func (s *Service) GetByID(ctx context.Context, organizationID, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, organizationID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// Update edits a lead's contact fields.
func (s *Service) Update(ctx context.Context, organizationID, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	patch := repository.LeadPatch{
		FullName: req.FullName,
		Email:    req.Email,
		FormName: req.FormName,
	}
	if req.Phone != nil {
		normalized := phone.NormalizeE164(*req.Phone)
		patch.Phone = &normalized
	}

	lead, err := s.repo.Update(ctx, organizationID, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// UpdateStatus moves a lead through the pipeline. Reaching a positive
// status while the feedback signal is still pending marks the lead
// qualified and triggers an automatic dispatch. The status write always
// stands; a dispatch failure is reported alongside it and handed to the
// retry queue.
func (s *Service) UpdateStatus(ctx context.Context, organizationID, id uuid.UUID, status string) (transport.StatusUpdateResponse, error) {
	if !domain.IsValidStatus(status) {
		return transport.StatusUpdateResponse{}, apperr.Validation("unknown status")
	}

	lead, err := s.repo.UpdateStatus(ctx, organizationID, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.StatusUpdateResponse{}, apperr.NotFound("lead not found")
		}
		return transport.StatusUpdateResponse{}, err
	}

	resp := transport.StatusUpdateResponse{Lead: ToLeadResponse(lead)}
	if !s.positiveStatuses[status] || lead.FeedbackStatus != domain.FeedbackPending {
		return resp, nil
	}

	quality := domain.QualityQualified
	rated, err := s.repo.SetQuality(ctx, organizationID, id, quality)
	if err != nil {
		if !errors.Is(err, repository.ErrAlreadyRated) {
			return resp, err
		}
		// A prior verdict wins; dispatch whatever it was.
		quality = rated.Quality
	}

	outcome := &transport.DispatchOutcome{Attempted: true, Channel: domain.ChannelAutomatic}
	sentAt, dispatchErr := s.dispatcher.Dispatch(ctx, organizationID, id, quality, domain.ChannelAutomatic)
	if dispatchErr != nil {
		outcome.Error = dispatchErr.Error()
		s.log.DispatchEvent(id.String(), domain.ChannelAutomatic, false, dispatchErr.Error())
		if apperr.Is(dispatchErr, apperr.KindUpstream) && s.retries != nil {
			if enqErr := s.retries.EnqueueDispatchRetry(ctx, organizationID, id, 1); enqErr != nil {
				s.log.Error("failed to enqueue dispatch retry", "error", enqErr, "leadId", id)
			}
		}
	} else {
		outcome.Sent = true
		outcome.SentAt = &sentAt
	}
	resp.Dispatch = outcome
	return resp, nil
}

// Rate records a manual quality verdict from the dashboard and dispatches
// the conversion signal. Dispatch errors are surfaced to the caller; the
// verdict itself is already committed at that point.
func (s *Service) Rate(ctx context.Context, organizationID, id uuid.UUID, quality string) (transport.DispatchResponse, error) {
	if !domain.IsValidQuality(quality) {
		return transport.DispatchResponse{}, apperr.Validation("quality must be qualified or unqualified")
	}

	if _, err := s.repo.SetQuality(ctx, organizationID, id, quality); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return transport.DispatchResponse{}, apperr.NotFound("lead not found")
		case errors.Is(err, repository.ErrAlreadyRated):
			return transport.DispatchResponse{}, apperr.Conflict("lead quality already set")
		default:
			return transport.DispatchResponse{}, err
		}
	}

	sentAt, err := s.dispatcher.Dispatch(ctx, organizationID, id, quality, domain.ChannelDashboard)
	if err != nil {
		return transport.DispatchResponse{}, err
	}
	return transport.DispatchResponse{LeadID: id, SentAt: sentAt, Channel: domain.ChannelDashboard}, nil
}

// Assign sets or clears the agent responsible for a lead and notifies the
// fan-out so the agent gets a portal link.
func (s *Service) Assign(ctx context.Context, organizationID, id uuid.UUID, agentID *uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.Assign(ctx, organizationID, id, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, err
	}

	if agentID != nil {
		s.eventBus.Publish(ctx, events.LeadAssigned{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  lead.OrganizationID,
			AgentID:   *agentID,
			FullName:  lead.FullName,
			FormName:  lead.FormName,
		})
	}
	return ToLeadResponse(lead), nil
}
