package rating

import (
	"context"
	"errors"
	"time"

	"leadsignal_backend/internal/leads/domain"
	"leadsignal_backend/internal/leads/management"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/leads/transport"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

// TokenStore is the token persistence surface the service uses.
type TokenStore interface {
	IssueRatingToken(ctx context.Context, organizationID, leadID uuid.UUID, ttl time.Duration) (string, error)
	ConsumeAndRate(ctx context.Context, rawToken, quality string) (RatedLead, error)
	IssuePortalToken(ctx context.Context, organizationID, agentID uuid.UUID, ttl time.Duration) (string, error)
	ResolvePortalToken(ctx context.Context, rawToken string) (PortalToken, error)
}

// LeadStore is the slice of the lead repository the portal uses.
type LeadStore interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Lead, int, error)
	SetQuality(ctx context.Context, organizationID, id uuid.UUID, quality string) (repository.Lead, error)
}

// Dispatcher submits the conversion signal for a rated lead.
type Dispatcher interface {
	Dispatch(ctx context.Context, organizationID, leadID uuid.UUID, quality, channel string) (time.Time, error)
}

// Config carries the token lifetimes and the base URL for rating links.
type Config interface {
	GetRatingTokenTTL() time.Duration
	GetPortalTokenTTL() time.Duration
	GetAppBaseURL() string
}

// Service handles one-click email ratings and the agent portal.
type Service struct {
	tokens     TokenStore
	leads      LeadStore
	dispatcher Dispatcher
	cfg        Config
	log        *logger.Logger
}

func NewService(tokens TokenStore, leads LeadStore, dispatcher Dispatcher, cfg Config, log *logger.Logger) *Service {
	return &Service{tokens: tokens, leads: leads, dispatcher: dispatcher, cfg: cfg, log: log}
}

// RatingLinks are the one-click URLs embedded in new-lead notifications.
type RatingLinks struct {
	Qualified   string
	Unqualified string
}

// IssueRatingLinks creates a rating token for a lead and returns both
// verdict links.
func (s *Service) IssueRatingLinks(ctx context.Context, organizationID, leadID uuid.UUID) (RatingLinks, error) {
	raw, err := s.tokens.IssueRatingToken(ctx, organizationID, leadID, s.cfg.GetRatingTokenTTL())
	if err != nil {
		return RatingLinks{}, err
	}
	base := s.cfg.GetAppBaseURL() + "/r/" + raw + "?rating="
	return RatingLinks{
		Qualified:   base + domain.QualityQualified,
		Unqualified: base + domain.QualityUnqualified,
	}, nil
}

// IssuePortalLink creates a portal token for an agent and returns the
// portal URL for the assignment notification.
func (s *Service) IssuePortalLink(ctx context.Context, organizationID, agentID uuid.UUID) (string, error) {
	raw, err := s.tokens.IssuePortalToken(ctx, organizationID, agentID, s.cfg.GetPortalTokenTTL())
	if err != nil {
		return "", err
	}
	return s.cfg.GetAppBaseURL() + "/portal?token=" + raw, nil
}

// RateByToken consumes a one-click link. The token burn and the quality
// write commit together; the dispatch runs afterwards and its failure
// does not undo the rating, the signal stays pending for a retry.
func (s *Service) RateByToken(ctx context.Context, rawToken, quality string) (transport.LeadResponse, error) {
	if !domain.IsValidQuality(quality) {
		return transport.LeadResponse{}, apperr.Validation("rating must be qualified or unqualified")
	}

	rated, err := s.tokens.ConsumeAndRate(ctx, rawToken, quality)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			return transport.LeadResponse{}, apperr.NotFound("unknown rating link")
		case errors.Is(err, ErrTokenUsed):
			return transport.LeadResponse{}, apperr.Conflict("rating link already used")
		case errors.Is(err, ErrTokenExpired):
			return transport.LeadResponse{}, apperr.Gone("rating link expired")
		default:
			return transport.LeadResponse{}, err
		}
	}

	// The stored verdict wins if the lead was rated elsewhere first.
	effective := rated.Lead.Quality
	if effective == domain.QualityPending || effective == "" {
		effective = quality
	}

	if _, err := s.dispatcher.Dispatch(ctx, rated.OrganizationID, rated.LeadID, effective, domain.ChannelEmail); err != nil {
		if !apperr.Is(err, apperr.KindConflict) {
			s.log.DispatchEvent(rated.LeadID.String(), domain.ChannelEmail, false, err.Error())
		}
	}
	return management.ToLeadResponse(rated.Lead), nil
}

// PortalLeads lists the leads assigned to the portal token's agent.
func (s *Service) PortalLeads(ctx context.Context, grant PortalToken, limit, offset int) (transport.ListLeadsResponse, error) {
	agentID := grant.AgentID
	leadsList, total, err := s.leads.List(ctx, repository.ListParams{
		OrganizationID: grant.OrganizationID,
		AssignedTo:     &agentID,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		return transport.ListLeadsResponse{}, err
	}
	return management.ToListResponse(leadsList, total, limit, offset), nil
}

// PortalRate records a verdict from the agent portal. The token's agent
// must be the lead's assignee.
func (s *Service) PortalRate(ctx context.Context, grant PortalToken, leadID uuid.UUID, quality string) (transport.DispatchResponse, error) {
	if !domain.IsValidQuality(quality) {
		return transport.DispatchResponse{}, apperr.Validation("quality must be qualified or unqualified")
	}

	lead, err := s.leads.GetByID(ctx, grant.OrganizationID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.DispatchResponse{}, apperr.NotFound("lead not found")
		}
		return transport.DispatchResponse{}, err
	}
	if lead.AssignedTo == nil || *lead.AssignedTo != grant.AgentID {
		return transport.DispatchResponse{}, apperr.Forbidden("lead is not assigned to you")
	}

	if _, err := s.leads.SetQuality(ctx, grant.OrganizationID, leadID, quality); err != nil {
		if errors.Is(err, repository.ErrAlreadyRated) {
			return transport.DispatchResponse{}, apperr.Conflict("lead quality already set")
		}
		return transport.DispatchResponse{}, err
	}

	sentAt, err := s.dispatcher.Dispatch(ctx, grant.OrganizationID, leadID, quality, domain.ChannelPortal)
	if err != nil {
		return transport.DispatchResponse{}, err
	}
	return transport.DispatchResponse{LeadID: leadID, SentAt: sentAt, Channel: domain.ChannelPortal}, nil
}

// ResolvePortalToken validates the portal token header.
func (s *Service) ResolvePortalToken(ctx context.Context, rawToken string) (PortalToken, error) {
	grant, err := s.tokens.ResolvePortalToken(ctx, rawToken)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenNotFound):
			return PortalToken{}, apperr.Unauthorized("invalid portal token")
		case errors.Is(err, ErrTokenExpired):
			return PortalToken{}, apperr.Unauthorized("portal token expired")
		default:
			return PortalToken{}, err
		}
	}
	return grant, nil
}
