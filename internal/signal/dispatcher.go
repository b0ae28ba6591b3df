package signal

import (
	"context"
	"errors"
	"time"

	"leadsignal_backend/internal/connections"
	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"

	"github.com/google/uuid"
)

// LeadStore is the slice of the lead repository the dispatcher uses.
type LeadStore interface {
	ClaimForDispatch(ctx context.Context, organizationID, id uuid.UUID, channel string) (repository.Lead, error)
	ConfirmFeedbackSent(ctx context.Context, organizationID, id uuid.UUID, sentAt time.Time) error
	RecordDispatchFailure(ctx context.Context, organizationID, id uuid.UUID, reason string) error
}

// ConnectionStore resolves a tenant's ads-platform credentials.
type ConnectionStore interface {
	GetByTenant(ctx context.Context, organizationID uuid.UUID) (connections.Connection, error)
}

// ConversionSender submits a conversion event upstream.
type ConversionSender interface {
	SendConversionEvent(ctx context.Context, pixelID, accessToken string, event metaapi.ConversionEvent) (metaapi.ConversionResponse, error)
}

// Dispatcher delivers the quality verdict of a lead back to the ads
// platform at most once. Every trigger, whether dashboard, portal, email
// link or automatic status transition, funnels through Dispatch.
type Dispatcher struct {
	leads       LeadStore
	connections ConnectionStore
	sender      ConversionSender
	eventBus    events.Bus
	metrics     *metrics.RelayMetrics
	sourceName  string
	log         *logger.Logger
}

func NewDispatcher(leads LeadStore, conns ConnectionStore, sender ConversionSender, eventBus events.Bus, m *metrics.RelayMetrics, sourceName string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		leads:       leads,
		connections: conns,
		sender:      sender,
		eventBus:    eventBus,
		metrics:     m,
		sourceName:  sourceName,
		log:         log,
	}
}

// Dispatch submits the conversion event for a rated lead. The feedback
// row is claimed pending->sending before the outbound call; concurrent
// callers lose the claim and get a Conflict. A send failure releases the
// claim so a later trigger or the retry worker can take over. A sent
// record is final: repeat calls return Conflict carrying the original
// send timestamp.
func (d *Dispatcher) Dispatch(ctx context.Context, organizationID, leadID uuid.UUID, quality, channel string) (time.Time, error) {
	conn, err := d.connections.GetByTenant(ctx, organizationID)
	if err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			return time.Time{}, apperr.ConfigurationMissing("no ads platform connection configured")
		}
		return time.Time{}, err
	}
	if conn.PixelID == "" || conn.AccessToken == "" {
		return time.Time{}, apperr.ConfigurationMissing("connection has no pixel or access token")
	}

	lead, err := d.leads.ClaimForDispatch(ctx, organizationID, leadID, channel)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadySent):
			conflict := apperr.Conflict("feedback already sent")
			if lead.FeedbackSentAt != nil {
				conflict = conflict.WithDetails(map[string]any{"sentAt": lead.FeedbackSentAt})
			}
			return time.Time{}, conflict
		case errors.Is(err, repository.ErrDispatchInFlight):
			return time.Time{}, apperr.Conflict("feedback dispatch already in progress")
		case errors.Is(err, repository.ErrNotFound):
			return time.Time{}, apperr.NotFound("lead not found")
		default:
			return time.Time{}, err
		}
	}

	event := NewQualifiedLeadEvent(lead.Email, lead.Phone, lead.LeadgenID, d.sourceName, quality == "qualified")

	if _, err := d.sender.SendConversionEvent(ctx, conn.PixelID, conn.AccessToken, event); err != nil {
		if recErr := d.leads.RecordDispatchFailure(ctx, organizationID, leadID, err.Error()); recErr != nil {
			d.log.Error("failed to release dispatch claim", "error", recErr, "leadId", leadID)
		}
		d.metrics.ObserveDispatchFailure(channel, "upstream")
		d.log.DispatchEvent(leadID.String(), channel, false, err.Error())
		return time.Time{}, err
	}

	sentAt := time.Now().UTC()
	if err := d.leads.ConfirmFeedbackSent(ctx, organizationID, leadID, sentAt); err != nil {
		// The event is already delivered. Leave the row claimed instead
		// of risking a second send.
		d.log.Error("failed to confirm sent feedback", "error", err, "leadId", leadID)
		return time.Time{}, err
	}

	d.metrics.ObserveSignalSent(channel, quality)
	d.log.DispatchEvent(leadID.String(), channel, true, "")
	d.eventBus.Publish(ctx, events.SignalDispatched{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		TenantID:      organizationID,
		Qualification: quality,
		Channel:       channel,
	})

	return sentAt, nil
}
