package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadsignal_backend/internal/connections"
	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"
	"leadsignal_backend/platform/phone"

	"github.com/google/uuid"
)

// ConnectionResolver maps an incoming page id to the owning tenant.
type ConnectionResolver interface {
	GetByPageID(ctx context.Context, pageID string) (connections.Connection, error)
}

// LeadStore is the slice of the lead repository ingestion uses.
type LeadStore interface {
	ExistsByLeadgenID(ctx context.Context, organizationID uuid.UUID, leadgenID string) (bool, error)
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
}

// GraphClient fetches lead details and form metadata.
type GraphClient interface {
	GetLeadData(ctx context.Context, leadgenID, pageToken string) (metaapi.LeadData, error)
	GetFormName(ctx context.Context, formID, pageToken string) (string, error)
}

// Service ingests lead notifications from webhook deliveries.
type Service struct {
	connections ConnectionResolver
	leads       LeadStore
	graph       GraphClient
	eventBus    events.Bus
	metrics     *metrics.RelayMetrics
	log         *logger.Logger
}

func NewService(conns ConnectionResolver, leads LeadStore, graph GraphClient, eventBus events.Bus, m *metrics.RelayMetrics, log *logger.Logger) *Service {
	return &Service{
		connections: conns,
		leads:       leads,
		graph:       graph,
		eventBus:    eventBus,
		metrics:     m,
		log:         log,
	}
}

// ProcessDelivery ingests every leadgen change in a delivery. Changes are
// independent: a failing one is logged and the rest still run, because
// the platform redelivers the whole batch on a non-200 response.
func (s *Service) ProcessDelivery(ctx context.Context, delivery Delivery) {
	for _, entry := range delivery.Entry {
		for _, change := range entry.Changes {
			if change.Field != "leadgen" {
				continue
			}
			if err := s.IngestChange(ctx, change.Value); err != nil {
				s.log.Error("lead ingestion failed",
					"error", err,
					"leadgenId", change.Value.LeadgenID,
					"pageId", change.Value.PageID,
				)
			}
		}
	}
}

// IngestChange persists one lead notification. Pages without a connection
// and already-known leads are silent no-ops.
func (s *Service) IngestChange(ctx context.Context, value ChangeValue) error {
	start := time.Now()

	conn, err := s.connections.GetByPageID(ctx, value.PageID)
	if err != nil {
		if errors.Is(err, connections.ErrNotFound) {
			s.log.WebhookEvent(value.LeadgenID, value.PageID, "no_tenant")
			s.metrics.ObserveIngest(metrics.IngestNoTenant, time.Since(start).Seconds())
			return nil
		}
		s.metrics.ObserveIngest(metrics.IngestFailed, time.Since(start).Seconds())
		return err
	}

	exists, err := s.leads.ExistsByLeadgenID(ctx, conn.OrganizationID, value.LeadgenID)
	if err != nil {
		s.metrics.ObserveIngest(metrics.IngestFailed, time.Since(start).Seconds())
		return err
	}
	if exists {
		s.log.WebhookEvent(value.LeadgenID, value.PageID, "duplicate")
		s.metrics.ObserveIngest(metrics.IngestDuplicate, time.Since(start).Seconds())
		return nil
	}

	data, err := s.graph.GetLeadData(ctx, value.LeadgenID, conn.AccessToken)
	if err != nil {
		s.metrics.ObserveIngest(metrics.IngestFailed, time.Since(start).Seconds())
		return fmt.Errorf("fetch lead details: %w", err)
	}

	formID := data.FormID
	if formID == "" {
		formID = value.FormID
	}
	formName, err := s.graph.GetFormName(ctx, formID, conn.AccessToken)
	if err != nil || formName == "" {
		formName = FallbackFormName(formID)
	}

	flat := FlattenFields(data.FieldData)
	fullName, email, phoneNumber := ExtractContact(flat)
	rawFields, err := json.Marshal(flat)
	if err != nil {
		rawFields = []byte("{}")
	}

	params := repository.CreateLeadParams{
		OrganizationID: conn.OrganizationID,
		LeadgenID:      value.LeadgenID,
		PageID:         value.PageID,
		FormID:         formID,
		FormName:       formName,
		FullName:       fullName,
		Email:          email,
		Phone:          phone.NormalizeE164(phoneNumber),
		RawFields:      rawFields,
	}
	if data.AdID != "" {
		params.AdID = &data.AdID
	} else if value.AdID != "" {
		params.AdID = &value.AdID
	}
	if created, parseErr := time.Parse("2006-01-02T15:04:05-0700", data.CreatedTime); parseErr == nil {
		params.SourceCreatedAt = &created
	} else if value.CreatedTime > 0 {
		created := time.Unix(value.CreatedTime, 0).UTC()
		params.SourceCreatedAt = &created
	}

	lead, err := s.leads.Create(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.WebhookEvent(value.LeadgenID, value.PageID, "duplicate")
			s.metrics.ObserveIngest(metrics.IngestDuplicate, time.Since(start).Seconds())
			return nil
		}
		s.metrics.ObserveIngest(metrics.IngestFailed, time.Since(start).Seconds())
		return fmt.Errorf("insert lead: %w", err)
	}

	s.log.WebhookEvent(value.LeadgenID, value.PageID, "created")
	s.metrics.ObserveIngest(metrics.IngestCreated, time.Since(start).Seconds())

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.OrganizationID,
		FullName:  lead.FullName,
		Email:     lead.Email,
		Phone:     lead.Phone,
		FormName:  lead.FormName,
	})
	return nil
}
