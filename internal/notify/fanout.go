// Package notify fans lead events out to email, WhatsApp and the
// browser. Channels run in parallel and fail independently; a broken
// channel never affects the write that triggered the notification.
package notify

import (
	"context"
	"fmt"

	"leadsignal_backend/internal/email"
	"leadsignal_backend/internal/events"
	"leadsignal_backend/internal/notify/sse"
	"leadsignal_backend/internal/rating"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// LinkIssuer creates the rating and portal links embedded in
// notifications.
type LinkIssuer interface {
	IssueRatingLinks(ctx context.Context, organizationID, leadID uuid.UUID) (rating.RatingLinks, error)
	IssuePortalLink(ctx context.Context, organizationID, agentID uuid.UUID) (string, error)
}

// Fanout delivers notifications for domain events.
type Fanout struct {
	email    email.Sender
	whatsapp WhatsAppSender
	sse      *sse.Service
	links    LinkIssuer
	cfg      config.NotificationConfig
	metrics  *metrics.RelayMetrics
	log      *logger.Logger
}

// WhatsAppSender sends a plain text message. A nil sidecar client
// disables the channel.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

func NewFanout(emailSender email.Sender, wa WhatsAppSender, sseService *sse.Service, links LinkIssuer, cfg config.NotificationConfig, m *metrics.RelayMetrics, log *logger.Logger) *Fanout {
	return &Fanout{
		email:    emailSender,
		whatsapp: wa,
		sse:      sseService,
		links:    links,
		cfg:      cfg,
		metrics:  m,
		log:      log,
	}
}

// OnLeadCreated notifies the tenant about a fresh lead on every enabled
// channel.
func (f *Fanout) OnLeadCreated(ctx context.Context, e events.LeadCreated) error {
	var g errgroup.Group

	g.Go(func() error {
		f.sendNewLeadEmail(ctx, e)
		return nil
	})
	g.Go(func() error {
		f.sendNewLeadWhatsApp(ctx, e)
		return nil
	})
	g.Go(func() error {
		f.sse.PublishToOrganization(e.TenantID, sse.Event{
			Type:    sse.EventLeadCreated,
			LeadID:  e.LeadID,
			Message: "New lead: " + e.FullName,
			Data:    map[string]string{"formName": e.FormName},
		})
		f.metrics.ObserveNotification("sse", "sent")
		return nil
	})

	return g.Wait()
}

// OnLeadAssigned tells the agent about their new lead, with a portal
// link for rating it.
func (f *Fanout) OnLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	var g errgroup.Group

	g.Go(func() error {
		f.sendAssignmentEmail(ctx, e)
		return nil
	})
	g.Go(func() error {
		f.sse.Publish(e.AgentID, sse.Event{
			Type:    sse.EventLeadAssigned,
			LeadID:  e.LeadID,
			Message: "Lead assigned: " + e.FullName,
		})
		f.metrics.ObserveNotification("sse", "sent")
		return nil
	})

	return g.Wait()
}

// OnSignalDispatched pushes the dispatch confirmation to the dashboard.
func (f *Fanout) OnSignalDispatched(_ context.Context, e events.SignalDispatched) error {
	f.sse.PublishToOrganization(e.TenantID, sse.Event{
		Type:    sse.EventSignalDispatched,
		LeadID:  e.LeadID,
		Message: "Feedback sent to the ads platform",
		Data:    map[string]string{"qualification": e.Qualification, "channel": e.Channel},
	})
	f.metrics.ObserveNotification("sse", "sent")
	return nil
}

func (f *Fanout) sendNewLeadEmail(ctx context.Context, e events.LeadCreated) {
	to := f.cfg.GetNotificationEmailTo()
	if f.email == nil || to == "" {
		return
	}

	links, err := f.links.IssueRatingLinks(ctx, e.TenantID, e.LeadID)
	if err != nil {
		f.log.Error("failed to issue rating links", "error", err, "leadId", e.LeadID)
		f.metrics.ObserveNotification("email", "failed")
		return
	}

	err = f.email.SendNewLeadNotification(ctx, to, email.NewLeadData{
		LeadName:       e.FullName,
		FormName:       e.FormName,
		Email:          e.Email,
		Phone:          e.Phone,
		QualifiedURL:   links.Qualified,
		UnqualifiedURL: links.Unqualified,
	})
	if err != nil {
		f.log.Error("new lead email failed", "error", err, "leadId", e.LeadID)
		f.metrics.ObserveNotification("email", "failed")
		return
	}
	f.metrics.ObserveNotification("email", "sent")
}

func (f *Fanout) sendNewLeadWhatsApp(ctx context.Context, e events.LeadCreated) {
	to := f.cfg.GetNotificationWhatsAppTo()
	if f.whatsapp == nil || to == "" {
		return
	}

	msg := fmt.Sprintf("New lead via %s: %s", e.FormName, e.FullName)
	if e.Phone != "" {
		msg += " (" + e.Phone + ")"
	}
	if err := f.whatsapp.SendMessage(ctx, to, msg); err != nil {
		f.log.Error("whatsapp notification failed", "error", err, "leadId", e.LeadID)
		f.metrics.ObserveNotification("whatsapp", "failed")
		return
	}
	f.metrics.ObserveNotification("whatsapp", "sent")
}

func (f *Fanout) sendAssignmentEmail(ctx context.Context, e events.LeadAssigned) {
	to := f.cfg.GetNotificationEmailTo()
	if f.email == nil || to == "" {
		return
	}

	portalURL, err := f.links.IssuePortalLink(ctx, e.TenantID, e.AgentID)
	if err != nil {
		f.log.Error("failed to issue portal link", "error", err, "agentId", e.AgentID)
		f.metrics.ObserveNotification("email", "failed")
		return
	}

	err = f.email.SendAssignmentNotification(ctx, to, email.AssignmentData{
		LeadName:  e.FullName,
		FormName:  e.FormName,
		PortalURL: portalURL,
	})
	if err != nil {
		f.log.Error("assignment email failed", "error", err, "leadId", e.LeadID)
		f.metrics.ObserveNotification("email", "failed")
		return
	}
	f.metrics.ObserveNotification("email", "sent")
}
