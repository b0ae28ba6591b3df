package notify

import (
	"context"

	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/internal/notify/sse"
	"leadsignal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Module is the notification fan-out module implementing http.Module.
type Module struct {
	fanout *Fanout
	sse    *sse.Service
}

// NewModule subscribes the fan-out to the event bus.
func NewModule(eventBus events.Bus, fanout *Fanout, sseService *sse.Service) *Module {
	m := &Module{fanout: fanout, sse: sseService}

	eventBus.Subscribe(events.LeadCreatedName, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.LeadCreated); ok {
			return fanout.OnLeadCreated(ctx, e)
		}
		return nil
	}))
	eventBus.Subscribe(events.LeadAssignedName, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.LeadAssigned); ok {
			return fanout.OnLeadAssigned(ctx, e)
		}
		return nil
	}))
	eventBus.Subscribe(events.SignalDispatchedName, events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.SignalDispatched); ok {
			return fanout.OnSignalDispatched(ctx, e)
		}
		return nil
	}))

	return m
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notify" }

// RegisterRoutes mounts the SSE stream on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/notifications/stream", m.sse.Handler(getUserID, getOrgID))
}

// Close shuts down open SSE connections.
func (m *Module) Close() {
	m.sse.Close()
}

func getUserID(c *gin.Context) (uuid.UUID, bool) {
	ident := httpkit.GetIdentity(c)
	if ident == nil || !ident.IsAuthenticated() {
		return uuid.Nil, false
	}
	return ident.UserID(), true
}

func getOrgID(c *gin.Context) (uuid.UUID, bool) {
	ident := httpkit.GetIdentity(c)
	if ident == nil {
		return uuid.Nil, false
	}
	if tid := ident.TenantID(); tid != nil {
		return *tid, true
	}
	return uuid.Nil, false
}
