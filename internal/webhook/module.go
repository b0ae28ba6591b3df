// Package webhook receives lead notifications from the ads platform and
// turns them into persisted leads.
package webhook

import (
	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/metrics"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires delivery handling and ingestion.
func NewModule(conns ConnectionResolver, leads LeadStore, graph GraphClient, eventBus events.Bus, m *metrics.RelayMetrics, cfg config.MetaConfig, log *logger.Logger) *Module {
	svc := NewService(conns, leads, graph, eventBus, m, log)
	return &Module{handler: NewHandler(svc, cfg.GetMetaVerifyToken(), log)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "webhook" }

// RegisterRoutes mounts the public webhook endpoints. The platform
// authenticates via the verify token on subscribe and via the page
// mapping on delivery, not via JWT.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1)
}
