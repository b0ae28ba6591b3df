// Package rating handles quality verdicts arriving outside the
// dashboard: one-click email links and the agent portal.
package rating

import (
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/platform/logger"
)

// Module is the rating bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule wires the rating service. The lead store and dispatcher are
// shared with the other modules, so they are constructed by the caller.
func NewModule(tokens TokenStore, leads LeadStore, dispatcher Dispatcher, cfg Config, log *logger.Logger) *Module {
	svc := NewService(tokens, leads, dispatcher, cfg, log)
	return &Module{handler: NewHandler(svc, log), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "rating" }

// Service exposes link issuance to the notification fan-out.
func (m *Module) Service() *Service { return m.service }

// RegisterRoutes mounts the public rating link with a strict per-IP rate
// limit and the portal API under /api/v1/portal.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.Engine.Group("/")
	public.Use(ctx.PublicRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	m.handler.RegisterPortalRoutes(ctx.V1.Group("/portal"))
}
