// Package connections manages the per-tenant ads-platform connection:
// OAuth code exchange, page selection and pixel configuration.
package connections

import (
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/validator"
)

// Module is the connections bounded context module implementing http.Module.
type Module struct {
	handler *Handler
}

// NewModule wires the connection service. The repository is shared with
// ingestion and the signal dispatcher, so it is constructed by the caller.
func NewModule(repo *Repository, graph GraphClient, val *validator.Validator, log *logger.Logger) *Module {
	svc := NewService(repo, graph, log)
	return &Module{handler: NewHandler(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "connections" }

// RegisterRoutes mounts the admin-only connection routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Admin)
}
