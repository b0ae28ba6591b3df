// Package leads provides the lead management bounded context module.
package leads

import (
	"leadsignal_backend/internal/events"
	apphttp "leadsignal_backend/internal/http"
	"leadsignal_backend/internal/leads/domain"
	"leadsignal_backend/internal/leads/handler"
	"leadsignal_backend/internal/leads/management"
	"leadsignal_backend/internal/leads/repository"
	"leadsignal_backend/platform/config"
	"leadsignal_backend/platform/logger"
	"leadsignal_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the lead management service. The repository and
// dispatcher are shared with the signal and rating modules, so they are
// constructed by the caller.
func NewModule(repo *repository.Repository, dispatcher management.Dispatcher, retries management.RetryScheduler, eventBus events.Bus, cfg config.SignalConfig, val *validator.Validator, log *logger.Logger) *Module {
	svc := management.New(repo, dispatcher, retries, eventBus, domain.PositiveStatusSet(cfg.GetSignalPositiveStatuses()), log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "leads" }

// RegisterRoutes mounts the lead routes on the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}
