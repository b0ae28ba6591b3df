package connections

import (
	"context"
	"errors"
	"time"

	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
)

// GraphClient is the slice of the ads-platform API the connect flow uses.
type GraphClient interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (metaapi.TokenResponse, error)
	ExchangeLongLivedToken(ctx context.Context, shortToken string) (metaapi.TokenResponse, error)
	ListPages(ctx context.Context, userToken string) ([]metaapi.Page, error)
}

type Service struct {
	repo  *Repository
	graph GraphClient
	log   *logger.Logger
}

func NewService(repo *Repository, graph GraphClient, log *logger.Logger) *Service {
	return &Service{repo: repo, graph: graph, log: log}
}

// Connect runs the OAuth exchange and stores the tenant's connection.
// The page access token from the page listing is persisted because lead
// retrieval and conversion submission both require it.
func (s *Service) Connect(ctx context.Context, organizationID uuid.UUID, req ConnectRequest) (ConnectionResponse, error) {
	short, err := s.graph.ExchangeCode(ctx, req.Code, req.RedirectURI)
	if err != nil {
		return ConnectionResponse{}, err
	}
	long, err := s.graph.ExchangeLongLivedToken(ctx, short.AccessToken)
	if err != nil {
		return ConnectionResponse{}, err
	}

	pages, err := s.graph.ListPages(ctx, long.AccessToken)
	if err != nil {
		return ConnectionResponse{}, err
	}
	var page *metaapi.Page
	for i := range pages {
		if pages[i].ID == req.PageID {
			page = &pages[i]
			break
		}
	}
	if page == nil {
		return ConnectionResponse{}, apperr.Validation("page not accessible with the granted permissions")
	}

	conn, err := s.repo.Upsert(ctx, Connection{
		OrganizationID: organizationID,
		PageID:         page.ID,
		PageName:       page.Name,
		AccessToken:    page.AccessToken,
		PixelID:        req.PixelID,
	})
	if err != nil {
		return ConnectionResponse{}, err
	}

	s.log.Info("ads platform connected", "organizationId", organizationID, "pageId", conn.PageID)
	return toResponse(conn), nil
}

// Get returns the tenant's current connection with the token redacted.
func (s *Service) Get(ctx context.Context, organizationID uuid.UUID) (ConnectionResponse, error) {
	conn, err := s.repo.GetByTenant(ctx, organizationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ConnectionResponse{}, apperr.NotFound("no connection configured")
		}
		return ConnectionResponse{}, err
	}
	return toResponse(conn), nil
}

// Disconnect removes the tenant's connection. Afterwards ingestion
// silently skips deliveries for the page and dispatch reports missing
// configuration.
func (s *Service) Disconnect(ctx context.Context, organizationID uuid.UUID) error {
	if err := s.repo.Delete(ctx, organizationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("no connection configured")
		}
		return err
	}
	s.log.Info("ads platform disconnected", "organizationId", organizationID)
	return nil
}

type ConnectRequest struct {
	Code        string `json:"code" validate:"required"`
	RedirectURI string `json:"redirectUri" validate:"required,url"`
	PageID      string `json:"pageId" validate:"required"`
	PixelID     string `json:"pixelId" validate:"required"`
}

type ConnectionResponse struct {
	PageID      string    `json:"pageId"`
	PageName    string    `json:"pageName"`
	PixelID     string    `json:"pixelId"`
	TokenPrefix string    `json:"tokenPrefix"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(c Connection) ConnectionResponse {
	prefix := c.AccessToken
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return ConnectionResponse{
		PageID:      c.PageID,
		PageName:    c.PageName,
		PixelID:     c.PixelID,
		TokenPrefix: prefix + "…",
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
