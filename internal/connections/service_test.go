package connections

import (
	"context"
	"testing"
	"time"

	"leadsignal_backend/internal/metaapi"
	"leadsignal_backend/platform/apperr"
	"leadsignal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

type fakeGraph struct {
	pages []metaapi.Page
}

func (g fakeGraph) ExchangeCode(context.Context, string, string) (metaapi.TokenResponse, error) {
	return metaapi.TokenResponse{AccessToken: "short-token"}, nil
}

func (g fakeGraph) ExchangeLongLivedToken(context.Context, string) (metaapi.TokenResponse, error) {
	return metaapi.TokenResponse{AccessToken: "long-token", ExpiresIn: 5184000}, nil
}

func (g fakeGraph) ListPages(context.Context, string) ([]metaapi.Page, error) {
	return g.pages, nil
}

func connectionRow(orgID uuid.UUID, pageID, token, pixelID string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows([]string{
		"organization_id", "page_id", "page_name", "access_token", "pixel_id", "created_at", "updated_at",
	}).AddRow(orgID, pageID, "Demo Page", token, pixelID, now, now)
}

func newTestService(t *testing.T, graph GraphClient) (*Service, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewService(NewRepository(mock), graph, logger.New("test")), mock
}

func TestConnectStoresPageToken(t *testing.T) {
	orgID := uuid.New()
	graph := fakeGraph{pages: []metaapi.Page{
		{ID: "page-1", Name: "Demo Page", AccessToken: "page-token-abcdef"},
		{ID: "page-2", Name: "Other Page", AccessToken: "other-token"},
	}}
	svc, mock := newTestService(t, graph)

	mock.ExpectQuery("INSERT INTO meta_connections").
		WithArgs(orgID, "page-1", "Demo Page", "page-token-abcdef", "pixel-1").
		WillReturnRows(connectionRow(orgID, "page-1", "page-token-abcdef", "pixel-1"))

	resp, err := svc.Connect(context.Background(), orgID, ConnectRequest{
		Code:        "auth-code",
		RedirectURI: "https://example.com/cb",
		PageID:      "page-1",
		PixelID:     "pixel-1",
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if resp.PageID != "page-1" || resp.PixelID != "pixel-1" {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.TokenPrefix == "page-token-abcdef" {
		t.Fatal("full token must not leave the service")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestConnectRejectsInaccessiblePage(t *testing.T) {
	svc, _ := newTestService(t, fakeGraph{pages: []metaapi.Page{{ID: "page-2"}}})

	_, err := svc.Connect(context.Background(), uuid.New(), ConnectRequest{
		Code:        "auth-code",
		RedirectURI: "https://example.com/cb",
		PageID:      "page-1",
		PixelID:     "pixel-1",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestGetRedactsToken(t *testing.T) {
	orgID := uuid.New()
	svc, mock := newTestService(t, fakeGraph{})

	mock.ExpectQuery("SELECT (.+) FROM meta_connections WHERE organization_id").
		WithArgs(orgID).
		WillReturnRows(connectionRow(orgID, "page-1", "page-token-abcdef", "pixel-1"))

	resp, err := svc.Get(context.Background(), orgID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.TokenPrefix != "page-tok…" {
		t.Fatalf("token prefix = %q", resp.TokenPrefix)
	}
}

func TestGetMissingConnectionIsNotFound(t *testing.T) {
	orgID := uuid.New()
	svc, mock := newTestService(t, fakeGraph{})

	mock.ExpectQuery("SELECT (.+) FROM meta_connections WHERE organization_id").
		WithArgs(orgID).
		WillReturnRows(pgxmock.NewRows([]string{
			"organization_id", "page_id", "page_name", "access_token", "pixel_id", "created_at", "updated_at",
		}))

	_, err := svc.Get(context.Background(), orgID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestDisconnectMissingConnection(t *testing.T) {
	orgID := uuid.New()
	svc, mock := newTestService(t, fakeGraph{})

	mock.ExpectExec("DELETE FROM meta_connections").
		WithArgs(orgID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := svc.Disconnect(context.Background(), orgID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}
