package connections

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("connection not found")

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connection links a tenant to its ads-platform page and pixel.
type Connection struct {
	OrganizationID uuid.UUID
	PageID         string
	PageName       string
	AccessToken    string
	PixelID        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const connectionColumns = `organization_id, page_id, page_name, access_token, pixel_id, created_at, updated_at`

func scanConnection(row pgx.Row) (Connection, error) {
	var c Connection
	err := row.Scan(&c.OrganizationID, &c.PageID, &c.PageName, &c.AccessToken, &c.PixelID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Connection{}, ErrNotFound
	}
	return c, err
}

// Upsert stores the single connection row for a tenant, replacing any
// previous page or pixel.
func (r *Repository) Upsert(ctx context.Context, conn Connection) (Connection, error) {
	return scanConnection(r.db.QueryRow(ctx, `
		INSERT INTO meta_connections (organization_id, page_id, page_name, access_token, pixel_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organization_id) DO UPDATE SET
			page_id = EXCLUDED.page_id,
			page_name = EXCLUDED.page_name,
			access_token = EXCLUDED.access_token,
			pixel_id = EXCLUDED.pixel_id,
			updated_at = now()
		RETURNING `+connectionColumns,
		conn.OrganizationID, conn.PageID, conn.PageName, conn.AccessToken, conn.PixelID,
	))
}

// GetByTenant returns the tenant's connection.
func (r *Repository) GetByTenant(ctx context.Context, organizationID uuid.UUID) (Connection, error) {
	return scanConnection(r.db.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM meta_connections WHERE organization_id = $1`,
		organizationID,
	))
}

// GetByPageID resolves the tenant owning a page. Ingestion uses this to
// map incoming webhook deliveries to an organization.
func (r *Repository) GetByPageID(ctx context.Context, pageID string) (Connection, error) {
	return scanConnection(r.db.QueryRow(ctx, `
		SELECT `+connectionColumns+` FROM meta_connections WHERE page_id = $1`,
		pageID,
	))
}

// Delete removes the tenant's connection.
func (r *Repository) Delete(ctx context.Context, organizationID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM meta_connections WHERE organization_id = $1`, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
