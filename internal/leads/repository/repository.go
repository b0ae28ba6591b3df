package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound  = errors.New("lead not found")
	ErrDuplicate = errors.New("lead already ingested")
)

// DB is the subset of pgxpool.Pool the repository uses. Tests substitute
// a pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db DB
}

func New(db DB) *Repository {
	return &Repository{db: db}
}

// Lead mirrors a row of the leads table.
type Lead struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	LeadgenID         string
	PageID            string
	FormID            string
	AdID              *string
	FormName          string
	FullName          string
	Email             string
	Phone             string
	RawFields         []byte
	Status            string
	Quality           string
	SourceCreatedAt   *time.Time
	AssignedTo        *uuid.UUID
	FeedbackStatus    string
	FeedbackSentAt    *time.Time
	FeedbackChannel   *string
	FeedbackAttempts  int
	FeedbackLastError *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

const leadColumns = `id, organization_id, leadgen_id, page_id, form_id, ad_id, form_name,
	full_name, email, phone, raw_fields, status, quality, source_created_at, assigned_to,
	feedback_status, feedback_sent_at, feedback_channel, feedback_attempts, feedback_last_error,
	created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.LeadgenID, &l.PageID, &l.FormID, &l.AdID, &l.FormName,
		&l.FullName, &l.Email, &l.Phone, &l.RawFields, &l.Status, &l.Quality, &l.SourceCreatedAt, &l.AssignedTo,
		&l.FeedbackStatus, &l.FeedbackSentAt, &l.FeedbackChannel, &l.FeedbackAttempts, &l.FeedbackLastError,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return l, err
}

// CreateLeadParams carries the fields for a freshly ingested lead.
type CreateLeadParams struct {
	OrganizationID  uuid.UUID
	LeadgenID       string
	PageID          string
	FormID          string
	AdID            *string
	FormName        string
	FullName        string
	Email           string
	Phone           string
	RawFields       []byte
	SourceCreatedAt *time.Time
}

// Create inserts a new lead. A unique-constraint violation on
// (organization_id, leadgen_id) is reported as ErrDuplicate so the
// ingestion path can treat a redelivered webhook as a no-op.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO leads (organization_id, leadgen_id, page_id, form_id, ad_id, form_name,
			full_name, email, phone, raw_fields, source_created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.OrganizationID, params.LeadgenID, params.PageID, params.FormID, params.AdID,
		params.FormName, params.FullName, params.Email, params.Phone, params.RawFields,
		params.SourceCreatedAt,
	)

	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Lead{}, ErrDuplicate
		}
		return Lead{}, err
	}
	return lead, nil
}

// GetByID loads a lead scoped to its organization.
func (r *Repository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (Lead, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE id = $1 AND organization_id = $2`,
		id, organizationID,
	)
	return scanLead(row)
}

// ExistsByLeadgenID is a cheap pre-insert duplicate probe. The unique
// index remains the authority; callers must still handle ErrDuplicate
// from Create.
func (r *Repository) ExistsByLeadgenID(ctx context.Context, organizationID uuid.UUID, leadgenID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM leads WHERE organization_id = $1 AND leadgen_id = $2)`,
		organizationID, leadgenID,
	).Scan(&exists)
	return exists, err
}

// ListParams filters and pages the lead listing.
type ListParams struct {
	OrganizationID uuid.UUID
	Status         string
	Quality        string
	AssignedTo     *uuid.UUID
	Search         string
	Limit          int
	Offset         int
}

// List returns leads for an organization, newest first, with the total
// matching count for pagination.
func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := []string{"organization_id = $1"}
	args := []any{params.OrganizationID}

	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Quality != "" {
		args = append(args, params.Quality)
		where = append(where, fmt.Sprintf("quality = $%d", len(args)))
	}
	if params.AssignedTo != nil {
		args = append(args, *params.AssignedTo)
		where = append(where, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", len(args), len(args), len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, whereClause, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, lead)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

// Assign sets or clears the agent a lead is assigned to.
func (r *Repository) Assign(ctx context.Context, organizationID, id uuid.UUID, agentID *uuid.UUID) (Lead, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE leads SET assigned_to = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+leadColumns,
		id, organizationID, agentID,
	)
	return scanLead(row)
}

// UpdateStatus moves a lead to a new pipeline status.
func (r *Repository) UpdateStatus(ctx context.Context, organizationID, id uuid.UUID, status string) (Lead, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE leads SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+leadColumns,
		id, organizationID, status,
	)
	return scanLead(row)
}
