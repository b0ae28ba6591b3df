package rating

import (
	"context"
	"errors"
	"time"

	"leadsignal_backend/internal/leads/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenUsed     = errors.New("token already used")
	ErrTokenExpired  = errors.New("token expired")
)

// DB is the subset of pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

// IssueRatingToken creates a single-use email rating token for a lead and
// returns the raw token for embedding in the notification links.
func (r *Repository) IssueRatingToken(ctx context.Context, organizationID, leadID uuid.UUID, ttl time.Duration) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO rating_tokens (token_hash, organization_id, lead_id, expires_at)
		VALUES ($1, $2, $3, $4)`,
		hashToken(raw), organizationID, leadID, time.Now().Add(ttl),
	)
	if err != nil {
		return "", err
	}
	return raw, nil
}

// RatedLead identifies the lead a consumed token pointed at.
type RatedLead struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	Lead           repository.Lead
}

// ConsumeAndRate burns a rating token and writes the quality verdict in
// one transaction. The conditional update on used_at makes the token
// single use even under concurrent clicks.
func (r *Repository) ConsumeAndRate(ctx context.Context, rawToken, quality string) (RatedLead, error) {
	tokenHash := hashToken(rawToken)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return RatedLead{}, err
	}
	defer tx.Rollback(ctx)

	var result RatedLead
	err = tx.QueryRow(ctx, `
		UPDATE rating_tokens SET used_at = now()
		WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
		RETURNING lead_id, organization_id`,
		tokenHash,
	).Scan(&result.LeadID, &result.OrganizationID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return RatedLead{}, err
		}
		return RatedLead{}, r.classifyTokenMiss(ctx, tokenHash)
	}

	lead, err := repository.SetQualityTx(ctx, tx, result.OrganizationID, result.LeadID, quality)
	if err != nil && !errors.Is(err, repository.ErrAlreadyRated) {
		return RatedLead{}, err
	}
	result.Lead = lead

	if err := tx.Commit(ctx); err != nil {
		return RatedLead{}, err
	}
	return result, nil
}

func (r *Repository) classifyTokenMiss(ctx context.Context, tokenHash string) error {
	var usedAt *time.Time
	var expiresAt time.Time
	err := r.db.QueryRow(ctx, `
		SELECT used_at, expires_at FROM rating_tokens WHERE token_hash = $1`,
		tokenHash,
	).Scan(&usedAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTokenNotFound
	}
	if err != nil {
		return err
	}
	if usedAt != nil {
		return ErrTokenUsed
	}
	return ErrTokenExpired
}

// PortalToken grants an agent access to their assigned leads.
type PortalToken struct {
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	ExpiresAt      time.Time
}

// IssuePortalToken creates an agent portal token and returns the raw value.
func (r *Repository) IssuePortalToken(ctx context.Context, organizationID, agentID uuid.UUID, ttl time.Duration) (string, error) {
	raw, err := generateToken()
	if err != nil {
		return "", err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO portal_tokens (token_hash, organization_id, agent_id, expires_at)
		VALUES ($1, $2, $3, $4)`,
		hashToken(raw), organizationID, agentID, time.Now().Add(ttl),
	)
	if err != nil {
		return "", err
	}
	return raw, nil
}

// ResolvePortalToken validates a portal token and returns its grant.
func (r *Repository) ResolvePortalToken(ctx context.Context, rawToken string) (PortalToken, error) {
	var t PortalToken
	err := r.db.QueryRow(ctx, `
		SELECT organization_id, agent_id, expires_at FROM portal_tokens
		WHERE token_hash = $1`,
		hashToken(rawToken),
	).Scan(&t.OrganizationID, &t.AgentID, &t.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PortalToken{}, ErrTokenNotFound
	}
	if err != nil {
		return PortalToken{}, err
	}
	if time.Now().After(t.ExpiresAt) {
		return PortalToken{}, ErrTokenExpired
	}
	return t, nil
}
