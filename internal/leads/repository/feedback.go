package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrAlreadyRated     = errors.New("lead quality already set")
	ErrAlreadySent      = errors.New("feedback already sent")
	ErrDispatchInFlight = errors.New("feedback dispatch in flight")
)

// Querier is satisfied by both the pool and a pgx.Tx, so quality updates
// can run inside a caller-owned transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SetQuality records the terminal quality verdict for a lead. The verdict
// is written only once; a second rating returns ErrAlreadyRated.
func (r *Repository) SetQuality(ctx context.Context, organizationID, id uuid.UUID, quality string) (Lead, error) {
	return SetQualityTx(ctx, r.db, organizationID, id, quality)
}

// SetQualityTx is SetQuality running on an explicit querier, typically a
// transaction shared with a rating-token consume.
func SetQualityTx(ctx context.Context, q Querier, organizationID, id uuid.UUID, quality string) (Lead, error) {
	row := q.QueryRow(ctx, `
		UPDATE leads SET quality = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND quality = 'pending'
		RETURNING `+leadColumns,
		id, organizationID, quality,
	)
	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, err
	}

	// No pending row matched. Distinguish a rated lead from a missing one.
	existing, lookupErr := scanLead(q.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads WHERE id = $1 AND organization_id = $2`,
		id, organizationID,
	))
	if lookupErr != nil {
		return Lead{}, lookupErr
	}
	return existing, ErrAlreadyRated
}

// ClaimForDispatch atomically moves a lead's feedback state from pending
// to sending, recording the channel that triggered the dispatch. Exactly
// one concurrent caller wins the claim; the others get ErrAlreadySent or
// ErrDispatchInFlight together with the current row.
func (r *Repository) ClaimForDispatch(ctx context.Context, organizationID, id uuid.UUID, channel string) (Lead, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE leads SET feedback_status = 'sending', feedback_channel = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND feedback_status = 'pending'
		RETURNING `+leadColumns,
		id, organizationID, channel,
	)
	lead, err := scanLead(row)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Lead{}, err
	}

	existing, lookupErr := r.GetByID(ctx, organizationID, id)
	if lookupErr != nil {
		return Lead{}, lookupErr
	}
	switch existing.FeedbackStatus {
	case "sent":
		return existing, ErrAlreadySent
	case "sending":
		return existing, ErrDispatchInFlight
	default:
		return existing, ErrDispatchInFlight
	}
}

// ConfirmFeedbackSent finalizes a successful dispatch. It only applies to
// a row this process claimed, so a stale confirm cannot overwrite a sent
// record.
func (r *Repository) ConfirmFeedbackSent(ctx context.Context, organizationID, id uuid.UUID, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET feedback_status = 'sent', feedback_sent_at = $3,
			feedback_attempts = feedback_attempts + 1, feedback_last_error = NULL, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND feedback_status = 'sending'`,
		id, organizationID, sentAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordDispatchFailure releases a claim after a failed send, keeping the
// attempt count and last error for operators and the retry worker.
func (r *Repository) RecordDispatchFailure(ctx context.Context, organizationID, id uuid.UUID, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE leads SET feedback_status = 'pending', feedback_channel = NULL,
			feedback_attempts = feedback_attempts + 1, feedback_last_error = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND feedback_status = 'sending'`,
		id, organizationID, reason,
	)
	return err
}
