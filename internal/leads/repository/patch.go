package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LeadPatch describes a partial update. Nil fields are left untouched.
type LeadPatch struct {
	FullName   *string
	Email      *string
	Phone      *string
	FormName   *string
	Status     *string
	AssignedTo **uuid.UUID
}

func (p LeadPatch) isEmpty() bool {
	return p.FullName == nil && p.Email == nil && p.Phone == nil &&
		p.FormName == nil && p.Status == nil && p.AssignedTo == nil
}

// Update applies a patch in a single UPDATE statement.
func (r *Repository) Update(ctx context.Context, organizationID, id uuid.UUID, patch LeadPatch) (Lead, error) {
	if patch.isEmpty() {
		return r.GetByID(ctx, organizationID, id)
	}

	set := []string{"updated_at = now()"}
	args := []any{id, organizationID}

	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.FullName != nil {
		add("full_name", *patch.FullName)
	}
	if patch.Email != nil {
		add("email", *patch.Email)
	}
	if patch.Phone != nil {
		add("phone", *patch.Phone)
	}
	if patch.FormName != nil {
		add("form_name", *patch.FormName)
	}
	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.AssignedTo != nil {
		add("assigned_to", *patch.AssignedTo)
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $1 AND organization_id = $2 RETURNING %s`,
		strings.Join(set, ", "), leadColumns)

	return scanLead(r.db.QueryRow(ctx, query, args...))
}
