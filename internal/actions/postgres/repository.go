// Package postgres provides PostgreSQL implementation of the actions repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/actions"
	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const actionItemColumns = `id, org_id, incident_id, title, owner_id, priority, due_date,
	status, action_type, created_by, created_at, updated_at`

// Repository implements the actions.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateActionItem inserts a new action item. The org is derived from the
// referenced incident; a missing incident yields ErrIncidentNotFound.
func (r *Repository) CreateActionItem(ctx context.Context, item *domain.ActionItem) error {
	query := `
		INSERT INTO action_items (org_id, incident_id, title, owner_id, priority, due_date,
			status, action_type, created_by)
		SELECT i.org_id, i.id, $2, $3, $4, $5, $6, $7, $8
		FROM incidents i
		WHERE i.id = $1
		RETURNING id, org_id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.IncidentID,
		item.Title,
		item.OwnerID,
		item.Priority,
		item.DueDate,
		item.Status,
		item.Type,
		item.CreatedBy,
	).Scan(&item.ID, &item.OrgID, &item.CreatedAt, &item.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return actions.ErrIncidentNotFound
		}
		return fmt.Errorf("create action item: %w", err)
	}
	return nil
}

// GetActionItemByID retrieves an action item by its ID.
func (r *Repository) GetActionItemByID(ctx context.Context, id string) (*domain.ActionItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM action_items WHERE id = $1`, actionItemColumns)
	return r.scanItemRow(r.db.QueryRow(ctx, query, id), "get action item by id")
}

// GetActionItemByIncidentAndType retrieves the auto-generated follow-up of a
// given type for an incident.
func (r *Repository) GetActionItemByIncidentAndType(ctx context.Context, incidentID, actionType string) (*domain.ActionItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM action_items
		WHERE incident_id = $1 AND action_type = $2
		LIMIT 1
	`, actionItemColumns)
	return r.scanItemRow(r.db.QueryRow(ctx, query, incidentID, actionType), "get action item by incident and type")
}

func (r *Repository) scanItemRow(row pgx.Row, op string) (*domain.ActionItem, error) {
	var item domain.ActionItem
	if err := scanItem(row, &item); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, actions.ErrActionItemNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &item, nil
}

func scanItem(row pgx.Row, item *domain.ActionItem) error {
	return row.Scan(
		&item.ID,
		&item.OrgID,
		&item.IncidentID,
		&item.Title,
		&item.OwnerID,
		&item.Priority,
		&item.DueDate,
		&item.Status,
		&item.Type,
		&item.CreatedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
}

// ListActionItemsByIncident retrieves an incident's action items in priority
// order.
func (r *Repository) ListActionItemsByIncident(ctx context.Context, incidentID string) ([]domain.ActionItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM action_items
		WHERE incident_id = $1
		ORDER BY priority ASC, created_at ASC
	`, actionItemColumns)
	return r.queryItems(ctx, query, incidentID)
}

// ListActionItemsByOrg retrieves an org's action items with optional filters.
func (r *Repository) ListActionItemsByOrg(ctx context.Context, orgID string, filter actions.ActionItemFilter) ([]domain.ActionItem, error) {
	query := fmt.Sprintf(`SELECT %s FROM action_items WHERE org_id = $1`, actionItemColumns)
	args := []any{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.OwnerID != "" {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	query += " ORDER BY due_date ASC"

	return r.queryItems(ctx, query, args...)
}

// ListNonDoneActionItemsByOrg retrieves every item of an org that is not DONE.
func (r *Repository) ListNonDoneActionItemsByOrg(ctx context.Context, orgID string) ([]domain.ActionItem, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM action_items
		WHERE org_id = $1 AND status <> $2
		ORDER BY due_date ASC
	`, actionItemColumns)
	return r.queryItems(ctx, query, orgID, domain.ActionStatusDone)
}

func (r *Repository) queryItems(ctx context.Context, query string, args ...any) ([]domain.ActionItem, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	defer rows.Close()

	var result []domain.ActionItem
	for rows.Next() {
		var item domain.ActionItem
		if err := scanItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan action item: %w", err)
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// UpdateActionItem persists all mutable action item fields.
func (r *Repository) UpdateActionItem(ctx context.Context, item *domain.ActionItem) error {
	query := `
		UPDATE action_items
		SET title = $1, owner_id = $2, priority = $3, due_date = $4, status = $5,
			updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		item.Title,
		item.OwnerID,
		item.Priority,
		item.DueDate,
		item.Status,
		item.ID,
	).Scan(&item.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return actions.ErrActionItemNotFound
		}
		return fmt.Errorf("update action item: %w", err)
	}
	return nil
}

// DeleteActionItem removes an action item.
func (r *Repository) DeleteActionItem(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM action_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return actions.ErrActionItemNotFound
	}
	return nil
}

// DeleteActionItemsByIncident removes all action items of an incident.
func (r *Repository) DeleteActionItemsByIncident(ctx context.Context, incidentID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM action_items WHERE incident_id = $1`, incidentID); err != nil {
		return fmt.Errorf("delete incident action items: %w", err)
	}
	return nil
}
