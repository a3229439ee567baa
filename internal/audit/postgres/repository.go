// Package postgres provides PostgreSQL implementation of the audit repository.
package postgres

import (
	"context"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auditColumns = `id, org_id, actor_id, actor_name, entity_kind, entity_id, action, changes, created_at`

// Repository implements the audit.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert appends an audit log entry.
func (r *Repository) Insert(ctx context.Context, entry *domain.AuditLogEntry) error {
	query := `
		INSERT INTO audit_log (org_id, actor_id, actor_name, entity_kind, entity_id, action, changes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		entry.OrgID,
		entry.ActorID,
		entry.ActorName,
		entry.Entity.Kind,
		entry.Entity.ID,
		entry.Action,
		entry.Changes,
	).Scan(&entry.ID, &entry.Timestamp)

	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListByOrg retrieves an org's audit trail, newest first.
func (r *Repository) ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.AuditLogEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, auditColumns)

	rows, err := r.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by org: %w", err)
	}
	return collectEntries(rows)
}

// ListByEntity retrieves the audit trail of one entity, newest first.
func (r *Repository) ListByEntity(ctx context.Context, entity domain.EntityRef, limit int) ([]domain.AuditLogEntry, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM audit_log
		WHERE entity_kind = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, auditColumns)

	rows, err := r.db.Query(ctx, query, entity.Kind, entity.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries by entity: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]domain.AuditLogEntry, error) {
	defer rows.Close()

	var result []domain.AuditLogEntry
	for rows.Next() {
		var entry domain.AuditLogEntry
		err := rows.Scan(
			&entry.ID,
			&entry.OrgID,
			&entry.ActorID,
			&entry.ActorName,
			&entry.Entity.Kind,
			&entry.Entity.ID,
			&entry.Action,
			&entry.Changes,
			&entry.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
