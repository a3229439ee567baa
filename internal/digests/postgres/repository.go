// Package postgres provides PostgreSQL implementation of the digests repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/digests"
	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the digests.Repository interface using PostgreSQL.
// The summary snapshot is stored as a jsonb column; pgx maps it through the
// domain type's JSON tags.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert stores a digest. The unique constraint on (org_id, week_start_date)
// rejects a second digest for the same week.
func (r *Repository) Insert(ctx context.Context, digest *domain.Digest) error {
	query := `
		INSERT INTO digests (org_id, week_start_date, summary)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		digest.OrgID,
		digest.WeekStartDate,
		digest.Summary,
	).Scan(&digest.ID, &digest.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert digest: %w", err)
	}
	return nil
}

// ExistsForWeek reports whether the org has a digest for the week.
func (r *Repository) ExistsForWeek(ctx context.Context, orgID, weekStartDate string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM digests WHERE org_id = $1 AND week_start_date = $2)`,
		orgID, weekStartDate,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check digest exists: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a digest by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Digest, error) {
	query := `
		SELECT id, org_id, week_start_date, summary, created_at
		FROM digests
		WHERE id = $1
	`
	var digest domain.Digest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&digest.ID,
		&digest.OrgID,
		&digest.WeekStartDate,
		&digest.Summary,
		&digest.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, digests.ErrDigestNotFound
		}
		return nil, fmt.Errorf("get digest by id: %w", err)
	}
	return &digest, nil
}

// ListByOrg retrieves an org's digests, most recent week first.
func (r *Repository) ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.Digest, error) {
	query := `
		SELECT id, org_id, week_start_date, summary, created_at
		FROM digests
		WHERE org_id = $1
		ORDER BY week_start_date DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list digests: %w", err)
	}
	defer rows.Close()

	var result []domain.Digest
	for rows.Next() {
		var digest domain.Digest
		err := rows.Scan(
			&digest.ID,
			&digest.OrgID,
			&digest.WeekStartDate,
			&digest.Summary,
			&digest.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan digest: %w", err)
		}
		result = append(result, digest)
	}
	return result, rows.Err()
}
