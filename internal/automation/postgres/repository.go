// Package postgres provides PostgreSQL implementation of the automation runs repository.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the automation.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertRun inserts a RUNNING automation run row.
func (r *Repository) InsertRun(ctx context.Context, run *domain.AutomationRun) error {
	query := `
		INSERT INTO automation_runs (org_id, job_name, started_at, status,
			evaluated, affected, notifications_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		run.OrgID,
		run.JobName,
		run.StartedAt,
		run.Status,
		run.Counts.Evaluated,
		run.Counts.Affected,
		run.Counts.NotificationsCreated,
	).Scan(&run.ID)

	if err != nil {
		return fmt.Errorf("insert automation run: %w", err)
	}
	return nil
}

// FinishRun patches a run to its terminal status with final counters.
func (r *Repository) FinishRun(ctx context.Context, id string, finishedAt time.Time, status domain.RunStatus, counts domain.RunCounts, errorMessage string) error {
	query := `
		UPDATE automation_runs
		SET finished_at = $1, status = $2, evaluated = $3, affected = $4,
			notifications_created = $5, error_message = $6
		WHERE id = $7
	`
	tag, err := r.db.Exec(ctx, query,
		finishedAt,
		status,
		counts.Evaluated,
		counts.Affected,
		counts.NotificationsCreated,
		errorMessage,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish automation run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish automation run: run %s not found", id)
	}
	return nil
}

// ListRunsByOrg retrieves an org's recent runs, newest first.
func (r *Repository) ListRunsByOrg(ctx context.Context, orgID string, limit int) ([]domain.AutomationRun, error) {
	query := `
		SELECT id, org_id, job_name, started_at, finished_at, status,
			evaluated, affected, notifications_created, error_message
		FROM automation_runs
		WHERE org_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("list automation runs: %w", err)
	}
	defer rows.Close()

	var result []domain.AutomationRun
	for rows.Next() {
		var run domain.AutomationRun
		err := rows.Scan(
			&run.ID,
			&run.OrgID,
			&run.JobName,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.Counts.Evaluated,
			&run.Counts.Affected,
			&run.Counts.NotificationsCreated,
			&run.ErrorMessage,
		)
		if err != nil {
			return nil, fmt.Errorf("scan automation run: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}
