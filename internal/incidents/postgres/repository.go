// Package postgres provides PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, org_id, title, severity, status, service, start_time, end_time,
	impact_summary, root_cause, owner_id, created_by, escalation_level, escalated_at,
	share_token, created_at, updated_at`

// Repository implements the incidents.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// CreateIncident inserts a new incident.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (org_id, title, severity, status, service, start_time, end_time,
			impact_summary, root_cause, owner_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, escalation_level, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.OrgID,
		incident.Title,
		incident.Severity,
		incident.Status,
		incident.Service,
		incident.StartTime,
		incident.EndTime,
		incident.ImpactSummary,
		incident.RootCause,
		incident.OwnerID,
		incident.CreatedBy,
	).Scan(&incident.ID, &incident.EscalationLevel, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncidentByID retrieves an incident by its ID.
func (r *Repository) GetIncidentByID(ctx context.Context, id string) (*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE id = $1`, incidentColumns)
	return r.scanIncidentRow(r.db.QueryRow(ctx, query, id), "get incident by id")
}

// GetIncidentByShareToken retrieves an incident by its public share token.
func (r *Repository) GetIncidentByShareToken(ctx context.Context, token string) (*domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE share_token = $1`, incidentColumns)
	return r.scanIncidentRow(r.db.QueryRow(ctx, query, token), "get incident by share token")
}

func (r *Repository) scanIncidentRow(row pgx.Row, op string) (*domain.Incident, error) {
	var incident domain.Incident
	err := scanIncident(row, &incident)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &incident, nil
}

func scanIncident(row pgx.Row, incident *domain.Incident) error {
	return row.Scan(
		&incident.ID,
		&incident.OrgID,
		&incident.Title,
		&incident.Severity,
		&incident.Status,
		&incident.Service,
		&incident.StartTime,
		&incident.EndTime,
		&incident.ImpactSummary,
		&incident.RootCause,
		&incident.OwnerID,
		&incident.CreatedBy,
		&incident.EscalationLevel,
		&incident.EscalatedAt,
		&incident.ShareToken,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
}

// ListIncidents retrieves an org's incidents, newest start time first.
func (r *Repository) ListIncidents(ctx context.Context, orgID string, filter incidents.IncidentFilter) ([]domain.Incident, error) {
	query := fmt.Sprintf(`SELECT %s FROM incidents WHERE org_id = $1`, incidentColumns)
	args := []any{orgID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += fmt.Sprintf(" AND severity = $%d", len(args))
	}
	query += " ORDER BY start_time DESC"

	return r.queryIncidents(ctx, query, args...)
}

// ListOpenIncidentsByOrg retrieves all OPEN incidents of an org, oldest
// start time first.
func (r *Repository) ListOpenIncidentsByOrg(ctx context.Context, orgID string) ([]domain.Incident, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM incidents
		WHERE org_id = $1 AND status = $2
		ORDER BY start_time ASC
	`, incidentColumns)
	return r.queryIncidents(ctx, query, orgID, domain.IncidentStatusOpen)
}

func (r *Repository) queryIncidents(ctx context.Context, query string, args ...any) ([]domain.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	var result []domain.Incident
	for rows.Next() {
		var incident domain.Incident
		if err := scanIncident(rows, &incident); err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, incident)
	}
	return result, rows.Err()
}

// UpdateIncident persists all mutable incident fields.
func (r *Repository) UpdateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $1, severity = $2, status = $3, service = $4, start_time = $5,
			end_time = $6, impact_summary = $7, root_cause = $8, owner_id = $9,
			share_token = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Severity,
		incident.Status,
		incident.Service,
		incident.StartTime,
		incident.EndTime,
		incident.ImpactSummary,
		incident.RootCause,
		incident.OwnerID,
		incident.ShareToken,
		incident.ID,
	).Scan(&incident.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// UpdateEscalation advances the escalation level and timestamp.
func (r *Repository) UpdateEscalation(ctx context.Context, id string, level int, escalatedAt time.Time) error {
	query := `
		UPDATE incidents
		SET escalation_level = $1, escalated_at = $2, updated_at = now()
		WHERE id = $3
	`
	tag, err := r.db.Exec(ctx, query, level, escalatedAt, id)
	if err != nil {
		return fmt.Errorf("update escalation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// DeleteIncident removes an incident and, via cascade, its timeline events.
func (r *Repository) DeleteIncident(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return incidents.ErrIncidentNotFound
	}
	return nil
}

// AddTimelineEvent inserts a timeline event.
func (r *Repository) AddTimelineEvent(ctx context.Context, event *domain.TimelineEvent) error {
	query := `
		INSERT INTO timeline_events (org_id, incident_id, occurred_at, message, actor, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		event.OrgID,
		event.IncidentID,
		event.OccurredAt,
		event.Message,
		event.Actor,
		event.CreatedBy,
	).Scan(&event.ID, &event.CreatedAt)

	if err != nil {
		return fmt.Errorf("add timeline event: %w", err)
	}
	return nil
}

// ListTimelineEvents retrieves an incident's timeline in occurrence order.
func (r *Repository) ListTimelineEvents(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	query := `
		SELECT id, org_id, incident_id, occurred_at, message, actor, created_by, created_at
		FROM timeline_events
		WHERE incident_id = $1
		ORDER BY occurred_at ASC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	var result []domain.TimelineEvent
	for rows.Next() {
		var event domain.TimelineEvent
		err := rows.Scan(
			&event.ID,
			&event.OrgID,
			&event.IncidentID,
			&event.OccurredAt,
			&event.Message,
			&event.Actor,
			&event.CreatedBy,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
