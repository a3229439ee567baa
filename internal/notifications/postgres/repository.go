// Package postgres provides PostgreSQL implementation of the notifications repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/notifications"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationColumns = `id, org_id, user_id, type, entity_kind, entity_id, title, body,
	link, read_at, dedupe_key, created_at`

// Repository implements the notifications.Repository interface using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// InsertIfAbsent inserts a notification unless the dedupe key is taken.
// The unique constraint on dedupe_key makes concurrent automation runs safe:
// exactly one of two racing inserts returns a row.
func (r *Repository) InsertIfAbsent(ctx context.Context, n *domain.Notification) (bool, error) {
	query := `
		INSERT INTO notifications (org_id, user_id, type, entity_kind, entity_id, title, body, link, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (dedupe_key) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		n.OrgID,
		n.UserID,
		n.Type,
		n.Entity.Kind,
		n.Entity.ID,
		n.Title,
		n.Body,
		n.Link,
		n.DedupeKey,
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return true, nil
}

// Exists reports whether a notification with the dedupe key exists.
func (r *Repository) Exists(ctx context.Context, dedupeKey string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE dedupe_key = $1)`, dedupeKey,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a notification by its ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE id = $1`, notificationColumns)

	var n domain.Notification
	err := scanNotification(r.db.QueryRow(ctx, query, id), &n)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notifications.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("get notification by id: %w", err)
	}
	return &n, nil
}

func scanNotification(row pgx.Row, n *domain.Notification) error {
	return row.Scan(
		&n.ID,
		&n.OrgID,
		&n.UserID,
		&n.Type,
		&n.Entity.Kind,
		&n.Entity.ID,
		&n.Title,
		&n.Body,
		&n.Link,
		&n.ReadAt,
		&n.DedupeKey,
		&n.CreatedAt,
	)
}

// ListByUser retrieves a user's notifications, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, notificationColumns)

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := scanNotification(rows, &n); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// CountUnread returns the number of unread notifications for a user.
func (r *Repository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification as read.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = now() WHERE id = $1 AND read_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks all of a user's unread notifications as read.
func (r *Repository) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET read_at = now() WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
