// Package notifications provides the in-app notification store. It is the
// deduplication substrate of the automation subsystem: every notification
// carries a dedupe key, and at most one notification per key ever exists.
package notifications

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Repository defines the interface for notification data access.
type Repository interface {
	// InsertIfAbsent inserts a notification unless one with the same dedupe
	// key already exists. Returns false with no error when the key is taken.
	InsertIfAbsent(ctx context.Context, notification *domain.Notification) (bool, error)

	// Exists reports whether a notification with the dedupe key exists.
	Exists(ctx context.Context, dedupeKey string) (bool, error)

	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) error
}
