package notifications

import (
	"context"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// CreateInput describes one notification to create.
type CreateInput struct {
	OrgID     string
	UserID    string
	Type      domain.NotificationType
	Entity    domain.EntityRef
	Title     string
	Body      string
	Link      string
	DedupeKey string
}

// Service provides notification creation and the per-user read surface.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateIfNotExists creates a notification unless its dedupe key has been
// used before. Returns (nil, nil) for a duplicate: dropping duplicates is
// the normal, silent outcome for automation re-runs.
func (s *Service) CreateIfNotExists(ctx context.Context, input CreateInput) (*domain.Notification, error) {
	notification := &domain.Notification{
		OrgID:     input.OrgID,
		UserID:    input.UserID,
		Type:      input.Type,
		Entity:    input.Entity,
		Title:     input.Title,
		Body:      input.Body,
		Link:      input.Link,
		DedupeKey: input.DedupeKey,
	}

	inserted, err := s.repo.InsertIfAbsent(ctx, notification)
	if err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	if !inserted {
		recordDeduplicated(string(input.Type))
		return nil, nil
	}

	recordCreated(string(input.Type))
	return notification, nil
}

// Exists reports whether a notification with the dedupe key exists.
func (s *Service) Exists(ctx context.Context, dedupeKey string) (bool, error) {
	return s.repo.Exists(ctx, dedupeKey)
}

// ListByUser returns the user's notifications, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return s.repo.ListByUser(ctx, userID, limit)
}

// CountUnread returns the number of unread notifications for a user.
func (s *Service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

// MarkRead marks one notification as read. Users can only mark their own.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification.UserID != userID {
		return ErrNotOwned
	}
	if notification.ReadAt != nil {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// MarkAllRead marks all of a user's notifications as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}
