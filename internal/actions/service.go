package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/pkg/ctxlog"
)

// AuditWriter records audit log entries.
type AuditWriter interface {
	Record(ctx context.Context, entry *domain.AuditLogEntry) error
}

// Service provides action item management operations.
type Service struct {
	repo  Repository
	audit AuditWriter
}

func NewService(repo Repository, audit AuditWriter) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateActionItem creates a manual action item for an incident.
func (s *Service) CreateActionItem(ctx context.Context, item *domain.ActionItem, actor *domain.Profile) error {
	if !item.Priority.IsValid() {
		return ErrInvalidPriority
	}

	item.Status = domain.ActionStatusOpen
	item.CreatedBy = actor.ID
	if item.OwnerID == "" {
		item.OwnerID = actor.ID
	}

	if err := s.repo.CreateActionItem(ctx, item); err != nil {
		return fmt.Errorf("create action item: %w", err)
	}

	s.writeAudit(ctx, actor, item.OrgID, item.ID, domain.AuditActionCreate,
		map[string]any{"created": map[string]any{"title": item.Title, "priority": item.Priority}})
	return nil
}

func (s *Service) GetActionItem(ctx context.Context, id string) (*domain.ActionItem, error) {
	return s.repo.GetActionItemByID(ctx, id)
}

func (s *Service) ListActionItemsByIncident(ctx context.Context, incidentID string) ([]domain.ActionItem, error) {
	return s.repo.ListActionItemsByIncident(ctx, incidentID)
}

func (s *Service) ListActionItemsByOrg(ctx context.Context, orgID string, filter ActionItemFilter) ([]domain.ActionItem, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.ListActionItemsByOrg(ctx, orgID, filter)
}

func (s *Service) ListNonDoneActionItemsByOrg(ctx context.Context, orgID string) ([]domain.ActionItem, error) {
	return s.repo.ListNonDoneActionItemsByOrg(ctx, orgID)
}

// UpdateActionItemInput carries optional field updates. Nil fields are left
// unchanged.
type UpdateActionItemInput struct {
	Title    *string
	OwnerID  *string
	Priority *domain.ActionPriority
	DueDate  *time.Time
}

// UpdateActionItem applies a partial update and records a field-level diff in
// the audit log.
func (s *Service) UpdateActionItem(ctx context.Context, id string, input UpdateActionItemInput, actor *domain.Profile) (*domain.ActionItem, error) {
	item, err := s.repo.GetActionItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	if input.Title != nil && *input.Title != item.Title {
		changes["title"] = map[string]any{"old": item.Title, "new": *input.Title}
		item.Title = *input.Title
	}
	if input.OwnerID != nil && *input.OwnerID != item.OwnerID {
		changes["owner_id"] = map[string]any{"old": item.OwnerID, "new": *input.OwnerID}
		item.OwnerID = *input.OwnerID
	}
	if input.Priority != nil && *input.Priority != item.Priority {
		if !input.Priority.IsValid() {
			return nil, ErrInvalidPriority
		}
		changes["priority"] = map[string]any{"old": item.Priority, "new": *input.Priority}
		item.Priority = *input.Priority
	}
	if input.DueDate != nil && !input.DueDate.Equal(item.DueDate) {
		changes["due_date"] = map[string]any{"old": item.DueDate, "new": *input.DueDate}
		item.DueDate = *input.DueDate
	}

	if len(changes) == 0 {
		return item, nil
	}

	if err := s.repo.UpdateActionItem(ctx, item); err != nil {
		return nil, fmt.Errorf("update action item: %w", err)
	}

	s.writeAudit(ctx, actor, item.OrgID, item.ID, domain.AuditActionUpdate, changes)
	return item, nil
}

// SetStatus transitions an action item's status. Items moved to DONE drop
// out of all reminder and digest consideration.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.ActionStatus, actor *domain.Profile) (*domain.ActionItem, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	item, err := s.repo.GetActionItemByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status == status {
		return item, nil
	}

	oldStatus := item.Status
	item.Status = status
	if err := s.repo.UpdateActionItem(ctx, item); err != nil {
		return nil, fmt.Errorf("set action item status: %w", err)
	}

	s.writeAudit(ctx, actor, item.OrgID, item.ID, domain.AuditActionStatusChange,
		map[string]any{"status": map[string]any{"old": oldStatus, "new": status}})
	return item, nil
}

// DeleteActionItem removes an action item.
func (s *Service) DeleteActionItem(ctx context.Context, id string, actor *domain.Profile) error {
	item, err := s.repo.GetActionItemByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteActionItem(ctx, id); err != nil {
		return fmt.Errorf("delete action item: %w", err)
	}

	s.writeAudit(ctx, actor, item.OrgID, item.ID, domain.AuditActionDelete,
		map[string]any{"deleted": item.Title})
	return nil
}

func (s *Service) writeAudit(ctx context.Context, actor *domain.Profile, orgID, itemID string, action domain.AuditAction, changes map[string]any) {
	encoded, err := json.Marshal(changes)
	if err != nil {
		encoded = []byte("{}")
	}
	entry := &domain.AuditLogEntry{
		OrgID:     orgID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Entity:    domain.EntityRef{Kind: domain.EntityActionItem, ID: itemID},
		Action:    action,
		Changes:   string(encoded),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		ctxlog.FromContext(ctx).Error("write audit entry", "error", err)
	}
}
