// Package actions provides action item management: remediation tasks tied
// to incidents, with priorities, owners and due dates.
package actions

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// ActionItemFilter narrows action item listings.
type ActionItemFilter struct {
	Status  domain.ActionStatus
	OwnerID string
}

// Repository defines the interface for action item data access.
type Repository interface {
	CreateActionItem(ctx context.Context, item *domain.ActionItem) error
	GetActionItemByID(ctx context.Context, id string) (*domain.ActionItem, error)
	GetActionItemByIncidentAndType(ctx context.Context, incidentID, actionType string) (*domain.ActionItem, error)
	ListActionItemsByIncident(ctx context.Context, incidentID string) ([]domain.ActionItem, error)
	ListActionItemsByOrg(ctx context.Context, orgID string, filter ActionItemFilter) ([]domain.ActionItem, error)
	UpdateActionItem(ctx context.Context, item *domain.ActionItem) error
	DeleteActionItem(ctx context.Context, id string) error
	DeleteActionItemsByIncident(ctx context.Context, incidentID string) error

	// ListNonDoneActionItemsByOrg returns every item of an org whose status
	// is not DONE. The reminder engine and the digest aggregator consume it.
	ListNonDoneActionItemsByOrg(ctx context.Context, orgID string) ([]domain.ActionItem, error)
}
