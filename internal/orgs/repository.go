// Package orgs provides organization and membership management.
package orgs

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Repository defines the interface for org data access.
type Repository interface {
	CreateOrg(ctx context.Context, org *domain.Org) error
	GetOrgByID(ctx context.Context, id string) (*domain.Org, error)
	GetOrgBySlug(ctx context.Context, slug string) (*domain.Org, error)
	ListOrgs(ctx context.Context) ([]domain.Org, error)
	UpdateOrg(ctx context.Context, org *domain.Org) error
	DeleteOrg(ctx context.Context, id string) error

	AddMember(ctx context.Context, orgID, profileID string) error
	RemoveMember(ctx context.Context, orgID, profileID string) error
	IsMember(ctx context.Context, orgID, profileID string) (bool, error)
	ListMembers(ctx context.Context, orgID string) ([]domain.Profile, error)

	// ListAdminProfileIDs returns the profile IDs of org members whose
	// role is admin. Used by the automation engines to build recipient sets.
	ListAdminProfileIDs(ctx context.Context, orgID string) ([]string, error)
}
