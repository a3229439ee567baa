package orgs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ProfileReader is the subset of the identity service used by orgs.
type ProfileReader interface {
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Service provides org management operations.
type Service struct {
	repo     Repository
	profiles ProfileReader
}

func NewService(repo Repository, profiles ProfileReader) *Service {
	return &Service{repo: repo, profiles: profiles}
}

// NormalizeSlug derives a URL-safe slug from an arbitrary name:
// lowercased, runs of non-alphanumeric characters collapsed into hyphens.
func NormalizeSlug(name string) string {
	var b strings.Builder
	prevHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// CreateOrg creates a new organization. If slug is empty, it is derived
// from the name. The creating profile becomes the first member.
func (s *Service) CreateOrg(ctx context.Context, name, slug, creatorID string) (*domain.Org, error) {
	if slug == "" {
		slug = NormalizeSlug(name)
	}
	if !slugPattern.MatchString(slug) {
		return nil, ErrInvalidSlug
	}

	org := &domain.Org{Name: name, Slug: slug}
	if err := s.repo.CreateOrg(ctx, org); err != nil {
		return nil, fmt.Errorf("create org: %w", err)
	}

	if err := s.repo.AddMember(ctx, org.ID, creatorID); err != nil {
		return nil, fmt.Errorf("add creator to org: %w", err)
	}
	return org, nil
}

func (s *Service) GetOrgByID(ctx context.Context, id string) (*domain.Org, error) {
	return s.repo.GetOrgByID(ctx, id)
}

func (s *Service) GetOrgBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	return s.repo.GetOrgBySlug(ctx, slug)
}

func (s *Service) ListOrgs(ctx context.Context) ([]domain.Org, error) {
	return s.repo.ListOrgs(ctx)
}

func (s *Service) UpdateOrg(ctx context.Context, id, name string) (*domain.Org, error) {
	org, err := s.repo.GetOrgByID(ctx, id)
	if err != nil {
		return nil, err
	}
	org.Name = name
	if err := s.repo.UpdateOrg(ctx, org); err != nil {
		return nil, fmt.Errorf("update org: %w", err)
	}
	return org, nil
}

func (s *Service) DeleteOrg(ctx context.Context, id string) error {
	return s.repo.DeleteOrg(ctx, id)
}

// AddMember adds a profile to the org. The profile must exist and must
// not be the reserved system profile.
func (s *Service) AddMember(ctx context.Context, orgID, profileID string) error {
	profile, err := s.profiles.GetProfileByID(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.IsSystem {
		return identity.ErrSystemProfile
	}
	if _, err := s.repo.GetOrgByID(ctx, orgID); err != nil {
		return err
	}
	return s.repo.AddMember(ctx, orgID, profileID)
}

func (s *Service) RemoveMember(ctx context.Context, orgID, profileID string) error {
	return s.repo.RemoveMember(ctx, orgID, profileID)
}

func (s *Service) IsMember(ctx context.Context, orgID, profileID string) (bool, error) {
	return s.repo.IsMember(ctx, orgID, profileID)
}

func (s *Service) ListMembers(ctx context.Context, orgID string) ([]domain.Profile, error) {
	if _, err := s.repo.GetOrgByID(ctx, orgID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, orgID)
}

// ListAdminProfileIDs returns profile IDs of org admins, the default
// recipient set for escalation and digest notifications.
func (s *Service) ListAdminProfileIDs(ctx context.Context, orgID string) ([]string, error) {
	return s.repo.ListAdminProfileIDs(ctx, orgID)
}

// RequireMember returns ErrNotMember unless the profile belongs to the org.
// Admin profiles have access to every org.
func (s *Service) RequireMember(ctx context.Context, orgID, profileID string, role domain.Role) error {
	if role == domain.RoleAdmin {
		return nil
	}
	ok, err := s.repo.IsMember(ctx, orgID, profileID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}
