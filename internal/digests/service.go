package digests

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Service provides the digest read surface.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Digest, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByOrg returns an org's digests, most recent week first.
func (s *Service) ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.Digest, error) {
	return s.repo.ListByOrg(ctx, orgID, limit)
}
