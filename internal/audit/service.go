package audit

import (
	"context"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Service provides audit log writing and reading.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Record appends an entry to the audit log.
func (s *Service) Record(ctx context.Context, entry *domain.AuditLogEntry) error {
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// ListByOrg returns an org's audit trail, newest first.
func (s *Service) ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.AuditLogEntry, error) {
	return s.repo.ListByOrg(ctx, orgID, limit)
}

// ListByEntity returns the audit trail of one entity, newest first.
func (s *Service) ListByEntity(ctx context.Context, entity domain.EntityRef, limit int) ([]domain.AuditLogEntry, error) {
	return s.repo.ListByEntity(ctx, entity, limit)
}
