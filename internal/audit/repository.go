// Package audit provides the append-only audit log. Entries record who
// changed what and when; they are written by the CRUD services and the
// automation engines and are never updated or deleted.
package audit

import (
	"context"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Repository defines the interface for audit log data access.
type Repository interface {
	Insert(ctx context.Context, entry *domain.AuditLogEntry) error
	ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.AuditLogEntry, error)
	ListByEntity(ctx context.Context, entity domain.EntityRef, limit int) ([]domain.AuditLogEntry, error)
}
