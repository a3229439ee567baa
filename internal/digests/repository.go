// Package digests provides storage and the read surface for weekly digest
// snapshots. The digest aggregator in internal/automation computes and
// inserts them.
package digests

import (
	"context"
	"errors"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

var ErrDigestNotFound = errors.New("digest not found")

// Repository defines the interface for digest data access.
type Repository interface {
	// Insert stores a digest. At most one digest may exist per
	// (org, week_start_date) pair.
	Insert(ctx context.Context, digest *domain.Digest) error

	// ExistsForWeek reports whether the org already has a digest for the
	// week. The aggregator uses it as its idempotency check.
	ExistsForWeek(ctx context.Context, orgID, weekStartDate string) (bool, error)

	GetByID(ctx context.Context, id string) (*domain.Digest, error)
	ListByOrg(ctx context.Context, orgID string, limit int) ([]domain.Digest, error)
}
