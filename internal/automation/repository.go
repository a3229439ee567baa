package automation

import (
	"context"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// Repository defines the interface for automation run data access.
type Repository interface {
	InsertRun(ctx context.Context, run *domain.AutomationRun) error
	FinishRun(ctx context.Context, id string, finishedAt time.Time, status domain.RunStatus, counts domain.RunCounts, errorMessage string) error
	ListRunsByOrg(ctx context.Context, orgID string, limit int) ([]domain.AutomationRun, error)
}
