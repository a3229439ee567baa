package automation

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/orgs"
	"github.com/bissquit/postmortem-garden/internal/pkg/ctxlog"
)

// jobFunc processes one org and returns its result counters.
type jobFunc func(ctx context.Context, orgID string) (domain.RunCounts, error)

// runForOrg executes one job for one org inside a tracked automation run:
// a RUNNING row is inserted before processing and patched to SUCCESS or
// ERROR afterwards. Processing errors are recorded and then propagated.
func (e *Engine) runForOrg(ctx context.Context, job domain.JobName, orgID string, fn jobFunc) error {
	if _, err := e.orgs.GetOrgByID(ctx, orgID); err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			// org deleted between listing and processing
			return nil
		}
		return fmt.Errorf("resolve org %s: %w", orgID, err)
	}

	run := &domain.AutomationRun{
		OrgID:     orgID,
		JobName:   job,
		StartedAt: e.now(),
		Status:    domain.RunStatusRunning,
	}
	if err := e.runs.InsertRun(ctx, run); err != nil {
		return fmt.Errorf("insert automation run: %w", err)
	}

	counts, jobErr := fn(ctx, orgID)
	finishedAt := e.now()

	if jobErr != nil {
		recordRun(string(job), string(domain.RunStatusError), finishedAt.Sub(run.StartedAt))
		if err := e.runs.FinishRun(ctx, run.ID, finishedAt, domain.RunStatusError, counts, jobErr.Error()); err != nil {
			ctxlog.FromContext(ctx).Error("finish automation run",
				"job", job, "org_id", orgID, "error", err)
		}
		return fmt.Errorf("%s for org %s: %w", job, orgID, jobErr)
	}

	recordRun(string(job), string(domain.RunStatusSuccess), finishedAt.Sub(run.StartedAt))
	if err := e.runs.FinishRun(ctx, run.ID, finishedAt, domain.RunStatusSuccess, counts, ""); err != nil {
		return fmt.Errorf("finish automation run: %w", err)
	}
	return nil
}

// runForAllOrgs executes one job for every org. Orgs are isolated: one
// org's failure is collected and the batch moves on. The joined error of
// all failed orgs is returned at the end.
func (e *Engine) runForAllOrgs(ctx context.Context, job domain.JobName, fn jobFunc) error {
	all, err := e.orgs.ListOrgs(ctx)
	if err != nil {
		return fmt.Errorf("list orgs: %w", err)
	}

	var errs []error
	for _, org := range all {
		if err := e.runForOrg(ctx, job, org.ID, fn); err != nil {
			ctxlog.FromContext(ctx).Error("automation job failed for org",
				"job", job, "org_id", org.ID, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
