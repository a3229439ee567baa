package automation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/incidents"
	"github.com/bissquit/postmortem-garden/internal/notifications"
)

// topN caps the oldest-incidents and most-overdue-actions digest lists.
const topN = 5

// processDigest computes and stores the weekly digest for one org, then
// notifies the org admins. An existing digest for the week makes the whole
// job a no-op: the week has already been reported.
//
// Known gap, kept from the original behavior: if the digest insert succeeds
// but notifying fails, the week stays marked as done and the notifications
// are never retried.
func (e *Engine) processDigest(ctx context.Context, orgID string) (domain.RunCounts, error) {
	counts := domain.RunCounts{Evaluated: 1}

	now := e.now()
	weekStart := weekStartDate(now)

	exists, err := e.digests.ExistsForWeek(ctx, orgID, weekStart)
	if err != nil {
		return counts, fmt.Errorf("check digest exists: %w", err)
	}
	if exists {
		return counts, nil
	}

	open, err := e.incidents.ListOpenIncidentsByOrg(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list open incidents: %w", err)
	}

	openBySeverity := make(map[domain.Severity]int, len(domain.Severities))
	for _, severity := range domain.Severities {
		openBySeverity[severity] = 0
	}
	for _, incident := range open {
		openBySeverity[incident.Severity]++
	}

	items, err := e.items.ListNonDoneActionItemsByOrg(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list action items: %w", err)
	}
	var overdue []domain.ActionItem
	for _, item := range items {
		if item.DueDate.Before(now) {
			overdue = append(overdue, item)
		}
	}

	topActions, err := e.topActions(ctx, overdue, now)
	if err != nil {
		return counts, err
	}

	digest := &domain.Digest{
		OrgID:         orgID,
		WeekStartDate: weekStart,
		Summary: domain.DigestSummary{
			OpenBySeverity:      openBySeverity,
			OverdueActionsCount: len(overdue),
			TopIncidents:        e.topIncidents(open, now),
			TopActions:          topActions,
		},
	}
	if err := e.digests.Insert(ctx, digest); err != nil {
		return counts, fmt.Errorf("insert digest: %w", err)
	}

	adminIDs, err := e.orgs.ListAdminProfileIDs(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list org admins: %w", err)
	}

	title := "Weekly digest: " + weekStart
	body := fmt.Sprintf("Open incidents: SEV1=%d, SEV2=%d, SEV3=%d, SEV4=%d. Overdue action items: %d.",
		openBySeverity[domain.SeveritySEV1],
		openBySeverity[domain.SeveritySEV2],
		openBySeverity[domain.SeveritySEV3],
		openBySeverity[domain.SeveritySEV4],
		len(overdue))
	link := "/digests/" + digest.ID

	for _, userID := range adminIDs {
		dedupeKey := fmt.Sprintf("weekly_digest:%s:%s:%s", orgID, weekStart, userID)
		created, err := e.notifier.CreateIfNotExists(ctx, notifications.CreateInput{
			OrgID:     orgID,
			UserID:    userID,
			Type:      domain.NotificationWeeklyDigest,
			Entity:    domain.EntityRef{Kind: domain.EntityDigest, ID: digest.ID},
			Title:     title,
			Body:      body,
			Link:      link,
			DedupeKey: dedupeKey,
		})
		if err != nil {
			return counts, fmt.Errorf("notify digest: %w", err)
		}
		if created != nil {
			counts.NotificationsCreated++
		}
	}

	if counts.NotificationsCreated > 0 {
		counts.Affected = 1
	}
	return counts, nil
}

// topIncidents returns the oldest open incidents, ascending by start time.
func (e *Engine) topIncidents(open []domain.Incident, now time.Time) []domain.DigestIncident {
	sorted := make([]domain.Incident, len(open))
	copy(sorted, open)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	result := make([]domain.DigestIncident, 0, len(sorted))
	for _, incident := range sorted {
		result = append(result, domain.DigestIncident{
			ID:       incident.ID,
			Title:    incident.Title,
			Severity: incident.Severity,
			DaysOpen: int(now.Sub(incident.StartTime).Hours() / 24),
		})
	}
	return result
}

// topActions returns the most overdue items, ascending by due date, with
// their incident titles resolved. The "Unknown" fallback covers a missing
// incident only; storage failures abort the run.
func (e *Engine) topActions(ctx context.Context, overdue []domain.ActionItem, now time.Time) ([]domain.DigestAction, error) {
	sorted := make([]domain.ActionItem, len(overdue))
	copy(sorted, overdue)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	result := make([]domain.DigestAction, 0, len(sorted))
	for _, item := range sorted {
		incidentTitle := "Unknown"
		incident, err := e.incidents.GetIncidentByID(ctx, item.IncidentID)
		switch {
		case err == nil:
			incidentTitle = incident.Title
		case !errors.Is(err, incidents.ErrIncidentNotFound):
			return nil, fmt.Errorf("resolve incident %s: %w", item.IncidentID, err)
		}
		result = append(result, domain.DigestAction{
			ID:            item.ID,
			IncidentID:    item.IncidentID,
			Title:         item.Title,
			DaysOverdue:   int(now.Sub(item.DueDate).Hours() / 24),
			IncidentTitle: incidentTitle,
		})
	}
	return result, nil
}

// RunDigestForOrg runs the weekly digest job for one org, tracked as an
// automation run.
func (e *Engine) RunDigestForOrg(ctx context.Context, orgID string) error {
	return e.runForOrg(ctx, domain.JobSendWeeklyDigest, orgID, e.processDigest)
}

// RunDigest runs the weekly digest job for every org.
func (e *Engine) RunDigest(ctx context.Context) error {
	return e.runForAllOrgs(ctx, domain.JobSendWeeklyDigest, e.processDigest)
}
