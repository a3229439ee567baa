package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/incidents"
	"github.com/bissquit/postmortem-garden/internal/notifications"
)

// dueSoonWindow is how far ahead of UTC today-start an item counts as due
// soon.
const dueSoonWindowDays = 3

// processReminders notifies owners and org admins about overdue and
// due-soon action items. Overdue means due before UTC today-start; due soon
// means due between today-start and today-start plus three days, inclusive.
// DONE items are never considered.
func (e *Engine) processReminders(ctx context.Context, orgID string) (domain.RunCounts, error) {
	var counts domain.RunCounts

	system, err := e.system.SystemProfile(ctx)
	if err != nil {
		return counts, fmt.Errorf("resolve system profile: %w", err)
	}

	now := e.now()
	todayStart := startOfDayUTC(now)
	dueSoonEnd := todayStart.AddDate(0, 0, dueSoonWindowDays)
	dateKey := formatDateKey(now)

	items, err := e.items.ListNonDoneActionItemsByOrg(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list action items: %w", err)
	}
	counts.Evaluated = len(items)

	adminIDs, err := e.orgs.ListAdminProfileIDs(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list org admins: %w", err)
	}

	for _, item := range items {
		if item.OrgID == "" {
			continue
		}

		overdue := item.DueDate.Before(todayStart)
		dueSoon := !overdue && !item.DueDate.After(dueSoonEnd)
		if !overdue && !dueSoon {
			continue
		}
		counts.Affected++

		// The fallback covers a genuinely missing incident; a storage
		// failure aborts the run instead of mislabeling notifications.
		incidentTitle := "Unknown incident"
		incident, err := e.incidents.GetIncidentByID(ctx, item.IncidentID)
		switch {
		case err == nil:
			incidentTitle = incident.Title
		case !errors.Is(err, incidents.ErrIncidentNotFound):
			return counts, fmt.Errorf("resolve incident %s: %w", item.IncidentID, err)
		}

		var (
			notifType    domain.NotificationType
			dedupePrefix string
			title        string
			body         string
		)
		if overdue {
			notifType = domain.NotificationActionOverdue
			dedupePrefix = "action_overdue"
			title = "Overdue: " + item.Title
			body = fmt.Sprintf("Action item %q for incident %q is overdue.", item.Title, incidentTitle)
		} else {
			notifType = domain.NotificationActionDueSoon
			dedupePrefix = "action_dueSoon"
			title = "Due soon: " + item.Title
			body = fmt.Sprintf("Action item %q for incident %q is due within %d days.",
				item.Title, incidentTitle, dueSoonWindowDays)
		}
		link := "/incidents/" + item.IncidentID

		sentAny := false
		for _, userID := range recipients(item.OwnerID, adminIDs) {
			dedupeKey := fmt.Sprintf("%s:%s:%s:%s", dedupePrefix, item.ID, userID, dateKey)
			created, err := e.notifier.CreateIfNotExists(ctx, notifications.CreateInput{
				OrgID:     item.OrgID,
				UserID:    userID,
				Type:      notifType,
				Entity:    domain.EntityRef{Kind: domain.EntityActionItem, ID: item.ID},
				Title:     title,
				Body:      body,
				Link:      link,
				DedupeKey: dedupeKey,
			})
			if err != nil {
				return counts, fmt.Errorf("notify reminder: %w", err)
			}
			if created != nil {
				counts.NotificationsCreated++
				sentAny = true
			}
		}

		// The audit log records the reminder once per item per run, and only
		// when at least one notification was actually created.
		if sentAny {
			changes, _ := json.Marshal(map[string]any{
				"type":           notifType,
				"due_date":       item.DueDate,
				"incident_title": incidentTitle,
			})
			err := e.audit.Record(ctx, &domain.AuditLogEntry{
				OrgID:     item.OrgID,
				ActorID:   system.ID,
				ActorName: system.Name,
				Entity:    domain.EntityRef{Kind: domain.EntityActionItem, ID: item.ID},
				Action:    domain.AuditActionReminder,
				Changes:   string(changes),
			})
			if err != nil {
				return counts, fmt.Errorf("record reminder audit entry: %w", err)
			}
		}
	}

	return counts, nil
}

// RunRemindersForOrg runs the reminder job for one org, tracked as an
// automation run.
func (e *Engine) RunRemindersForOrg(ctx context.Context, orgID string) error {
	return e.runForOrg(ctx, domain.JobNotifyDueActionItems, orgID, e.processReminders)
}

// RunReminders runs the reminder job for every org.
func (e *Engine) RunReminders(ctx context.Context) error {
	return e.runForAllOrgs(ctx, domain.JobNotifyDueActionItems, e.processReminders)
}
