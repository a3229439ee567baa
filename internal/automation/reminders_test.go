package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRemindersForOrg_Windows(t *testing.T) {
	todayStart := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)
	dueSoonEnd := todayStart.AddDate(0, 0, 3)

	f := newEngineFixture()
	f.incidents.add(domain.Incident{ID: "inc-1", OrgID: "org-1", Title: "DB outage", Status: domain.IncidentStatusOpen})
	f.items.items = []domain.ActionItem{
		{ID: "item-overdue", OrgID: "org-1", IncidentID: "inc-1", Title: "Fix replica lag",
			OwnerID: "owner-1", DueDate: todayStart.Add(-time.Millisecond), Status: domain.ActionStatusOpen},
		{ID: "item-today", OrgID: "org-1", IncidentID: "inc-1", Title: "Update runbook",
			OwnerID: "owner-1", DueDate: todayStart, Status: domain.ActionStatusOpen},
		{ID: "item-window-edge", OrgID: "org-1", IncidentID: "inc-1", Title: "Schedule retro",
			OwnerID: "owner-1", DueDate: dueSoonEnd, Status: domain.ActionStatusInProgress},
		{ID: "item-beyond", OrgID: "org-1", IncidentID: "inc-1", Title: "Audit alerts",
			OwnerID: "owner-1", DueDate: dueSoonEnd.Add(time.Millisecond), Status: domain.ActionStatusOpen},
		{ID: "item-done", OrgID: "org-1", IncidentID: "inc-1", Title: "Already finished",
			OwnerID: "owner-1", DueDate: todayStart.Add(-48 * time.Hour), Status: domain.ActionStatusDone},
	}

	err := f.engine.RunRemindersForOrg(context.Background(), "org-1")
	require.NoError(t, err)

	// 3 matching items x (owner + admin) recipients
	require.Len(t, f.notifier.created, 6)

	byItem := map[string]domain.Notification{}
	for _, n := range f.notifier.forUser("owner-1") {
		byItem[n.Entity.ID] = n
	}
	require.Len(t, byItem, 3)

	overdue := byItem["item-overdue"]
	assert.Equal(t, domain.NotificationActionOverdue, overdue.Type)
	assert.Equal(t, "Overdue: Fix replica lag", overdue.Title)
	assert.Equal(t, `Action item "Fix replica lag" for incident "DB outage" is overdue.`, overdue.Body)
	assert.Equal(t, "action_overdue:item-overdue:owner-1:2024-03-06", overdue.DedupeKey)
	assert.Equal(t, "/incidents/inc-1", overdue.Link)

	// due exactly at today-start counts as due soon, not overdue
	today := byItem["item-today"]
	assert.Equal(t, domain.NotificationActionDueSoon, today.Type)
	assert.Equal(t, "Due soon: Update runbook", today.Title)
	assert.Equal(t, `Action item "Update runbook" for incident "DB outage" is due within 3 days.`, today.Body)
	assert.Equal(t, "action_dueSoon:item-today:owner-1:2024-03-06", today.DedupeKey)

	// the window end is inclusive
	assert.Equal(t, domain.NotificationActionDueSoon, byItem["item-window-edge"].Type)

	require.Len(t, f.runs.runs, 1)
	// evaluated counts all non-done items, affected only the window matches
	assert.Equal(t, domain.RunCounts{Evaluated: 4, Affected: 3, NotificationsCreated: 6}, f.runs.runs[0].Counts)

	entries := f.audit.byAction(domain.AuditActionReminder)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.EntityActionItem, entries[0].Entity.Kind)
	assert.Contains(t, entries[0].Changes, `"incident_title":"DB outage"`)
}

func TestRunRemindersForOrg_SecondRunSameDayIsSilent(t *testing.T) {
	f := newEngineFixture()
	f.incidents.add(domain.Incident{ID: "inc-1", OrgID: "org-1", Title: "DB outage", Status: domain.IncidentStatusOpen})
	f.items.items = []domain.ActionItem{
		{ID: "item-1", OrgID: "org-1", IncidentID: "inc-1", Title: "Fix replica lag",
			OwnerID: "owner-1", DueDate: testNow.Add(-48 * time.Hour), Status: domain.ActionStatusOpen},
	}

	require.NoError(t, f.engine.RunRemindersForOrg(context.Background(), "org-1"))
	require.Len(t, f.notifier.created, 2)
	require.Len(t, f.audit.byAction(domain.AuditActionReminder), 1)

	require.NoError(t, f.engine.RunRemindersForOrg(context.Background(), "org-1"))

	// the dedupe keys carry the date, so the same day never notifies twice,
	// and no audit entry is written when nothing was sent
	assert.Len(t, f.notifier.created, 2)
	assert.Len(t, f.audit.byAction(domain.AuditActionReminder), 1)
	require.Len(t, f.runs.runs, 2)
	assert.Equal(t, domain.RunCounts{Evaluated: 1, Affected: 1, NotificationsCreated: 0}, f.runs.runs[1].Counts)
}

func TestRunRemindersForOrg_NextDayNotifiesAgain(t *testing.T) {
	f := newEngineFixture()
	f.incidents.add(domain.Incident{ID: "inc-1", OrgID: "org-1", Title: "DB outage", Status: domain.IncidentStatusOpen})
	f.items.items = []domain.ActionItem{
		{ID: "item-1", OrgID: "org-1", IncidentID: "inc-1", Title: "Fix replica lag",
			OwnerID: "owner-1", DueDate: testNow.Add(-96 * time.Hour), Status: domain.ActionStatusOpen},
	}

	require.NoError(t, f.engine.RunRemindersForOrg(context.Background(), "org-1"))
	require.Len(t, f.notifier.created, 2)

	f.engine.now = func() time.Time { return testNow.AddDate(0, 0, 1) }
	require.NoError(t, f.engine.RunRemindersForOrg(context.Background(), "org-1"))

	assert.Len(t, f.notifier.created, 4)
	assert.Equal(t, "action_overdue:item-1:owner-1:2024-03-07", f.notifier.created[2].DedupeKey)
}

func TestRunRemindersForOrg_IncidentLookupFailureAborts(t *testing.T) {
	f := newEngineFixture()
	f.items.items = []domain.ActionItem{
		{ID: "item-1", OrgID: "org-1", IncidentID: "inc-1", Title: "Fix replica lag",
			OwnerID: "owner-1", DueDate: testNow.Add(-48 * time.Hour), Status: domain.ActionStatusOpen},
	}
	f.incidents.getErr = errors.New("connection reset")

	err := f.engine.RunRemindersForOrg(context.Background(), "org-1")
	require.Error(t, err)
	assert.ErrorContains(t, err, "resolve incident inc-1")

	assert.Empty(t, f.notifier.created)
	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, domain.RunStatusError, f.runs.runs[0].Status)
}

func TestRunRemindersForOrg_UnknownIncidentFallback(t *testing.T) {
	f := newEngineFixture()
	f.items.items = []domain.ActionItem{
		{ID: "item-1", OrgID: "org-1", IncidentID: "inc-gone", Title: "Orphaned task",
			OwnerID: "owner-1", DueDate: testNow.Add(-48 * time.Hour), Status: domain.ActionStatusOpen},
	}

	require.NoError(t, f.engine.RunRemindersForOrg(context.Background(), "org-1"))

	require.NotEmpty(t, f.notifier.created)
	assert.Equal(t, `Action item "Orphaned task" for incident "Unknown incident" is overdue.`,
		f.notifier.created[0].Body)
}
