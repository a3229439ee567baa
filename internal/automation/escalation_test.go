package automation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetLevel(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		severity domain.Severity
		want     int
	}{
		{"sev1 under threshold", 29 * time.Minute, domain.SeveritySEV1, 0},
		{"sev1 exactly at threshold stays level 0", 30 * time.Minute, domain.SeveritySEV1, 0},
		{"sev1 just past threshold", 30*time.Minute + time.Second, domain.SeveritySEV1, 1},
		{"sev1 exactly at double threshold stays level 1", time.Hour, domain.SeveritySEV1, 1},
		{"sev1 past double threshold", time.Hour + time.Second, domain.SeveritySEV1, 2},
		{"sev2 under threshold", 119 * time.Minute, domain.SeveritySEV2, 0},
		{"sev2 past threshold", 121 * time.Minute, domain.SeveritySEV2, 1},
		{"sev2 past double threshold", 241 * time.Minute, domain.SeveritySEV2, 2},
		{"sev3 past threshold", 9 * time.Hour, domain.SeveritySEV3, 1},
		{"sev4 under threshold", 23 * time.Hour, domain.SeveritySEV4, 0},
		{"sev4 past double threshold", 49 * time.Hour, domain.SeveritySEV4, 2},
		{"unknown severity uses sev4 threshold", 25 * time.Hour, domain.Severity("SEV9"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TargetLevel(tt.elapsed, tt.severity))
		})
	}
}

func TestRunEscalationForOrg(t *testing.T) {
	f := newEngineFixture()
	f.incidents.add(domain.Incident{
		ID:        "inc-1",
		OrgID:     "org-1",
		Title:     "DB outage",
		Severity:  domain.SeveritySEV1,
		Status:    domain.IncidentStatusOpen,
		StartTime: testNow.Add(-45 * time.Minute),
		OwnerID:   "owner-1",
	})
	f.incidents.add(domain.Incident{
		ID:        "inc-2",
		OrgID:     "org-1",
		Title:     "Slow queries",
		Severity:  domain.SeveritySEV1,
		Status:    domain.IncidentStatusOpen,
		StartTime: testNow.Add(-10 * time.Minute),
		OwnerID:   "owner-1",
	})

	err := f.engine.RunEscalationForOrg(context.Background(), "org-1")
	require.NoError(t, err)

	assert.Equal(t, 1, f.incidents.incidents["inc-1"].EscalationLevel)
	require.NotNil(t, f.incidents.incidents["inc-1"].EscalatedAt)
	assert.Equal(t, testNow, *f.incidents.incidents["inc-1"].EscalatedAt)
	assert.Equal(t, 0, f.incidents.incidents["inc-2"].EscalationLevel)

	// owner and org admin each get one notification
	require.Len(t, f.notifier.created, 2)
	owner := f.notifier.forUser("owner-1")
	require.Len(t, owner, 1)
	assert.Equal(t, "Incident escalated to Level 1: DB outage", owner[0].Title)
	assert.Equal(t, `Incident "DB outage" (SEV1) has been open past SLA and escalated to Level 1.`, owner[0].Body)
	assert.Equal(t, "/incidents/inc-1", owner[0].Link)
	assert.Equal(t, domain.NotificationIncidentEscalation, owner[0].Type)
	assert.Equal(t, "incident_escalation:inc-1:1:owner-1:2024-03-06", owner[0].DedupeKey)
	require.Len(t, f.notifier.forUser("admin-1"), 1)

	entries := f.audit.byAction(domain.AuditActionEscalation)
	require.Len(t, entries, 1)
	assert.Equal(t, "system", entries[0].ActorID)
	assert.Equal(t, domain.EntityIncident, entries[0].Entity.Kind)
	assert.Equal(t, "inc-1", entries[0].Entity.ID)
	assert.Contains(t, entries[0].Changes, `"escalation_level"`)
	assert.Contains(t, entries[0].Changes, `"old":0`)
	assert.Contains(t, entries[0].Changes, `"new":1`)

	require.Len(t, f.runs.runs, 1)
	run := f.runs.runs[0]
	assert.Equal(t, domain.JobEscalateStaleIncidents, run.JobName)
	assert.Equal(t, domain.RunStatusSuccess, run.Status)
	assert.Equal(t, domain.RunCounts{Evaluated: 2, Affected: 1, NotificationsCreated: 2}, run.Counts)
}

func TestRunEscalationForOrg_SecondRunIsNoOp(t *testing.T) {
	f := newEngineFixture()
	f.incidents.add(domain.Incident{
		ID:        "inc-1",
		OrgID:     "org-1",
		Title:     "DB outage",
		Severity:  domain.SeveritySEV2,
		Status:    domain.IncidentStatusOpen,
		StartTime: testNow.Add(-3 * time.Hour),
		OwnerID:   "owner-1",
	})

	require.NoError(t, f.engine.RunEscalationForOrg(context.Background(), "org-1"))
	require.Len(t, f.notifier.created, 2)

	require.NoError(t, f.engine.RunEscalationForOrg(context.Background(), "org-1"))

	// level is already 1, target is still 1: nothing changes
	assert.Equal(t, 1, f.incidents.incidents["inc-1"].EscalationLevel)
	assert.Len(t, f.notifier.created, 2)
	assert.Len(t, f.audit.byAction(domain.AuditActionEscalation), 1)
	require.Len(t, f.runs.runs, 2)
	assert.Equal(t, domain.RunCounts{Evaluated: 1, Affected: 0, NotificationsCreated: 0}, f.runs.runs[1].Counts)
}

func TestRunEscalationForOrg_LevelNeverDecreases(t *testing.T) {
	f := newEngineFixture()
	f.incidents.add(domain.Incident{
		ID:              "inc-1",
		OrgID:           "org-1",
		Title:           "Flaky alerts",
		Severity:        domain.SeveritySEV4,
		Status:          domain.IncidentStatusOpen,
		StartTime:       testNow.Add(-time.Hour),
		OwnerID:         "owner-1",
		EscalationLevel: 2,
	})

	require.NoError(t, f.engine.RunEscalationForOrg(context.Background(), "org-1"))

	assert.Equal(t, 2, f.incidents.incidents["inc-1"].EscalationLevel)
	assert.Empty(t, f.notifier.created)
}

func TestRunEscalationForOrg_RecipientsDeduplicated(t *testing.T) {
	f := newEngineFixture()
	// owner is also the org admin
	f.orgs.admins["org-1"] = []string{"owner-1"}
	f.incidents.add(domain.Incident{
		ID:        "inc-1",
		OrgID:     "org-1",
		Title:     "DB outage",
		Severity:  domain.SeveritySEV1,
		Status:    domain.IncidentStatusOpen,
		StartTime: testNow.Add(-2 * time.Hour),
		OwnerID:   "owner-1",
	})

	require.NoError(t, f.engine.RunEscalationForOrg(context.Background(), "org-1"))

	require.Len(t, f.notifier.created, 1)
	assert.Equal(t, fmt.Sprintf("incident_escalation:inc-1:2:owner-1:%s", "2024-03-06"),
		f.notifier.created[0].DedupeKey)
}
