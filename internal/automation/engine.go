// Package automation implements the scheduled jobs that keep postmortem
// hygiene moving without human attention: SLA escalation of stale incidents,
// due-date reminders for action items and the weekly digest. Every job run
// is tracked per org, and every notification the jobs emit is deduplicated
// by key, so re-runs and overlapping schedules are safe.
package automation

import (
	"context"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/notifications"
)

// OrgDirectory lists orgs and resolves their admin recipients.
type OrgDirectory interface {
	ListOrgs(ctx context.Context) ([]domain.Org, error)
	GetOrgByID(ctx context.Context, id string) (*domain.Org, error)
	ListAdminProfileIDs(ctx context.Context, orgID string) ([]string, error)
}

// IncidentStore is the incident access the engines need.
type IncidentStore interface {
	GetIncidentByID(ctx context.Context, id string) (*domain.Incident, error)
	ListOpenIncidentsByOrg(ctx context.Context, orgID string) ([]domain.Incident, error)
	UpdateEscalation(ctx context.Context, id string, level int, escalatedAt time.Time) error
}

// ActionItemStore is the action item access the engines need.
type ActionItemStore interface {
	ListNonDoneActionItemsByOrg(ctx context.Context, orgID string) ([]domain.ActionItem, error)
}

// Notifier creates deduplicated notifications.
type Notifier interface {
	CreateIfNotExists(ctx context.Context, input notifications.CreateInput) (*domain.Notification, error)
}

// AuditWriter records audit log entries.
type AuditWriter interface {
	Record(ctx context.Context, entry *domain.AuditLogEntry) error
}

// DigestStore persists weekly digest snapshots.
type DigestStore interface {
	Insert(ctx context.Context, digest *domain.Digest) error
	ExistsForWeek(ctx context.Context, orgID, weekStartDate string) (bool, error)
}

// SystemActorSource resolves the synthetic system profile that automation
// acts as.
type SystemActorSource interface {
	SystemProfile(ctx context.Context) (*domain.Profile, error)
}

// Engine runs the automation jobs. All time arithmetic goes through the
// injected clock so tests can pin it.
type Engine struct {
	orgs      OrgDirectory
	incidents IncidentStore
	items     ActionItemStore
	notifier  Notifier
	audit     AuditWriter
	digests   DigestStore
	system    SystemActorSource
	runs      Repository
	now       func() time.Time
}

// NewEngine creates an automation engine.
func NewEngine(
	orgs OrgDirectory,
	incidents IncidentStore,
	items ActionItemStore,
	notifier Notifier,
	audit AuditWriter,
	digests DigestStore,
	system SystemActorSource,
	runs Repository,
) *Engine {
	return &Engine{
		orgs:      orgs,
		incidents: incidents,
		items:     items,
		notifier:  notifier,
		audit:     audit,
		digests:   digests,
		system:    system,
		runs:      runs,
		now:       time.Now,
	}
}

// recipients returns the owner plus the org admins, owner first, without
// duplicates.
func recipients(ownerID string, adminIDs []string) []string {
	seen := map[string]bool{}
	var result []string
	for _, id := range append([]string{ownerID}, adminIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
