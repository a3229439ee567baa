package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/incidents"
	"github.com/bissquit/postmortem-garden/internal/notifications"
	"github.com/bissquit/postmortem-garden/internal/orgs"
)

type mockOrgs struct {
	orgs      []domain.Org
	admins    map[string][]string
	adminsErr error
}

func (m *mockOrgs) ListOrgs(_ context.Context) ([]domain.Org, error) {
	return m.orgs, nil
}

func (m *mockOrgs) GetOrgByID(_ context.Context, id string) (*domain.Org, error) {
	for _, org := range m.orgs {
		if org.ID == id {
			o := org
			return &o, nil
		}
	}
	return nil, orgs.ErrOrgNotFound
}

func (m *mockOrgs) ListAdminProfileIDs(_ context.Context, orgID string) ([]string, error) {
	if m.adminsErr != nil {
		return nil, m.adminsErr
	}
	return m.admins[orgID], nil
}

type mockIncidentStore struct {
	incidents map[string]*domain.Incident
	listErr   map[string]error
	getErr    error
}

func newMockIncidentStore() *mockIncidentStore {
	return &mockIncidentStore{
		incidents: make(map[string]*domain.Incident),
		listErr:   make(map[string]error),
	}
}

func (m *mockIncidentStore) add(incident domain.Incident) {
	i := incident
	m.incidents[i.ID] = &i
}

func (m *mockIncidentStore) GetIncidentByID(_ context.Context, id string) (*domain.Incident, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	incident, ok := m.incidents[id]
	if !ok {
		return nil, incidents.ErrIncidentNotFound
	}
	i := *incident
	return &i, nil
}

func (m *mockIncidentStore) ListOpenIncidentsByOrg(_ context.Context, orgID string) ([]domain.Incident, error) {
	if err := m.listErr[orgID]; err != nil {
		return nil, err
	}
	var result []domain.Incident
	for _, incident := range m.incidents {
		if incident.OrgID == orgID && incident.Status == domain.IncidentStatusOpen {
			result = append(result, *incident)
		}
	}
	return result, nil
}

func (m *mockIncidentStore) UpdateEscalation(_ context.Context, id string, level int, escalatedAt time.Time) error {
	incident, ok := m.incidents[id]
	if !ok {
		return incidents.ErrIncidentNotFound
	}
	incident.EscalationLevel = level
	at := escalatedAt
	incident.EscalatedAt = &at
	return nil
}

type mockItemStore struct {
	items []domain.ActionItem
}

func (m *mockItemStore) ListNonDoneActionItemsByOrg(_ context.Context, orgID string) ([]domain.ActionItem, error) {
	var result []domain.ActionItem
	for _, item := range m.items {
		if item.OrgID == orgID && item.Status != domain.ActionStatusDone {
			result = append(result, item)
		}
	}
	return result, nil
}

type mockNotifier struct {
	created []domain.Notification
	byKey   map[string]bool
	err     error
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{byKey: make(map[string]bool)}
}

func (m *mockNotifier) CreateIfNotExists(_ context.Context, input notifications.CreateInput) (*domain.Notification, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.byKey[input.DedupeKey] {
		return nil, nil
	}
	m.byKey[input.DedupeKey] = true
	n := domain.Notification{
		ID:        fmt.Sprintf("notif-%d", len(m.created)+1),
		OrgID:     input.OrgID,
		UserID:    input.UserID,
		Type:      input.Type,
		Entity:    input.Entity,
		Title:     input.Title,
		Body:      input.Body,
		Link:      input.Link,
		DedupeKey: input.DedupeKey,
	}
	m.created = append(m.created, n)
	return &n, nil
}

func (m *mockNotifier) forUser(userID string) []domain.Notification {
	var result []domain.Notification
	for _, n := range m.created {
		if n.UserID == userID {
			result = append(result, n)
		}
	}
	return result
}

type mockAuditWriter struct {
	entries []domain.AuditLogEntry
}

func (m *mockAuditWriter) Record(_ context.Context, entry *domain.AuditLogEntry) error {
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditWriter) byAction(action domain.AuditAction) []domain.AuditLogEntry {
	var result []domain.AuditLogEntry
	for _, entry := range m.entries {
		if entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

type mockDigestStore struct {
	digests []*domain.Digest
}

func (m *mockDigestStore) Insert(_ context.Context, digest *domain.Digest) error {
	digest.ID = fmt.Sprintf("digest-%d", len(m.digests)+1)
	d := *digest
	m.digests = append(m.digests, &d)
	return nil
}

func (m *mockDigestStore) ExistsForWeek(_ context.Context, orgID, weekStartDate string) (bool, error) {
	for _, d := range m.digests {
		if d.OrgID == orgID && d.WeekStartDate == weekStartDate {
			return true, nil
		}
	}
	return false, nil
}

type mockSystemActor struct{}

func (mockSystemActor) SystemProfile(_ context.Context) (*domain.Profile, error) {
	return &domain.Profile{ID: "system", Name: "Automation", Role: domain.RoleAdmin, IsSystem: true}, nil
}

type mockRunStore struct {
	runs []*domain.AutomationRun
}

func (m *mockRunStore) InsertRun(_ context.Context, run *domain.AutomationRun) error {
	run.ID = fmt.Sprintf("run-%d", len(m.runs)+1)
	r := *run
	m.runs = append(m.runs, &r)
	return nil
}

func (m *mockRunStore) FinishRun(_ context.Context, id string, finishedAt time.Time, status domain.RunStatus, counts domain.RunCounts, errorMessage string) error {
	for _, run := range m.runs {
		if run.ID == id {
			at := finishedAt
			run.FinishedAt = &at
			run.Status = status
			run.Counts = counts
			run.ErrorMessage = errorMessage
			return nil
		}
	}
	return fmt.Errorf("run %s not found", id)
}

func (m *mockRunStore) ListRunsByOrg(_ context.Context, orgID string, limit int) ([]domain.AutomationRun, error) {
	var result []domain.AutomationRun
	for i := len(m.runs) - 1; i >= 0 && len(result) < limit; i-- {
		if m.runs[i].OrgID == orgID {
			result = append(result, *m.runs[i])
		}
	}
	return result, nil
}

type engineFixture struct {
	orgs      *mockOrgs
	incidents *mockIncidentStore
	items     *mockItemStore
	notifier  *mockNotifier
	audit     *mockAuditWriter
	digests   *mockDigestStore
	runs      *mockRunStore
	engine    *Engine
}

// testNow is a Wednesday; the containing week starts Monday 2024-03-04.
var testNow = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

func newEngineFixture() *engineFixture {
	f := &engineFixture{
		orgs: &mockOrgs{
			orgs:   []domain.Org{{ID: "org-1", Name: "Acme", Slug: "acme"}},
			admins: map[string][]string{"org-1": {"admin-1"}},
		},
		incidents: newMockIncidentStore(),
		items:     &mockItemStore{},
		notifier:  newMockNotifier(),
		audit:     &mockAuditWriter{},
		digests:   &mockDigestStore{},
		runs:      &mockRunStore{},
	}
	f.engine = NewEngine(f.orgs, f.incidents, f.items, f.notifier, f.audit, f.digests, mockSystemActor{}, f.runs)
	f.engine.now = func() time.Time { return testNow }
	return f
}
