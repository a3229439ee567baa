package incidents

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/actions"
	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	incidents map[string]*domain.Incident
	timeline  map[string][]domain.TimelineEvent
	nextID    int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		incidents: make(map[string]*domain.Incident),
		timeline:  make(map[string][]domain.TimelineEvent),
	}
}

func (m *mockRepository) CreateIncident(_ context.Context, incident *domain.Incident) error {
	m.nextID++
	incident.ID = fmt.Sprintf("inc-%d", m.nextID)
	clone := *incident
	m.incidents[incident.ID] = &clone
	return nil
}

func (m *mockRepository) GetIncidentByID(_ context.Context, id string) (*domain.Incident, error) {
	incident, ok := m.incidents[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	clone := *incident
	return &clone, nil
}

func (m *mockRepository) GetIncidentByShareToken(_ context.Context, token string) (*domain.Incident, error) {
	for _, incident := range m.incidents {
		if incident.ShareToken != nil && *incident.ShareToken == token {
			clone := *incident
			return &clone, nil
		}
	}
	return nil, ErrIncidentNotFound
}

func (m *mockRepository) ListIncidents(_ context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error) {
	var result []domain.Incident
	for _, incident := range m.incidents {
		if incident.OrgID != orgID {
			continue
		}
		if filter.Status != "" && incident.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && incident.Severity != filter.Severity {
			continue
		}
		result = append(result, *incident)
	}
	return result, nil
}

func (m *mockRepository) ListOpenIncidentsByOrg(ctx context.Context, orgID string) ([]domain.Incident, error) {
	return m.ListIncidents(ctx, orgID, IncidentFilter{Status: domain.IncidentStatusOpen})
}

func (m *mockRepository) UpdateIncident(_ context.Context, incident *domain.Incident) error {
	if _, ok := m.incidents[incident.ID]; !ok {
		return ErrIncidentNotFound
	}
	clone := *incident
	m.incidents[incident.ID] = &clone
	return nil
}

func (m *mockRepository) UpdateEscalation(_ context.Context, id string, level int, escalatedAt time.Time) error {
	incident, ok := m.incidents[id]
	if !ok {
		return ErrIncidentNotFound
	}
	incident.EscalationLevel = level
	incident.EscalatedAt = &escalatedAt
	return nil
}

func (m *mockRepository) DeleteIncident(_ context.Context, id string) error {
	if _, ok := m.incidents[id]; !ok {
		return ErrIncidentNotFound
	}
	delete(m.incidents, id)
	delete(m.timeline, id)
	return nil
}

func (m *mockRepository) AddTimelineEvent(_ context.Context, event *domain.TimelineEvent) error {
	m.nextID++
	event.ID = fmt.Sprintf("tl-%d", m.nextID)
	m.timeline[event.IncidentID] = append(m.timeline[event.IncidentID], *event)
	return nil
}

func (m *mockRepository) ListTimelineEvents(_ context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	return m.timeline[incidentID], nil
}

type mockItems struct {
	items  []*domain.ActionItem
	nextID int
}

func (m *mockItems) CreateActionItem(_ context.Context, item *domain.ActionItem) error {
	m.nextID++
	item.ID = fmt.Sprintf("item-%d", m.nextID)
	clone := *item
	m.items = append(m.items, &clone)
	return nil
}

func (m *mockItems) GetActionItemByIncidentAndType(_ context.Context, incidentID, actionType string) (*domain.ActionItem, error) {
	for _, item := range m.items {
		if item.IncidentID == incidentID && item.Type == actionType {
			return item, nil
		}
	}
	return nil, actions.ErrActionItemNotFound
}

func (m *mockItems) ListActionItemsByIncident(_ context.Context, incidentID string) ([]domain.ActionItem, error) {
	var result []domain.ActionItem
	for _, item := range m.items {
		if item.IncidentID == incidentID {
			result = append(result, *item)
		}
	}
	return result, nil
}

func (m *mockItems) DeleteActionItemsByIncident(_ context.Context, incidentID string) error {
	var kept []*domain.ActionItem
	for _, item := range m.items {
		if item.IncidentID != incidentID {
			kept = append(kept, item)
		}
	}
	m.items = kept
	return nil
}

type mockAudit struct {
	entries []*domain.AuditLogEntry
}

func (m *mockAudit) Record(_ context.Context, entry *domain.AuditLogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockAudit) byAction(action domain.AuditAction) []*domain.AuditLogEntry {
	var result []*domain.AuditLogEntry
	for _, entry := range m.entries {
		if entry.Action == action {
			result = append(result, entry)
		}
	}
	return result
}

type mockProfiles struct {
	profiles map[string]*domain.Profile
}

func (m *mockProfiles) GetProfileByID(_ context.Context, id string) (*domain.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, identity.ErrProfileNotFound
	}
	return p, nil
}

type fixture struct {
	repo  *mockRepository
	items *mockItems
	audit *mockAudit
	svc   *Service
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		repo:  newMockRepository(),
		items: &mockItems{},
		audit: &mockAudit{},
	}
	profiles := &mockProfiles{profiles: map[string]*domain.Profile{
		"owner-1": {ID: "owner-1", Name: "Dana"},
		"actor-1": {ID: "actor-1", Name: "Alex"},
	}}
	f.svc = NewService(f.repo, f.items, f.audit, profiles)
	f.svc.now = func() time.Time { return now }
	return f
}

var testActor = &domain.Profile{ID: "actor-1", Name: "Alex", Role: domain.RoleEditor}

func openIncident(t *testing.T, f *fixture, severity domain.Severity) *domain.Incident {
	t.Helper()
	incident := &domain.Incident{
		OrgID:         "org-1",
		Title:         "Checkout latency spike",
		Severity:      severity,
		Service:       "checkout",
		StartTime:     time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		ImpactSummary: "p99 latency above 5s",
		OwnerID:       "owner-1",
	}
	require.NoError(t, f.svc.CreateIncident(context.Background(), incident, testActor))
	return incident
}

func TestCreateIncident_DefaultsAndAudit(t *testing.T) {
	f := newFixture(time.Now())

	incident := openIncident(t, f, domain.SeveritySEV2)

	assert.Equal(t, domain.IncidentStatusOpen, incident.Status)
	assert.Equal(t, 0, incident.EscalationLevel)
	assert.Equal(t, "actor-1", incident.CreatedBy)

	created := f.audit.byAction(domain.AuditActionCreate)
	require.Len(t, created, 1)
	assert.Equal(t, domain.EntityIncident, created[0].Entity.Kind)
	assert.Equal(t, incident.ID, created[0].Entity.ID)
}

func TestCreateIncident_InvalidSeverity(t *testing.T) {
	f := newFixture(time.Now())

	err := f.svc.CreateIncident(context.Background(), &domain.Incident{Severity: "SEV9"}, testActor)
	assert.ErrorIs(t, err, ErrInvalidSeverity)
}

func TestSetStatus_CloseRequiresRootCause(t *testing.T) {
	f := newFixture(time.Now())
	incident := openIncident(t, f, domain.SeveritySEV2)

	_, err := f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
	assert.ErrorIs(t, err, ErrRootCauseRequired)
	assert.Empty(t, f.items.items)
}

func TestSetStatus_CloseCreatesFollowUps(t *testing.T) {
	closeTime := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	f := newFixture(closeTime)
	incident := openIncident(t, f, domain.SeveritySEV1)

	rootCause := "expired TLS certificate"
	_, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{RootCause: &rootCause}, testActor)
	require.NoError(t, err)

	closed, err := f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusClosed, closed.Status)

	require.Len(t, f.items.items, 3)
	types := make(map[string]*domain.ActionItem)
	for _, item := range f.items.items {
		types[item.Type] = item
		// SEV1: P0 priority, due 48h after close, owned by the incident owner
		assert.Equal(t, domain.ActionPriorityP0, item.Priority)
		assert.Equal(t, closeTime.Add(48*time.Hour), item.DueDate)
		assert.Equal(t, "owner-1", item.OwnerID)
		assert.Equal(t, domain.ActionStatusOpen, item.Status)
	}
	assert.Contains(t, types, domain.ActionTypeConfirmMonitoring)
	assert.Contains(t, types, domain.ActionTypeUpdateRunbook)
	assert.Contains(t, types, domain.ActionTypeScheduleRetro)

	assert.Len(t, f.audit.byAction(domain.AuditActionAutoCreate), 3)
	assert.Len(t, f.audit.byAction(domain.AuditActionStatusChange), 1)
}

func TestSetStatus_ReCloseDoesNotDuplicateFollowUps(t *testing.T) {
	f := newFixture(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	incident := openIncident(t, f, domain.SeveritySEV3)

	rootCause := "bad deploy"
	_, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{RootCause: &rootCause}, testActor)
	require.NoError(t, err)

	_, err = f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusOpen, testActor)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
	require.NoError(t, err)

	assert.Len(t, f.items.items, 3)
}

func TestSetStatus_FollowUpDueOffsetsBySeverity(t *testing.T) {
	tests := []struct {
		severity domain.Severity
		offset   time.Duration
		priority domain.ActionPriority
	}{
		{domain.SeveritySEV1, 48 * time.Hour, domain.ActionPriorityP0},
		{domain.SeveritySEV2, 5 * 24 * time.Hour, domain.ActionPriorityP1},
		{domain.SeveritySEV3, 10 * 24 * time.Hour, domain.ActionPriorityP2},
		{domain.SeveritySEV4, 14 * 24 * time.Hour, domain.ActionPriorityP2},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			closeTime := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
			f := newFixture(closeTime)
			incident := openIncident(t, f, tt.severity)

			rootCause := "root cause"
			_, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{RootCause: &rootCause}, testActor)
			require.NoError(t, err)

			_, err = f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
			require.NoError(t, err)

			require.Len(t, f.items.items, 3)
			for _, item := range f.items.items {
				assert.Equal(t, tt.priority, item.Priority)
				assert.Equal(t, closeTime.Add(tt.offset), item.DueDate)
			}
		})
	}
}

func TestUpdateIncident_NoChangesWritesNoAudit(t *testing.T) {
	f := newFixture(time.Now())
	incident := openIncident(t, f, domain.SeveritySEV2)
	before := len(f.audit.entries)

	sameTitle := incident.Title
	_, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{Title: &sameTitle}, testActor)
	require.NoError(t, err)

	assert.Equal(t, before, len(f.audit.entries))
}

func TestUpdateIncident_RecordsFieldDiff(t *testing.T) {
	f := newFixture(time.Now())
	incident := openIncident(t, f, domain.SeveritySEV2)

	newTitle := "Checkout down"
	updated, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{Title: &newTitle}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "Checkout down", updated.Title)

	updates := f.audit.byAction(domain.AuditActionUpdate)
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].Changes, "Checkout down")
	assert.Contains(t, updates[0].Changes, "Checkout latency spike")
}

func TestEnableSharing_Idempotent(t *testing.T) {
	f := newFixture(time.Now())
	incident := openIncident(t, f, domain.SeveritySEV2)

	token1, err := f.svc.EnableSharing(context.Background(), incident.ID, testActor)
	require.NoError(t, err)
	require.NotEmpty(t, token1)

	token2, err := f.svc.EnableSharing(context.Background(), incident.ID, testActor)
	require.NoError(t, err)
	assert.Equal(t, token1, token2)

	view, err := f.svc.PostmortemByShareToken(context.Background(), token1)
	require.NoError(t, err)
	assert.Equal(t, incident.ID, view.Incident.ID)

	require.NoError(t, f.svc.DisableSharing(context.Background(), incident.ID, testActor))
	_, err = f.svc.PostmortemByShareToken(context.Background(), token1)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestDeleteIncident_CascadesActionItems(t *testing.T) {
	f := newFixture(time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC))
	incident := openIncident(t, f, domain.SeveritySEV2)

	rootCause := "root cause"
	_, err := f.svc.UpdateIncident(context.Background(), incident.ID, UpdateIncidentInput{RootCause: &rootCause}, testActor)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(context.Background(), incident.ID, domain.IncidentStatusClosed, testActor)
	require.NoError(t, err)
	require.Len(t, f.items.items, 3)

	require.NoError(t, f.svc.DeleteIncident(context.Background(), incident.ID, testActor))

	assert.Empty(t, f.items.items)
	_, err = f.svc.GetIncident(context.Background(), incident.ID)
	assert.ErrorIs(t, err, ErrIncidentNotFound)
	assert.Len(t, f.audit.byAction(domain.AuditActionDelete), 1)
}

func TestPostmortem_OrdersTimelineAndActionItems(t *testing.T) {
	f := newFixture(time.Now())
	incident := openIncident(t, f, domain.SeveritySEV2)

	later := &domain.TimelineEvent{
		IncidentID: incident.ID,
		OccurredAt: time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
		Message:    "mitigated",
	}
	earlier := &domain.TimelineEvent{
		IncidentID: incident.ID,
		OccurredAt: time.Date(2024, 3, 4, 10, 5, 0, 0, time.UTC),
		Message:    "paged on-call",
	}
	require.NoError(t, f.svc.AddTimelineEvent(context.Background(), later, testActor))
	require.NoError(t, f.svc.AddTimelineEvent(context.Background(), earlier, testActor))

	for i, priority := range []domain.ActionPriority{domain.ActionPriorityP2, domain.ActionPriorityP0} {
		require.NoError(t, f.items.CreateActionItem(context.Background(), &domain.ActionItem{
			IncidentID: incident.ID,
			Title:      fmt.Sprintf("task %d", i),
			OwnerID:    "owner-1",
			Priority:   priority,
			Status:     domain.ActionStatusOpen,
		}))
	}

	view, err := f.svc.Postmortem(context.Background(), incident.ID)
	require.NoError(t, err)

	require.Len(t, view.TimelineEvents, 2)
	assert.Equal(t, "paged on-call", view.TimelineEvents[0].Message)
	require.Len(t, view.ActionItems, 2)
	assert.Equal(t, domain.ActionPriorityP0, view.ActionItems[0].Priority)
	assert.Equal(t, "Dana", view.ActionItems[0].OwnerName)
	assert.Equal(t, "Dana", view.OwnerName)
}
