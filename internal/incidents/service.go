package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bissquit/postmortem-garden/internal/actions"
	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Postmortem follow-up items created automatically when an incident closes.
var postmortemFollowUps = []struct {
	Type  string
	Title string
}{
	{domain.ActionTypeConfirmMonitoring, "Confirm monitoring/alerts"},
	{domain.ActionTypeUpdateRunbook, "Update runbook"},
	{domain.ActionTypeScheduleRetro, "Schedule retro review"},
}

// Follow-up due date offsets from close time, keyed by severity.
var followUpDueOffsets = map[domain.Severity]time.Duration{
	domain.SeveritySEV1: 48 * time.Hour,
	domain.SeveritySEV2: 5 * 24 * time.Hour,
	domain.SeveritySEV3: 10 * 24 * time.Hour,
	domain.SeveritySEV4: 14 * 24 * time.Hour,
}

// Follow-up priority, keyed by severity.
var followUpPriority = map[domain.Severity]domain.ActionPriority{
	domain.SeveritySEV1: domain.ActionPriorityP0,
	domain.SeveritySEV2: domain.ActionPriorityP1,
	domain.SeveritySEV3: domain.ActionPriorityP2,
	domain.SeveritySEV4: domain.ActionPriorityP2,
}

// ActionItemStore is the subset of action item persistence used when closing
// and deleting incidents.
type ActionItemStore interface {
	CreateActionItem(ctx context.Context, item *domain.ActionItem) error
	GetActionItemByIncidentAndType(ctx context.Context, incidentID, actionType string) (*domain.ActionItem, error)
	ListActionItemsByIncident(ctx context.Context, incidentID string) ([]domain.ActionItem, error)
	DeleteActionItemsByIncident(ctx context.Context, incidentID string) error
}

// AuditWriter records audit log entries.
type AuditWriter interface {
	Record(ctx context.Context, entry *domain.AuditLogEntry) error
}

// ProfileReader resolves profiles for owner name display.
type ProfileReader interface {
	GetProfileByID(ctx context.Context, id string) (*domain.Profile, error)
}

// Service provides incident management operations.
type Service struct {
	repo     Repository
	items    ActionItemStore
	audit    AuditWriter
	profiles ProfileReader
	now      func() time.Time
}

func NewService(repo Repository, items ActionItemStore, audit AuditWriter, profiles ProfileReader) *Service {
	return &Service{
		repo:     repo,
		items:    items,
		audit:    audit,
		profiles: profiles,
		now:      time.Now,
	}
}

// CreateIncident creates a new incident in OPEN status and records an audit
// entry attributed to the actor.
func (s *Service) CreateIncident(ctx context.Context, incident *domain.Incident, actor *domain.Profile) error {
	if !incident.Severity.IsValid() {
		return ErrInvalidSeverity
	}

	incident.Status = domain.IncidentStatusOpen
	incident.EscalationLevel = 0
	incident.CreatedBy = actor.ID
	if incident.OwnerID == "" {
		incident.OwnerID = actor.ID
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return fmt.Errorf("create incident: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: incident.ID},
		domain.AuditActionCreate, map[string]any{"created": map[string]any{
			"title":    incident.Title,
			"severity": incident.Severity,
			"service":  incident.Service,
		}})
	return nil
}

func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncidentByID(ctx, id)
}

// ListIncidents returns an org's incidents, newest start time first.
func (s *Service) ListIncidents(ctx context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if filter.Severity != "" && !filter.Severity.IsValid() {
		return nil, ErrInvalidSeverity
	}
	return s.repo.ListIncidents(ctx, orgID, filter)
}

func (s *Service) ListOpenIncidentsByOrg(ctx context.Context, orgID string) ([]domain.Incident, error) {
	return s.repo.ListOpenIncidentsByOrg(ctx, orgID)
}

// UpdateIncidentInput carries optional field updates. Nil fields are left
// unchanged.
type UpdateIncidentInput struct {
	Title         *string
	Severity      *domain.Severity
	Service       *string
	StartTime     *time.Time
	EndTime       *time.Time
	ImpactSummary *string
	RootCause     *string
	OwnerID       *string
}

// UpdateIncident applies a partial update and records a field-level diff in
// the audit log. A no-op update writes no audit entry.
func (s *Service) UpdateIncident(ctx context.Context, id string, input UpdateIncidentInput, actor *domain.Profile) (*domain.Incident, error) {
	incident, err := s.repo.GetIncidentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any)
	setField := func(name string, old, val any, apply func()) {
		if fmt.Sprint(old) != fmt.Sprint(val) {
			changes[name] = map[string]any{"old": old, "new": val}
			apply()
		}
	}

	if input.Title != nil {
		setField("title", incident.Title, *input.Title, func() { incident.Title = *input.Title })
	}
	if input.Severity != nil {
		if !input.Severity.IsValid() {
			return nil, ErrInvalidSeverity
		}
		setField("severity", incident.Severity, *input.Severity, func() { incident.Severity = *input.Severity })
	}
	if input.Service != nil {
		setField("service", incident.Service, *input.Service, func() { incident.Service = *input.Service })
	}
	if input.StartTime != nil {
		setField("start_time", incident.StartTime, *input.StartTime, func() { incident.StartTime = *input.StartTime })
	}
	if input.EndTime != nil {
		setField("end_time", incident.EndTime, *input.EndTime, func() { incident.EndTime = input.EndTime })
	}
	if input.ImpactSummary != nil {
		setField("impact_summary", incident.ImpactSummary, *input.ImpactSummary, func() { incident.ImpactSummary = *input.ImpactSummary })
	}
	if input.RootCause != nil {
		old := ""
		if incident.RootCause != nil {
			old = *incident.RootCause
		}
		setField("root_cause", old, *input.RootCause, func() { incident.RootCause = input.RootCause })
	}
	if input.OwnerID != nil {
		setField("owner_id", incident.OwnerID, *input.OwnerID, func() { incident.OwnerID = *input.OwnerID })
	}

	if len(changes) == 0 {
		return incident, nil
	}

	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: incident.ID},
		domain.AuditActionUpdate, changes)
	return incident, nil
}

// SetStatus transitions the incident status. Closing requires a non-empty
// root cause and, on the first transition into CLOSED, creates the
// postmortem follow-up action items.
func (s *Service) SetStatus(ctx context.Context, id string, status domain.IncidentStatus, actor *domain.Profile) (*domain.Incident, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	incident, err := s.repo.GetIncidentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if status == domain.IncidentStatusClosed {
		if incident.RootCause == nil || *incident.RootCause == "" {
			return nil, ErrRootCauseRequired
		}
	}

	oldStatus := incident.Status
	incident.Status = status
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("set incident status: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: incident.ID},
		domain.AuditActionStatusChange, map[string]any{"status": map[string]any{"old": oldStatus, "new": status}})

	if status == domain.IncidentStatusClosed && oldStatus != domain.IncidentStatusClosed {
		if err := s.createFollowUps(ctx, incident, actor); err != nil {
			return nil, fmt.Errorf("create postmortem follow-ups: %w", err)
		}
	}
	return incident, nil
}

// createFollowUps creates the three postmortem follow-up items for a closed
// incident. Items whose (incident, type) pair already exists are skipped, so
// re-closing an incident is idempotent.
func (s *Service) createFollowUps(ctx context.Context, incident *domain.Incident, actor *domain.Profile) error {
	closeTime := s.now()

	offset, ok := followUpDueOffsets[incident.Severity]
	if !ok {
		offset = followUpDueOffsets[domain.SeveritySEV4]
	}
	priority, ok := followUpPriority[incident.Severity]
	if !ok {
		priority = domain.ActionPriorityP2
	}

	ownerID := incident.OwnerID
	if ownerID == "" {
		ownerID = actor.ID
	}

	for _, followUp := range postmortemFollowUps {
		existing, err := s.items.GetActionItemByIncidentAndType(ctx, incident.ID, followUp.Type)
		if err != nil && !errors.Is(err, actions.ErrActionItemNotFound) {
			return err
		}
		if existing != nil {
			continue
		}

		item := &domain.ActionItem{
			OrgID:      incident.OrgID,
			IncidentID: incident.ID,
			Title:      followUp.Title,
			OwnerID:    ownerID,
			Priority:   priority,
			DueDate:    closeTime.Add(offset),
			Status:     domain.ActionStatusOpen,
			Type:       followUp.Type,
			CreatedBy:  actor.ID,
		}
		if err := s.items.CreateActionItem(ctx, item); err != nil {
			return err
		}

		s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityActionItem, ID: item.ID},
			domain.AuditActionAutoCreate, map[string]any{
				"created":     map[string]any{"title": followUp.Title, "type": followUp.Type},
				"automation":  "postmortem_close",
				"incident_id": incident.ID,
			})
	}
	return nil
}

// DeleteIncident removes an incident together with its timeline events and
// action items.
func (s *Service) DeleteIncident(ctx context.Context, id string, actor *domain.Profile) error {
	incident, err := s.repo.GetIncidentByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.items.DeleteActionItemsByIncident(ctx, id); err != nil {
		return fmt.Errorf("delete incident action items: %w", err)
	}
	if err := s.repo.DeleteIncident(ctx, id); err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: id},
		domain.AuditActionDelete, map[string]any{"deleted": incident.Title})
	return nil
}

// AddTimelineEvent appends an event to the incident timeline.
func (s *Service) AddTimelineEvent(ctx context.Context, event *domain.TimelineEvent, actor *domain.Profile) error {
	incident, err := s.repo.GetIncidentByID(ctx, event.IncidentID)
	if err != nil {
		return err
	}
	event.OrgID = incident.OrgID
	event.CreatedBy = actor.ID
	if event.Actor == "" {
		event.Actor = actor.Name
	}

	if err := s.repo.AddTimelineEvent(ctx, event); err != nil {
		return fmt.Errorf("add timeline event: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityTimeline, ID: event.ID},
		domain.AuditActionCreate, map[string]any{"created": map[string]any{"message": event.Message}})
	return nil
}

func (s *Service) ListTimelineEvents(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error) {
	if _, err := s.repo.GetIncidentByID(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.repo.ListTimelineEvents(ctx, incidentID)
}

// EnableSharing assigns a share token to the incident, making its postmortem
// publicly readable. Returns the existing token if sharing is already on.
func (s *Service) EnableSharing(ctx context.Context, id string, actor *domain.Profile) (string, error) {
	incident, err := s.repo.GetIncidentByID(ctx, id)
	if err != nil {
		return "", err
	}
	if incident.ShareToken != nil {
		return *incident.ShareToken, nil
	}

	token := uuid.NewString()
	incident.ShareToken = &token
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return "", fmt.Errorf("enable sharing: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: id},
		domain.AuditActionUpdate, map[string]any{"sharing": map[string]any{"old": false, "new": true}})
	return token, nil
}

// DisableSharing revokes the incident's share token.
func (s *Service) DisableSharing(ctx context.Context, id string, actor *domain.Profile) error {
	incident, err := s.repo.GetIncidentByID(ctx, id)
	if err != nil {
		return err
	}
	if incident.ShareToken == nil {
		return nil
	}

	incident.ShareToken = nil
	if err := s.repo.UpdateIncident(ctx, incident); err != nil {
		return fmt.Errorf("disable sharing: %w", err)
	}

	s.writeAudit(ctx, actor, incident.OrgID, domain.EntityRef{Kind: domain.EntityIncident, ID: id},
		domain.AuditActionUpdate, map[string]any{"sharing": map[string]any{"old": true, "new": false}})
	return nil
}

// PostmortemView is a read-only snapshot of an incident's postmortem:
// the incident, its timeline in occurrence order and its action items in
// priority order, with owner names resolved.
type PostmortemView struct {
	Incident       domain.Incident        `json:"incident"`
	OwnerName      string                 `json:"owner_name"`
	TimelineEvents []domain.TimelineEvent `json:"timeline_events"`
	ActionItems    []ActionItemWithOwner  `json:"action_items"`
}

// ActionItemWithOwner is an action item annotated with its owner's name.
type ActionItemWithOwner struct {
	domain.ActionItem
	OwnerName string `json:"owner_name"`
}

// Postmortem assembles the postmortem view for an incident.
func (s *Service) Postmortem(ctx context.Context, incidentID string) (*PostmortemView, error) {
	incident, err := s.repo.GetIncidentByID(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	return s.buildPostmortem(ctx, incident)
}

// PostmortemByShareToken assembles the postmortem view addressed by a public
// share token. No authentication is involved.
func (s *Service) PostmortemByShareToken(ctx context.Context, token string) (*PostmortemView, error) {
	incident, err := s.repo.GetIncidentByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.buildPostmortem(ctx, incident)
}

func (s *Service) buildPostmortem(ctx context.Context, incident *domain.Incident) (*PostmortemView, error) {
	timeline, err := s.repo.ListTimelineEvents(ctx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].OccurredAt.Before(timeline[j].OccurredAt)
	})

	items, err := s.items.ListActionItemsByIncident(ctx, incident.ID)
	if err != nil {
		return nil, fmt.Errorf("list action items: %w", err)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Priority < items[j].Priority
	})

	withOwners := make([]ActionItemWithOwner, 0, len(items))
	for _, item := range items {
		withOwners = append(withOwners, ActionItemWithOwner{
			ActionItem: item,
			OwnerName:  s.ownerName(ctx, item.OwnerID),
		})
	}

	return &PostmortemView{
		Incident:       *incident,
		OwnerName:      s.ownerName(ctx, incident.OwnerID),
		TimelineEvents: timeline,
		ActionItems:    withOwners,
	}, nil
}

func (s *Service) ownerName(ctx context.Context, profileID string) string {
	profile, err := s.profiles.GetProfileByID(ctx, profileID)
	if err != nil {
		return "Unknown"
	}
	return profile.Name
}

func (s *Service) writeAudit(ctx context.Context, actor *domain.Profile, orgID string, entity domain.EntityRef, action domain.AuditAction, changes map[string]any) {
	encoded, err := json.Marshal(changes)
	if err != nil {
		encoded = []byte("{}")
	}
	entry := &domain.AuditLogEntry{
		OrgID:     orgID,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Entity:    entity,
		Action:    action,
		Changes:   string(encoded),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		ctxlog.FromContext(ctx).Error("write audit entry", "error", err)
	}
}
