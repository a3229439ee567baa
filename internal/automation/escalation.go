package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/bissquit/postmortem-garden/internal/notifications"
)

// Per-severity SLA thresholds. An incident open longer than its threshold
// escalates to level 1; longer than twice the threshold, to level 2.
var slaThresholds = map[domain.Severity]time.Duration{
	domain.SeveritySEV1: 30 * time.Minute,
	domain.SeveritySEV2: 2 * time.Hour,
	domain.SeveritySEV3: 8 * time.Hour,
	domain.SeveritySEV4: 24 * time.Hour,
}

// TargetLevel computes the escalation level an incident should be at after
// being open for elapsed. Comparisons are strict: exactly at the threshold
// is still level 0. An unknown severity gets the SEV4 threshold.
func TargetLevel(elapsed time.Duration, severity domain.Severity) int {
	threshold, ok := slaThresholds[severity]
	if !ok {
		threshold = slaThresholds[domain.SeveritySEV4]
	}
	switch {
	case elapsed > 2*threshold:
		return 2
	case elapsed > threshold:
		return 1
	default:
		return 0
	}
}

// processEscalations evaluates all OPEN incidents of one org and escalates
// those past SLA. The escalation level only ever moves up: a target at or
// below the current level is a no-op.
func (e *Engine) processEscalations(ctx context.Context, orgID string) (domain.RunCounts, error) {
	var counts domain.RunCounts

	system, err := e.system.SystemProfile(ctx)
	if err != nil {
		return counts, fmt.Errorf("resolve system profile: %w", err)
	}

	now := e.now()
	dateKey := formatDateKey(now)

	open, err := e.incidents.ListOpenIncidentsByOrg(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list open incidents: %w", err)
	}
	counts.Evaluated = len(open)

	adminIDs, err := e.orgs.ListAdminProfileIDs(ctx, orgID)
	if err != nil {
		return counts, fmt.Errorf("list org admins: %w", err)
	}

	for _, incident := range open {
		if incident.OrgID == "" {
			continue
		}

		target := TargetLevel(now.Sub(incident.StartTime), incident.Severity)
		if target <= incident.EscalationLevel {
			continue
		}

		if err := e.incidents.UpdateEscalation(ctx, incident.ID, target, now); err != nil {
			return counts, fmt.Errorf("escalate incident %s: %w", incident.ID, err)
		}
		counts.Affected++
		recordEscalation(string(incident.Severity), target)

		levelLabel := fmt.Sprintf("Level %d", target)
		title := fmt.Sprintf("Incident escalated to %s: %s", levelLabel, incident.Title)
		body := fmt.Sprintf("Incident %q (%s) has been open past SLA and escalated to %s.",
			incident.Title, incident.Severity, levelLabel)
		link := "/incidents/" + incident.ID

		changes, _ := json.Marshal(map[string]any{
			"escalation_level": map[string]int{"old": incident.EscalationLevel, "new": target},
			"escalated_at":     now,
		})
		err := e.audit.Record(ctx, &domain.AuditLogEntry{
			OrgID:     incident.OrgID,
			ActorID:   system.ID,
			ActorName: system.Name,
			Entity:    domain.EntityRef{Kind: domain.EntityIncident, ID: incident.ID},
			Action:    domain.AuditActionEscalation,
			Changes:   string(changes),
		})
		if err != nil {
			return counts, fmt.Errorf("record escalation audit entry: %w", err)
		}

		for _, userID := range recipients(incident.OwnerID, adminIDs) {
			dedupeKey := fmt.Sprintf("incident_escalation:%s:%d:%s:%s",
				incident.ID, target, userID, dateKey)
			created, err := e.notifier.CreateIfNotExists(ctx, notifications.CreateInput{
				OrgID:     incident.OrgID,
				UserID:    userID,
				Type:      domain.NotificationIncidentEscalation,
				Entity:    domain.EntityRef{Kind: domain.EntityIncident, ID: incident.ID},
				Title:     title,
				Body:      body,
				Link:      link,
				DedupeKey: dedupeKey,
			})
			if err != nil {
				return counts, fmt.Errorf("notify escalation: %w", err)
			}
			if created != nil {
				counts.NotificationsCreated++
			}
		}
	}

	return counts, nil
}

// RunEscalationForOrg runs the escalation job for one org, tracked as an
// automation run.
func (e *Engine) RunEscalationForOrg(ctx context.Context, orgID string) error {
	return e.runForOrg(ctx, domain.JobEscalateStaleIncidents, orgID, e.processEscalations)
}

// RunEscalation runs the escalation job for every org.
func (e *Engine) RunEscalation(ctx context.Context) error {
	return e.runForAllOrgs(ctx, domain.JobEscalateStaleIncidents, e.processEscalations)
}
