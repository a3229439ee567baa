package domain

import "time"

type NotificationType string

const (
	NotificationIncidentEscalation NotificationType = "INCIDENT_ESCALATION"
	NotificationActionDueSoon      NotificationType = "ACTION_DUE_SOON"
	NotificationActionOverdue      NotificationType = "ACTION_OVERDUE"
	NotificationWeeklyDigest       NotificationType = "WEEKLY_DIGEST"
)

// Notification is one delivery record to one user about one entity/event.
//
// At most one notification may ever exist with a given dedupe key; this is
// the idempotency contract of the automation subsystem and is enforced by a
// unique constraint on dedupe_key.
type Notification struct {
	ID        string           `json:"id"`
	OrgID     string           `json:"org_id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Entity    EntityRef        `json:"entity"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Link      string           `json:"link"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	DedupeKey string           `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}
