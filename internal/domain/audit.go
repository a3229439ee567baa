package domain

import "time"

// AuditAction classifies an audit log entry.
type AuditAction string

const (
	AuditActionCreate       AuditAction = "create"
	AuditActionUpdate       AuditAction = "update"
	AuditActionDelete       AuditAction = "delete"
	AuditActionStatusChange AuditAction = "statusChange"
	AuditActionAutoCreate   AuditAction = "autoCreate"
	AuditActionEscalation   AuditAction = "automationEscalation"
	AuditActionReminder     AuditAction = "automationReminder"
)

// AuditLogEntry is an immutable append-only record of who changed what, when.
// Entries are never updated or deleted.
type AuditLogEntry struct {
	ID        string      `json:"id"`
	OrgID     string      `json:"org_id"`
	ActorID   string      `json:"actor_id"`
	ActorName string      `json:"actor_name"`
	Entity    EntityRef   `json:"entity"`
	Action    AuditAction `json:"action"`
	Changes   string      `json:"changes"`
	Timestamp time.Time   `json:"timestamp"`
}
