package domain

import "time"

type ActionPriority string

const (
	ActionPriorityP0 ActionPriority = "P0"
	ActionPriorityP1 ActionPriority = "P1"
	ActionPriorityP2 ActionPriority = "P2"
)

// IsValid checks if the priority is a known priority.
func (p ActionPriority) IsValid() bool {
	return p == ActionPriorityP0 || p == ActionPriorityP1 || p == ActionPriorityP2
}

type ActionStatus string

const (
	ActionStatusOpen       ActionStatus = "OPEN"
	ActionStatusInProgress ActionStatus = "IN_PROGRESS"
	ActionStatusDone       ActionStatus = "DONE"
)

// IsValid checks if the status is a known action item status.
func (s ActionStatus) IsValid() bool {
	return s == ActionStatusOpen || s == ActionStatusInProgress || s == ActionStatusDone
}

// Auto-generated postmortem follow-up types. A manual item has an empty type.
const (
	ActionTypeConfirmMonitoring = "confirm_monitoring"
	ActionTypeUpdateRunbook     = "update_runbook"
	ActionTypeScheduleRetro     = "schedule_retro"
)

// ActionItem is a remediation task tied to one incident.
//
// Items with status DONE are excluded from all escalation/reminder
// consideration regardless of due date.
type ActionItem struct {
	ID         string         `json:"id"`
	OrgID      string         `json:"org_id"`
	IncidentID string         `json:"incident_id"`
	Title      string         `json:"title"`
	OwnerID    string         `json:"owner_id"`
	Priority   ActionPriority `json:"priority"`
	DueDate    time.Time      `json:"due_date"`
	Status     ActionStatus   `json:"status"`
	Type       string         `json:"type,omitempty"`
	CreatedBy  string         `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
