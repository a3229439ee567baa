package domain

import "time"

// JobName identifies a scheduled automation job.
type JobName string

const (
	JobEscalateStaleIncidents JobName = "escalateStaleIncidents"
	JobNotifyDueActionItems   JobName = "notifyDueActionItems"
	JobSendWeeklyDigest       JobName = "sendWeeklyDigest"
)

// RunStatus is the lifecycle state of an automation run.
// RUNNING is transient; SUCCESS and ERROR are terminal.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusSuccess RunStatus = "SUCCESS"
	RunStatusError   RunStatus = "ERROR"
)

// RunCounts are the result counters of one per-org job execution.
// All counters are non-negative; on SUCCESS, Evaluated >= Affected.
// Affected >= NotificationsCreated is NOT guaranteed: one affected entity
// can notify multiple recipients.
type RunCounts struct {
	Evaluated            int `json:"evaluated"`
	Affected             int `json:"affected"`
	NotificationsCreated int `json:"notifications_created"`
}

// AutomationRun is one execution record per (job, org, invocation).
type AutomationRun struct {
	ID           string     `json:"id"`
	OrgID        string     `json:"org_id"`
	JobName      JobName    `json:"job_name"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       RunStatus  `json:"status"`
	Counts       RunCounts  `json:"counts"`
	ErrorMessage string     `json:"error_message,omitempty"`
}
