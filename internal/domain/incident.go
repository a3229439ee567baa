package domain

import "time"

// Severity is an ordinal severity level. SEV1 is the most severe.
type Severity string

const (
	SeveritySEV1 Severity = "SEV1"
	SeveritySEV2 Severity = "SEV2"
	SeveritySEV3 Severity = "SEV3"
	SeveritySEV4 Severity = "SEV4"
)

// Severities lists all severities from most to least severe.
var Severities = []Severity{SeveritySEV1, SeveritySEV2, SeveritySEV3, SeveritySEV4}

// IsValid checks if the severity is a known level.
func (s Severity) IsValid() bool {
	switch s {
	case SeveritySEV1, SeveritySEV2, SeveritySEV3, SeveritySEV4:
		return true
	}
	return false
}

type IncidentStatus string

const (
	IncidentStatusOpen      IncidentStatus = "OPEN"
	IncidentStatusMitigated IncidentStatus = "MITIGATED"
	IncidentStatusClosed    IncidentStatus = "CLOSED"
)

// IsValid checks if the status is a known incident status.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusOpen, IncidentStatusMitigated, IncidentStatusClosed:
		return true
	}
	return false
}

// Incident is an operational event under postmortem management.
//
// EscalationLevel is 0, 1 or 2 and is only ever advanced by the escalation
// engine while the incident is OPEN; it never decreases. Closing an incident
// requires a non-empty root cause.
type Incident struct {
	ID              string         `json:"id"`
	OrgID           string         `json:"org_id"`
	Title           string         `json:"title"`
	Severity        Severity       `json:"severity"`
	Status          IncidentStatus `json:"status"`
	Service         string         `json:"service"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
	ImpactSummary   string         `json:"impact_summary"`
	RootCause       *string        `json:"root_cause,omitempty"`
	OwnerID         string         `json:"owner_id"`
	CreatedBy       string         `json:"created_by"`
	EscalationLevel int            `json:"escalation_level"`
	EscalatedAt     *time.Time     `json:"escalated_at,omitempty"`
	ShareToken      *string        `json:"share_token,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TimelineEvent is one entry of an incident's timeline.
type TimelineEvent struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	IncidentID string    `json:"incident_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Message    string    `json:"message"`
	Actor      string    `json:"actor"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}
