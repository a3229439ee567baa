package domain

import "time"

// DigestIncident is one entry of a digest's oldest-open-incidents list.
type DigestIncident struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	DaysOpen int      `json:"days_open"`
}

// DigestAction is one entry of a digest's most-overdue-actions list.
type DigestAction struct {
	ID            string `json:"id"`
	IncidentID    string `json:"incident_id"`
	Title         string `json:"title"`
	DaysOverdue   int    `json:"days_overdue"`
	IncidentTitle string `json:"incident_title"`
}

// DigestSummary is the computed weekly snapshot stored with a digest.
type DigestSummary struct {
	OpenBySeverity      map[Severity]int `json:"open_by_severity"`
	OverdueActionsCount int              `json:"overdue_actions_count"`
	TopIncidents        []DigestIncident `json:"top_incidents"`
	TopActions          []DigestAction   `json:"top_actions"`
}

// Digest is a weekly summary snapshot, one per (org, week-start-date).
// WeekStartDate is the most recent Monday 00:00 UTC formatted YYYY-MM-DD.
type Digest struct {
	ID            string        `json:"id"`
	OrgID         string        `json:"org_id"`
	WeekStartDate string        `json:"week_start_date"`
	Summary       DigestSummary `json:"summary"`
	CreatedAt     time.Time     `json:"created_at"`
}
