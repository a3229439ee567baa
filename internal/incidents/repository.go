// Package incidents provides incident lifecycle management: CRUD, status
// transitions, timeline events and shareable postmortem documents.
package incidents

import (
	"context"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
)

// IncidentFilter narrows incident listings.
type IncidentFilter struct {
	Status   domain.IncidentStatus
	Severity domain.Severity
}

// Repository defines the interface for incident data access.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	GetIncidentByID(ctx context.Context, id string) (*domain.Incident, error)
	GetIncidentByShareToken(ctx context.Context, token string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, orgID string, filter IncidentFilter) ([]domain.Incident, error)
	UpdateIncident(ctx context.Context, incident *domain.Incident) error
	DeleteIncident(ctx context.Context, id string) error

	// ListOpenIncidentsByOrg returns all OPEN incidents of an org. Used by
	// the escalation engine and the digest aggregator.
	ListOpenIncidentsByOrg(ctx context.Context, orgID string) ([]domain.Incident, error)

	// UpdateEscalation advances the escalation level of an incident.
	UpdateEscalation(ctx context.Context, id string, level int, escalatedAt time.Time) error

	AddTimelineEvent(ctx context.Context, event *domain.TimelineEvent) error
	ListTimelineEvents(ctx context.Context, incidentID string) ([]domain.TimelineEvent, error)
}
