package incidents

import (
	"testing"
	"time"

	"github.com/bissquit/postmortem-garden/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Render(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	rootCause := "expired TLS certificate"
	view := &PostmortemView{
		Incident: domain.Incident{
			Title:         "Checkout latency spike",
			Severity:      domain.SeveritySEV1,
			Status:        domain.IncidentStatusClosed,
			Service:       "checkout",
			StartTime:     time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			ImpactSummary: "p99 latency above 5s",
			RootCause:     &rootCause,
		},
		OwnerName: "Dana",
		TimelineEvents: []domain.TimelineEvent{
			{OccurredAt: time.Date(2024, 3, 4, 10, 5, 0, 0, time.UTC), Message: "paged on-call", Actor: "Dana"},
		},
		ActionItems: []ActionItemWithOwner{
			{
				ActionItem: domain.ActionItem{
					Title:    "Update runbook",
					Priority: domain.ActionPriorityP0,
					Status:   domain.ActionStatusDone,
					DueDate:  time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC),
				},
				OwnerName: "Dana",
			},
		},
	}

	doc, err := renderer.Render(view)
	require.NoError(t, err)

	assert.Contains(t, doc, "# Postmortem: Checkout latency spike")
	assert.Contains(t, doc, "**Severity:** SEV1")
	assert.Contains(t, doc, "Closed")
	assert.Contains(t, doc, "expired TLS certificate")
	assert.Contains(t, doc, "**Mar 4, 2024 10:05 UTC** — paged on-call (Dana)")
	assert.Contains(t, doc, "- [x] **P0** Update runbook — Dana, due Mar 7, 2024")
}

func TestRenderer_RenderEmptySections(t *testing.T) {
	renderer, err := NewRenderer()
	require.NoError(t, err)

	view := &PostmortemView{
		Incident: domain.Incident{
			Title:     "DNS outage",
			Severity:  domain.SeveritySEV2,
			Status:    domain.IncidentStatusOpen,
			Service:   "dns",
			StartTime: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		},
		OwnerName: "Unknown",
	}

	doc, err := renderer.Render(view)
	require.NoError(t, err)

	assert.Contains(t, doc, "_Not yet determined._")
	assert.Contains(t, doc, "_No timeline events recorded._")
	assert.Contains(t, doc, "_No action items._")
}
