package automation

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postmortemgarden"

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "runs_total",
			Help:      "Total automation job runs by job and terminal status",
		},
		[]string{"job", "status"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "run_duration_seconds",
			Help:      "Duration of one per-org automation job run",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"job"},
	)

	escalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "automation",
			Name:      "escalations_total",
			Help:      "Total incident escalations applied by severity and target level",
		},
		[]string{"severity", "level"},
	)
)

func recordRun(job, status string, duration time.Duration) {
	runsTotal.WithLabelValues(job, status).Inc()
	runDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func recordEscalation(severity string, level int) {
	escalationsTotal.WithLabelValues(severity, strconv.Itoa(level)).Inc()
}
