package notifications

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "postmortemgarden"

var (
	notificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Total notifications created",
		},
		[]string{"type"},
	)

	notificationsDeduplicated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notifications",
			Name:      "deduplicated_total",
			Help:      "Total notifications dropped as duplicates of an existing dedupe key",
		},
		[]string{"type"},
	)
)

func recordCreated(notificationType string) {
	notificationsCreated.WithLabelValues(notificationType).Inc()
}

func recordDeduplicated(notificationType string) {
	notificationsDeduplicated.WithLabelValues(notificationType).Inc()
}
