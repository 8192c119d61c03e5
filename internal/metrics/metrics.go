package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// TransitionsTotal counts applied status transitions by target status and
	// history action tag.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turnkeep",
			Name:      "schedule_transitions_total",
			Help:      "Schedule status transitions by target status and action.",
		},
		[]string{"status", "action"},
	)

	// SyncRunsTotal counts calendar sync attempts by outcome.
	SyncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turnkeep",
			Name:      "calendar_sync_runs_total",
			Help:      "Calendar sync attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// SyncDuration observes how long sync attempts take, successful or not.
	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "turnkeep",
			Name:      "calendar_sync_duration_seconds",
			Help:      "Duration of calendar sync attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	// RealtimeClassifications counts change-feed classifications by action.
	RealtimeClassifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "turnkeep",
			Name:      "realtime_classifications_total",
			Help:      "Realtime change-feed classifications by resulting action.",
		},
		[]string{"action"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			TransitionsTotal,
			SyncRunsTotal,
			SyncDuration,
			RealtimeClassifications,
		)
	})
}
