package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eldorado",
			Subsystem: "settlement",
			Name:      "transactions_total",
			Help:      "Total number of settled wager transactions by terminal status.",
		},
		[]string{"status"},
	)

	duplicateReplays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eldorado",
			Subsystem: "settlement",
			Name:      "duplicate_replays_total",
			Help:      "Total number of idempotent replays served for duplicate submissions.",
		},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eldorado",
			Subsystem: "settlement",
			Name:      "rate_limited_total",
			Help:      "Total number of wagers rejected by the hourly rate limit.",
		},
	)

	payouts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "eldorado",
			Subsystem: "settlement",
			Name:      "payout_tokens",
			Help:      "Distribution of payout amounts in tokens.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to ~16k tokens
		},
	)

	archivedRows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eldorado",
			Subsystem: "audit",
			Name:      "archived_rows_total",
			Help:      "Total number of transactions flagged archived by the sweep.",
		},
	)

	integrityFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eldorado",
			Subsystem: "audit",
			Name:      "integrity_failures_total",
			Help:      "Total number of integrity hash mismatches found during sweeps.",
		},
	)
)

func init() {
	Registry.MustRegister(
		settlements,
		duplicateReplays,
		rateLimited,
		payouts,
		archivedRows,
		integrityFailures,
	)
}

// ObserveSettlement records one settled transaction
func ObserveSettlement(status string, payout int64) {
	settlements.WithLabelValues(status).Inc()
	if payout > 0 {
		payouts.Observe(float64(payout))
	}
}

// ObserveDuplicateReplay records an idempotent replay
func ObserveDuplicateReplay() {
	duplicateReplays.Inc()
}

// ObserveRateLimited records a rate-limited rejection
func ObserveRateLimited() {
	rateLimited.Inc()
}

// ObserveArchived records rows archived by a sweep
func ObserveArchived(count int) {
	archivedRows.Add(float64(count))
}

// ObserveIntegrityFailure records an integrity hash mismatch
func ObserveIntegrityFailure() {
	integrityFailures.Inc()
}

// HTTPHandler serves the registry for scraping
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
