package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the screening module.
// Tracks search volume, failures, and the critical search path duration.
type Metrics struct {
	Searches          prometheus.Counter
	SearchFailures    prometheus.Counter
	EmbeddingFailures prometheus.Counter
	SearchDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all screening module metrics registered.
func New() *Metrics {
	return &Metrics{
		Searches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_searches_total",
			Help: "Total number of screening searches executed",
		}),
		SearchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_search_failures_total",
			Help: "Total number of screening searches that returned an error",
		}),
		EmbeddingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_embedding_failures_total",
			Help: "Total number of failed embedding service calls",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vigil_search_duration_seconds",
			Help:    "Duration of screening searches (hot path)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementSearch records a search attempt.
func (m *Metrics) IncrementSearch() {
	m.Searches.Inc()
}

// IncrementSearchFailure records a search that returned an error.
func (m *Metrics) IncrementSearchFailure() {
	m.SearchFailures.Inc()
}

// IncrementEmbeddingFailure records a failed embedding service call.
func (m *Metrics) IncrementEmbeddingFailure() {
	m.EmbeddingFailures.Inc()
}

// ObserveSearch records the duration of a search.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveSearch(start time.Time) {
	m.SearchDuration.Observe(time.Since(start).Seconds())
}
