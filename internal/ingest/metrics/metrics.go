package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the ingestion module.
type Metrics struct {
	RowsIngested prometheus.Counter
	ParseErrors  prometheus.Counter
	IndexErrors  prometheus.Counter
	RunsStarted  prometheus.Counter
	RunsFailed   prometheus.Counter
}

// New creates a new Metrics instance with all ingestion module metrics registered.
func New() *Metrics {
	return &Metrics{
		RowsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ingest_rows_total",
			Help: "Total number of watchlist rows written during ingestion",
		}),
		ParseErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ingest_parse_errors_total",
			Help: "Total number of source rows rejected during parsing",
		}),
		IndexErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ingest_index_errors_total",
			Help: "Total number of vectorization batches that failed",
		}),
		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ingest_runs_started_total",
			Help: "Total number of ingestion runs started",
		}),
		RunsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vigil_ingest_runs_failed_total",
			Help: "Total number of ingestion runs that ended in failure",
		}),
	}
}
