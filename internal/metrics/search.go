package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, sync and rebuild Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexis",
			Name:      "search_duration_seconds",
			Help:      "Search latency in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"status"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lexis",
			Name:      "search_results",
			Help:      "Total matches per search before pagination",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexis",
			Name:      "sync_events_total",
			Help:      "Index sync events by entity type, operation and status",
		},
		[]string{"entity_type", "op", "status"},
	)

	RebuildTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexis",
			Name:      "rebuild_total",
			Help:      "Index rebuilds by entity type and status",
		},
		[]string{"entity_type", "status"},
	)

	RebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexis",
			Name:      "rebuild_duration_seconds",
			Help:      "Index rebuild duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"entity_type"},
	)

	IndexDocuments = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lexis",
			Name:      "index_documents",
			Help:      "Documents held by each entity index",
		},
		[]string{"entity_type"},
	)

	IndexTerms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lexis",
			Name:      "index_terms",
			Help:      "Distinct terms held by each entity index",
		},
		[]string{"entity_type"},
	)
)

var registered bool

// Register registers the search metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(SyncEventsTotal)
	prometheus.MustRegister(RebuildTotal)
	prometheus.MustRegister(RebuildDuration)
	prometheus.MustRegister(IndexDocuments)
	prometheus.MustRegister(IndexTerms)
	registered = true
}

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatusOf maps an error to a status label.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// ObserveIndex publishes the size gauges of one entity index.
func ObserveIndex(entityType string, documents, terms int) {
	IndexDocuments.WithLabelValues(entityType).Set(float64(documents))
	IndexTerms.WithLabelValues(entityType).Set(float64(terms))
}
