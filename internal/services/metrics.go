package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the companion pipeline
type Metrics struct {
	// Companion query metrics
	CompanionQueries      prometheus.Counter
	CompanionQueryLatency prometheus.Histogram
	CompanionErrors       *prometheus.CounterVec

	// Degraded-path observability
	RetrievalFallbacks  prometheus.Counter
	GenerationFallbacks prometheus.Counter
	CrisisDetections    prometheus.Counter

	// Aggregation metrics
	ContextSourceFailures *prometheus.CounterVec
}

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	return &Metrics{
		CompanionQueries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solace_companion_queries_total",
			Help: "Total number of companion queries processed",
		}),

		CompanionQueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "solace_companion_query_duration_seconds",
			Help:    "Companion query latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60}, // generation path can be slow
		}),

		CompanionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_companion_errors_total",
			Help: "Total number of companion errors by type",
		}, []string{"error_type"}),

		RetrievalFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solace_retrieval_fallbacks_total",
			Help: "Times the keyword fallback path served a query",
		}),

		GenerationFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solace_generation_fallbacks_total",
			Help: "Times the templated response stood in for the generative model",
		}),

		CrisisDetections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "solace_crisis_detections_total",
			Help: "Crisis keyword detections in incoming messages",
		}),

		ContextSourceFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "solace_context_source_failures_total",
			Help: "Per-category read failures absorbed during context aggregation",
		}, []string{"source"}),
	}
}
