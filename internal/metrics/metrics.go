package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Chat outcomes used as the "outcome" label.
const (
	OutcomeExact     = "exact"
	OutcomeSemantic  = "semantic"
	OutcomeGenerated = "generated"
	OutcomeError     = "error"
)

var (
	ChatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_chat_requests_total",
			Help: "Chat requests by how the answer was produced",
		},
		[]string{"outcome"},
	)

	SemanticBestScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "assistant_semantic_best_score",
			Help:    "Best cosine similarity seen per semantic scan",
			Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
		},
	)

	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_external_call_duration_seconds",
			Help:    "Latency of embedding and generation calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"service"},
	)

	CachePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_cache_persist_failures_total",
			Help: "Generated answers that could not be written back to the cache",
		},
	)

	BackgroundTasks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_background_tasks_total",
			Help: "Background tasks by name and final status",
		},
		[]string{"task", "status"},
	)

	BackgroundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "assistant_background_queue_depth",
			Help: "Tasks currently waiting in the background queue",
		},
	)

	Feedback = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_feedback_total",
			Help: "Feedback votes on cached answers",
		},
		[]string{"kind"},
	)

	LeadsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_leads_created_total",
			Help: "Leads written to the store by source",
		},
		[]string{"source"},
	)
)
