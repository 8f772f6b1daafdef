package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_messages_fetched_total",
		Help: "The total number of messages fetched from channels",
	}, []string{"channel"})

	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_fetch_failures_total",
		Help: "Channel fetches degraded to an empty batch",
	}, []string{"channel", "reason"})

	FloodWaitSeconds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_flood_wait_seconds_total",
		Help: "Seconds spent waiting on Telegram FLOOD_WAIT",
	})

	ItemVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_item_verdicts_total",
		Help: "Curation verdicts per item",
	}, []string{"verdict", "reason"})

	ItemSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_item_save_failures_total",
		Help: "Item saves that failed during ingestion and were skipped",
	})

	EvaluatorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_evaluator_requests_total",
		Help: "Evaluator requests by operation and status",
	}, []string{"provider", "operation", "status"})

	EvaluatorRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_evaluator_request_duration_seconds",
		Help:    "Duration of evaluator requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "model"})

	EvaluatorQuotaAvailable = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curator_evaluator_quota_available",
		Help: "1 if the last quota probe reported capacity",
	})

	SimilarityScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_similarity_score",
		Help:    "Max similarity of accepted items to the published snapshot",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
	})

	MetricsBackfilled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_metrics_backfilled_total",
		Help: "Items whose engagement metrics were refreshed",
	}, []string{"channel"})

	SimilarityReconciled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_similarity_reconciled_total",
		Help: "Unpublished items whose similarity score was recomputed",
	})

	PassDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_pass_duration_seconds",
		Help:    "Duration of a curation pass",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"pass", "status"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_runs_total",
		Help: "Curation runs by outcome",
	}, []string{"status"})

	RunsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_runs_skipped_total",
		Help: "Scheduled runs skipped because another instance holds the run lock",
	})

	LastSuccessfulRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curator_last_successful_run_timestamp_seconds",
		Help: "Unix time of the last successful curation run",
	})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_embedding_requests_total",
		Help: "Embedding requests by provider and status",
	}, []string{"provider", "model", "status"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_embedding_latency_seconds",
		Help:    "Embedding request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider", "model"})

	EmbeddingFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_embedding_fallbacks_total",
		Help: "Embedding requests served by a fallback provider",
	}, []string{"from", "to"})

	EmbeddingProviderAvailable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "curator_embedding_provider_available",
		Help: "1 if the embedding provider is available",
	}, []string{"provider"})
)
