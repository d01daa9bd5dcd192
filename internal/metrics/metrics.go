package metrics

import "github.com/prometheus/client_golang/prometheus"

// Workflow and model Prometheus metrics.
var (
	WorkflowRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "workflow_runs_total",
			Help:      "Total workflow runs by terminal status",
		},
		[]string{"status"},
	)

	WorkflowStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "workflow_stage_duration_seconds",
			Help:      "Per-stage workflow latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	RegenerationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "workflow_regenerations_total",
			Help:      "Total regeneration attempts across all runs",
		},
	)

	CapacityRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "workflow_capacity_rejections_total",
			Help:      "Runs rejected because the admission queue was full",
		},
	)

	EvaluationScores = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "evaluation_score",
			Help:      "Evaluation pipeline scores",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"metric"}, // hallucination, consistency, confidence
	)

	EvaluationStatusTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "evaluation_status_total",
			Help:      "Evaluation verdicts by status",
		},
		[]string{"status"},
	)

	ModelRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "model_requests_total",
			Help:      "Total language-model requests",
		},
		[]string{"operation", "status"}, // operation: complete, embed
	)

	ModelRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finsight",
			Name:      "model_request_duration_seconds",
			Help:      "Language-model request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	ModelTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "model_tokens_total",
			Help:      "Total model tokens consumed",
		},
		[]string{"operation", "type"}, // type: prompt, completion, embedding
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	PIIDetectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "guardrail_pii_detections_total",
			Help:      "PII entities detected in generated answers",
		},
		[]string{"entity_type"},
	)

	PolicyViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finsight",
			Name:      "guardrail_policy_violations_total",
			Help:      "Content-policy violations by type and severity",
		},
		[]string{"violation_type", "severity"},
	)
)

var registered bool

// Register registers all workflow metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(
		WorkflowRunsTotal,
		WorkflowStageDuration,
		RegenerationsTotal,
		CapacityRejectionsTotal,
		EvaluationScores,
		EvaluationStatusTotal,
		ModelRequestsTotal,
		ModelRequestDuration,
		ModelTokensTotal,
		EmbeddingCacheTotal,
		PIIDetectionsTotal,
		PolicyViolationsTotal,
	)
	registered = true
}
