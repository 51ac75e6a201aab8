package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ragRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fininsight_rag_requests_total",
			Help: "Total number of RAG pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	ragPipelineDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fininsight_rag_pipeline_duration_seconds",
			Help:    "End-to-end RAG pipeline latency including both LLM calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
	)
	ragResultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fininsight_rag_result_rows",
			Help:    "Row count materialized per RAG query.",
			Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
		},
	)
	ingestRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fininsight_ingest_requests_total",
			Help: "Total number of spreadsheet ingest requests.",
		},
	)
	ingestRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fininsight_ingest_rows_total",
			Help: "Total number of spreadsheet rows inserted.",
		},
	)
	ingestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fininsight_ingest_duration_seconds",
			Help:    "Spreadsheet ingest latency from blob fetch to commit.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	chatTurnsSavedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fininsight_chat_turns_saved_total",
			Help: "Total number of chat turns written to the chat store.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ragRequestsTotal,
		ragPipelineDurationSeconds,
		ragResultRows,
		ingestRequestsTotal,
		ingestRowsTotal,
		ingestDurationSeconds,
		chatTurnsSavedTotal,
	)
}

func ObserveRAGPipeline(outcome string, rows int, elapsed time.Duration) {
	ragRequestsTotal.WithLabelValues(outcome).Inc()
	ragPipelineDurationSeconds.Observe(elapsed.Seconds())
	if rows >= 0 {
		ragResultRows.Observe(float64(rows))
	}
}

func ObserveIngest(rows int, elapsed time.Duration) {
	ingestRequestsTotal.Inc()
	if rows > 0 {
		ingestRowsTotal.Add(float64(rows))
	}
	ingestDurationSeconds.Observe(elapsed.Seconds())
}

func IncrementChatTurnSaved() {
	chatTurnsSavedTotal.Inc()
}
