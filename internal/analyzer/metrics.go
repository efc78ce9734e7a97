package analyzer

import "github.com/prometheus/client_golang/prometheus"

var (
	ingestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aegis", Subsystem: "analyzer", Name: "ingest_total", Help: "Ingestion requests by outcome."},
		[]string{"outcome"},
	)
	riskScoreHist = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "aegis", Subsystem: "analyzer", Name: "risk_score",
			Help:    "Distribution of assigned risk scores.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
	)
	highRiskTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "aegis", Subsystem: "analyzer", Name: "high_risk_events_total", Help: "Events at or above the alert threshold."},
	)
	scoringFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "aegis", Subsystem: "analyzer", Name: "scoring_fallback_total", Help: "Per-event degradations from model to rule scoring."},
	)
	logWriteErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "aegis", Subsystem: "analyzer", Name: "log_write_errors_total", Help: "Dropped persistent log appends."},
	)
	bufferSizeGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "aegis", Subsystem: "analyzer", Name: "buffer_size", Help: "Current event buffer occupancy."},
	)
)

func init() {
	_ = prometheus.Register(ingestTotal)
	_ = prometheus.Register(riskScoreHist)
	_ = prometheus.Register(highRiskTotal)
	_ = prometheus.Register(scoringFallbackTotal)
	_ = prometheus.Register(logWriteErrors)
	_ = prometheus.Register(bufferSizeGauge)
}
