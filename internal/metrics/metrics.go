// Package metrics exposes the Prometheus instrumentation for the engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AlertsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shrike_alerts_ingested_total",
		Help: "Raw alerts ingested from batch files.",
	})

	AlertsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shrike_alerts_scored_total",
		Help: "Alerts scored and persisted successfully.",
	})

	AlertsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shrike_alerts_scoring_failed_total",
		Help: "Alerts that produced a failure marker during batch scoring.",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shrike_scoring_batch_duration_seconds",
		Help:    "Wall time of full batch scoring runs.",
		Buckets: prometheus.DefBuckets,
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
