package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buoywatch_feed_fetches_total",
			Help: "Total NDBC feed fetch attempts",
		},
		[]string{"feed", "provider", "status"},
	)

	FeedFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "buoywatch_feed_fetch_latency_seconds",
			Help:    "NDBC feed fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"feed", "provider"},
	)

	StationsUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buoywatch_stations_upserted_total",
			Help: "Total station rows written by the ingestion pipeline",
		},
	)

	MeasurementsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buoywatch_measurements_inserted_total",
			Help: "Total measurement rows written by the ingestion pipeline",
		},
	)

	IngestionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buoywatch_ingestion_runs_total",
			Help: "Completed ingestion runs by final status",
		},
		[]string{"status"},
	)

	MeasurementsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buoywatch_measurements_pruned_total",
			Help: "Measurement rows deleted by the retention sweep",
		},
	)
)
