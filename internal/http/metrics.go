// Package http provides the HTTP server exposing metrics and status for the
// fuel station sync service.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/petrolwatch/fuelsync/internal/reconcile"
)

// Metrics holds all Prometheus metrics for the sync service.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RecordsTotal     *prometheus.CounterVec
	PlanBucketSize   *prometheus.GaugeVec
	PhaseDuration    *prometheus.HistogramVec
	LastRunTimestamp prometheus.Gauge
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelsync_runs_total",
				Help: "Total number of feed runs by outcome",
			},
			[]string{"status"},
		),
		RecordsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelsync_records_total",
				Help: "Total number of feed records by parse result",
			},
			[]string{"result"},
		),
		PlanBucketSize: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelsync_plan_bucket_size",
				Help: "Size of each reconciliation plan bucket in the last run",
			},
			[]string{"bucket"},
		),
		PhaseDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelsync_phase_duration_seconds",
				Help:    "Run phase duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"phase"},
		),
		LastRunTimestamp: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "fuelsync_last_run_timestamp",
				Help: "Timestamp of the last completed run",
			},
		),
	}
}

// RecordRun records the outcome of one feed cycle.
func (m *Metrics) RecordRun(stats reconcile.StatsSnapshot, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(status).Inc()

	m.RecordsTotal.WithLabelValues("parsed").Add(float64(stats.RecordsParsed))
	m.RecordsTotal.WithLabelValues("failed").Add(float64(stats.RecordsFailed))

	m.PlanBucketSize.WithLabelValues("new_stations").Set(float64(stats.NewStations))
	m.PlanBucketSize.WithLabelValues("stations_to_update").Set(float64(stats.StationsUpdated))
	m.PlanBucketSize.WithLabelValues("availability_to_insert").Set(float64(stats.AvailabilityInserted))
	m.PlanBucketSize.WithLabelValues("prices_to_insert").Set(float64(stats.PricesInserted))
	m.PlanBucketSize.WithLabelValues("prices_to_update").Set(float64(stats.PricesUpdated))

	m.PhaseDuration.WithLabelValues("fetch").Observe(stats.FetchDuration.Seconds())
	m.PhaseDuration.WithLabelValues("parse").Observe(stats.ParseDuration.Seconds())
	m.PhaseDuration.WithLabelValues("classify").Observe(stats.ClassifyDuration.Seconds())
	m.PhaseDuration.WithLabelValues("apply").Observe(stats.ApplyDuration.Seconds())

	if stats.FinishedAt != nil {
		m.LastRunTimestamp.Set(float64(stats.FinishedAt.Unix()))
	}
}
