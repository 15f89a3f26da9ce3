package command

import "github.com/prometheus/client_golang/prometheus"

var (
	syncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Sync passes by provider and outcome",
		},
		[]string{"provider", "status", "error_kind"},
	)

	syncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Duration of sync passes that took the provider lock",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	productsUpserted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_products_upserted_total",
			Help: "Products created or refreshed by sync",
		},
		[]string{"provider"},
	)

	productsRetired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_products_retired_total",
			Help: "Products deactivated because upstream stopped listing them",
		},
		[]string{"provider"},
	)

	servicesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_sync_services_skipped_total",
			Help: "Upstream services rejected by validation",
		},
		[]string{"provider"},
	)

	syncsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_sync_in_flight",
			Help: "Sync passes currently holding a provider lock in this process",
		},
	)
)

func init() {
	prometheus.MustRegister(syncRuns, syncDuration, productsUpserted, productsRetired, servicesSkipped, syncsInFlight)
}
