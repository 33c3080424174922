// Package metrics provides the centralized Prometheus metrics registry for the backtest service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fx_backtest"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	JobsSubmittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_submitted_total",
		Help:      "Total number of accepted backtest jobs by model type",
	}, []string{"model_type"})
	JobsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "jobs_rejected_total",
		Help:      "Total number of backtest submissions rejected by validation",
	}, []string{"reason"})
	JobTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_transitions_total",
		Help:      "Total number of job status transitions by target status",
	}, []string{"status"})
	ProviderCacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_cache_lookups_total",
		Help:      "Price provider cache lookups by result",
	}, []string{"result"})
	ScheduledRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduled_runs_total",
		Help:      "Total number of cron-triggered backtest submissions by schedule and outcome",
	}, []string{"schedule", "outcome"})
)

// Gauge metrics
var (
	JobsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "jobs_in_flight",
		Help:      "Number of backtest jobs currently executing",
	})
)

// Histogram metrics
var (
	JobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of backtest jobs in seconds by final status",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"status"})
	TradesPerJob = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "trades_per_job",
		Help:      "Number of trades recorded per completed job",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(JobsSubmittedTotal)
		registry.MustRegister(JobsRejectedTotal)
		registry.MustRegister(JobTransitionsTotal)
		registry.MustRegister(ProviderCacheLookupsTotal)
		registry.MustRegister(ScheduledRunsTotal)

		registry.MustRegister(JobsInFlight)

		registry.MustRegister(JobDuration)
		registry.MustRegister(TradesPerJob)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordCacheLookup records a provider cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		ProviderCacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	ProviderCacheLookupsTotal.WithLabelValues("miss").Inc()
}

// RecordScheduledRun records the outcome of a cron-triggered submission.
func RecordScheduledRun(schedule string, err error) {
	outcome := "submitted"
	if err != nil {
		outcome = "error"
	}
	ScheduledRunsTotal.WithLabelValues(schedule, outcome).Inc()
}
