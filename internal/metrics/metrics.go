// Package metrics exposes Prometheus instrumentation for the search
// service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors the server and searcher report into.
type Metrics struct {
	registry *prometheus.Registry

	TrialsCompleted *prometheus.CounterVec
	TrialFailures   prometheus.Counter
	TrialRetries    prometheus.Counter
	BestScore       *prometheus.GaugeVec
	ActiveJobs      prometheus.Gauge
	JobsStarted     prometheus.Counter
	JobDuration     prometheus.Histogram
}

// New builds a Metrics set on its own registry, keeping tests and
// multiple server instances from colliding on the default registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		TrialsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "annealloc",
			Name:      "trials_completed_total",
			Help:      "Completed optimization trials per job.",
		}, []string{"job_id"}),
		TrialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "annealloc",
			Name:      "trial_failures_total",
			Help:      "Trials that failed even after one retry.",
		}),
		TrialRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "annealloc",
			Name:      "trial_retries_total",
			Help:      "Trials retried with a fresh seed.",
		}),
		BestScore: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "annealloc",
			Name:      "best_score",
			Help:      "Best assignment score observed so far per job.",
		}, []string{"job_id"}),
		ActiveJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "annealloc",
			Name:      "active_jobs",
			Help:      "Search jobs currently running.",
		}),
		JobsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "annealloc",
			Name:      "jobs_started_total",
			Help:      "Search jobs accepted since process start.",
		}),
		JobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "annealloc",
			Name:      "job_duration_seconds",
			Help:      "Wall-clock duration of completed search jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
