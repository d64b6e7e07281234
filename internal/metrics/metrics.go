// Package metrics holds the Prometheus collectors for collection runs.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"app_radar/internal/domain"
)

const namespace = "app_radar"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	fetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetch_attempts_total",
			Help:      "Upstream fetch attempts by outcome.",
		},
		[]string{"source", "outcome"},
	)

	targetsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "targets_total",
			Help:      "Targets processed by the collector.",
		},
		[]string{"status"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "run_duration_seconds",
			Help:      "Duration of a full collection pass.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	lastRunSucceeded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "last_run_succeeded",
			Help:      "Targets that succeeded in the most recent run.",
		},
	)

	publishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "digest",
			Name:      "publish_total",
			Help:      "Digest publish attempts by result.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		fetchAttempts,
		targetsCollected,
		runDuration,
		lastRunSucceeded,
		publishes,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func ObserveFetchAttempt(source string, err error) {
	fetchAttempts.WithLabelValues(source, Outcome(err)).Inc()
}

func ObserveTarget(err error) {
	if err == nil {
		targetsCollected.WithLabelValues("success").Inc()
		return
	}
	targetsCollected.WithLabelValues("failure").Inc()
}

func ObserveRun(succeeded int, d time.Duration) {
	runDuration.Observe(d.Seconds())
	lastRunSucceeded.Set(float64(succeeded))
}

func ObservePublish(err error) {
	if err != nil {
		publishes.WithLabelValues("error").Inc()
		return
	}
	publishes.WithLabelValues("ok").Inc()
}

// Outcome maps an error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrTransport):
		return "transport"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}
