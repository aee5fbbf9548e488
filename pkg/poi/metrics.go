package poi

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded by Metrics
const (
	OutcomeSuccess            = "success"
	OutcomeNonConvergence     = "non_convergence"
	OutcomeInvariantViolation = "invariant_violation"
	OutcomeInvalidInput       = "invalid_input"
)

// Metrics holds the Prometheus metrics of the importance engine.
// Every instance owns its registry, so several calculators (and tests) never
// collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	Recalculations *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	Iterations     prometheus.Histogram

	Clusters prometheus.Gauge
	Hubs     prometheus.Gauge
	Outliers prometheus.Gauge
}

// NewMetrics creates the engine metrics under namespace
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	recalculations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recalculations_total",
			Help:      "Total number of importance recalculations",
		},
		[]string{"strategy", "outcome"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recalculation_duration_seconds",
			Help:      "Importance recalculation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)

	iterations := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "iterations",
			Help:      "Power iterations needed to converge",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		},
	)

	clusters := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "clusters",
		Help:      "Regular clusters found by the last successful recalculation",
	})
	hubs := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hubs",
		Help:      "Hubs found by the last successful recalculation",
	})
	outliers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "outliers",
		Help:      "Outliers found by the last successful recalculation",
	})

	registry.MustRegister(recalculations, duration, iterations, clusters, hubs, outliers)

	return &Metrics{
		registry:       registry,
		Recalculations: recalculations,
		Duration:       duration,
		Iterations:     iterations,
		Clusters:       clusters,
		Hubs:           hubs,
		Outliers:       outliers,
	}
}

// Registry returns the registry holding the engine metrics
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// recordFailure counts a failed recalculation; nil-safe
func (m *Metrics) recordFailure(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Recalculations.WithLabelValues(strategy, outcome).Inc()
	m.Duration.WithLabelValues(strategy).Observe(elapsed.Seconds())
}

// recordSuccess counts a successful recalculation; nil-safe
func (m *Metrics) recordSuccess(result *Result) {
	if m == nil {
		return
	}
	m.Recalculations.WithLabelValues(result.Strategy, OutcomeSuccess).Inc()
	m.Duration.WithLabelValues(result.Strategy).Observe(result.Duration.Seconds())
	m.Iterations.Observe(float64(result.Iterations))
	m.Clusters.Set(float64(result.Clustering.NumClusters()))
	m.Hubs.Set(float64(len(result.Clustering.Hubs())))
	m.Outliers.Set(float64(len(result.Clustering.Outliers())))
}
