// Package metrics counts dispatcher verdicts, dialect detections and migration
// runs in a private Prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aqasim81/safe-migrate/internal/analyzer"
	"github.com/aqasim81/safe-migrate/internal/dialect"
	"github.com/aqasim81/safe-migrate/internal/operation"
)

const namespace = "safemigrate"

// Collector implements analyzer.Recorder.
type Collector struct {
	registry *prometheus.Registry

	operations *prometheus.CounterVec
	detections *prometheus.CounterVec
	migrations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ analyzer.Recorder = (*Collector)(nil)

// New creates a Collector with its own registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations evaluated, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialect_detections_total",
			Help:      "Dialect version lookups issued, by engine family.",
		}, []string{"family"}),
		migrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_total",
			Help:      "Migrations processed, by direction and status.",
		}, []string{"direction", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "migration_duration_seconds",
			Help:      "Time spent executing a migration.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
	}

	c.registry.MustRegister(c.operations, c.detections, c.migrations, c.duration)

	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Operation implements analyzer.Recorder.
func (c *Collector) Operation(kind operation.Kind, outcome analyzer.Outcome) {
	c.operations.WithLabelValues(kind.String(), outcome.String()).Inc()
}

// Detect implements analyzer.Recorder.
func (c *Collector) Detect(family dialect.Family) {
	c.detections.WithLabelValues(string(family)).Inc()
}

// Migration counts a processed migration. Durations are observed for
// executed migrations only.
func (c *Collector) Migration(direction analyzer.Direction, status string, d time.Duration) {
	c.migrations.WithLabelValues(direction.String(), status).Inc()

	if d > 0 {
		c.duration.WithLabelValues(direction.String()).Observe(d.Seconds())
	}
}

// WriteFile writes the metrics in text exposition format to path, for the
// node exporter textfile collector.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}

	return nil
}
