package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// pushJob is the Pushgateway job name runs are grouped under.
const pushJob = "dockupdate"

// Errors for metric registration and delivery.
var (
	// errRegisterFailed indicates a collector could not be registered.
	errRegisterFailed = errors.New("failed to register metric")
	// errPushFailed indicates the Pushgateway rejected or did not receive the metrics.
	errPushFailed = errors.New("failed to push metrics")
)

var (
	defaultMetrics *Metrics
	defaultOnce    sync.Once
)

// Metric holds the data points of one run.
type Metric struct {
	Scanned           int // Images checked against their registry.
	Stale             int // Images with an update left unapplied.
	Updated           int // Images swapped.
	Failed            int // Images whose check or swap failed.
	Skipped           int // Images skipped by filters, labels or the operator.
	ContainersUpdated int // Containers recreated.
	ContainersFailed  int // Containers that failed teardown or recreation, or were left removed.
}

// NewMetric summarizes a report.
//
// Parameters:
//   - report: Finished run report.
//
// Returns:
//   - *Metric: Counts per category, all zero for a nil report.
func NewMetric(report types.Report) *Metric {
	metric := &Metric{}
	if report == nil {
		return metric
	}

	metric.Scanned = len(report.Scanned())
	metric.Stale = len(report.Stale())
	metric.Updated = len(report.Updated())
	metric.Failed = len(report.Failed())
	metric.Skipped = len(report.Skipped())

	for _, container := range report.Containers() {
		if container.State() == "Updated" {
			metric.ContainersUpdated++
		} else {
			metric.ContainersFailed++
		}
	}

	return metric
}

// HasFailures reports whether any image or container failed.
func (m *Metric) HasFailures() bool {
	return m != nil && (m.Failed > 0 || m.ContainersFailed > 0)
}

// Metrics exposes run metrics as Prometheus collectors.
type Metrics struct {
	gatherer          prometheus.Gatherer
	scanned           prometheus.Gauge   // Images scanned during the last run.
	stale             prometheus.Gauge   // Images left stale during the last run.
	updated           prometheus.Gauge   // Images updated during the last run.
	failed            prometheus.Gauge   // Images failed during the last run.
	containersUpdated prometheus.Gauge   // Containers recreated during the last run.
	containersFailed  prometheus.Gauge   // Containers failed during the last run.
	total             prometheus.Counter // Runs since start.
	skipped           prometheus.Counter // Runs skipped because another was in progress.
	mu                sync.Mutex
}

// New creates a metrics handler backed by its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	metrics, err := NewWithRegistry(registry, registry)
	if err != nil {
		// A fresh registry holds no collectors to conflict with.
		panic(err)
	}

	return metrics
}

// NewWithRegistry creates a metrics handler registering its collectors with registerer.
//
// Parameters:
//   - registerer: Registry the collectors are added to.
//   - gatherer: Registry read when pushing, usually the same registry.
//
// Returns:
//   - *Metrics: Metrics handler.
//   - error: Non-nil if a collector is already registered.
func NewWithRegistry(registerer prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	metrics := &Metrics{
		gatherer: gatherer,
		scanned: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_images_scanned",
			Help: "Number of images checked against their registry during the last run",
		}),
		stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_images_stale",
			Help: "Number of images with an unapplied update after the last run",
		}),
		updated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_images_updated",
			Help: "Number of images updated during the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_images_failed",
			Help: "Number of images whose check or update failed during the last run",
		}),
		containersUpdated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_containers_updated",
			Help: "Number of containers recreated during the last run",
		}),
		containersFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockupdate_containers_failed",
			Help: "Number of containers that could not be recreated during the last run",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockupdate_runs_total",
			Help: "Number of runs since dockupdate started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockupdate_runs_skipped_total",
			Help: "Number of scheduled runs skipped because a run was in progress",
		}),
	}

	for _, collector := range []prometheus.Collector{
		metrics.scanned,
		metrics.stale,
		metrics.updated,
		metrics.failed,
		metrics.containersUpdated,
		metrics.containersFailed,
		metrics.total,
		metrics.skipped,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("%w: %w", errRegisterFailed, err)
		}
	}

	return metrics, nil
}

// Default returns the process-wide handler, backed by its own registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New()
	})

	return defaultMetrics
}

// RegisterScan records a run. A nil metric records a skipped run.
//
// Parameters:
//   - metric: Run summary, or nil.
func (m *Metrics) RegisterScan(metric *Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total.Inc()

	if metric == nil {
		m.skipped.Inc()
		metric = &Metric{}
	}

	m.scanned.Set(float64(metric.Scanned))
	m.stale.Set(float64(metric.Stale))
	m.updated.Set(float64(metric.Updated))
	m.failed.Set(float64(metric.Failed))
	m.containersUpdated.Set(float64(metric.ContainersUpdated))
	m.containersFailed.Set(float64(metric.ContainersFailed))
}

// Gatherer returns the registry the collectors are gathered from.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Push sends the current values to a Prometheus Pushgateway.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - url: Pushgateway base URL.
//
// Returns:
//   - error: Non-nil if the push fails.
func (m *Metrics) Push(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := push.New(url, pushJob).Gatherer(m.gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", errPushFailed, err)
	}

	return nil
}
