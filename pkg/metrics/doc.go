// Package metrics provides tracking and delivery of dockupdate run metrics.
// It keeps Prometheus gauges for the outcome of the last run and counters across runs,
// and can push them to a Prometheus Pushgateway.
//
// Key components:
//   - Metric: Counts summarizing one report.
//   - Metrics: Prometheus collectors updated after each run.
//
// Usage example:
//
//	m := metrics.Default()
//	m.RegisterScan(metrics.NewMetric(report))
//	if err := m.Push(ctx, "http://pushgateway:9091"); err != nil {
//	    logrus.WithError(err).Warn("Failed to push metrics")
//	}
package metrics
