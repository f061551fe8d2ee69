// Package metrics serves dockupdate's run metrics in the Prometheus exposition format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
)

// Handler serves the collectors of a metrics handler.
type Handler struct {
	Path    string
	Handle  http.Handler
	Metrics *metrics.Metrics
}

// New creates the /v1/metrics handler for m, or for the process-wide metrics when m is nil.
func New(m *metrics.Metrics) *Handler {
	if m == nil {
		m = metrics.Default()
	}

	return &Handler{
		Path:    "/v1/metrics",
		Handle:  promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{}),
		Metrics: m,
	}
}
