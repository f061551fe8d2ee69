// Package api wires the HTTP API endpoints of dockupdate to its update runs and metrics.
package api

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/api"
	metricsAPI "github.com/nicholas-fedor/dockupdate/pkg/api/metrics"
	"github.com/nicholas-fedor/dockupdate/pkg/api/update"
	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
)

// Config selects the endpoints and listen address of the HTTP API.
type Config struct {
	Host          string
	Port          string
	Token         string
	EnableUpdate  bool // Serve /v1/update.
	EnableMetrics bool // Serve /v1/metrics.
	PeriodicPolls bool // Keep scheduled runs alongside the update endpoint.
}

// Blocking reports whether the API replaces scheduled runs and serves in the foreground.
func (c Config) Blocking() bool {
	return c.EnableUpdate && !c.PeriodicPolls
}

// GetAPIAddr formats the listen address, bracketing IPv6 hosts.
func GetAPIAddr(host, port string) string {
	address := host + ":" + port
	if host != "" && strings.Contains(host, ":") && net.ParseIP(host) != nil {
		address = "[" + host + "]:" + port
	}

	return address
}

// SetupAndStartAPI registers the enabled endpoints and starts the server.
//
// Runs triggered through /v1/update share updateLock with scheduled runs and are recorded in recorder.
//
// Parameters:
//   - ctx: Context ending the server.
//   - cfg: Endpoint and address configuration.
//   - updateLock: Run lock shared with the scheduler.
//   - run: Update run restricted to the given images, or over every image when none are given.
//   - recorder: Metrics handler runs are recorded in and served from.
//
// Returns:
//   - error: Non-nil if the server cannot start; in blocking mode also a serve error.
func SetupAndStartAPI(
	ctx context.Context,
	cfg Config,
	updateLock chan bool,
	run update.RunFunc,
	recorder *metrics.Metrics,
) error {
	httpAPI := api.New(cfg.Token, GetAPIAddr(cfg.Host, cfg.Port))

	if cfg.EnableUpdate {
		updateHandler := update.New(func(ctx context.Context, images []string) (*metrics.Metric, error) {
			metric, err := run(ctx, images)
			if metric != nil {
				recorder.RegisterScan(metric)
			}

			return metric, err
		}, updateLock)
		httpAPI.RegisterFunc(updateHandler.Path, updateHandler.Handle)
	}

	if cfg.EnableMetrics {
		metricsHandler := metricsAPI.New(recorder)
		httpAPI.RegisterHandler(metricsHandler.Path, metricsHandler.Handle)
	}

	if err := httpAPI.Start(ctx, cfg.Blocking()); err != nil {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
