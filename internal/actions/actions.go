package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
	"github.com/nicholas-fedor/dockupdate/pkg/notifications"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// RunUpdatesWithNotifications performs one run, logs its summary and notifies about the results.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - orchestrator: Orchestrator configured for this run.
//   - notifier: Notifier for the run summary, may be nil.
//
// Returns:
//   - *metrics.Metric: Summary of the run, nil if the engine was unreachable.
//   - error: ErrEngineUnreachable, a scan error, or a run failure when any image or container failed.
func RunUpdatesWithNotifications(
	ctx context.Context,
	orchestrator *Orchestrator,
	notifier types.Notifier,
) (*metrics.Metric, error) {
	report, err := orchestrator.Run(ctx)
	if errors.Is(err, ErrEngineUnreachable) {
		return nil, err
	}

	if report == nil {
		return nil, err
	}

	if notifier != nil {
		notifier.SendNotification(report)
	}

	metric := metrics.NewMetric(report)
	notifications.LocalLog.WithFields(logrus.Fields{
		"scanned":            metric.Scanned,
		"updated":            metric.Updated,
		"stale":              metric.Stale,
		"failed":             metric.Failed,
		"skipped":            metric.Skipped,
		"containers_updated": metric.ContainersUpdated,
		"containers_failed":  metric.ContainersFailed,
		"dry_run":            report.DryRun(),
	}).Info("Update run completed")

	if err != nil {
		return metric, err
	}

	if metric.HasFailures() {
		return metric, fmt.Errorf("%w: %d images and %d containers failed",
			errRunFailed, metric.Failed, metric.ContainersFailed)
	}

	return metric, nil
}
