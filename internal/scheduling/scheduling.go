// Package scheduling runs dockupdate's update runs once or on a cron schedule.
// A lock channel guarantees a single run at a time, and shutdown waits for a
// running update to finish.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// updateWaitTimeout bounds how long shutdown waits for a running update.
const updateWaitTimeout = 60 * time.Second

// ErrRunSkipped indicates a run was not started because another one holds the lock.
var ErrRunSkipped = errors.New("skipped, another update is running")

// errScheduleFailed indicates the cron expression was rejected.
var errScheduleFailed = errors.New("failed to schedule updates")

// Runner performs one update run.
type Runner func(ctx context.Context) (*metrics.Metric, error)

// NewLock creates an unlocked run lock.
func NewLock() chan bool {
	lock := make(chan bool, 1)
	lock <- true

	return lock
}

// RunUpdate performs one run unless another run holds lock, then records and pushes its metrics.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - lock: Run lock from NewLock.
//   - run: Update run.
//   - recorder: Metrics handler the run is recorded in.
//   - pushURL: Pushgateway URL, empty to skip pushing.
//
// Returns:
//   - *metrics.Metric: Run summary, nil if skipped or the engine was unreachable.
//   - error: ErrRunSkipped, or the run's error.
func RunUpdate(
	ctx context.Context,
	lock chan bool,
	run Runner,
	recorder *metrics.Metrics,
	pushURL string,
) (*metrics.Metric, error) {
	select {
	case v := <-lock:
		defer func() { lock <- v }()

		metric, err := run(ctx)
		if metric != nil {
			recorder.RegisterScan(metric)
		}

		pushMetrics(ctx, recorder, pushURL)

		return metric, err
	default:
		recorder.RegisterScan(nil)
		logrus.Debug("Skipped another update already running.")

		return nil, ErrRunSkipped
	}
}

// pushMetrics pushes the recorded metrics, logging failures.
func pushMetrics(ctx context.Context, recorder *metrics.Metrics, pushURL string) {
	if pushURL == "" {
		return
	}

	if err := recorder.Push(ctx, pushURL); err != nil {
		logrus.WithError(err).WithField("url", pushURL).Warn("Failed to push metrics")

		return
	}

	logrus.WithField("url", pushURL).Debug("Pushed metrics")
}

// WaitForRunningUpdate blocks until a running update releases lock, the timeout elapses or ctx ends.
func WaitForRunningUpdate(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) > 0 {
		logrus.Debug("No update running, lock available.")

		return
	}

	timer := time.NewTimer(updateWaitTimeout)
	defer timer.Stop()

	select {
	case v := <-lock:
		lock <- v

		logrus.Debug("Lock acquired, update finished.")
	case <-timer.C:
		logrus.Warn("Timeout waiting for running update to finish, proceeding with shutdown.")
	case <-ctx.Done():
		logrus.Warn("Context cancelled while waiting for running update.")
	}
}

// RunUpdatesOnSchedule performs a run at every activation of scheduleSpec until ctx ends
// or the process is interrupted.
//
// Parameters:
//   - ctx: Context controlling the scheduler's lifecycle.
//   - scheduleSpec: Cron expression with a seconds field, or a descriptor such as "@every 6h".
//   - lock: Run lock, or nil to create one.
//   - run: Update run.
//   - recorder: Metrics handler runs are recorded in.
//   - pushURL: Pushgateway URL, empty to skip pushing.
//   - writeStartupMessage: Called with the first activation time before the scheduler starts.
//   - notifier: Closed on shutdown, may be nil.
//
// Returns:
//   - error: Non-nil if scheduleSpec is invalid; nil on shutdown.
func RunUpdatesOnSchedule(
	ctx context.Context,
	scheduleSpec string,
	lock chan bool,
	run Runner,
	recorder *metrics.Metrics,
	pushURL string,
	writeStartupMessage func(nextRun time.Time),
	notifier types.Notifier,
) error {
	if lock == nil {
		lock = NewLock()
	}

	scheduler := cron.New()

	updateFunc := func() {
		metric, err := RunUpdate(ctx, lock, run, recorder, pushURL)

		switch {
		case errors.Is(err, ErrRunSkipped):
		case err != nil:
			logrus.WithError(err).Error("Scheduled update run failed")
		default:
			logrus.WithField("updated", metric.Updated).Debug("Scheduled update run completed")
		}

		if entries := scheduler.Entries(); len(entries) > 0 {
			logrus.Debug("Scheduled next run: " + entries[0].Next.String())
		}
	}

	if err := scheduler.AddFunc(scheduleSpec, updateFunc); err != nil {
		return fmt.Errorf("%w: %q: %w", errScheduleFailed, scheduleSpec, err)
	}

	writeStartupMessage(scheduler.Entries()[0].Schedule.Next(time.Now()))

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running update to be finished...")

	WaitForRunningUpdate(context.WithoutCancel(ctx), lock)

	if notifier != nil {
		notifier.Close()
	}

	logrus.Debug("Scheduler stopped and update completed.")

	return nil
}
