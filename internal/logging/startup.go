// Package logging writes the startup message of dockupdate.
package logging

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockupdate/internal/util"
	"github.com/nicholas-fedor/dockupdate/pkg/notifications"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// WriteStartupMessage logs the version, engine API version, notifiers, filters, mode and schedule.
//
// Parameters:
//   - c: Root command, providing the mode flags and --no-startup-message.
//   - sched: Time of the first scheduled run, zero for a single run.
//   - filtering: Description of the name filter.
//   - engine: Connected engine, may be nil.
//   - notifier: Configured notifier, may be nil.
//   - version: dockupdate version.
func WriteStartupMessage(
	c *cobra.Command,
	sched time.Time,
	filtering string,
	engine types.Engine,
	notifier types.Notifier,
	version string,
) {
	flags := c.PersistentFlags()

	if noStartupMessage, _ := flags.GetBool("no-startup-message"); noStartupMessage {
		return
	}

	startupLog := notifications.LocalLog

	var apiVersion string
	if engine != nil {
		apiVersion = engine.APIVersion()
	}

	startupLog.Info("dockupdate ", version, " using Docker API v", apiVersion)

	var notifierNames []string
	if notifier != nil {
		notifierNames = notifier.GetNames()
	}

	LogNotifierInfo(startupLog, notifierNames)
	startupLog.Info(filtering)

	if dryRun, _ := flags.GetBool("dry-run"); dryRun {
		startupLog.Info("Dry run: no container or image will be changed")
	}

	if interactive, _ := flags.GetBool("interactive"); interactive {
		startupLog.Info("Interactive mode: every update needs confirmation")
	}

	apiUpdate, _ := flags.GetBool("http-api-update")
	periodicPolls, _ := flags.GetBool("http-api-periodic-polls")

	if apiUpdate && !periodicPolls {
		startupLog.Info("Waiting for update requests on the HTTP API")
	} else {
		LogScheduleInfo(startupLog, sched)
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		startupLog.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs the configured notification services.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogScheduleInfo logs when the next run happens.
func LogScheduleInfo(log *logrus.Entry, sched time.Time) {
	if sched.IsZero() {
		log.Info("Running a one time update")

		return
	}

	log.Info("Scheduling first run: " + sched.Format("2006-01-02 15:04:05 -0700 MST"))
	log.Info("Note that the first check will be performed in " + util.FormatDuration(time.Until(sched)))
}
