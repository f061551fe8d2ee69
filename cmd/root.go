package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockupdate/internal/actions"
	"github.com/nicholas-fedor/dockupdate/internal/api"
	"github.com/nicholas-fedor/dockupdate/internal/flags"
	"github.com/nicholas-fedor/dockupdate/internal/logging"
	"github.com/nicholas-fedor/dockupdate/internal/meta"
	"github.com/nicholas-fedor/dockupdate/internal/scheduling"
	"github.com/nicholas-fedor/dockupdate/pkg/container"
	"github.com/nicholas-fedor/dockupdate/pkg/filters"
	"github.com/nicholas-fedor/dockupdate/pkg/metrics"
	"github.com/nicholas-fedor/dockupdate/pkg/notifications"
	"github.com/nicholas-fedor/dockupdate/pkg/registry"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/credentials"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Process exit codes.
const (
	ExitSuccess           = 0
	ExitFailure           = 1
	ExitEngineUnreachable = 2
)

// errNotifierFailed indicates the notification URLs could not be set up.
var errNotifierFailed = errors.New("failed to create notifier")

// engine is the container engine client, created in preRun.
var engine types.Engine

// notifier sends end-of-run summaries, nil without notification URLs.
var notifier types.Notifier

// resolver supplies registry credentials for checks and pulls.
var resolver *credentials.Resolver

// params holds the options of every update run.
var params types.UpdateParams

// scheduleSpec is the cron spec of repeated runs, empty for a single run.
var scheduleSpec string

// insecureRegistries are reached over plain HTTP.
var insecureRegistries []string

// pushURL is the Prometheus Pushgateway receiving run metrics, empty to skip pushing.
var pushURL string

// apiConfig configures the HTTP API.
var apiConfig api.Config

var rootCmd = NewRootCommand()

// NewRootCommand creates the dockupdate command.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dockupdate",
		Short: "Updates the images of running Docker containers in dependency order",
		Long: "\ndockupdate checks the images of your containers against their registries, pulls newer images" +
			"\nand recreates the containers using them, stopping and starting dependent containers in order.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE:       preRun,
		RunE:          run,
	}
}

func init() {
	flags.SetDefaults()
	flags.RegisterEngineFlags(rootCmd)
	flags.RegisterSystemFlags(rootCmd)
	flags.RegisterNotificationFlags(rootCmd)
	flags.RegisterAPIFlags(rootCmd)
}

// Execute runs the root command and exits with its exit code.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		logrus.WithError(err).Error("dockupdate failed")
	}

	os.Exit(ExitCode(err))
}

// ExitCode maps the result of a run to the process exit code.
//
// Parameters:
//   - err: Error returned by the root command.
//
// Returns:
//   - int: ExitSuccess for nil, ExitEngineUnreachable if the engine could not be reached, ExitFailure otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, actions.ErrEngineUnreachable):
		return ExitEngineUnreachable
	default:
		return ExitFailure
	}
}

// preRun configures logging and creates the engine client, notifier and credential resolver.
func preRun(cmd *cobra.Command, _ []string) error {
	flagsSet := cmd.PersistentFlags()

	if err := flags.ProcessFlagAliases(flagsSet); err != nil {
		return err
	}

	if err := flags.SetupLogging(flagsSet); err != nil {
		return err
	}

	if err := flags.GetSecretsFromFiles(afero.NewOsFs(), flagsSet); err != nil {
		return err
	}

	var err error

	if params, err = flags.ReadUpdateParams(flagsSet); err != nil {
		return err
	}

	if apiConfig, err = flags.ReadAPIConfig(flagsSet); err != nil {
		return err
	}

	scheduleSpec, _ = flagsSet.GetString("schedule")
	insecureRegistries, _ = flagsSet.GetStringArray("insecure-registry")
	pushURL, _ = flagsSet.GetString("metrics-pushgateway")

	logrus.WithFields(logrus.Fields{
		"schedule":     scheduleSpec,
		"dry_run":      params.DryRun,
		"interactive":  params.Interactive,
		"include":      params.Include,
		"exclude":      params.Exclude,
		"stop_timeout": params.StopTimeout,
		"settle_delay": params.SettleDelay,
	}).Debug("Read run configuration")

	host, _ := flagsSet.GetString("host")
	username, _ := flagsSet.GetString("username")
	password, _ := flagsSet.GetString("password")

	client, err := container.NewClient(container.ClientOptions{
		Host:     host,
		Username: username,
		Password: password,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", actions.ErrEngineUnreachable, err)
	}

	engine = client

	if notifier, err = notifications.NewNotifier(cmd); err != nil {
		return fmt.Errorf("%w: %w", errNotifierFailed, err)
	}

	resolver = credentials.NewResolver(credentials.WithEnvCredentials())

	return nil
}

// run performs the configured runs until they finish or the process is interrupted.
func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runMain(ctx, cmd)
}

// newOrchestrator creates the orchestrator of one run with a fresh registry client.
func newOrchestrator(runParams types.UpdateParams) *actions.Orchestrator {
	return &actions.Orchestrator{
		Engine: engine,
		Registry: registry.NewClient(
			registry.WithCredentials(resolver),
			registry.WithInsecureRegistries(insecureRegistries...),
			registry.WithUserAgent(meta.UserAgent),
		),
		Credentials: resolver,
		Params:      runParams,
	}
}

// runImages performs one run, restricted to images when any are given.
func runImages(ctx context.Context, images []string) (*metrics.Metric, error) {
	runParams := params
	if len(images) > 0 {
		runParams.Include = images
	}

	return actions.RunUpdatesWithNotifications(ctx, newOrchestrator(runParams), notifier)
}

// runMain serves the HTTP API, runs once or runs on the schedule.
//
// Parameters:
//   - ctx: Context ending the runs.
//   - cmd: Root command, read by the startup message.
//
// Returns:
//   - error: Error of a single run, an API error, or a schedule error.
func runMain(ctx context.Context, cmd *cobra.Command) error {
	lock := scheduling.NewLock()
	recorder := metrics.Default()
	_, filterDesc := filters.BuildFilter(params.Include, params.Exclude)

	writeStartupMessage := func(sched time.Time) {
		logging.WriteStartupMessage(cmd, sched, filterDesc, engine, notifier, meta.Version)
	}

	runAll := func(ctx context.Context) (*metrics.Metric, error) {
		return runImages(ctx, nil)
	}

	if apiConfig.Blocking() {
		writeStartupMessage(time.Time{})
		defer closeNotifier()

		return api.SetupAndStartAPI(ctx, apiConfig, lock, runImages, recorder)
	}

	if err := api.SetupAndStartAPI(ctx, apiConfig, lock, runImages, recorder); err != nil {
		return err
	}

	if scheduleSpec != "" {
		return scheduling.RunUpdatesOnSchedule(
			ctx,
			scheduleSpec,
			lock,
			runAll,
			recorder,
			pushURL,
			writeStartupMessage,
			notifier,
		)
	}

	writeStartupMessage(time.Time{})

	_, err := scheduling.RunUpdate(ctx, lock, runAll, recorder, pushURL)

	closeNotifier()

	return err
}

// closeNotifier flushes pending notifications.
func closeNotifier() {
	if notifier != nil {
		notifier.Close()
	}
}
