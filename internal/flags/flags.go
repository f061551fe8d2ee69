package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/dockupdate/internal/api"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// defaultStopTimeout is the grace period before a stop escalates to a kill.
const defaultStopTimeout = 10 * time.Second

// defaultSettleDelay is the pause after starting a recreated container.
const defaultSettleDelay = 1 * time.Second

// defaultHTTPAPIPort is the port of the HTTP API.
const defaultHTTPAPIPort = "8080"

// Errors for flag handling and logging setup.
var (
	// errInvalidLogFormat indicates an invalid log format was specified.
	errInvalidLogFormat = errors.New("invalid log format specified")
	// errInvalidLogLevel indicates an invalid log level was specified.
	errInvalidLogLevel = errors.New("invalid log level specified")
	// errOpenFileFailed indicates a secret file could not be opened.
	errOpenFileFailed = errors.New("failed to open secret file")
	// errReadFileFailed indicates a secret file could not be read.
	errReadFileFailed = errors.New("failed to read secret file")
	// errReplaceSliceFailed indicates a slice flag could not take the file's lines.
	errReplaceSliceFailed = errors.New("failed to replace slice value in flag")
	// errSetFlagFailed indicates a flag could not be read or set.
	errSetFlagFailed = errors.New("failed to set flag value")
	// errInvalidFlagName indicates a flag is not registered.
	errInvalidFlagName = errors.New("invalid flag name provided")
	// errNegativeDuration indicates a negative timeout or delay.
	errNegativeDuration = errors.New("duration must not be negative")
)

// secretFlags may name a file holding their value.
var secretFlags = []string{
	"password",
	"notification-url",
	"http-api-token",
}

// RegisterEngineFlags adds the flags used to reach the container engine.
func RegisterEngineFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"host",
		"H",
		envString("DOCKER_HOST"),
		"Engine endpoint to connect to, e.g. unix:///var/run/docker.sock or tcp://host:2375")

	flags.String(
		"username",
		envString("DOCKUPDATE_USERNAME"),
		"Username for HTTP basic authentication against a remote engine endpoint")

	flags.String(
		"password",
		envString("DOCKUPDATE_PASSWORD"),
		"Password for HTTP basic authentication against a remote engine endpoint, or a file containing it")
}

// RegisterSystemFlags adds the flags controlling an update run and logging.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.BoolP(
		"dry-run",
		"n",
		envBool("DOCKUPDATE_DRY_RUN"),
		"Report what would be updated without changing any container or image")

	flags.BoolP(
		"interactive",
		"i",
		envBool("DOCKUPDATE_INTERACTIVE"),
		"Ask for confirmation before updating each image")

	flags.StringArray(
		"include",
		envStringSlice("DOCKUPDATE_INCLUDE"),
		"Only check images with this repository name or path segment (repeatable)")

	flags.StringArray(
		"exclude",
		envStringSlice("DOCKUPDATE_EXCLUDE"),
		"Never check images with this repository name or path segment (repeatable, wins over --include)")

	flags.StringP(
		"schedule",
		"s",
		envString("DOCKUPDATE_SCHEDULE"),
		"Cron expression of repeated runs; a single run is performed when empty")

	flags.DurationP(
		"stop-timeout",
		"t",
		envDuration("DOCKUPDATE_STOP_TIMEOUT"),
		"Timeout before a container is forcefully stopped")

	flags.Duration(
		"settle-delay",
		envDuration("DOCKUPDATE_SETTLE_DELAY"),
		"Pause after starting a recreated container")

	flags.StringArray(
		"insecure-registry",
		envStringSlice("DOCKUPDATE_INSECURE_REGISTRY"),
		"Registry host to reach over plain HTTP (repeatable)")

	flags.String(
		"metrics-pushgateway",
		envString("DOCKUPDATE_METRICS_PUSHGATEWAY"),
		"Prometheus Pushgateway URL receiving the counters of every run")

	flags.Bool(
		"no-startup-message",
		envBool("DOCKUPDATE_NO_STARTUP_MESSAGE"),
		"Do not log the startup message")

	flags.StringP(
		"log-format",
		"l",
		viper.GetString("DOCKUPDATE_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON",
	)

	flags.String(
		"log-level",
		envString("DOCKUPDATE_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace",
	)

	flags.BoolP(
		"debug",
		"d",
		envBool("DOCKUPDATE_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("DOCKUPDATE_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	// https://no-color.org/
	flags.Bool(
		"no-color",
		viper.IsSet("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterAPIFlags adds the flags of the HTTP API.
func RegisterAPIFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.Bool(
		"http-api-update",
		envBool("DOCKUPDATE_HTTP_API_UPDATE"),
		"Serve /v1/update to trigger runs over HTTP instead of on a schedule")

	flags.Bool(
		"http-api-metrics",
		envBool("DOCKUPDATE_HTTP_API_METRICS"),
		"Serve Prometheus metrics on /v1/metrics")

	flags.String(
		"http-api-token",
		envString("DOCKUPDATE_HTTP_API_TOKEN"),
		"Bearer token required by the HTTP API, or a file containing it")

	flags.String(
		"http-api-host",
		envString("DOCKUPDATE_HTTP_API_HOST"),
		"Host the HTTP API listens on, all interfaces when empty")

	flags.String(
		"http-api-port",
		envString("DOCKUPDATE_HTTP_API_PORT"),
		"Port the HTTP API listens on")

	flags.Bool(
		"http-api-periodic-polls",
		envBool("DOCKUPDATE_HTTP_API_PERIODIC_POLLS"),
		"Keep scheduled runs while the update endpoint is enabled")
}

// ReadAPIConfig collects the HTTP API settings.
//
// Parameters:
//   - flags: Parsed persistent flags of the root command.
//
// Returns:
//   - api.Config: HTTP API settings.
//   - error: Non-nil if a flag is missing.
func ReadAPIConfig(flags *pflag.FlagSet) (api.Config, error) {
	var (
		cfg api.Config
		err error
	)

	if cfg.EnableUpdate, err = flags.GetBool("http-api-update"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.EnableMetrics, err = flags.GetBool("http-api-metrics"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.PeriodicPolls, err = flags.GetBool("http-api-periodic-polls"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.Token, err = flags.GetString("http-api-token"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.Host, err = flags.GetString("http-api-host"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if cfg.Port, err = flags.GetString("http-api-port"); err != nil {
		return cfg, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	return cfg, nil
}

// RegisterNotificationFlags adds the flags configuring the end-of-run notification.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArray(
		"notification-url",
		envStringSlice("DOCKUPDATE_NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to (repeatable)")

	flags.String(
		"notification-template",
		envString("DOCKUPDATE_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages, or the name of a built-in template")

	flags.Bool(
		"notification-log-stdout",
		envBool("DOCKUPDATE_NOTIFICATION_LOG_STDOUT"),
		"Write logger:// notifications to stdout instead of the log")

	flags.Int(
		"notifications-delay",
		envInt("DOCKUPDATE_NOTIFICATIONS_DELAY"),
		"Delay before sending notifications, expressed in seconds")

	flags.String(
		"notifications-hostname",
		envString("DOCKUPDATE_NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.String(
		"notification-title-tag",
		envString("DOCKUPDATE_NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")

	flags.Bool(
		"notification-skip-title",
		envBool("DOCKUPDATE_NOTIFICATION_SKIP_TITLE"),
		"Do not pass the title param to notifications")
}

// envString binds key to the environment and returns its value.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice binds key to the environment and returns its comma-separated values.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures the fallback values of environment-backed flags.
// It must run before the flags are registered.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKUPDATE_STOP_TIMEOUT", defaultStopTimeout)
	viper.SetDefault("DOCKUPDATE_SETTLE_DELAY", defaultSettleDelay)
	viper.SetDefault("DOCKUPDATE_LOG_LEVEL", "info")
	viper.SetDefault("DOCKUPDATE_LOG_FORMAT", "auto")
	viper.SetDefault("DOCKUPDATE_HTTP_API_PORT", defaultHTTPAPIPort)
}

// ReadUpdateParams collects the options of an update run.
//
// Parameters:
//   - flags: Parsed persistent flags of the root command.
//
// Returns:
//   - types.UpdateParams: Run options.
//   - error: Non-nil if a flag is missing or a duration is negative.
func ReadUpdateParams(flags *pflag.FlagSet) (types.UpdateParams, error) {
	var (
		params types.UpdateParams
		err    error
	)

	if params.DryRun, err = flags.GetBool("dry-run"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.Interactive, err = flags.GetBool("interactive"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.Include, err = flags.GetStringArray("include"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.Exclude, err = flags.GetStringArray("exclude"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.StopTimeout, err = flags.GetDuration("stop-timeout"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.SettleDelay, err = flags.GetDuration("settle-delay"); err != nil {
		return params, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if params.StopTimeout < 0 {
		return params, fmt.Errorf("%w: stop-timeout %s", errNegativeDuration, params.StopTimeout)
	}

	if params.SettleDelay < 0 {
		return params, fmt.Errorf("%w: settle-delay %s", errNegativeDuration, params.SettleDelay)
	}

	return params, nil
}

// GetSecretsFromFiles replaces secret flag values naming an existing file with its contents.
//
// String flags take the trimmed file content, slice flags take one value per non-empty line.
//
// Parameters:
//   - fs: Filesystem the secret files are read from.
//   - flags: Parsed persistent flags of the root command.
//
// Returns:
//   - error: Non-nil if a referenced file cannot be read.
func GetSecretsFromFiles(fs afero.Fs, flags *pflag.FlagSet) error {
	for _, secret := range secretFlags {
		if err := getSecretFromFile(fs, flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %s: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates one flag from the file it references, if any.
func getSecretFromFile(fs afero.Fs, flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, secret)
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(fs, value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(fs, value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(fs, value) {
		content, err := afero.ReadFile(fs, value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// readLines returns the non-empty lines of a file.
func readLines(fs afero.Fs, path string) ([]string, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", errReadFileFailed, err)
	}

	return lines, nil
}

// isFilePath reports whether a value names an existing file.
// Values with a colon past the second character, such as URLs, are never paths.
func isFilePath(fs afero.Fs, path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		return false
	}

	_, err := fs.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases applies --debug and --trace to the log level.
func ProcessFlagAliases(flags *pflag.FlagSet) error {
	for _, level := range []string{"debug", "trace"} {
		enabled, err := flags.GetBool(level)
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		if !enabled {
			continue
		}

		if err := flags.Set("log-level", level); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// SetupLogging configures the global logger from the log flags.
//
// Parameters:
//   - flags: Parsed persistent flags of the root command.
//
// Returns:
//   - error: Non-nil for an unknown format or level.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto", "":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}
