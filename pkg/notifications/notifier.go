package notifications

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Errors for notifier setup and rendering.
var (
	// errCreateSenderFailed indicates the Shoutrrr URLs could not be turned into a sender.
	errCreateSenderFailed = errors.New("failed to initialize shoutrrr notifications")
	// errParseTemplateFailed indicates the configured template is not a valid Go template.
	errParseTemplateFailed = errors.New("failed to parse notification template")
	// errExecuteTemplateFailed indicates the template failed to render a report.
	errExecuteTemplateFailed = errors.New("failed to execute notification template")
	// errMarshalFailed indicates a failure to marshal notification data to JSON.
	errMarshalFailed = errors.New("failed to marshal notification data")
)

// NewNotifier creates a notifier from the notification flags of c.
//
// Parameters:
//   - c: Root command carrying the notification flags.
//
// Returns:
//   - types.Notifier: Notifier, or nil when no notification URL is configured.
//   - error: Non-nil if a URL is invalid.
func NewNotifier(c *cobra.Command) (types.Notifier, error) {
	flag := c.PersistentFlags()

	urls, _ := flag.GetStringArray("notification-url")
	if len(urls) == 0 {
		logrus.Debug("No notification URLs configured")

		return nil, nil //nolint:nilnil // No notifier is a valid configuration.
	}

	tplString, _ := flag.GetString("notification-template")
	stdout, _ := flag.GetBool("notification-log-stdout")
	delaySeconds, _ := flag.GetInt("notifications-delay")
	delay := time.Duration(delaySeconds) * time.Second
	data := GetTemplateData(c)

	logrus.WithFields(logrus.Fields{
		"services": len(urls),
		"template": tplString,
		"stdout":   stdout,
		"delay":    delay,
		"hostname": data.Host,
		"title":    data.Title,
	}).Debug("Creating notifier with configuration")

	notifier, err := createNotifier(urls, tplString, data, stdout, delay)
	if err != nil {
		return nil, err
	}

	return notifier, nil
}

// GetTitle formats the title based on the passed hostname and tag.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("dockupdate updates")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data from flags and the environment.
func GetTemplateData(c *cobra.Command) StaticData {
	flag := c.PersistentFlags()

	hostname, _ := flag.GetString("notifications-hostname")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	title := ""

	if skip, _ := flag.GetBool("notification-skip-title"); !skip {
		tag, _ := flag.GetString("notification-title-tag")
		title = GetTitle(hostname, tag)
	}

	return StaticData{
		Host:  hostname,
		Title: title,
	}
}
