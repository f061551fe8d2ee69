package notifications

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/dockupdate/pkg/notifications/templates"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// LocalLog is a logrus entry whose lines are never part of a notification.
var LocalLog = logrus.WithField("notify", "no")

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// shoutrrrNotifier renders run reports and sends them through Shoutrrr.
//
// Messages are queued and sent by a background goroutine so a slow service never
// holds up the next run.
type shoutrrrNotifier struct {
	Urls     []string
	Router   router
	template *template.Template
	messages chan string
	done     chan bool
	params   *shoutrrrTypes.Params
	data     StaticData
	delay    time.Duration
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// GetNames returns the service names of the configured URLs.
func (n *shoutrrrNotifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// createNotifier initializes a Shoutrrr notifier for the given URLs.
//
// An unusable template falls back to the default one with an error log. Shoutrrr's own
// log output goes to stdout when requested and to the trace level otherwise.
func createNotifier(
	urls []string,
	tplString string,
	data StaticData,
	stdout bool,
	delay time.Duration,
) (*shoutrrrNotifier, error) {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		logrus.WithError(err).Error("Could not use configured notification template, using default template")

		tpl = template.Must(template.New("").Funcs(templates.Funcs).Parse(commonTemplates[defaultTemplate]))
	}

	var logger shoutrrrTypes.StdLogger
	if stdout {
		logger = log.New(os.Stdout, ``, 0)
	} else {
		logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
	}

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCreateSenderFailed, err)
	}

	return newShoutrrrNotifier(urls, sender, tpl, data, delay), nil
}

// newShoutrrrNotifier wires a notifier around a router and starts its sending goroutine.
func newShoutrrrNotifier(
	urls []string,
	sender router,
	tpl *template.Template,
	data StaticData,
	delay time.Duration,
) *shoutrrrNotifier {
	params := &shoutrrrTypes.Params{}
	if data.Title != "" {
		params.SetTitle(data.Title)
	}

	notifier := &shoutrrrNotifier{
		Urls:     urls,
		Router:   sender,
		template: tpl,
		messages: make(chan string, 1),
		done:     make(chan bool),
		params:   params,
		data:     data,
		delay:    delay,
	}

	go sendNotifications(notifier)

	return notifier
}

// sendNotifications sends queued messages through the router until the queue is closed.
func sendNotifications(notifier *shoutrrrNotifier) {
	for msg := range notifier.messages {
		time.Sleep(notifier.delay)

		errs := notifier.Router.Send(msg, notifier.params)

		for i, err := range errs {
			if err != nil {
				scheme := "unknown"
				if i < len(notifier.Urls) {
					scheme = GetScheme(notifier.Urls[i])
				}

				LocalLog.WithFields(logrus.Fields{
					"service": scheme,
					"index":   i,
				}).WithError(err).Error("Failed to send shoutrrr notification")
			}
		}
	}

	notifier.done <- true
}

// buildMessage renders a report with the configured template.
func (n *shoutrrrNotifier) buildMessage(data Data) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, data); err != nil {
		return "", fmt.Errorf("%w: %w", errExecuteTemplateFailed, err)
	}

	return strings.TrimSpace(body.String()), nil
}

// SendNotification renders the report and queues it for sending.
// Empty messages are skipped.
func (n *shoutrrrNotifier) SendNotification(report types.Report) {
	msg, err := n.buildMessage(Data{StaticData: n.data, Report: report})
	if err != nil {
		LocalLog.WithError(err).Error("Notification template error")

		return
	}

	if msg == "" {
		LocalLog.Debug("Skipping notification due to empty message")

		return
	}

	n.messages <- msg
}

// Close stops queuing and waits until every queued message is sent.
func (n *shoutrrrNotifier) Close() {
	close(n.messages)

	LocalLog.Debug("Waiting for the notification goroutine to finish")

	<-n.done
}

// getShoutrrrTemplate parses a template string or the name of a built-in template.
// An empty string selects the default template.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if tplString == "" {
		tplString = defaultTemplate
	}

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField("template", tplString).Debug("Using common template")

		tplString = builtin
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errParseTemplateFailed, err)
	}

	return tpl, nil
}
