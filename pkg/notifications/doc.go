// Package notifications sends an end-of-run summary of dockupdate through Shoutrrr.
//
// Key components:
//   - NewNotifier: Builds a notifier from the notification flags.
//   - Data: Template data model holding the static title and host plus the run report.
//   - Templates: Built-in "default", "summary.v1" and "json.v1" templates, or any Go template.
//
// Usage example:
//
//	notifier, err := notifications.NewNotifier(cmd)
//	if err != nil {
//	    logrus.WithError(err).Fatal("Invalid notification configuration")
//	}
//	if notifier != nil {
//	    notifier.SendNotification(report)
//	    notifier.Close()
//	}
package notifications
