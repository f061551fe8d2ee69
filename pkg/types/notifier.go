package types

// Notifier defines the interface for end-of-run notification services.
type Notifier interface {
	SendNotification(report Report) // Render and send a run summary.
	GetNames() []string             // Service names.
	Close()                         // Flush and stop sending.
}
