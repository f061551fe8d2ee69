package container

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/compose"
)

// Container labels understood by dockupdate.
const (
	// EnableLabel opts a container in (true) or out (false) of updates.
	EnableLabel = "com.nicholas-fedor.dockupdate.enable"
	// MonitorOnlyLabel reports updates for a container's image without applying them.
	MonitorOnlyLabel = "com.nicholas-fedor.dockupdate.monitor-only"
	// NoPullLabel prevents pulling a container's image.
	NoPullLabel = "com.nicholas-fedor.dockupdate.no-pull"
	// DependsOnLabel lists container names, comma-separated, a container depends on.
	DependsOnLabel = "com.nicholas-fedor.dockupdate.depends-on"
)

// parseBool reads a boolean label, reporting whether it is set to a valid value.
func parseBool(labels map[string]string, label string) (bool, bool) {
	raw, ok := labels[label]
	if !ok {
		return false, false
	}

	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"label": label,
			"value": raw,
		}).Warn("Ignoring label with invalid boolean value")

		return false, false
	}

	return value, true
}

// IsEnabled reads the enable label.
//
// Parameters:
//   - labels: Container labels.
//
// Returns:
//   - bool: Label value.
//   - bool: True if the label is present and valid.
func IsEnabled(labels map[string]string) (bool, bool) {
	return parseBool(labels, EnableLabel)
}

// IsMonitorOnly reports whether the monitor-only label is set to true.
func IsMonitorOnly(labels map[string]string) bool {
	value, _ := parseBool(labels, MonitorOnlyLabel)

	return value
}

// IsNoPull reports whether the no-pull label is set to true.
func IsNoPull(labels map[string]string) bool {
	value, _ := parseBool(labels, NoPullLabel)

	return value
}

// DependsOn returns the names listed in the depends-on label, as written.
func DependsOn(labels map[string]string) []string {
	raw := labels[DependsOnLabel]
	if raw == "" {
		return nil
	}

	var names []string

	for name := range strings.SplitSeq(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// Dependencies returns every container name a container depends on.
//
// Compose depends_on entries are expanded under their project-qualified names and
// depends-on label entries are used as-is.
//
// Parameters:
//   - labels: Container labels.
//
// Returns:
//   - []string: Dependency names, Compose entries first, without duplicates.
func Dependencies(labels map[string]string) []string {
	names := compose.Dependencies(labels)
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		seen[name] = true
	}

	for _, name := range DependsOn(labels) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	return names
}
