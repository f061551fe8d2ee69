package util

import (
	"fmt"
	"strings"
	"time"
)

// durationUnit is one component of a formatted duration.
type durationUnit struct {
	value    int64
	singular string
	plural   string
}

// FormatDuration renders a duration as hours, minutes and seconds, e.g. "1 hour, 2 minutes, 3 seconds".
//
// Zero components are left out; a duration under one second renders as "0 seconds".
//
// Parameters:
//   - duration: Duration to render, truncated to whole seconds.
//
// Returns:
//   - string: Readable duration.
func FormatDuration(duration time.Duration) string {
	duration = duration.Truncate(time.Second)

	units := []durationUnit{
		{int64(duration / time.Hour), "hour", "hours"},
		{int64(duration % time.Hour / time.Minute), "minute", "minutes"},
		{int64(duration % time.Minute / time.Second), "second", "seconds"},
	}

	parts := make([]string, 0, len(units))

	for _, unit := range units {
		if part := formatUnit(unit); part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return "0 seconds"
	}

	return strings.Join(parts, ", ")
}

// formatUnit renders a positive component with singular or plural grammar, or "" for zero.
func formatUnit(unit durationUnit) string {
	switch {
	case unit.value == 1:
		return "1 " + unit.singular
	case unit.value > 1:
		return fmt.Sprintf("%d %s", unit.value, unit.plural)
	default:
		return ""
	}
}

// NormalizeContainerName trims the leading "/" the engine reports on container names.
func NormalizeContainerName(name string) string {
	return strings.TrimPrefix(name, "/")
}
