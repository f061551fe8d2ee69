package types

import (
	"time"
)

// UpdateParams defines options for a single update run.
type UpdateParams struct {
	DryRun      bool          // Skip every mutating engine call.
	Interactive bool          // Confirm each image before updating it.
	Include     []string      // Repository name filters to include.
	Exclude     []string      // Repository name filters to exclude, winning over Include.
	StopTimeout time.Duration // Grace period before a stop escalates to a kill.
	SettleDelay time.Duration // Pause after starting a recreated container.
}
