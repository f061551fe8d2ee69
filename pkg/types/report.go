package types

// Report defines the results of one update run.
type Report interface {
	Scanned() []ImageReport        // Images checked against their registry.
	Fresh() []ImageReport          // Images already up to date.
	Stale() []ImageReport          // Images with an update available.
	Updated() []ImageReport        // Images swapped successfully.
	Failed() []ImageReport         // Images whose check or swap failed.
	Skipped() []ImageReport        // Images skipped by filters, labels or the operator.
	Containers() []ContainerReport // Per-container lifecycle outcomes.
	DryRun() bool                  // Whether mutating steps were skipped.
}

// ImageReport defines an image's status within a run.
type ImageReport interface {
	ID() ImageID        // Local image ID.
	Name() string       // Image name without tag.
	CurrentTag() string // Tag found locally.
	TargetTag() string  // Tag selected for update, if any.
	Error() string      // Error message, if any.
	State() string      // Human-readable state.
}

// ContainerReport defines a container's lifecycle outcome within a run.
type ContainerReport interface {
	ID() ContainerID    // Original container ID.
	NewID() ContainerID // Recreated container ID, if any.
	Name() string       // Container name.
	ImageName() string  // Target image reference.
	Error() string      // Error message, if any.
	State() string      // Human-readable state.
}
