package session

import (
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// ImageState enum values.
const (
	UnknownState ImageState = iota // Uninitialized state.
	ScannedState                   // Image passed the filters and is being checked.
	FreshState                     // Image matches its registry.
	StaleState                     // Image has an update available.
	SkippedState                   // Image skipped by filters, labels or the operator.
	FailedState                    // Image check or swap failed.
	UpdatedState                   // Image swapped successfully.
)

// ImageState indicates where an image ended up during a run.
type ImageState int

// String returns the human-readable state name.
func (s ImageState) String() string {
	switch s {
	case ScannedState:
		return "Scanned"
	case FreshState:
		return "Fresh"
	case StaleState:
		return "Stale"
	case SkippedState:
		return "Skipped"
	case FailedState:
		return "Failed"
	case UpdatedState:
		return "Updated"
	case UnknownState:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// ImageStatus holds an image's state during a run.
//
//nolint:errname // ImageStatus is not an error type, it contains an error field.
type ImageStatus struct {
	imageID    types.ImageID // Local image ID.
	name       string        // Image name without tag.
	currentTag string        // Tag found locally.
	targetTag  string        // Tag selected for update.
	imageError error         // Error encountered, if any.
	state      ImageState    // Current state.
}

// ID returns the local image ID.
func (s *ImageStatus) ID() types.ImageID {
	return s.imageID
}

// Name returns the image name without tag.
func (s *ImageStatus) Name() string {
	return s.name
}

// CurrentTag returns the tag found locally.
func (s *ImageStatus) CurrentTag() string {
	return s.currentTag
}

// TargetTag returns the tag selected for update, or the current tag when none was selected.
func (s *ImageStatus) TargetTag() string {
	if s.targetTag == "" {
		return s.currentTag
	}

	return s.targetTag
}

// Error returns the recorded error, if any.
//
// Returns:
//   - string: Error message or empty if none.
func (s *ImageStatus) Error() string {
	if s.imageError == nil {
		return ""
	}

	return s.imageError.Error()
}

// State returns the human-readable state name.
func (s *ImageStatus) State() string {
	return s.state.String()
}
