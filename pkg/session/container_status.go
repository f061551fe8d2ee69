package session

import (
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// ContainerState enum values.
const (
	ContainerUpdatedState ContainerState = iota + 1 // Container recreated on the new image.
	ContainerFailedState                            // Teardown or recreation failed.
	ContainerRemovedState                           // Removed, but not recreated because its image swap failed.
)

// ContainerState indicates what happened to a container during its group's update.
type ContainerState int

// String returns the human-readable state name.
func (s ContainerState) String() string {
	switch s {
	case ContainerUpdatedState:
		return "Updated"
	case ContainerFailedState:
		return "Failed"
	case ContainerRemovedState:
		return "Removed"
	default:
		return "Unknown"
	}
}

// ContainerStatus holds a container's outcome during a run.
//
//nolint:errname // ContainerStatus is not an error type, it contains an error field.
type ContainerStatus struct {
	containerID    types.ContainerID // Container ID at discovery time.
	newContainerID types.ContainerID // Container ID after recreation.
	containerName  string            // Container name.
	imageName      string            // Target image reference.
	containerError error             // Error encountered, if any.
	state          ContainerState    // Outcome.
}

// ID returns the container ID at discovery time.
func (u *ContainerStatus) ID() types.ContainerID {
	return u.containerID
}

// NewID returns the ID of the recreated container.
//
// Returns:
//   - types.ContainerID: New container ID or empty if not recreated.
func (u *ContainerStatus) NewID() types.ContainerID {
	return u.newContainerID
}

// Name returns the container name.
func (u *ContainerStatus) Name() string {
	return u.containerName
}

// ImageName returns the target image reference (e.g., "nginx:1.26").
func (u *ContainerStatus) ImageName() string {
	return u.imageName
}

// Error returns the recorded error, if any.
func (u *ContainerStatus) Error() string {
	if u.containerError == nil {
		return ""
	}

	return u.containerError.Error()
}

// State returns the human-readable state name.
func (u *ContainerStatus) State() string {
	return u.state.String()
}
