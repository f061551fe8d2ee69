package types

import (
	"strings"

	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"
)

// ImageID is a hash string for a container image.
type ImageID string

// ContainerID is a hash string for a container instance.
type ContainerID string

// ShortID returns the 12-character short version of an image ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id ImageID) ShortID() string {
	return shortID(string(id))
}

// ShortID returns the 12-character short version of a container ID.
//
// Returns:
//   - string: Shortened ID without "sha256:" prefix.
func (id ContainerID) ShortID() string {
	return shortID(string(id))
}

// shortID shortens a hash string to 12 characters, skipping a "sha256:" prefix.
func shortID(longID string) string {
	const length = 12

	offset := 0
	if prefix, _, found := strings.Cut(longID, ":"); found && prefix == "sha256" {
		offset = len(prefix) + 1
	}

	if len(longID) >= offset+length {
		return longID[offset : offset+length]
	}

	return longID
}

// ContainerSummary is the list-level view of a container as reported by the engine.
type ContainerSummary struct {
	ID      ContainerID       // Container ID.
	Name    string            // Container name without the leading slash.
	ImageID ImageID           // ID of the image the container runs.
	Labels  map[string]string // Container labels.
	Running bool              // Running state at listing time.
}

// ContainerSpec is the reconstructable creation specification of a container.
//
// It is captured verbatim from inspection data and passed through untouched,
// except for the image reference which WithImage rewrites.
type ContainerSpec struct {
	Config           *dockerContainerType.Config
	HostConfig       *dockerContainerType.HostConfig
	NetworkingConfig *dockerNetworkType.NetworkingConfig
}

// WithImage returns a copy of the spec whose image reference points at ref.
//
// Parameters:
//   - ref: Image reference in name:tag form.
//
// Returns:
//   - *ContainerSpec: Shallow copy with a copied Config carrying the new image.
func (s *ContainerSpec) WithImage(ref string) *ContainerSpec {
	clone := &ContainerSpec{}
	if s != nil {
		*clone = *s
	}

	config := &dockerContainerType.Config{}
	if clone.Config != nil {
		*config = *clone.Config
	}

	config.Image = ref
	clone.Config = config

	return clone
}

// Image returns the image reference recorded in the spec.
func (s *ContainerSpec) Image() string {
	if s == nil || s.Config == nil {
		return ""
	}

	return s.Config.Image
}

// ContainerInfo is one container bound to an image slated for update.
type ContainerInfo struct {
	ID           ContainerID       // Container ID at discovery time.
	Name         string            // Logical name, unique within a batch.
	Running      bool              // Running state at discovery time.
	Labels       map[string]string // Labels from the inspection data.
	Spec         *ContainerSpec    // Creation spec used for recreation.
	Dependencies []string          // Names that must be started before this one.
	Project      string            // Compose project used to qualify dependency names.
}
