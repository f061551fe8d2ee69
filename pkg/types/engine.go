package types

import (
	"context"
	"time"
)

// Engine defines the container engine operations used by the orchestrator.
type Engine interface {
	// Ping verifies the engine is reachable.
	Ping(ctx context.Context) error
	// APIVersion returns the negotiated API version.
	APIVersion() string
	// ListImages returns the images present on the host.
	ListImages(ctx context.Context) ([]LocalImage, error)
	// ListContainers returns all containers, stopped ones included.
	ListContainers(ctx context.Context) ([]ContainerSummary, error)
	// InspectContainer captures the full state and creation spec of a container.
	InspectContainer(ctx context.Context, id ContainerID) (ContainerInfo, error)
	// CreateContainer creates a container named name from spec.
	CreateContainer(ctx context.Context, name string, spec *ContainerSpec) (ContainerID, error)
	// StartContainer starts a created container.
	StartContainer(ctx context.Context, id ContainerID) error
	// StopContainer requests a graceful stop bounded by grace.
	StopContainer(ctx context.Context, id ContainerID, grace time.Duration) error
	// KillContainer kills a container immediately.
	KillContainer(ctx context.Context, id ContainerID) error
	// RemoveContainer force-removes a container, keeping its volumes.
	RemoveContainer(ctx context.Context, id ContainerID) error
	// RemoveImage force-removes an image without pruning its parents.
	RemoveImage(ctx context.Context, id ImageID) error
	// PullImage pulls ref (name:tag) using the optional credentials.
	PullImage(ctx context.Context, ref string, auth *RegistryCredentials) error
}
