// Package mocks provides test doubles for the collaborators of the update orchestrator.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	dockerContainerType "github.com/docker/docker/api/types/container"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// errNotFound is returned for unknown containers.
var errNotFound = errors.New("no such container")

// MockContainer is a container known to MockEngine.
type MockContainer struct {
	Info    types.ContainerInfo
	ImageID types.ImageID
}

// CreateMockContainer builds a container bound to an image.
//
// Parameters:
//   - id: Container ID.
//   - name: Container name.
//   - imageID: ID of the image the container runs.
//   - image: Image reference recorded in the creation spec.
//   - running: Whether the container is running.
//   - labels: Container labels.
//
// Returns:
//   - MockContainer: Container with a minimal creation spec.
func CreateMockContainer(
	id, name string,
	imageID types.ImageID,
	image string,
	running bool,
	labels map[string]string,
) MockContainer {
	return MockContainer{
		ImageID: imageID,
		Info: types.ContainerInfo{
			ID:      types.ContainerID(id),
			Name:    name,
			Running: running,
			Labels:  labels,
			Spec: &types.ContainerSpec{
				Config:     &dockerContainerType.Config{Image: image, Labels: labels},
				HostConfig: &dockerContainerType.HostConfig{},
			},
		},
	}
}

// TestData holds the engine state and the failures MockEngine simulates.
type TestData struct {
	Images     []types.LocalImage // Images returned by ListImages.
	Containers []MockContainer    // Containers returned by ListContainers.

	PingError         error                                 // Returned by Ping.
	ListImagesError   error                                 // Returned by ListImages.
	StopErrors        map[types.ContainerID]error           // Returned by StopContainer per container.
	KillErrors        map[types.ContainerID]error           // Returned by KillContainer per container.
	RemoveErrors      map[types.ContainerID]error           // Returned by RemoveContainer per container.
	CreateErrors      map[string]error                      // Returned by CreateContainer per name.
	StartErrors       map[types.ContainerID]error           // Returned by StartContainer per new container.
	RemoveImageErrors map[types.ImageID]error               // Returned by RemoveImage per image.
	PullErrors        map[string]error                      // Returned by PullImage per reference.
	Created           map[string]*types.ContainerSpec       // Specs passed to CreateContainer by name.
	PullCredentials   map[string]*types.RegistryCredentials // Credentials passed to PullImage by reference.
}

// MockEngine is a types.Engine recording every mutating call in order.
type MockEngine struct {
	TestData *TestData

	mu    sync.Mutex
	calls []string
}

// CreateMockEngine constructs a MockEngine over data.
func CreateMockEngine(data *TestData) *MockEngine {
	if data.Created == nil {
		data.Created = make(map[string]*types.ContainerSpec)
	}

	if data.PullCredentials == nil {
		data.PullCredentials = make(map[string]*types.RegistryCredentials)
	}

	return &MockEngine{TestData: data}
}

// Calls returns the mutating calls made so far, e.g. "stop web" or "pull nginx:1.26".
func (e *MockEngine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]string(nil), e.calls...)
}

func (e *MockEngine) record(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls = append(e.calls, fmt.Sprintf(format, args...))
}

func (e *MockEngine) name(id types.ContainerID) string {
	for _, c := range e.TestData.Containers {
		if c.Info.ID == id {
			return c.Info.Name
		}
	}

	return string(id)
}

// Ping returns the configured ping error.
func (e *MockEngine) Ping(_ context.Context) error {
	return e.TestData.PingError
}

// APIVersion returns a fixed API version.
func (e *MockEngine) APIVersion() string {
	return "1.50"
}

// ListImages returns the configured images.
func (e *MockEngine) ListImages(_ context.Context) ([]types.LocalImage, error) {
	if e.TestData.ListImagesError != nil {
		return nil, e.TestData.ListImagesError
	}

	return e.TestData.Images, nil
}

// ListContainers summarizes the configured containers.
func (e *MockEngine) ListContainers(_ context.Context) ([]types.ContainerSummary, error) {
	summaries := make([]types.ContainerSummary, 0, len(e.TestData.Containers))

	for _, c := range e.TestData.Containers {
		summaries = append(summaries, types.ContainerSummary{
			ID:      c.Info.ID,
			Name:    c.Info.Name,
			ImageID: c.ImageID,
			Labels:  c.Info.Labels,
			Running: c.Info.Running,
		})
	}

	return summaries, nil
}

// InspectContainer returns the configured container info.
func (e *MockEngine) InspectContainer(_ context.Context, id types.ContainerID) (types.ContainerInfo, error) {
	for _, c := range e.TestData.Containers {
		if c.Info.ID == id {
			return c.Info, nil
		}
	}

	return types.ContainerInfo{}, errNotFound
}

// CreateContainer records the spec and returns "new-<name>" as the new ID.
func (e *MockEngine) CreateContainer(
	_ context.Context,
	name string,
	spec *types.ContainerSpec,
) (types.ContainerID, error) {
	e.record("create %s %s", name, spec.Image())

	if err := e.TestData.CreateErrors[name]; err != nil {
		return "", err
	}

	e.mu.Lock()
	e.TestData.Created[name] = spec
	e.mu.Unlock()

	return types.ContainerID("new-" + name), nil
}

// StartContainer records the start of a created container.
func (e *MockEngine) StartContainer(_ context.Context, id types.ContainerID) error {
	e.record("start %s", id)

	return e.TestData.StartErrors[id]
}

// StopContainer records a graceful stop.
func (e *MockEngine) StopContainer(_ context.Context, id types.ContainerID, _ time.Duration) error {
	e.record("stop %s", e.name(id))

	return e.TestData.StopErrors[id]
}

// KillContainer records a kill.
func (e *MockEngine) KillContainer(_ context.Context, id types.ContainerID) error {
	e.record("kill %s", e.name(id))

	return e.TestData.KillErrors[id]
}

// RemoveContainer records a removal.
func (e *MockEngine) RemoveContainer(_ context.Context, id types.ContainerID) error {
	e.record("remove %s", e.name(id))

	return e.TestData.RemoveErrors[id]
}

// RemoveImage records an image removal.
func (e *MockEngine) RemoveImage(_ context.Context, id types.ImageID) error {
	e.record("remove-image %s", id)

	return e.TestData.RemoveImageErrors[id]
}

// PullImage records a pull and the credentials used.
func (e *MockEngine) PullImage(_ context.Context, ref string, auth *types.RegistryCredentials) error {
	e.record("pull %s", ref)

	e.mu.Lock()
	e.TestData.PullCredentials[ref] = auth
	e.mu.Unlock()

	return e.TestData.PullErrors[ref]
}
