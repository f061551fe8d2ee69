package container

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/moby/term"
	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerContainerType "github.com/docker/docker/api/types/container"
	dockerNetworkType "github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/versions"
	dockerClient "github.com/docker/docker/client"

	"github.com/nicholas-fedor/dockupdate/pkg/compose"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// multiNetworkCreateVersion is the first API version accepting several endpoints at creation.
const multiNetworkCreateVersion = "1.44"

// killSignal is sent when a graceful stop fails.
const killSignal = "SIGKILL"

// ClientOptions configures the engine client.
type ClientOptions struct {
	Host     string    // Engine endpoint; DOCKER_HOST or the default socket when empty.
	Username string    // Basic auth username for a remote engine endpoint.
	Password string    // Basic auth password for a remote engine endpoint.
	Progress io.Writer // Destination of pull progress; stderr on a terminal, discarded otherwise.
}

// Client implements types.Engine on the Docker API.
type Client struct {
	api      dockerClient.APIClient
	progress io.Writer
}

// NewClient creates an engine client from the environment and options.
//
// DOCKER_HOST, DOCKER_API_VERSION, DOCKER_CERT_PATH and DOCKER_TLS_VERIFY are honored,
// with opts.Host taking precedence over DOCKER_HOST. The API version is negotiated
// with the engine on first use.
//
// Parameters:
//   - opts: Endpoint, basic auth and progress output options.
//
// Returns:
//   - *Client: Engine client.
//   - error: Non-nil if the Docker client cannot be constructed.
func NewClient(opts ClientOptions) (*Client, error) {
	clientOpts := []dockerClient.Opt{
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	}

	if opts.Host != "" {
		clientOpts = append(clientOpts, dockerClient.WithHost(opts.Host))
	}

	if opts.Username != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		clientOpts = append(clientOpts, dockerClient.WithHTTPHeaders(map[string]string{
			"Authorization": "Basic " + credentials,
		}))
	}

	cli, err := dockerClient.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errCreateClientFailed, err)
	}

	logrus.WithFields(logrus.Fields{
		"host":       cli.DaemonHost(),
		"basic_auth": opts.Username != "",
	}).Debug("Initialized Docker client")

	return NewClientWithAPI(cli, opts.Progress), nil
}

// NewClientWithAPI wraps an existing Docker API client.
//
// Parameters:
//   - api: Docker API client.
//   - progress: Destination of pull progress, nil for the default.
//
// Returns:
//   - *Client: Engine client.
func NewClientWithAPI(api dockerClient.APIClient, progress io.Writer) *Client {
	if progress == nil {
		progress = io.Discard
		if _, isTerminal := term.GetFdInfo(os.Stderr); isTerminal {
			progress = os.Stderr
		}
	}

	return &Client{api: api, progress: progress}
}

// Ping verifies the engine is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", errPingFailed, err)
	}

	return nil
}

// APIVersion returns the API version used by the client.
func (c *Client) APIVersion() string {
	return c.api.ClientVersion()
}

// ListContainers returns all containers on the host, stopped ones included.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//
// Returns:
//   - []types.ContainerSummary: Containers with their image ID, labels and running state.
//   - error: Non-nil if listing fails.
func (c *Client) ListContainers(ctx context.Context) ([]types.ContainerSummary, error) {
	containers, err := c.api.ContainerList(ctx, dockerContainerType.ListOptions{All: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	summaries := make([]types.ContainerSummary, 0, len(containers))

	for _, container := range containers {
		name := ""
		if len(container.Names) > 0 {
			name = strings.TrimPrefix(container.Names[0], "/")
		}

		summaries = append(summaries, types.ContainerSummary{
			ID:      types.ContainerID(container.ID),
			Name:    name,
			ImageID: types.ImageID(container.ImageID),
			Labels:  container.Labels,
			Running: container.State == "running",
		})
	}

	logrus.WithField("count", len(summaries)).Debug("Listed containers")

	return summaries, nil
}

// InspectContainer captures the state and creation spec of a container.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - id: Container ID.
//
// Returns:
//   - types.ContainerInfo: Container with its spec; dependencies are left to the caller.
//   - error: Non-nil if inspection fails or returns incomplete data.
func (c *Client) InspectContainer(ctx context.Context, id types.ContainerID) (types.ContainerInfo, error) {
	info, err := c.api.ContainerInspect(ctx, string(id))
	if err != nil {
		return types.ContainerInfo{}, fmt.Errorf("%w: %s: %w", errInspectContainerFailed, id.ShortID(), err)
	}

	if info.ContainerJSONBase == nil || info.Config == nil {
		return types.ContainerInfo{}, fmt.Errorf("%w: %s: incomplete inspection data", errInspectContainerFailed, id.ShortID())
	}

	name := strings.TrimPrefix(info.Name, "/")

	logrus.WithFields(logrus.Fields{
		"container": name,
		"id":        id.ShortID(),
	}).Debug("Inspected container")

	return types.ContainerInfo{
		ID:      id,
		Name:    name,
		Running: info.State != nil && info.State.Running,
		Labels:  info.Config.Labels,
		Spec:    captureSpec(info),
		Project: compose.GetProjectName(info.Config.Labels),
	}, nil
}

// captureSpec builds the creation spec of an inspected container.
//
// The generated hostname is dropped so the new container gets its own, and endpoint
// aliases equal to the old short ID are removed.
func captureSpec(info dockerContainerType.InspectResponse) *types.ContainerSpec {
	shortID := types.ContainerID(info.ID).ShortID()

	config := *info.Config

	hostConfig := &dockerContainerType.HostConfig{}
	if info.HostConfig != nil {
		*hostConfig = *info.HostConfig
	}

	if config.Hostname == shortID {
		config.Hostname = ""
	}

	// Containers sharing another container's network namespace cannot set these.
	if hostConfig.NetworkMode.IsContainer() {
		config.Hostname = ""
		config.ExposedPorts = nil
	}

	return &types.ContainerSpec{
		Config:           &config,
		HostConfig:       hostConfig,
		NetworkingConfig: networkConfig(info, shortID),
	}
}

// networkConfig copies the endpoints of a container's networks.
func networkConfig(info dockerContainerType.InspectResponse, shortID string) *dockerNetworkType.NetworkingConfig {
	config := &dockerNetworkType.NetworkingConfig{
		EndpointsConfig: make(map[string]*dockerNetworkType.EndpointSettings),
	}

	if info.HostConfig != nil {
		mode := info.HostConfig.NetworkMode
		if mode.IsHost() || mode.IsContainer() || mode.IsNone() {
			return config
		}
	}

	if info.NetworkSettings == nil {
		return config
	}

	for name, endpoint := range info.NetworkSettings.Networks {
		if endpoint == nil {
			continue
		}

		target := endpoint.Copy()
		target.Aliases = slices.DeleteFunc(target.Aliases, func(alias string) bool {
			return alias == shortID
		})

		config.EndpointsConfig[name] = target
	}

	return config
}

// CreateContainer creates a container from a captured spec.
//
// API versions before 1.44 reject several endpoints at creation; the container is then
// created on its primary network and connected to the others afterwards.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - name: Container name.
//   - spec: Creation spec.
//
// Returns:
//   - types.ContainerID: ID of the created container.
//   - error: Non-nil if creation or network attachment fails.
func (c *Client) CreateContainer(ctx context.Context, name string, spec *types.ContainerSpec) (types.ContainerID, error) {
	clog := logrus.WithFields(logrus.Fields{
		"container": name,
		"image":     spec.Image(),
	})

	createNetworks, extraNetworks := splitNetworks(spec, c.api.ClientVersion())

	created, err := c.api.ContainerCreate(ctx, spec.Config, spec.HostConfig, createNetworks, nil, name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errCreateContainerFailed, name, err)
	}

	for _, networkName := range slices.Sorted(maps.Keys(extraNetworks)) {
		clog.WithField("network", networkName).Debug("Attaching additional network")

		if err := c.api.NetworkConnect(ctx, networkName, created.ID, extraNetworks[networkName]); err != nil {
			removeErr := c.api.ContainerRemove(ctx, created.ID, dockerContainerType.RemoveOptions{Force: true})
			if removeErr != nil {
				clog.WithError(removeErr).Warn("Failed to clean up container after network attachment error")
			}

			return "", fmt.Errorf("%w: %s: %w", errAttachNetworkFailed, networkName, err)
		}
	}

	id := types.ContainerID(created.ID)

	for _, warning := range created.Warnings {
		clog.WithField("new_id", id.ShortID()).Warn(warning)
	}

	clog.WithField("new_id", id.ShortID()).Debug("Created container")

	return id, nil
}

// splitNetworks separates the endpoints passed at creation from those connected afterwards.
func splitNetworks(
	spec *types.ContainerSpec,
	apiVersion string,
) (*dockerNetworkType.NetworkingConfig, map[string]*dockerNetworkType.EndpointSettings) {
	networking := spec.NetworkingConfig
	if networking == nil || len(networking.EndpointsConfig) <= 1 ||
		!versions.LessThan(apiVersion, multiNetworkCreateVersion) {
		return networking, nil
	}

	primary := ""
	if spec.HostConfig != nil {
		primary = string(spec.HostConfig.NetworkMode)
	}

	if _, ok := networking.EndpointsConfig[primary]; !ok {
		primary = slices.Sorted(maps.Keys(networking.EndpointsConfig))[0]
	}

	createNetworks := &dockerNetworkType.NetworkingConfig{
		EndpointsConfig: map[string]*dockerNetworkType.EndpointSettings{
			primary: networking.EndpointsConfig[primary],
		},
	}

	extraNetworks := make(map[string]*dockerNetworkType.EndpointSettings, len(networking.EndpointsConfig)-1)

	for name, endpoint := range networking.EndpointsConfig {
		if name != primary {
			extraNetworks[name] = endpoint
		}
	}

	return createNetworks, extraNetworks
}

// StartContainer starts a created container.
func (c *Client) StartContainer(ctx context.Context, id types.ContainerID) error {
	if err := c.api.ContainerStart(ctx, string(id), dockerContainerType.StartOptions{}); err != nil {
		return fmt.Errorf("%w: %s: %w", errStartContainerFailed, id.ShortID(), err)
	}

	logrus.WithField("id", id.ShortID()).Debug("Started container")

	return nil
}

// StopContainer asks the engine to stop a container within a grace period.
//
// A container that no longer exists counts as stopped.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - id: Container ID.
//   - grace: Time the engine waits before killing the container itself.
//
// Returns:
//   - error: Non-nil if the engine reports the stop failed.
func (c *Client) StopContainer(ctx context.Context, id types.ContainerID, grace time.Duration) error {
	seconds := int(grace.Round(time.Second) / time.Second)

	err := c.api.ContainerStop(ctx, string(id), dockerContainerType.StopOptions{Timeout: &seconds})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			logrus.WithField("id", id.ShortID()).Debug("Container already gone")

			return nil
		}

		return fmt.Errorf("%w: %s: %w", errStopContainerFailed, id.ShortID(), err)
	}

	return nil
}

// KillContainer sends SIGKILL to a container.
func (c *Client) KillContainer(ctx context.Context, id types.ContainerID) error {
	err := c.api.ContainerKill(ctx, string(id), killSignal)
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("%w: %s: %w", errKillContainerFailed, id.ShortID(), err)
	}

	return nil
}

// RemoveContainer force-removes a container, keeping its volumes and links.
//
// A container that no longer exists counts as removed.
func (c *Client) RemoveContainer(ctx context.Context, id types.ContainerID) error {
	err := c.api.ContainerRemove(ctx, string(id), dockerContainerType.RemoveOptions{
		Force:         true,
		RemoveVolumes: false,
		RemoveLinks:   false,
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			logrus.WithField("id", id.ShortID()).Debug("Container already removed")

			return nil
		}

		return fmt.Errorf("%w: %s: %w", errRemoveContainerFailed, id.ShortID(), err)
	}

	return nil
}
