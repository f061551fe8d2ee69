package container

import (
	"errors"
)

// Errors for engine client setup.
var (
	// errCreateClientFailed indicates the Docker API client could not be constructed.
	errCreateClientFailed = errors.New("failed to create docker client")
	// errPingFailed indicates the engine did not answer a ping.
	errPingFailed = errors.New("failed to reach container engine")
)

// Errors for container operations.
var (
	// errListContainersFailed indicates a failure to list containers from the engine.
	errListContainersFailed = errors.New("failed to list containers")
	// errInspectContainerFailed indicates a failure to inspect a container's details.
	errInspectContainerFailed = errors.New("failed to inspect container")
	// errCreateContainerFailed indicates a failure to create a new container.
	errCreateContainerFailed = errors.New("failed to create container")
	// errAttachNetworkFailed indicates a failure to connect a created container to an additional network.
	errAttachNetworkFailed = errors.New("failed to attach network")
	// errStartContainerFailed indicates a failure to start a container.
	errStartContainerFailed = errors.New("failed to start container")
	// errStopContainerFailed indicates a failure to stop a container gracefully.
	errStopContainerFailed = errors.New("failed to stop container")
	// errKillContainerFailed indicates a failure to kill a container.
	errKillContainerFailed = errors.New("failed to kill container")
	// errRemoveContainerFailed indicates a failure to remove a container from the host.
	errRemoveContainerFailed = errors.New("failed to remove container")
)

// Errors for image operations.
var (
	// errListImagesFailed indicates a failure to list local images.
	errListImagesFailed = errors.New("failed to list images")
	// errEncodeAuthFailed indicates registry credentials could not be encoded for the engine.
	errEncodeAuthFailed = errors.New("failed to encode registry auth")
	// errPullImageFailed indicates a failure to pull an image from the registry.
	errPullImageFailed = errors.New("failed to pull image")
	// errRemoveImageFailed indicates a failure to remove an image from the host.
	errRemoveImageFailed = errors.New("failed to remove image")
)
