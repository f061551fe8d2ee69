package actions

import "errors"

// ErrEngineUnreachable indicates the container engine could not be reached at all.
var ErrEngineUnreachable = errors.New("container engine unreachable")

// Errors for scan and check operations.
var (
	// errListImagesFailed indicates the engine's image list could not be read.
	errListImagesFailed = errors.New("failed to list images")
	// errListContainersFailed indicates the engine's container list could not be read.
	errListContainersFailed = errors.New("failed to list containers")
	// errNoRepoDigest flags an image without a repository digest.
	errNoRepoDigest = errors.New("image has no repository digest")
	// errNoRepoTag flags an image without a repository tag.
	errNoRepoTag = errors.New("image has no repository tag")
	// errParseImageReference indicates an image's repository tag could not be parsed.
	errParseImageReference = errors.New("failed to parse image reference")
	// errResolveDigestsFailed indicates the registry could not report the tag's digests.
	errResolveDigestsFailed = errors.New("failed to resolve remote digests")
	// errListTagsFailed indicates the registry could not list the repository's tags.
	errListTagsFailed = errors.New("failed to list remote tags")
)

// Reasons an image is skipped.
var (
	// errExcludedByFilter flags an image excluded by the include/exclude names.
	errExcludedByFilter = errors.New("excluded by name filter")
	// errDisabledByLabel flags an image with a container opted out by label.
	errDisabledByLabel = errors.New("disabled by enable label")
	// errNotEnabled flags an image without an opted-in container in allow-list mode.
	errNotEnabled = errors.New("not enabled by label")
	// errDeclined flags an image the operator declined to update.
	errDeclined = errors.New("declined by operator")
)

// Errors for update operations.
var (
	// errInspectContainerFailed indicates a container of a group could not be inspected.
	errInspectContainerFailed = errors.New("failed to inspect container")
	// errTeardownFailed indicates a container could not be stopped or removed.
	errTeardownFailed = errors.New("failed to tear down container")
	// errImageSwapFailed indicates the old image could not be deleted or the new one pulled.
	errImageSwapFailed = errors.New("failed to swap image")
	// errRecreateFailed indicates a container could not be created or started.
	errRecreateFailed = errors.New("failed to recreate container")
	// errRunFailed indicates a run finished with failed images or containers.
	errRunFailed = errors.New("update run finished with failures")
)
