package credentials

import (
	"errors"
	"fmt"

	"github.com/docker/docker-credential-helpers/client"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// helperPrefix is the executable name prefix of docker credential helpers.
const helperPrefix = "docker-credential-"

// Errors for credential helper invocations.
var (
	// errHelperFailed indicates the helper program failed or returned unusable output.
	errHelperFailed = errors.New("credential helper failed")
)

// Helper fetches credentials from a named credential helper.
type Helper interface {
	Get(helper, registry string) (*types.RegistryCredentials, error)
}

// ProcessHelper runs docker-credential-<name> programs.
type ProcessHelper struct {
	programFunc func(name string) client.ProgramFunc
}

// NewProcessHelper returns a helper that spawns credential helper executables from PATH.
func NewProcessHelper() *ProcessHelper {
	return &ProcessHelper{programFunc: client.NewShellProgramFunc}
}

// NewProcessHelperWithProgram returns a helper using a custom program factory.
//
// Parameters:
//   - programFunc: Builds the program invoked for a helper executable name.
//
// Returns:
//   - *ProcessHelper: Helper using programFunc.
func NewProcessHelperWithProgram(programFunc func(name string) client.ProgramFunc) *ProcessHelper {
	return &ProcessHelper{programFunc: programFunc}
}

// Get invokes "docker-credential-<helper> get" with the registry host on stdin.
//
// Parameters:
//   - helper: Helper name, e.g. "desktop" or "ecr-login".
//   - registry: Registry host passed to the helper.
//
// Returns:
//   - *types.RegistryCredentials: Username and secret reported by the helper.
//   - error: Non-nil if the program fails or its output is not valid credentials.
func (h *ProcessHelper) Get(helper, registry string) (*types.RegistryCredentials, error) {
	creds, err := client.Get(h.programFunc(helperPrefix+helper), registry)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", errHelperFailed, helper, err)
	}

	return &types.RegistryCredentials{Username: creds.Username, Password: creds.Secret}, nil
}
