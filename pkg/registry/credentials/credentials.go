// Package credentials resolves registry credentials from the local docker configuration in dockupdate.
// It reads the auths, credHelpers and credsStore sections of the docker config file and
// delegates to docker-credential-* helper programs where configured. Resolution never
// fails: any problem results in no credentials and a debug log entry.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	dockerCliConfig "github.com/docker/cli/cli/config"
	"github.com/docker/cli/cli/config/configfile"
	dockerCliTypes "github.com/docker/cli/cli/config/types"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Environment variables overriding the credential store.
const (
	EnvUsername = "DOCKUPDATE_REPO_USER"
	EnvPassword = "DOCKUPDATE_REPO_PASS"
)

// Resolver looks up registry credentials.
//
// The config document is read at most once per resolver.
type Resolver struct {
	fs         afero.Fs
	configPath string
	helper     Helper
	static     *types.RegistryCredentials

	once   sync.Once
	config *configfile.ConfigFile
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithFs sets the filesystem the config file is read from.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) { r.fs = fs }
}

// WithConfigPath sets the location of the docker config file.
func WithConfigPath(path string) Option {
	return func(r *Resolver) { r.configPath = path }
}

// WithHelper sets the credential helper invoker.
func WithHelper(helper Helper) Option {
	return func(r *Resolver) { r.helper = helper }
}

// WithStaticCredentials sets credentials returned for every registry ahead of the store.
// Empty values are ignored.
func WithStaticCredentials(username, password string) Option {
	return func(r *Resolver) {
		if username == "" || password == "" {
			return
		}

		r.static = &types.RegistryCredentials{Username: username, Password: password}
	}
}

// WithEnvCredentials reads static credentials from DOCKUPDATE_REPO_USER and DOCKUPDATE_REPO_PASS.
func WithEnvCredentials() Option {
	return WithStaticCredentials(os.Getenv(EnvUsername), os.Getenv(EnvPassword))
}

// NewResolver creates a credential resolver.
//
// Parameters:
//   - opts: Options overriding the defaults (OS filesystem, docker config location, process helper).
//
// Returns:
//   - *Resolver: Configured resolver.
func NewResolver(opts ...Option) *Resolver {
	resolver := &Resolver{
		fs:         afero.NewOsFs(),
		configPath: filepath.Join(dockerCliConfig.Dir(), dockerCliConfig.ConfigFileName),
		helper:     NewProcessHelper(),
	}

	for _, opt := range opts {
		opt(resolver)
	}

	return resolver
}

// GetCredentials returns the credentials stored for a registry host.
//
// Parameters:
//   - registry: Registry host, e.g. "ghcr.io" or "index.docker.io".
//
// Returns:
//   - *types.RegistryCredentials: Credentials, or nil if none are available.
func (r *Resolver) GetCredentials(registry string) *types.RegistryCredentials {
	clog := logrus.WithField("registry", registry)

	if r.static != nil {
		clog.Debug("Using credentials from environment")

		return r.static
	}

	config := r.load()
	if config == nil {
		return nil
	}

	keys := lookupKeys(registry)

	for _, key := range keys {
		entry, ok := config.AuthConfigs[key]
		if !ok {
			continue
		}

		if creds := fromAuthConfig(entry); creds != nil {
			clog.WithField("key", key).Debug("Found credentials in config file")

			return creds
		}
	}

	helperName := config.CredentialsStore

	for _, key := range keys {
		if name, ok := config.CredentialHelpers[key]; ok && name != "" {
			helperName = name

			break
		}
	}

	if helperName == "" || r.helper == nil {
		clog.Debug("No credentials found")

		return nil
	}

	creds, err := r.helper.Get(helperName, registry)
	if err != nil {
		clog.WithError(err).WithField("helper", helperName).Debug("Credential helper returned no credentials")

		return nil
	}

	if creds.IsEmpty() {
		return nil
	}

	return creds
}

// load reads the config document once; failures leave it nil.
func (r *Resolver) load() *configfile.ConfigFile {
	r.once.Do(func() {
		clog := logrus.WithField("path", r.configPath)

		data, err := afero.ReadFile(r.fs, r.configPath)
		if err != nil {
			clog.WithError(err).Debug("Docker config file not readable")

			return
		}

		config := &configfile.ConfigFile{}
		if err := json.Unmarshal(data, config); err != nil {
			clog.WithError(err).Debug("Docker config file not parsable")

			return
		}

		r.config = config
	})

	return r.config
}

// lookupKeys returns the config keys a registry host may be stored under.
func lookupKeys(registry string) []string {
	host := helpers.NormalizeRegistry(registry)
	keys := []string{registry, "https://" + registry}

	if host != registry {
		keys = append(keys, host, "https://"+host)
	}

	if host == helpers.DefaultRegistryHost {
		keys = append(keys,
			helpers.LegacyDefaultRegistryURL,
			helpers.DefaultRegistryDomain,
			"registry-1.docker.io",
		)
	}

	return keys
}

// fromAuthConfig extracts credentials from an auths entry.
//
// A base64 auth value wins over plaintext fields; a malformed auth value yields nothing.
func fromAuthConfig(entry dockerCliTypes.AuthConfig) *types.RegistryCredentials {
	if entry.Auth != "" {
		decoded, err := base64.StdEncoding.DecodeString(entry.Auth)
		if err != nil {
			logrus.WithError(err).Debug("Malformed auth entry")

			return nil
		}

		username, password, found := strings.Cut(string(decoded), ":")
		if !found {
			logrus.Debug("Auth entry lacks a separator")

			return nil
		}

		return &types.RegistryCredentials{Username: username, Password: password}
	}

	if entry.Username != "" || entry.Password != "" {
		return &types.RegistryCredentials{Username: entry.Username, Password: entry.Password}
	}

	return nil
}
