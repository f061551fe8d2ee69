// Package meta holds build-time metadata for dockupdate.
package meta

var (
	// Version is the release version, set at build time with
	// -ldflags "-X github.com/nicholas-fedor/dockupdate/internal/meta.Version=v1.0.0".
	Version = "v0.0.0-unknown"

	// UserAgent identifies dockupdate in registry requests.
	UserAgent = "dockupdate/" + Version
)
