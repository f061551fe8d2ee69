// Package helpers provides utility functions for registry-related operations in dockupdate.
// It includes methods for parsing registry addresses, splitting image names and normalizing digests.
package helpers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/distribution/reference"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain       = "docker.io"
	DefaultRegistryHost         = "index.docker.io"
	LegacyDefaultRegistryDomain = "index.docker.io"
	LegacyDefaultRegistryURL    = "https://index.docker.io/v1/"
)

// errFailedParseImageName indicates an image name could not be parsed as a reference.
var errFailedParseImageName = errors.New("failed to parse image name")

// RequestFunc issues an HTTP request against a registry, handling authentication.
// Callers own the returned response body.
type RequestFunc func(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error)

// GetRegistryAddress extracts the registry address from an image reference.
// It returns the domain part of the reference, mapping Docker Hub’s default domain
// to its canonical host address if applicable.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errFailedParseImageName, err)
	}

	return NormalizeRegistry(reference.Domain(normalizedRef)), nil
}

// NormalizeRegistry maps Docker Hub aliases to the canonical registry host.
func NormalizeRegistry(host string) string {
	switch strings.ToLower(host) {
	case DefaultRegistryDomain, "registry-1.docker.io", "", LegacyDefaultRegistryURL:
		return DefaultRegistryHost
	}

	return host
}

// SplitImageName resolves an image name into its registry host and repository path.
//
// Bare names are padded the way Docker Hub namespaces them: "nginx" becomes
// "index.docker.io" and "library/nginx", "foo/bar" becomes "index.docker.io" and "foo/bar".
//
// Parameters:
//   - name: Image name without tag or digest, e.g. "ghcr.io/foo/bar".
//
// Returns:
//   - string: Registry host.
//   - string: Repository path.
//   - error: Non-nil if the name is not a valid reference.
func SplitImageName(name string) (string, string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(name)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s: %w", errFailedParseImageName, name, err)
	}

	return NormalizeRegistry(reference.Domain(normalizedRef)), reference.Path(normalizedRef), nil
}

// NormalizeDigest standardizes a digest string for consistent comparison.
// It drops a leading "name@" part and the "sha256:" prefix, returning the raw digest value.
func NormalizeDigest(digest string) string {
	if _, after, found := strings.Cut(digest, "@"); found {
		digest = after
	}

	return strings.TrimPrefix(digest, "sha256:")
}
