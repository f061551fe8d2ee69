// Package manifest provides functionality for constructing registry API URLs in dockupdate.
// It builds the manifest and tag listing endpoints of the registry HTTP API v2.
package manifest

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
)

// Schemes used to reach a registry.
const (
	SchemeHTTPS = "https"
	SchemeHTTP  = "http"
)

// BaseURL returns the root URL of a registry.
//
// Parameters:
//   - registry: Registry host, optionally with port.
//   - scheme: "https" or "http".
//
// Returns:
//   - *url.URL: Registry root, e.g. "https://index.docker.io".
func BaseURL(registry, scheme string) *url.URL {
	return &url.URL{Scheme: scheme, Host: registry}
}

// BuildManifestURL constructs the manifest endpoint of a repository tag.
//
// Parameters:
//   - registry: Registry host.
//   - repository: Repository path, e.g. "library/nginx".
//   - tag: Tag or digest to address.
//   - scheme: "https" or "http".
//
// Returns:
//   - string: Manifest URL (e.g., "https://index.docker.io/v2/library/alpine/manifests/latest").
func BuildManifestURL(registry, repository, tag, scheme string) string {
	manifestURL := BaseURL(registry, scheme)
	manifestURL.Path = fmt.Sprintf("/v2/%s/manifests/%s", repository, tag)

	logrus.WithFields(logrus.Fields{
		"registry":   registry,
		"repository": repository,
		"tag":        tag,
		"url":        manifestURL.String(),
	}).Debug("Built manifest URL")

	return manifestURL.String()
}

// BuildTagsURL constructs the first page of the tag listing endpoint of a repository.
//
// Parameters:
//   - registry: Registry host.
//   - repository: Repository path.
//   - scheme: "https" or "http".
//   - pageSize: Requested number of tags per page.
//
// Returns:
//   - string: Tag list URL (e.g., "https://index.docker.io/v2/library/alpine/tags/list?n=100").
func BuildTagsURL(registry, repository, scheme string, pageSize int) string {
	tagsURL := BaseURL(registry, scheme)
	tagsURL.Path = fmt.Sprintf("/v2/%s/tags/list", repository)

	query := url.Values{}
	query.Set("n", strconv.Itoa(pageSize))
	tagsURL.RawQuery = query.Encode()

	return tagsURL.String()
}
