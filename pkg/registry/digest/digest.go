// Package digest provides functionality for resolving and comparing image digests in dockupdate.
// It probes a tag's manifest with body-less HEAD requests, once for single-platform manifests and
// once for multi-platform manifest lists, and unions the content digests the registry reports.
// A tag commonly resolves to two digests, so a local digest matching either is up to date.
package digest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	godigest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
)

// ContentDigestHeader is the HTTP header key used to retrieve the digest from a registry’s response.
const ContentDigestHeader = "Docker-Content-Digest"

// Docker distribution media types.
const (
	MediaTypeDockerManifest     = "application/vnd.docker.distribution.manifest.v2+json"
	MediaTypeDockerManifestList = "application/vnd.docker.distribution.manifest.list.v2+json"
)

// ManifestMediaTypes are the Accept values of the single-platform probe.
var ManifestMediaTypes = []string{MediaTypeDockerManifest, ocispec.MediaTypeImageManifest}

// ManifestListMediaTypes are the Accept values of the multi-platform probe.
var ManifestListMediaTypes = []string{MediaTypeDockerManifestList, ocispec.MediaTypeImageIndex}

// Errors for digest retrieval operations.
var (
	// errInvalidRegistryResponse indicates the registry answered a probe with an unexpected status.
	errInvalidRegistryResponse = errors.New("registry responded with invalid HEAD request")
	// errInvalidDigest indicates the content digest header is not a valid digest.
	errInvalidDigest = errors.New("registry returned an invalid content digest")
)

// Resolve probes a manifest URL for single and multi-platform digests.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - do: Authenticated request function of the registry client.
//   - manifestURL: Manifest endpoint of the tag.
//
// Returns:
//   - []string: Union of reported digests in probe order, empty if the tag is unknown.
//   - error: Non-nil if a probe fails for any reason other than a missing manifest.
func Resolve(ctx context.Context, do helpers.RequestFunc, manifestURL string) ([]string, error) {
	single, err := probe(ctx, do, manifestURL, ManifestMediaTypes)
	if err != nil {
		return nil, err
	}

	list, err := probe(ctx, do, manifestURL, ManifestListMediaTypes)
	if err != nil {
		return nil, err
	}

	digests := Union([]string{single}, []string{list})

	logrus.WithFields(logrus.Fields{
		"url":     manifestURL,
		"digests": digests,
	}).Debug("Resolved remote digests")

	return digests, nil
}

// probe issues one HEAD request with the given Accept types and returns the reported digest.
// A 404 yields an empty digest rather than an error.
func probe(
	ctx context.Context,
	do helpers.RequestFunc,
	manifestURL string,
	mediaTypes []string,
) (string, error) {
	header := http.Header{}
	header.Set("Accept", strings.Join(mediaTypes, ", "))

	res, err := do(ctx, http.MethodHead, manifestURL, header)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	fields := logrus.Fields{
		"url":    manifestURL,
		"accept": mediaTypes[0],
		"status": res.Status,
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		logrus.WithFields(fields).Debug("Manifest probe found nothing")

		return "", nil
	case res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices:
		return "", fmt.Errorf("%w: %s", errInvalidRegistryResponse, res.Status)
	}

	value := strings.TrimSpace(res.Header.Get(ContentDigestHeader))
	if value == "" {
		logrus.WithFields(fields).Debug("Manifest probe returned no digest header")

		return "", nil
	}

	parsed, err := godigest.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", errInvalidDigest, value, err)
	}

	logrus.WithFields(fields).WithField("digest", parsed.String()).Debug("Manifest probe returned digest")

	return parsed.String(), nil
}

// Union merges digest sets, preserving first-seen order and dropping empties and duplicates.
func Union(sets ...[]string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	for _, set := range sets {
		for _, d := range set {
			if d == "" || seen[d] {
				continue
			}

			seen[d] = true
			result = append(result, d)
		}
	}

	return result
}

// Matches reports whether a local digest equals any remote digest.
// The local digest may be a repo digest such as "nginx@sha256:...".
func Matches(local string, remote []string) bool {
	normalizedLocal := helpers.NormalizeDigest(local)
	if normalizedLocal == "" {
		return false
	}

	for _, d := range remote {
		if helpers.NormalizeDigest(d) == normalizedLocal {
			return true
		}
	}

	return false
}
