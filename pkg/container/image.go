package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/moby/term"
	"github.com/sirupsen/logrus"

	cerrdefs "github.com/containerd/errdefs"
	dockerImageType "github.com/docker/docker/api/types/image"
	dockerRegistryType "github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// ListImages returns the images present on the host.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//
// Returns:
//   - []types.LocalImage: Images with their repository tags and digests.
//   - error: Non-nil if listing fails.
func (c *Client) ListImages(ctx context.Context) ([]types.LocalImage, error) {
	images, err := c.api.ImageList(ctx, dockerImageType.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListImagesFailed, err)
	}

	result := make([]types.LocalImage, 0, len(images))
	for _, image := range images {
		result = append(result, types.LocalImage{
			ID:          types.ImageID(image.ID),
			RepoTags:    image.RepoTags,
			RepoDigests: image.RepoDigests,
		})
	}

	logrus.WithField("count", len(result)).Debug("Listed images")

	return result, nil
}

// PullImage pulls an image and renders its progress.
//
// Errors reported inside the progress stream fail the pull.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - ref: Image reference in name:tag form.
//   - auth: Registry credentials, nil for anonymous pulls.
//
// Returns:
//   - error: Non-nil if the pull fails.
func (c *Client) PullImage(ctx context.Context, ref string, auth *types.RegistryCredentials) error {
	clog := logrus.WithField("image", ref)

	opts := dockerImageType.PullOptions{}

	if !auth.IsEmpty() {
		serverAddress, err := helpers.GetRegistryAddress(ref)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
		}

		encoded, err := dockerRegistryType.EncodeAuthConfig(dockerRegistryType.AuthConfig{
			Username:      auth.Username,
			Password:      auth.Password,
			ServerAddress: serverAddress,
		})
		if err != nil {
			return fmt.Errorf("%w: %w", errEncodeAuthFailed, err)
		}

		opts.RegistryAuth = encoded

		clog.Debug("Pulling with registry credentials")
	}

	response, err := c.api.ImagePull(ctx, ref, opts)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}
	defer response.Close()

	fd, isTerminal := term.GetFdInfo(c.progress)
	if err := jsonmessage.DisplayJSONMessagesStream(response, c.progress, fd, isTerminal, nil); err != nil {
		return fmt.Errorf("%w: %s: %w", errPullImageFailed, ref, err)
	}

	clog.Debug("Image pull completed")

	return nil
}

// RemoveImage force-removes an image without pruning its parents.
//
// An image that no longer exists counts as removed.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - id: Image ID.
//
// Returns:
//   - error: Non-nil if removal fails.
func (c *Client) RemoveImage(ctx context.Context, id types.ImageID) error {
	clog := logrus.WithField("image_id", id.ShortID())

	items, err := c.api.ImageRemove(ctx, string(id), dockerImageType.RemoveOptions{
		Force:         true,
		PruneChildren: false,
	})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			clog.Debug("Image not found, no removal needed")

			return nil
		}

		return fmt.Errorf("%w: %s: %w", errRemoveImageFailed, id.ShortID(), err)
	}

	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		var deleted, untagged []string

		for _, item := range items {
			if item.Deleted != "" {
				deleted = append(deleted, types.ImageID(item.Deleted).ShortID())
			}

			if item.Untagged != "" {
				untagged = append(untagged, item.Untagged)
			}
		}

		clog.WithFields(logrus.Fields{
			"deleted":  strings.Join(deleted, ", "),
			"untagged": strings.Join(untagged, ", "),
		}).Debug("Image removal details")
	}

	return nil
}
