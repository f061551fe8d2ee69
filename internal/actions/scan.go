package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/distribution/reference"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Scan lists the engine's images and derives one check row per usable image.
//
// Only the first repository digest and the first repository tag of an image are used.
// Images lacking either, or carrying an unparsable tag, are skipped with a warning.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - engine: Container engine.
//
// Returns:
//   - []types.CheckImage: Checkable images in engine order.
//   - error: Non-nil if the image list cannot be read.
func Scan(ctx context.Context, engine types.Engine) ([]types.CheckImage, error) {
	images, err := engine.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListImagesFailed, err)
	}

	rows := make([]types.CheckImage, 0, len(images))

	for _, image := range images {
		row, err := checkImageFromLocal(image)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"image_id": image.ID.ShortID(),
				"tags":     image.RepoTags,
			}).WithError(err).Warn("Skipping image")

			continue
		}

		rows = append(rows, row)
	}

	logrus.WithFields(logrus.Fields{
		"images":    len(images),
		"checkable": len(rows),
	}).Debug("Scanned local images")

	return rows, nil
}

// checkImageFromLocal builds the check row of a local image.
func checkImageFromLocal(image types.LocalImage) (types.CheckImage, error) {
	if len(image.RepoDigests) == 0 || image.RepoDigests[0] == "" {
		return types.CheckImage{}, errNoRepoDigest
	}

	if len(image.RepoTags) == 0 || image.RepoTags[0] == "" {
		return types.CheckImage{}, errNoRepoTag
	}

	repoTag := image.RepoTags[0]

	named, err := reference.ParseNormalizedNamed(repoTag)
	if err != nil {
		return types.CheckImage{}, fmt.Errorf("%w: %s: %w", errParseImageReference, repoTag, err)
	}

	tag := "latest"
	if tagged, ok := reference.TagNameOnly(named).(reference.Tagged); ok {
		tag = tagged.Tag()
	}

	name := strings.TrimSuffix(repoTag, ":"+tag)

	registry, repository, err := helpers.SplitImageName(name)
	if err != nil {
		return types.CheckImage{}, fmt.Errorf("%w: %w", errParseImageReference, err)
	}

	return types.CheckImage{
		ID:          image.ID,
		Name:        name,
		OriginalTag: tag,
		Registry:    registry,
		Repository:  repository,
		Tag:         tag,
		LocalDigest: image.RepoDigests[0],
	}, nil
}
