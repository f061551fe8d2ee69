package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/container"
	"github.com/nicholas-fedor/dockupdate/pkg/filters"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/digest"
	"github.com/nicholas-fedor/dockupdate/pkg/session"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
	"github.com/nicholas-fedor/dockupdate/pkg/version"
)

// imageLabels aggregates the labels of the containers using one image.
type imageLabels struct {
	enabled      bool // A container opted in.
	disabled     bool // A container opted out.
	suppressPull bool // A container is monitor-only or no-pull.
}

// labelRules holds the label-derived exclusion rules of a run.
type labelRules struct {
	allowList bool
	images    map[types.ImageID]*imageLabels
}

// newLabelRules collects label rules from every container on the host.
//
// A single container with the enable label set to true switches the whole run to
// allow-list mode.
func newLabelRules(containers []types.ContainerSummary) labelRules {
	rules := labelRules{images: make(map[types.ImageID]*imageLabels)}

	for _, summary := range containers {
		labels, ok := rules.images[summary.ImageID]
		if !ok {
			labels = &imageLabels{}
			rules.images[summary.ImageID] = labels
		}

		if enabled, set := container.IsEnabled(summary.Labels); set {
			if enabled {
				labels.enabled = true
				rules.allowList = true
			} else {
				labels.disabled = true
			}
		}

		if container.IsMonitorOnly(summary.Labels) || container.IsNoPull(summary.Labels) {
			labels.suppressPull = true
		}
	}

	if rules.allowList {
		logrus.Debug("Enable label found, only opted-in images are checked")
	}

	return rules
}

// evaluate applies the label rules to an image.
//
// Returns:
//   - bool: True if pulling the image is suppressed.
//   - error: Skip reason, nil if the image is checked.
func (r labelRules) evaluate(id types.ImageID) (bool, error) {
	labels := r.images[id]

	if labels != nil && labels.disabled {
		return false, errDisabledByLabel
	}

	if r.allowList && (labels == nil || !labels.enabled) {
		return false, errNotEnabled
	}

	return labels != nil && labels.suppressPull, nil
}

// checkAll checks every image and returns the updates to select from.
//
// Each image is checked in isolation; a failed check is recorded and the next image proceeds.
func (o *Orchestrator) checkAll(
	ctx context.Context,
	images []types.CheckImage,
	filter filters.Filter,
	rules labelRules,
	progress *session.Progress,
) []types.UpdateImage {
	queue := make([]types.UpdateImage, 0)

	for _, image := range images {
		if ctx.Err() != nil {
			break
		}

		clog := logrus.WithFields(logrus.Fields{
			"image": image.Name,
			"tag":   image.Tag,
		})

		if !filter(image) {
			clog.Debug("Image excluded by name filter")
			progress.AddSkipped(image, errExcludedByFilter)

			continue
		}

		suppressPull, reason := rules.evaluate(image.ID)
		if reason != nil {
			clog.WithError(reason).Debug("Image excluded by label")
			progress.AddSkipped(image, reason)

			continue
		}

		progress.AddScanned(image)

		update, err := o.check(ctx, image, suppressPull)
		if err != nil {
			clog.WithError(err).Warn("Failed to check image")
			progress.MarkFailed(image.ID, err)

			continue
		}

		if update == nil {
			clog.Debug("Image is up to date")
			progress.MarkFresh(image.ID)

			continue
		}

		progress.MarkStale(image.ID, update.TargetTag)

		clog = clog.WithField("target_tag", update.TargetTag)
		if update.NewDigest != "" {
			clog = clog.WithField("new_digest", update.NewDigest)
		}

		if suppressPull {
			clog.Info("Found new image, not updating monitor-only or no-pull image")

			continue
		}

		clog.Info("Found new image")

		queue = append(queue, *update)
	}

	return queue
}

// check compares one image with its registry.
//
// A local digest missing from the remote set yields a digest update. Otherwise a
// version-looking tag is matched against the repository's tags unless pulling is suppressed.
//
// Returns:
//   - *types.UpdateImage: The update, or nil if the image is current.
//   - error: Non-nil if the registry could not be queried.
func (o *Orchestrator) check(ctx context.Context, image types.CheckImage, suppressPull bool) (*types.UpdateImage, error) {
	digests, err := o.Registry.ResolveDigests(ctx, image.Registry, image.Repository, image.Tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errResolveDigestsFailed, err)
	}

	if !digest.Matches(image.LocalDigest, digests) {
		if len(digests) == 0 {
			return nil, fmt.Errorf("%w: registry reported no digests", errResolveDigestsFailed)
		}

		return &types.UpdateImage{
			ID:          image.ID,
			Name:        image.Name,
			OriginalTag: image.OriginalTag,
			TargetTag:   image.Tag,
			LocalDigest: image.LocalDigest,
			NewDigest:   digests[0],
		}, nil
	}

	if suppressPull || !strings.Contains(image.Tag, ".") {
		return nil, nil
	}

	tags, err := o.Registry.ListTags(ctx, image.Registry, image.Repository)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errListTagsFailed, err)
	}

	latest := version.FindLatestMatchingVersion(image.Tag, tags)
	if latest == image.Tag {
		return nil, nil
	}

	return &types.UpdateImage{
		ID:          image.ID,
		Name:        image.Name,
		OriginalTag: image.OriginalTag,
		TargetTag:   latest,
		LocalDigest: image.LocalDigest,
	}, nil
}
