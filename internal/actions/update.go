package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/container"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockupdate/pkg/session"
	"github.com/nicholas-fedor/dockupdate/pkg/sorter"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// updateImage replaces one image and recreates its containers.
//
// Containers are torn down in stop order, the image is swapped, and the containers
// that were removed are recreated in start order. A failed swap leaves the group's
// containers removed.
func (o *Orchestrator) updateImage(ctx context.Context, update types.UpdateImage, progress *session.Progress) {
	ref := update.Reference()
	clog := logrus.WithField("image", ref)

	group, err := o.discoverGroup(ctx, update)
	if err != nil {
		clog.WithError(err).Error("Failed to discover containers of image")
		progress.MarkFailed(update.ID, err)

		return
	}

	stopOrder, cycles := sorter.StopOrder(group.Containers)
	if len(cycles) > 0 {
		clog.WithField("cycles", len(cycles)).Debug("Ignored circular dependencies while ordering containers")
	}

	clog.WithFields(logrus.Fields{
		"containers": len(stopOrder),
		"stop_order": containerNames(stopOrder),
	}).Info("Updating image")

	removed := make([]types.ContainerInfo, 0, len(stopOrder))

	for _, info := range stopOrder {
		if err := o.teardown(ctx, info); err != nil {
			logrus.WithField("container", info.Name).WithError(err).Error("Failed to tear down container")
			progress.AddContainer(info, ref, "", session.ContainerFailedState, err)

			continue
		}

		removed = append(removed, info)
	}

	if left := len(stopOrder) - len(removed); left > 0 {
		clog.WithFields(logrus.Fields{
			"left_behind": containerNames(failedTeardowns(stopOrder, removed)),
		}).Warnf("Swapping image while %d containers could not be removed", left)
	}

	if err := o.swapImage(ctx, update); err != nil {
		clog.WithError(err).Error("Failed to swap image, removed containers are not recreated")
		progress.MarkFailed(update.ID, err)

		for _, info := range removed {
			progress.AddContainer(info, ref, "", session.ContainerRemovedState, err)
		}

		return
	}

	for _, info := range sorter.StartOrder(removed) {
		newID, err := o.recreate(ctx, info, ref)
		if err != nil {
			logrus.WithField("container", info.Name).WithError(err).Error("Failed to recreate container")
			progress.AddContainer(info, ref, newID, session.ContainerFailedState, err)

			continue
		}

		progress.AddContainer(info, ref, newID, session.ContainerUpdatedState, nil)
	}

	progress.MarkUpdated(update.ID)
	clog.Info("Updated image")
}

// discoverGroup collects the containers currently using an image.
func (o *Orchestrator) discoverGroup(ctx context.Context, update types.UpdateImage) (types.ContainerUpdateGroup, error) {
	group := types.ContainerUpdateGroup{Image: update}

	summaries, err := o.Engine.ListContainers(ctx)
	if err != nil {
		return group, fmt.Errorf("%w: %w", errListContainersFailed, err)
	}

	for _, summary := range summaries {
		if summary.ImageID != update.ID {
			continue
		}

		info, err := o.Engine.InspectContainer(ctx, summary.ID)
		if err != nil {
			return group, fmt.Errorf("%w: %s: %w", errInspectContainerFailed, summary.Name, err)
		}

		info.Dependencies = container.Dependencies(info.Labels)
		group.Containers = append(group.Containers, info)
	}

	return group, nil
}

// teardown stops a running container, killing it if the stop fails, and force-removes it.
// Only a failed removal is an error.
func (o *Orchestrator) teardown(ctx context.Context, info types.ContainerInfo) error {
	clog := logrus.WithFields(logrus.Fields{
		"container": info.Name,
		"id":        info.ID.ShortID(),
	})

	if info.Running {
		err := o.mutate(clog.WithField("timeout", o.Params.StopTimeout), "Stopping container", func() error {
			return o.Engine.StopContainer(ctx, info.ID, o.Params.StopTimeout)
		})
		if err != nil {
			clog.WithError(err).Warn("Graceful stop failed, killing container")

			if err := o.mutate(clog, "Killing container", func() error {
				return o.Engine.KillContainer(ctx, info.ID)
			}); err != nil {
				clog.WithError(err).Warn("Kill failed, forcing removal")
			}
		}
	}

	if err := o.mutate(clog, "Removing container", func() error {
		return o.Engine.RemoveContainer(ctx, info.ID)
	}); err != nil {
		return fmt.Errorf("%w: %s: %w", errTeardownFailed, info.Name, err)
	}

	return nil
}

// swapImage deletes the old image and pulls the update target.
func (o *Orchestrator) swapImage(ctx context.Context, update types.UpdateImage) error {
	ref := update.Reference()
	clog := logrus.WithFields(logrus.Fields{
		"image":    ref,
		"image_id": update.ID.ShortID(),
	})

	if err := o.mutate(clog, "Removing old image", func() error {
		return o.Engine.RemoveImage(ctx, update.ID)
	}); err != nil {
		return fmt.Errorf("%w: %w", errImageSwapFailed, err)
	}

	auth := o.pullCredentials(ref)

	if err := o.mutate(clog.WithField("authenticated", auth != nil), "Pulling image", func() error {
		return o.Engine.PullImage(ctx, ref, auth)
	}); err != nil {
		return fmt.Errorf("%w: %w", errImageSwapFailed, err)
	}

	return nil
}

// pullCredentials resolves the credentials of the registry hosting ref.
func (o *Orchestrator) pullCredentials(ref string) *types.RegistryCredentials {
	if o.Credentials == nil {
		return nil
	}

	registry, err := helpers.GetRegistryAddress(ref)
	if err != nil {
		logrus.WithError(err).WithField("image", ref).Debug("Cannot determine registry, pulling anonymously")

		return nil
	}

	return o.Credentials.GetCredentials(registry)
}

// recreate creates a container from its captured spec on the new image and starts it
// if it was running.
func (o *Orchestrator) recreate(ctx context.Context, info types.ContainerInfo, ref string) (types.ContainerID, error) {
	clog := logrus.WithFields(logrus.Fields{
		"container": info.Name,
		"image":     ref,
	})

	var newID types.ContainerID

	if err := o.mutate(clog, "Creating container", func() error {
		id, err := o.Engine.CreateContainer(ctx, info.Name, info.Spec.WithImage(ref))
		newID = id

		return err
	}); err != nil {
		return "", fmt.Errorf("%w: %s: %w", errRecreateFailed, info.Name, err)
	}

	if !info.Running {
		clog.Debug("Container was not running, leaving it created")

		return newID, nil
	}

	if err := o.mutate(clog.WithField("new_id", newID.ShortID()), "Starting container", func() error {
		return o.Engine.StartContainer(ctx, newID)
	}); err != nil {
		return newID, fmt.Errorf("%w: %s: %w", errRecreateFailed, info.Name, err)
	}

	if !o.Params.DryRun {
		settle(ctx, o.Params.SettleDelay)
	}

	return newID, nil
}

// mutate runs a mutating engine call, or only logs it in dry-run mode.
func (o *Orchestrator) mutate(clog *logrus.Entry, action string, call func() error) error {
	if o.Params.DryRun {
		clog.WithField("dry_run", true).Info(action)

		return nil
	}

	clog.Info(action)

	return call()
}

// settle waits for the settle delay or until ctx is done.
func settle(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// failedTeardowns returns the containers of stopOrder missing from removed.
func failedTeardowns(stopOrder, removed []types.ContainerInfo) []types.ContainerInfo {
	gone := make(map[types.ContainerID]bool, len(removed))
	for _, info := range removed {
		gone[info.ID] = true
	}

	var left []types.ContainerInfo

	for _, info := range stopOrder {
		if !gone[info.ID] {
			left = append(left, info)
		}
	}

	return left
}

// containerNames lists container names for logging.
func containerNames(containers []types.ContainerInfo) []string {
	names := make([]string, 0, len(containers))
	for _, info := range containers {
		names = append(names, info.Name)
	}

	return names
}
