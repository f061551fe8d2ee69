package session

import (
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Progress records image and container outcomes during a run.
//
// It is owned by a single run and is not safe for concurrent use.
type Progress struct {
	images     map[types.ImageID]*ImageStatus
	order      []types.ImageID
	scanned    map[types.ImageID]bool
	containers []*ContainerStatus
	dryRun     bool
}

// NewProgress creates an empty run record.
//
// Parameters:
//   - dryRun: Whether the run skips mutating engine calls.
//
// Returns:
//   - *Progress: Empty progress.
func NewProgress(dryRun bool) *Progress {
	return &Progress{
		images:  make(map[types.ImageID]*ImageStatus),
		scanned: make(map[types.ImageID]bool),
		dryRun:  dryRun,
	}
}

// AddScanned records an image that passed the filters and is about to be checked.
func (p *Progress) AddScanned(image types.CheckImage) {
	p.add(image, ScannedState, nil)
	p.scanned[image.ID] = true
}

// AddSkipped records an image excluded before its check.
//
// Parameters:
//   - image: Image being skipped.
//   - reason: Why it was skipped.
func (p *Progress) AddSkipped(image types.CheckImage, reason error) {
	p.add(image, SkippedState, reason)
}

// MarkFresh records that an image matches its registry.
func (p *Progress) MarkFresh(id types.ImageID) {
	p.set(id, FreshState, nil)
}

// MarkStale records that an update to targetTag is available.
func (p *Progress) MarkStale(id types.ImageID, targetTag string) {
	if status, ok := p.images[id]; ok {
		status.targetTag = targetTag
	}

	p.set(id, StaleState, nil)
}

// MarkSkipped records that a scanned image will not be updated.
func (p *Progress) MarkSkipped(id types.ImageID, reason error) {
	p.set(id, SkippedState, reason)
}

// MarkFailed records an image whose check or swap failed.
func (p *Progress) MarkFailed(id types.ImageID, err error) {
	p.set(id, FailedState, err)
}

// MarkUpdated records an image whose swap succeeded.
func (p *Progress) MarkUpdated(id types.ImageID) {
	p.set(id, UpdatedState, nil)
}

// AddContainer records the outcome of one container in an update group.
//
// Parameters:
//   - info: Container as discovered.
//   - imageRef: Target image reference.
//   - newID: ID of the recreated container, empty if none.
//   - state: Outcome.
//   - err: Error encountered, if any.
func (p *Progress) AddContainer(
	info types.ContainerInfo,
	imageRef string,
	newID types.ContainerID,
	state ContainerState,
	err error,
) {
	p.containers = append(p.containers, &ContainerStatus{
		containerID:    info.ID,
		newContainerID: newID,
		containerName:  info.Name,
		imageName:      imageRef,
		containerError: err,
		state:          state,
	})

	logrus.WithFields(logrus.Fields{
		"container": info.Name,
		"state":     state.String(),
	}).Debug("Recorded container outcome")
}

// Report freezes the progress into a report.
//
// Returns:
//   - types.Report: Categorized view of the run.
func (p *Progress) Report() types.Report {
	logrus.WithFields(logrus.Fields{
		"images":     len(p.order),
		"containers": len(p.containers),
	}).Debug("Generating report")

	return NewReport(p)
}

func (p *Progress) add(image types.CheckImage, state ImageState, err error) {
	if _, exists := p.images[image.ID]; !exists {
		p.order = append(p.order, image.ID)
	}

	p.images[image.ID] = &ImageStatus{
		imageID:    image.ID,
		name:       image.Name,
		currentTag: image.OriginalTag,
		imageError: err,
		state:      state,
	}

	logrus.WithFields(logrus.Fields{
		"image": image.Name + ":" + image.OriginalTag,
		"state": state.String(),
	}).Debug("Added image status")
}

func (p *Progress) set(id types.ImageID, state ImageState, err error) {
	status, exists := p.images[id]
	if !exists {
		logrus.WithField("image_id", id.ShortID()).
			Debug("Image not found in progress, cannot change its state")

		return
	}

	status.state = state
	if err != nil {
		status.imageError = err
	}
}
