package session

import (
	"cmp"
	"slices"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// report is the categorized, read-only view of a finished run.
type report struct {
	scanned    []types.ImageReport
	fresh      []types.ImageReport
	stale      []types.ImageReport
	updated    []types.ImageReport
	failed     []types.ImageReport
	skipped    []types.ImageReport
	containers []types.ContainerReport
	dryRun     bool
}

// NewReport builds a report from progress.
//
// Images are sorted by name then ID. Containers keep the order in which they were processed.
//
// Parameters:
//   - progress: Run record to categorize.
//
// Returns:
//   - types.Report: Categorized report.
func NewReport(progress *Progress) types.Report {
	rep := &report{
		scanned:    make([]types.ImageReport, 0, len(progress.order)),
		fresh:      make([]types.ImageReport, 0),
		stale:      make([]types.ImageReport, 0),
		updated:    make([]types.ImageReport, 0),
		failed:     make([]types.ImageReport, 0),
		skipped:    make([]types.ImageReport, 0),
		containers: make([]types.ContainerReport, 0, len(progress.containers)),
		dryRun:     progress.dryRun,
	}

	statuses := make([]*ImageStatus, 0, len(progress.order))
	for _, id := range progress.order {
		statuses = append(statuses, progress.images[id])
	}

	slices.SortStableFunc(statuses, func(a, b *ImageStatus) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.imageID, b.imageID))
	})

	for _, status := range statuses {
		if progress.scanned[status.imageID] {
			rep.scanned = append(rep.scanned, status)
		}

		categorizeImage(rep, status)
	}

	for _, status := range progress.containers {
		rep.containers = append(rep.containers, status)
	}

	return rep
}

// categorizeImage assigns a status to its report category.
func categorizeImage(rep *report, status *ImageStatus) {
	switch status.state {
	case FreshState:
		rep.fresh = append(rep.fresh, status)
	case StaleState:
		rep.stale = append(rep.stale, status)
	case UpdatedState:
		rep.updated = append(rep.updated, status)
	case FailedState:
		rep.failed = append(rep.failed, status)
	case SkippedState:
		rep.skipped = append(rep.skipped, status)
	case UnknownState, ScannedState:
		// Checks that never concluded are only counted as scanned.
	}
}

// Scanned returns images that were checked against their registry.
func (r *report) Scanned() []types.ImageReport { return r.scanned }

// Fresh returns images already up to date.
func (r *report) Fresh() []types.ImageReport { return r.fresh }

// Stale returns images with an update available that were not updated.
func (r *report) Stale() []types.ImageReport { return r.stale }

// Updated returns images swapped successfully.
func (r *report) Updated() []types.ImageReport { return r.updated }

// Failed returns images whose check or swap failed.
func (r *report) Failed() []types.ImageReport { return r.failed }

// Skipped returns images skipped by filters, labels or the operator.
func (r *report) Skipped() []types.ImageReport { return r.skipped }

// Containers returns per-container outcomes.
func (r *report) Containers() []types.ContainerReport { return r.containers }

// DryRun reports whether mutating steps were skipped.
func (r *report) DryRun() bool { return r.dryRun }
