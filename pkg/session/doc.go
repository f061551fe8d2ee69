// Package session tracks the progress of a single dockupdate run.
// It records what happened to every image and container along the way and
// freezes that record into a read-only report at the end of the run.
//
// Key components:
//   - ImageStatus: Outcome of one image (Scanned, Fresh, Stale, Skipped, Failed, Updated).
//   - ContainerStatus: Outcome of one container (Updated, Failed, Removed).
//   - Progress: Mutable run record filled in by the orchestrator.
//   - Report: Sorted, categorized view implementing types.Report.
//
// Usage example:
//
//	progress := session.NewProgress(params.DryRun)
//	progress.AddScanned(image)
//	progress.MarkStale(image.ID, "1.26")
//	report := progress.Report()
//	logrus.WithField("stale", len(report.Stale())).Info("Run finished")
package session
