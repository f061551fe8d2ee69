// Package types defines the core data model and collaborator interfaces for dockupdate.
//
// Key components:
//   - CheckImage / UpdateImage: Per-run image rows produced by the scan and check phases.
//   - ContainerInfo / ContainerSpec: Captured container state and its reconstructable creation spec.
//   - ContainerUpdateGroup: All containers sharing one image slated for update.
//   - Engine: The container engine operations the orchestrator drives.
//   - Report: Read-only view of a finished run, consumed by notifications and metrics.
//
// Usage example:
//
//	group := types.ContainerUpdateGroup{Image: update, Containers: infos}
//	spec := group.Containers[0].Spec.WithImage(update.Reference())
//
// Every value here is built fresh for a single run and never persisted.
package types
