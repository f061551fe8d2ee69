// Package sorter orders the containers of an update group by their dependencies in dockupdate.
// It walks the dependency graph depth first with an explicit stack, so dependencies come
// before their dependents and cycles are reported and broken instead of aborting the run.
//
// Key components:
//   - StopOrder: Dependency-first order of the containers, plus any cycles found.
//   - StartOrder: The reverse of a stop order.
//   - CircularReferenceError: A cycle, with the path that closes it.
//
// Usage example:
//
//	stopOrder, cycles := sorter.StopOrder(containers)
//	for _, cycle := range cycles {
//	    logrus.WithError(cycle).Warn("Ignoring dependency cycle")
//	}
//	startOrder := sorter.StartOrder(stopOrder)
package sorter
