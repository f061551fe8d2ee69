package sorter

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/internal/util"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Visit states of a container during traversal.
const (
	unvisited = iota
	visiting
	visited
)

// frame is a container on the traversal stack and the index of its next dependency.
type frame struct {
	node int
	next int
}

// StopOrder sorts containers so every container follows the in-scope containers it depends on.
//
// Dependencies naming containers outside the slice are ignored. Containers without a
// dependency relation keep their input order. An edge that would close a cycle is ignored
// and reported; the traversal never revisits a container.
//
// Parameters:
//   - containers: Containers of one update group.
//
// Returns:
//   - []types.ContainerInfo: Every input container, dependencies first.
//   - []CircularReferenceError: One entry per ignored cycle edge.
func StopOrder(containers []types.ContainerInfo) ([]types.ContainerInfo, []CircularReferenceError) {
	index := make(map[string]int, len(containers))

	for i, container := range containers {
		name := util.NormalizeContainerName(container.Name)
		if first, ok := index[name]; ok {
			logrus.WithFields(logrus.Fields{
				"container": name,
				"first_id":  containers[first].ID.ShortID(),
				"other_id":  container.ID.ShortID(),
			}).Warn("Duplicate container name, dependencies resolve to the first container")

			continue
		}

		index[name] = i
	}

	state := make([]int, len(containers))
	order := make([]types.ContainerInfo, 0, len(containers))

	var cycles []CircularReferenceError

	for root := range containers {
		if state[root] != unvisited {
			continue
		}

		state[root] = visiting
		stack := []frame{{node: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := containers[top.node].Dependencies

			if top.next == len(deps) {
				state[top.node] = visited
				order = append(order, containers[top.node])
				stack = stack[:len(stack)-1]

				continue
			}

			dep, ok := index[util.NormalizeContainerName(deps[top.next])]
			top.next++

			if !ok {
				continue
			}

			switch state[dep] {
			case unvisited:
				state[dep] = visiting
				stack = append(stack, frame{node: dep})
			case visiting:
				cycle := cycleError(containers, stack, dep)
				logrus.WithError(cycle).Warn("Ignoring circular container dependency")

				cycles = append(cycles, cycle)
			}
		}
	}

	logrus.WithField("order", names(order)).Debug("Computed stop order")

	return order, cycles
}

// StartOrder returns the reverse of a stop order.
func StartOrder(stopOrder []types.ContainerInfo) []types.ContainerInfo {
	order := slices.Clone(stopOrder)
	slices.Reverse(order)

	return order
}

// cycleError describes the cycle formed by the stack from dep up to the top plus the edge back to dep.
func cycleError(containers []types.ContainerInfo, stack []frame, dep int) CircularReferenceError {
	start := slices.IndexFunc(stack, func(f frame) bool { return f.node == dep })
	path := make([]string, 0, len(stack)-start+1)

	for _, f := range stack[start:] {
		path = append(path, containers[f.node].Name)
	}

	return CircularReferenceError{
		ContainerName: containers[stack[len(stack)-1].node].Name,
		CyclePath:     append(path, containers[dep].Name),
	}
}

func names(containers []types.ContainerInfo) []string {
	result := make([]string, len(containers))
	for i, container := range containers {
		result[i] = container.Name
	}

	return result
}
