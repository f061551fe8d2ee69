package sorter

import (
	"errors"
	"strings"
)

// ErrCircularReference indicates a circular dependency between containers.
var ErrCircularReference = errors.New("circular reference detected")

// CircularReferenceError represents a circular dependency with the container closing the cycle and the cycle path.
type CircularReferenceError struct {
	ContainerName string
	CyclePath     []string
}

// Error implements the error interface.
func (e CircularReferenceError) Error() string {
	if len(e.CyclePath) > 0 {
		return ErrCircularReference.Error() + ": " + strings.Join(e.CyclePath, " -> ")
	}

	return ErrCircularReference.Error() + ": " + e.ContainerName
}

// Unwrap returns the underlying error for errors.Is compatibility.
func (e CircularReferenceError) Unwrap() error {
	return ErrCircularReference
}
