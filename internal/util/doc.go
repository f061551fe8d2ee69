// Package util holds small helpers shared by dockupdate packages: container name
// normalization and human-readable durations for log messages.
package util
