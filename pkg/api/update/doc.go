// Package update provides the HTTP handler triggering dockupdate runs.
//
// Usage example:
//
//	handler := update.New(runFn, lock)
//	server.RegisterFunc(handler.Path, handler.Handle)
package update
