// Package actions provides the update orchestration of dockupdate.
// It checks every local image against its registry and replaces the containers of
// outdated images in dependency order.
//
// Key components:
//   - Scan: Derives checkable image rows from the engine's image list.
//   - Orchestrator: Drives a run through Scan, Check, Select and Update.
//   - Confirmer: Asks the operator before each image is updated in interactive mode.
//   - RunUpdatesWithNotifications: Runs once, logs the summary and sends notifications.
//
// Usage example:
//
//	orchestrator := &actions.Orchestrator{
//	    Engine:      client,
//	    Registry:    registry.NewClient(registry.WithCredentials(resolver)),
//	    Credentials: resolver,
//	    Params:      params,
//	}
//	report, err := orchestrator.Run(ctx)
//	if errors.Is(err, actions.ErrEngineUnreachable) {
//	    os.Exit(2)
//	}
//
// Failures are isolated to the narrowest unit that keeps unrelated work going: one
// image during the check, one container during teardown and recreation, one group
// during the image swap. Only an unreachable engine ends a run early.
package actions
