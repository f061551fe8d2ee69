// Package api provides the HTTP server behind dockupdate's API endpoints.
// Every registered endpoint requires the configured token as a bearer token.
//
// Usage example:
//
//	server := api.New("secure-token", ":8080")
//	server.RegisterFunc("/v1/update", updateHandler.Handle)
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
package api
