// Package container implements the container engine interface of dockupdate on the Docker API.
// It lists images and containers, captures the creation spec of a container so it can be
// recreated against a new image, and performs the stop, kill, remove, pull, create and start
// steps of an update.
//
// Key components:
//   - Client: types.Engine implementation wrapping the Docker API client.
//   - Labels: Accessors for the enable, monitor-only, no-pull and depends-on labels.
//   - Dependencies: Compose and custom dependency names of a container.
//
// Usage example:
//
//	engine, err := container.NewClient(container.ClientOptions{Host: "unix:///var/run/docker.sock"})
//	if err != nil {
//	    logrus.WithError(err).Fatal("Failed to create engine client")
//	}
//	images, err := engine.ListImages(ctx)
//
// The package uses logrus for logging engine operations and errors.
package container
