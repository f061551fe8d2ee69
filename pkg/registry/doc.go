// Package registry provides a client for the container registry HTTP API v2 in dockupdate.
// It resolves tag digests and lists repository tags, answering bearer challenges with
// per-repository cached tokens.
//
// Key components:
//   - auth: Challenge parsing, token retrieval and the per-run token cache.
//   - credentials: Resolution of locally stored registry credentials and credential helpers.
//   - digest: HEAD probes for manifest and manifest-list digests.
//   - tags: Paginated tag listing following Link headers.
//   - helpers: Registry address parsing and digest normalization.
//   - manifest: Construction of manifest and tag list URLs.
//
// Usage example:
//
//	client := registry.NewClient(registry.WithCredentials(credentials.NewResolver()))
//	digests, err := client.ResolveDigests(ctx, "index.docker.io", "library/nginx", "1.25")
//	if err != nil {
//	    logrus.WithError(err).Warn("Failed to resolve digests")
//	}
//
// The client is created per run so cached tokens never outlive the run that fetched them.
package registry
