package types

import "context"

// RegistryClient defines the registry operations used by the update check.
type RegistryClient interface {
	// ResolveDigests returns the union of manifest and manifest-list digests of a tag.
	ResolveDigests(ctx context.Context, registry, repository, tag string) ([]string, error)
	// ListTags returns every tag of a repository in server order.
	ListTags(ctx context.Context, registry, repository string) ([]string, error)
}

// CredentialSource resolves registry credentials.
//
// Implementations never fail: a nil result means no credentials are known.
type CredentialSource interface {
	GetCredentials(registry string) *RegistryCredentials
}
