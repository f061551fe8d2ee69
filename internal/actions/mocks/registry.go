package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// MockRegistry is a testify mock of types.RegistryClient.
type MockRegistry struct {
	mock.Mock
}

// ResolveDigests returns the digests configured with On("ResolveDigests", ...).
func (m *MockRegistry) ResolveDigests(ctx context.Context, registry, repository, tag string) ([]string, error) {
	args := m.Called(ctx, registry, repository, tag)

	digests, _ := args.Get(0).([]string)

	return digests, args.Error(1)
}

// ListTags returns the tags configured with On("ListTags", ...).
func (m *MockRegistry) ListTags(ctx context.Context, registry, repository string) ([]string, error) {
	args := m.Called(ctx, registry, repository)

	tags, _ := args.Get(0).([]string)

	return tags, args.Error(1)
}

// StaticCredentials returns the same credentials for every registry.
type StaticCredentials struct {
	Credentials *types.RegistryCredentials
	Requested   []string
}

// GetCredentials records the registry and returns the configured credentials.
func (s *StaticCredentials) GetCredentials(registry string) *types.RegistryCredentials {
	s.Requested = append(s.Requested, registry)

	return s.Credentials
}

// ScriptedConfirmer answers prompts from a map keyed by prompt, defaulting to no.
type ScriptedConfirmer struct {
	Answers map[string]bool
	Prompts []string
}

// Confirm records the prompt and returns the scripted answer.
func (c *ScriptedConfirmer) Confirm(prompt string) bool {
	c.Prompts = append(c.Prompts, prompt)

	return c.Answers[prompt]
}
