package auth

// TokenCache holds bearer tokens keyed by registry and repository.
//
// A cache is created per run and handed to the registry client; it is not safe
// for concurrent use.
type TokenCache struct {
	tokens map[string]string
}

// NewTokenCache returns an empty token cache.
func NewTokenCache() *TokenCache {
	return &TokenCache{tokens: make(map[string]string)}
}

// CacheKey returns the cache key of a registry and repository pair.
func CacheKey(registry, repository string) string {
	return registry + "/" + repository
}

// Get returns the cached token of a repository, if any.
func (c *TokenCache) Get(registry, repository string) (string, bool) {
	token, ok := c.tokens[CacheKey(registry, repository)]

	return token, ok
}

// Set stores the token of a repository.
func (c *TokenCache) Set(registry, repository, token string) {
	c.tokens[CacheKey(registry, repository)] = token
}

// Len returns the number of cached tokens.
func (c *TokenCache) Len() int {
	return len(c.tokens)
}
