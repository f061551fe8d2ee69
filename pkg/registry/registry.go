package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/internal/meta"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/auth"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/digest"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/manifest"
	"github.com/nicholas-fedor/dockupdate/pkg/registry/tags"
	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// Errors for registry client operations.
var (
	// ErrManifestNotFound indicates neither manifest probe reported a digest.
	ErrManifestNotFound = errors.New("manifest not found")
	// errFailedCreateRequest indicates a failure to construct an HTTP request.
	errFailedCreateRequest = errors.New("failed to create request")
	// errFailedExecuteRequest indicates a failure to execute an HTTP request to the registry.
	errFailedExecuteRequest = errors.New("failed to execute request")
)

// ManifestNotFoundError reports a tag whose manifest could not be resolved.
type ManifestNotFoundError struct {
	Registry   string
	Repository string
	Tag        string
}

// Error implements the error interface.
func (e ManifestNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s/%s:%s", ErrManifestNotFound, e.Registry, e.Repository, e.Tag)
}

// Unwrap returns the underlying error for errors.Is compatibility.
func (e ManifestNotFoundError) Unwrap() error {
	return ErrManifestNotFound
}

// Client speaks the registry HTTP API v2.
//
// Tokens obtained through a bearer challenge are cached per registry and
// repository for the lifetime of the client.
type Client struct {
	httpClient  *http.Client
	tokens      *auth.TokenCache
	credentials types.CredentialSource
	insecure    []string
	userAgent   string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for registry and token requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithTokenCache sets the token cache shared by the client's requests.
func WithTokenCache(cache *auth.TokenCache) Option {
	return func(c *Client) { c.tokens = cache }
}

// WithCredentials sets the source of registry credentials used for token requests.
func WithCredentials(source types.CredentialSource) Option {
	return func(c *Client) { c.credentials = source }
}

// WithInsecureRegistries lists registry hosts reached over plain HTTP.
func WithInsecureRegistries(hosts ...string) Option {
	return func(c *Client) { c.insecure = append(c.insecure, hosts...) }
}

// WithUserAgent overrides the User-Agent header value.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) { c.userAgent = userAgent }
}

// NewClient creates a registry client.
//
// Parameters:
//   - opts: Options overriding the defaults (default HTTP client, fresh token cache, no credentials).
//
// Returns:
//   - *Client: Configured client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: http.DefaultClient,
		userAgent:  meta.UserAgent,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.tokens == nil {
		client.tokens = auth.NewTokenCache()
	}

	return client
}

// ResolveDigests returns the union of the manifest and manifest-list digests of a tag.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - registry: Registry host.
//   - repository: Repository path.
//   - tag: Tag to resolve.
//
// Returns:
//   - []string: Remote digests, never empty on success.
//   - error: ManifestNotFoundError if neither probe reported a digest, or a transport/auth error.
func (c *Client) ResolveDigests(ctx context.Context, registry, repository, tag string) ([]string, error) {
	manifestURL := manifest.BuildManifestURL(registry, repository, tag, c.scheme(registry))

	digests, err := digest.Resolve(ctx, c.requestFunc(registry, repository), manifestURL)
	if err != nil {
		return nil, err
	}

	if len(digests) == 0 {
		return nil, ManifestNotFoundError{Registry: registry, Repository: repository, Tag: tag}
	}

	return digests, nil
}

// ListTags returns every tag of a repository in server order.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - registry: Registry host.
//   - repository: Repository path.
//
// Returns:
//   - []string: Tags, pages appended in the order received.
//   - error: Non-nil if any page fails.
func (c *Client) ListTags(ctx context.Context, registry, repository string) ([]string, error) {
	tagsURL := manifest.BuildTagsURL(registry, repository, c.scheme(registry), tags.PageSize)

	return tags.List(ctx, c.requestFunc(registry, repository), tagsURL)
}

// scheme returns the URL scheme used for a registry host.
func (c *Client) scheme(registry string) string {
	if slices.Contains(c.insecure, registry) {
		return manifest.SchemeHTTP
	}

	return manifest.SchemeHTTPS
}

// requestFunc binds authenticated requests to a registry and repository.
func (c *Client) requestFunc(registry, repository string) helpers.RequestFunc {
	return func(ctx context.Context, method, rawURL string, header http.Header) (*http.Response, error) {
		return c.do(ctx, registry, repository, method, rawURL, header)
	}
}

// do sends a request, answering a bearer challenge once if the registry demands it.
//
// The request is first sent with the cached token of the repository, if any. On a 401
// the challenge is parsed, a token is fetched from its realm, cached and the request
// retried. A second 401 is an AuthenticationError.
func (c *Client) do(
	ctx context.Context,
	registry, repository, method, rawURL string,
	header http.Header,
) (*http.Response, error) {
	clog := logrus.WithFields(logrus.Fields{
		"registry":   registry,
		"repository": repository,
		"method":     method,
	})

	token, cached := c.tokens.Get(registry, repository)

	res, err := c.send(ctx, method, rawURL, header, token)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized {
		return res, nil
	}

	challengeHeader := res.Header.Get(auth.ChallengeHeader)
	res.Body.Close()

	clog.WithFields(logrus.Fields{
		"cached_token": cached,
		"challenge":    challengeHeader,
	}).Debug("Registry requested authentication")

	challenge, err := auth.ParseChallenge(challengeHeader)
	if err != nil {
		if errors.Is(err, auth.ErrUnsupportedAuthScheme) {
			return nil, err
		}

		return nil, auth.AuthenticationError{Registry: registry, Repository: repository, Err: err}
	}

	var credentials *types.RegistryCredentials
	if c.credentials != nil {
		credentials = c.credentials.GetCredentials(registry)
	}

	token, err = auth.FetchToken(ctx, c.httpClient, challenge, credentials, c.userAgent)
	if err != nil {
		return nil, auth.AuthenticationError{Registry: registry, Repository: repository, Err: err}
	}

	c.tokens.Set(registry, repository, token)
	clog.Debug("Cached registry token")

	res, err = c.send(ctx, method, rawURL, header, token)
	if err != nil {
		return nil, err
	}

	if res.StatusCode == http.StatusUnauthorized {
		res.Body.Close()

		return nil, auth.AuthenticationError{Registry: registry, Repository: repository}
	}

	return res, nil
}

// send issues one request with an optional bearer token.
func (c *Client) send(
	ctx context.Context,
	method, rawURL string,
	header http.Header,
	token string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedCreateRequest, err)
	}

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	req.Header.Set("User-Agent", c.userAgent)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedExecuteRequest, err)
	}

	return res, nil
}
