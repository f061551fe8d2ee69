// Package auth provides functionality for authenticating with container registries.
// It parses bearer challenges, fetches tokens from the challenge realm and caches
// them per repository for the duration of a run.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/types"
)

// ChallengeHeader is the HTTP Header containing challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// bearerScheme is the only challenge scheme dockupdate answers.
const bearerScheme = "bearer"

// maxTokenResponseSize bounds the token response body read from a realm.
const maxTokenResponseSize = 1 << 20

// Sentinel errors for registry authentication failures.
var (
	// ErrAuthentication indicates the token exchange failed or a token was rejected.
	ErrAuthentication = errors.New("registry authentication failed")
	// ErrUnsupportedAuthScheme indicates a challenge other than bearer, or none at all.
	ErrUnsupportedAuthScheme = errors.New("unsupported registry auth scheme")
	// ErrMissingRealm indicates a bearer challenge without a realm parameter.
	ErrMissingRealm = errors.New("challenge header has no realm")
	// ErrMissingToken indicates the token response carried neither access_token nor token.
	ErrMissingToken = errors.New("token response has no token")
	// errInvalidRealm indicates the realm is not a usable URL.
	errInvalidRealm = errors.New("challenge realm is not a valid URL")
	// errTokenRequestFailed indicates the realm answered with a non-2xx status.
	errTokenRequestFailed = errors.New("token request failed")
)

// AuthenticationError reports a failed token exchange for a repository.
type AuthenticationError struct {
	Registry   string
	Repository string
	Err        error
}

// Error implements the error interface.
func (e AuthenticationError) Error() string {
	msg := fmt.Sprintf("%s for %s/%s", ErrAuthentication, e.Registry, e.Repository)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns both the sentinel and the cause for errors.Is compatibility.
func (e AuthenticationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthentication}
	}

	return []error{ErrAuthentication, e.Err}
}

// UnsupportedAuthSchemeError reports a challenge dockupdate cannot answer.
type UnsupportedAuthSchemeError struct {
	Scheme string
}

// Error implements the error interface.
func (e UnsupportedAuthSchemeError) Error() string {
	if e.Scheme == "" {
		return ErrUnsupportedAuthScheme.Error() + ": no challenge header"
	}

	return fmt.Sprintf("%s: %q", ErrUnsupportedAuthScheme, e.Scheme)
}

// Unwrap returns the underlying error for errors.Is compatibility.
func (e UnsupportedAuthSchemeError) Unwrap() error {
	return ErrUnsupportedAuthScheme
}

// Challenge is a parsed WWW-Authenticate header.
type Challenge struct {
	Scheme string            // Lowercased scheme token, e.g. "bearer".
	Params map[string]string // Parameters with lowercased keys and unquoted values.
}

// Realm returns the token issuance endpoint of the challenge.
func (c Challenge) Realm() string {
	return c.Params["realm"]
}

// ParseChallenge splits a WWW-Authenticate header into its scheme and parameters.
//
// Quoted values may contain commas and escaped quotes. Only the bearer scheme is
// accepted; anything else, including an empty header, is an UnsupportedAuthSchemeError.
//
// Parameters:
//   - header: Raw header value, e.g. `Bearer realm="https://auth.docker.io/token",service="registry.docker.io"`.
//
// Returns:
//   - Challenge: Parsed challenge.
//   - error: Non-nil for unsupported schemes or a missing realm.
func ParseChallenge(header string) (Challenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Challenge{}, UnsupportedAuthSchemeError{}
	}

	scheme, rest, _ := strings.Cut(header, " ")
	challenge := Challenge{
		Scheme: strings.ToLower(scheme),
		Params: parseParams(rest),
	}

	if challenge.Scheme != bearerScheme {
		return challenge, UnsupportedAuthSchemeError{Scheme: scheme}
	}

	if challenge.Realm() == "" {
		return challenge, ErrMissingRealm
	}

	logrus.WithFields(logrus.Fields{
		"realm":   challenge.Realm(),
		"service": challenge.Params["service"],
		"scope":   challenge.Params["scope"],
	}).Debug("Parsed registry challenge")

	return challenge, nil
}

// parseParams reads a comma-separated list of key=value pairs, honoring quoted values.
func parseParams(raw string) map[string]string {
	params := make(map[string]string)

	for raw = strings.TrimSpace(raw); raw != ""; {
		key, rest, found := strings.Cut(raw, "=")
		if !found {
			break
		}

		key = strings.ToLower(strings.TrimSpace(key))
		rest = strings.TrimLeft(rest, " ")

		var value string

		if strings.HasPrefix(rest, `"`) {
			value, rest = readQuoted(rest[1:])
		} else {
			value, rest, _ = strings.Cut(rest, ",")
			value = strings.TrimSpace(value)
		}

		if key != "" {
			params[key] = value
		}

		raw = strings.TrimLeft(strings.TrimSpace(rest), ",")
		raw = strings.TrimSpace(raw)
	}

	return params
}

// readQuoted consumes a quoted string whose opening quote was already read.
// It returns the unescaped value and the remainder after the closing quote.
func readQuoted(s string) (string, string) {
	var value strings.Builder

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if i+1 < len(s) {
				i++
				value.WriteByte(s[i])
			}
		case '"':
			return value.String(), s[i+1:]
		default:
			value.WriteByte(s[i])
		}
	}

	return value.String(), ""
}

// tokenResponse is the JSON body returned by a token realm.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Token       string `json:"token"`
}

// FetchToken requests a bearer token from the realm of a challenge.
//
// Every challenge parameter other than realm is forwarded as a query parameter.
// Credentials, when present, are sent as HTTP basic auth.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - client: HTTP client used for the request.
//   - challenge: Parsed bearer challenge.
//   - credentials: Optional registry credentials.
//   - userAgent: User-Agent header value.
//
// Returns:
//   - string: Bearer token, preferring access_token over token.
//   - error: Non-nil if the request fails or the response carries no token.
func FetchToken(
	ctx context.Context,
	client *http.Client,
	challenge Challenge,
	credentials *types.RegistryCredentials,
	userAgent string,
) (string, error) {
	authURL, err := url.Parse(challenge.Realm())
	if err != nil || authURL.Host == "" {
		return "", fmt.Errorf("%w: %q", errInvalidRealm, challenge.Realm())
	}

	query := authURL.Query()

	for key, value := range challenge.Params {
		if key == "realm" {
			continue
		}

		query.Set(key, value)
	}

	authURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidRealm, err)
	}

	req.Header.Set("User-Agent", userAgent)

	if !credentials.IsEmpty() {
		logrus.WithField("username", credentials.Username).Debug("Credentials found.")
		req.SetBasicAuth(credentials.Username, credentials.Password)
	} else {
		logrus.Debug("No credentials found.")
	}

	logrus.WithField("url", authURL.String()).Debug("Requesting registry token")

	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTokenRequestFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: %s", errTokenRequestFailed, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxTokenResponseSize))
	if err != nil {
		return "", fmt.Errorf("%w: %w", errTokenRequestFailed, err)
	}

	var response tokenResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingToken, err)
	}

	if response.AccessToken != "" {
		return response.AccessToken, nil
	}

	if response.Token != "" {
		return response.Token, nil
	}

	return "", ErrMissingToken
}
