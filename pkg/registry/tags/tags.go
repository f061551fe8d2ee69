// Package tags lists repository tags from a registry in dockupdate.
// It requests pages of the tags/list endpoint and follows Link headers whose
// relation is "next" until the registry stops announcing another page.
package tags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockupdate/pkg/registry/helpers"
)

// PageSize is the number of tags requested per page.
const PageSize = 100

// maxPages bounds pagination against registries that keep announcing the same page.
const maxPages = 10000

// Errors for tag listing operations.
var (
	// errListTagsFailed indicates the registry answered a page request with a non-2xx status.
	errListTagsFailed = errors.New("failed to list tags")
	// errDecodeTagsFailed indicates a page body is not a valid tag list.
	errDecodeTagsFailed = errors.New("failed to decode tag list")
	// errTooManyPages indicates pagination did not terminate.
	errTooManyPages = errors.New("tag listing exceeded page limit")
)

// tagList is the JSON body of a tags/list page.
type tagList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// List fetches every tag of a repository starting at firstURL.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - do: Authenticated request function of the registry client.
//   - firstURL: URL of the first page, including the page size.
//
// Returns:
//   - []string: Tags in server order, pages appended as received.
//   - error: Non-nil if any page request or decode fails.
func List(ctx context.Context, do helpers.RequestFunc, firstURL string) ([]string, error) {
	tags := make([]string, 0, PageSize)
	pageURL := firstURL

	for page := 0; pageURL != ""; page++ {
		if page >= maxPages {
			return nil, fmt.Errorf("%w: %d", errTooManyPages, maxPages)
		}

		pageTags, next, err := fetchPage(ctx, do, pageURL)
		if err != nil {
			return nil, err
		}

		tags = append(tags, pageTags...)

		logrus.WithFields(logrus.Fields{
			"url":   pageURL,
			"count": len(pageTags),
			"next":  next,
		}).Debug("Fetched tag page")

		pageURL = next
	}

	return tags, nil
}

// fetchPage requests one page and returns its tags and the absolute URL of the next page.
func fetchPage(ctx context.Context, do helpers.RequestFunc, pageURL string) ([]string, string, error) {
	header := http.Header{}
	header.Set("Accept", "application/json")

	res, err := do(ctx, http.MethodGet, pageURL, header)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, "", fmt.Errorf("%w: %s", errListTagsFailed, res.Status)
	}

	var list tagList
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		return nil, "", fmt.Errorf("%w: %w", errDecodeTagsFailed, err)
	}

	next := ""
	if link, ok := NextLink(res.Header.Values("Link")); ok {
		next = resolve(pageURL, link)
	}

	return list.Tags, next, nil
}

// NextLink finds the target of the "next" relation among Link header values.
//
// Each value may hold several comma-separated links of the form `<url>; rel="next"`.
//
// Parameters:
//   - values: Raw Link header values.
//
// Returns:
//   - string: Link target as written by the registry, possibly relative.
//   - bool: True if a next relation was found.
func NextLink(values []string) (string, bool) {
	for _, value := range values {
		for _, link := range splitLinks(value) {
			target, params, ok := parseLink(link)
			if !ok {
				continue
			}

			for _, rel := range strings.Fields(params["rel"]) {
				if strings.EqualFold(rel, "next") {
					return target, true
				}
			}
		}
	}

	return "", false
}

// splitLinks splits a Link header value on commas outside angle brackets and quotes.
func splitLinks(value string) []string {
	var (
		links   []string
		start   int
		inURL   bool
		inQuote bool
	)

	for i, r := range value {
		switch {
		case r == '<' && !inQuote:
			inURL = true
		case r == '>' && !inQuote:
			inURL = false
		case r == '"' && !inURL:
			inQuote = !inQuote
		case r == ',' && !inURL && !inQuote:
			links = append(links, value[start:i])
			start = i + 1
		}
	}

	return append(links, value[start:])
}

// parseLink reads one `<url>; key="value"` link into its target and parameters.
func parseLink(link string) (string, map[string]string, bool) {
	link = strings.TrimSpace(link)
	if !strings.HasPrefix(link, "<") {
		return "", nil, false
	}

	target, rest, found := strings.Cut(link[1:], ">")
	if !found {
		return "", nil, false
	}

	params := make(map[string]string)

	for _, param := range strings.Split(rest, ";") {
		key, value, found := strings.Cut(strings.TrimSpace(param), "=")
		if !found {
			continue
		}

		params[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
	}

	return strings.TrimSpace(target), params, true
}

// resolve turns a possibly relative link into an absolute URL against the page it came from.
func resolve(pageURL, link string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return link
	}

	ref, err := url.Parse(link)
	if err != nil {
		return link
	}

	return base.ResolveReference(ref).String()
}
