// Package recognize extracts marketplace product references from free-form
// chat text. Extraction is syntactic only; it never verifies that the
// product exists.
package recognize

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/bargainbliss/linkbot/internal/core"
)

// ErrNotRecognized reports that the text contains no recognizable
// marketplace product URL.
var ErrNotRecognized = errors.New("no recognizable product url")

const (
	marketplaceDomain = "aliexpress.com"
	canonicalHost     = "www.aliexpress.com"
	maxURLLength      = 500
)

var (
	urlTokenRe  = regexp.MustCompile(`https?://\S+`)
	itemIDRe    = regexp.MustCompile(`/item/(\d+)`)
	productRe   = regexp.MustCompile(`/(?:item|product|wholesale)/`)
	shortenedRe = regexp.MustCompile(`^/(?:e/_|s/|deeplink|_[a-zA-Z0-9]+)`)

	// Invisible characters users paste along with mobile-app share links.
	invisibleRe = regexp.MustCompile("[​-‍\uFEFF  ⁠-⁤  ᠎ -  ]")
)

// Extract scans text for the first marketplace product URL and returns its
// normalized reference. Surrounding prose is tolerated; tracking query
// parameters are stripped; the host is canonicalized so downstream callers
// see a stable identifier regardless of which subdomain was pasted.
func Extract(text string) (core.ProductReference, error) {
	for _, token := range urlTokenRe.FindAllString(text, -1) {
		candidate := cleanCandidate(token)
		if candidate == "" {
			continue
		}

		ref, ok := parseCandidate(candidate)
		if ok {
			return ref, nil
		}
	}

	return core.ProductReference{}, ErrNotRecognized
}

// cleanCandidate strips invisible characters and trailing punctuation, then
// rejects candidates that cannot be a usable URL.
func cleanCandidate(token string) string {
	cleaned := invisibleRe.ReplaceAllString(strings.TrimSpace(token), "")
	cleaned = strings.TrimRight(cleaned, ".,;:!?)]}'\"")

	if len(cleaned) > maxURLLength {
		return ""
	}
	// Double-encoded URLs break the affiliate gateway.
	if strings.Contains(cleaned, "%25") || strings.Contains(cleaned, "%%") {
		return ""
	}
	for _, r := range cleaned {
		if r < 0x20 || r > 0x7E {
			return ""
		}
	}
	return cleaned
}

func parseCandidate(candidate string) (core.ProductReference, bool) {
	parsed, err := url.Parse(candidate)
	if err != nil {
		return core.ProductReference{}, false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return core.ProductReference{}, false
	}

	host := strings.ToLower(parsed.Hostname())
	if host != marketplaceDomain && !strings.HasSuffix(host, "."+marketplaceDomain) {
		return core.ProductReference{}, false
	}

	if m := itemIDRe.FindStringSubmatch(parsed.Path); m != nil {
		id := m[1]
		return core.ProductReference{
			RawURL:       candidate,
			ID:           id,
			CanonicalURL: "https://" + canonicalHost + "/item/" + id + ".html",
		}, true
	}

	if shortenedRe.MatchString(parsed.Path) {
		short := *parsed
		short.RawQuery = ""
		short.Fragment = ""
		return core.ProductReference{
			RawURL:       candidate,
			ID:           strings.Trim(parsed.Path, "/"),
			CanonicalURL: short.String(),
			Shortened:    true,
		}, true
	}

	// A /product/ or /wholesale/ path without a numeric item segment has no
	// stable identifier the affiliate API accepts.
	if productRe.MatchString(parsed.Path) {
		return core.ProductReference{}, false
	}

	return core.ProductReference{}, false
}
