package common

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin returns the (scheme, host, port) triple of a URL in canonical
// "scheme://host[:port]" form. Origins are the unit of rate limiting and
// robots caching.
func Origin(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL missing scheme or host: %s", rawURL)
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), nil
}

// NormalizeURL canonicalizes a URL for visited-set membership: lowercase
// scheme and host, fragment stripped, default ports removed, trailing slash
// on a bare root preserved.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", parsed.Scheme)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	// Drop default ports so http://h:80/x and http://h/x collapse
	host := parsed.Hostname()
	port := parsed.Port()
	if (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443") {
		parsed.Host = host
	}

	return parsed.String(), nil
}

// SameHost reports whether two URLs share a host (case-insensitive,
// ignoring default ports). Used to categorize discovered links as internal
// or external relative to a project's seed.
func SameHost(a, b string) bool {
	pa, err := url.Parse(a)
	if err != nil {
		return false
	}
	pb, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(pa.Hostname(), pb.Hostname())
}
