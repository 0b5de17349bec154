package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"github.com/ternarybob/arbor"
)

// maxRobotsBody caps how much of a robots.txt response is read.
const maxRobotsBody = 512 * 1024

// RobotsCache answers per-origin robots.txt permission checks. The first
// query for an origin fetches its robots.txt exactly once; every failure
// mode degrades to "allow all" so robots handling never blocks a crawl.
type RobotsCache struct {
	client *http.Client
	logger arbor.ILogger

	mu      sync.Mutex
	entries map[string]*robotsEntry
}

// robotsEntry holds the parsed rules for one origin. A nil data after fetch
// means allow-all.
type robotsEntry struct {
	once sync.Once
	data *robotstxt.RobotsData
}

// NewRobotsCache creates a cache with its own short-timeout HTTP client.
func NewRobotsCache(timeout time.Duration, logger arbor.ILogger) *RobotsCache {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RobotsCache{
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		entries: make(map[string]*robotsEntry),
	}
}

// IsAllowed reports whether the user agent may fetch the URL. Unknown
// origins trigger a robots.txt fetch; a URL that cannot be parsed is
// allowed, leaving its failure to the fetcher where it will be classified.
func (c *RobotsCache) IsAllowed(ctx context.Context, rawURL, userAgent string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return true
	}
	origin := strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host)

	c.mu.Lock()
	entry, ok := c.entries[origin]
	if !ok {
		entry = &robotsEntry{}
		c.entries[origin] = entry
	}
	c.mu.Unlock()

	entry.once.Do(func() {
		entry.data = c.fetch(ctx, origin)
	})

	if entry.data == nil {
		return true
	}

	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return entry.data.TestAgent(path, userAgent)
}

// fetch retrieves and parses robots.txt for an origin. Any failure returns
// nil, which the cache treats as allow-all.
func (c *RobotsCache) fetch(ctx context.Context, origin string) *robotstxt.RobotsData {
	robotsURL := origin + "/robots.txt"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt fetch failed, allowing all")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Debug().Int("status", resp.StatusCode).Str("origin", origin).Msg("robots.txt not available, allowing all")
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBody))
	if err != nil {
		c.logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt read failed, allowing all")
		return nil
	}

	// Servers commonly answer /robots.txt with an HTML 404 page and a 200
	// status. Only bodies that actually look like robots rules are parsed.
	if !looksLikeRobots(resp.Header.Get("Content-Type"), body) {
		c.logger.Debug().Str("origin", origin).Msg("robots.txt response does not look like robots rules, allowing all")
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		c.logger.Debug().Err(err).Str("origin", origin).Msg("robots.txt parse failed, allowing all")
		return nil
	}

	c.logger.Debug().Str("origin", origin).Msg("robots.txt loaded")
	return data
}

// looksLikeRobots decides whether a 200 response body is a robots file: a
// text/plain content type, or a body whose first non-comment line starts
// with a user-agent directive.
func looksLikeRobots(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/plain") {
		return true
	}
	for _, line := range strings.Split(strings.ToLower(string(body)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "user-agent:")
	}
	return false
}
