package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/models"
)

// acceptHeader mirrors what a documentation browser would send; servers that
// negotiate content types should prefer HTML for us.
const acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// strippedSelectors are removed from the document before text extraction.
// Comment nodes never contribute to goquery's Text(), so they need no
// explicit handling.
const strippedSelectors = "script, style, meta, link, noscript"

// FetchResult carries the outcome of one HTTP GET. Exactly one of the two
// halves is meaningful: the content fields when ErrKind is empty, the error
// fields otherwise. StatusCode is set in both halves when a response was
// received.
type FetchResult struct {
	URL          string
	FinalURL     string // After redirects, when it differs from URL
	StatusCode   int
	ResponseTime time.Duration

	MIMEType  string
	Charset   string
	Title     string
	HTML      string
	Text      string
	Markdown  string // Best effort; empty when conversion fails
	Links     []string
	SizeBytes int64

	ErrKind models.ErrorKind
	Message string
}

// OK reports whether the fetch produced usable content.
func (r *FetchResult) OK() bool {
	return r.ErrKind == ""
}

// Fetcher performs single-page HTTP fetches and turns responses into
// extracted text, links and markdown. It never returns a Go error to
// callers; failures are classified into the error kinds the engine and
// reports understand.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	logger    arbor.ILogger
}

// NewFetcher creates a fetcher with its own HTTP client. The client follows
// redirects and enforces the session's request timeout.
func NewFetcher(userAgent string, timeout time.Duration, maxBody int64, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: userAgent,
		maxBody:   maxBody,
		logger:    logger,
	}
}

// Close releases the fetcher's idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}

// Fetch performs one GET and extracts content from an HTML response.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) *FetchResult {
	result := &FetchResult{URL: rawURL}
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		result.ErrKind = models.ErrorKindValidation
		result.Message = fmt.Sprintf("invalid URL: %v", err)
		return result
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ErrKind, result.Message = classifyTransportError(err)
		f.logger.Debug().
			Str("url", rawURL).
			Str("kind", string(result.ErrKind)).
			Err(err).
			Msg("Fetch failed")
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if final := resp.Request.URL.String(); final != rawURL {
		result.FinalURL = final
	}

	if resp.StatusCode >= 400 {
		result.ErrKind = statusErrorKind(resp.StatusCode)
		result.Message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return result
	}

	mimeType, charset := parseContentType(resp.Header.Get("Content-Type"))
	if mimeType != "" && mimeType != "text/html" && mimeType != "application/xhtml+xml" {
		result.ErrKind = models.ErrorKindParse
		result.Message = fmt.Sprintf("unsupported content type: %s", mimeType)
		return result
	}
	result.MIMEType = mimeType
	result.Charset = charset

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	result.ResponseTime = time.Since(start)
	if err != nil {
		result.ErrKind, result.Message = classifyTransportError(err)
		return result
	}
	result.HTML = string(body)
	result.SizeBytes = int64(len(body))

	if err := f.extract(result); err != nil {
		result.ErrKind = models.ErrorKindParse
		result.Message = fmt.Sprintf("failed to parse HTML: %v", err)
		return result
	}

	f.logger.Debug().
		Str("url", rawURL).
		Int("status", result.StatusCode).
		Int("links", len(result.Links)).
		Int64("bytes", result.SizeBytes).
		Dur("response_time", result.ResponseTime).
		Msg("Page fetched")

	return result
}

// extract parses the HTML and fills title, text, markdown and links. The base
// for link resolution is the post-redirect URL so that relative links on a
// redirected page resolve against where the content actually lives.
func (f *Fetcher) extract(result *FetchResult) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(result.HTML))
	if err != nil {
		return err
	}

	result.Title = strings.TrimSpace(doc.Find("title").First().Text())

	base := result.URL
	if result.FinalURL != "" {
		base = result.FinalURL
	}
	result.Links = extractLinks(doc, base)

	cleaned := doc.Clone()
	cleaned.Find(strippedSelectors).Remove()
	result.Text = collapseWhitespace(cleaned.Text())

	// Markdown is a convenience rendition for chunking; the extracted text
	// stays authoritative when conversion fails.
	converter := md.NewConverter(base, true, nil)
	if markdown, err := converter.ConvertString(result.HTML); err == nil {
		result.Markdown = strings.TrimSpace(markdown)
	} else {
		f.logger.Debug().Err(err).Str("url", result.URL).Msg("Markdown conversion failed")
	}

	return nil
}

// extractLinks returns the href targets of a[href] and link[href] elements in
// document order: resolved against the base, fragments stripped, non-http(s)
// schemes dropped, first occurrence wins.
func extractLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var links []string
	seen := make(map[string]bool)

	doc.Find("a[href], link[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""

		link := resolved.String()
		if !seen[link] {
			seen[link] = true
			links = append(links, link)
		}
	})

	return links
}

// collapseWhitespace reduces every whitespace run to a single space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// parseContentType splits a Content-Type header into its media type and
// charset parameter.
func parseContentType(header string) (mimeType, charset string) {
	if header == "" {
		return "", ""
	}
	mediaType, params, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.SplitN(header, ";", 2)[0])), ""
	}
	return mediaType, params["charset"]
}

// classifyTransportError maps a client error to the timeout or network kind.
func classifyTransportError(err error) (models.ErrorKind, string) {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.ErrorKindTimeout, "request timed out"
	case errors.As(err, &netErr) && netErr.Timeout():
		return models.ErrorKindTimeout, "request timed out"
	default:
		return models.ErrorKindNetwork, err.Error()
	}
}

// statusErrorKind maps an HTTP error status to an error kind: 429 is rate
// limiting, 401/403 are permission problems, everything else is a network
// level failure.
func statusErrorKind(status int) models.ErrorKind {
	switch status {
	case http.StatusTooManyRequests:
		return models.ErrorKindRateLimit
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrorKindPermission
	default:
		return models.ErrorKindNetwork
	}
}
