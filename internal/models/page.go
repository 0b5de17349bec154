package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PageStatus represents the lifecycle state of a single crawled page
type PageStatus string

const (
	PageStatusDiscovered PageStatus = "discovered"
	PageStatusCrawling   PageStatus = "crawling"
	PageStatusProcessed  PageStatus = "processed"
	PageStatusIndexed    PageStatus = "indexed"
	PageStatusFailed     PageStatus = "failed"
	PageStatusSkipped    PageStatus = "skipped"
)

// DefaultMaxRetries caps retry attempts for a single page.
const DefaultMaxRetries = 3

// pageTransitions encodes the page lifecycle:
// discovered -> crawling -> {processed -> indexed | failed | skipped}.
// Skipping straight from discovered covers duplicates detected before fetch.
var pageTransitions = map[PageStatus][]PageStatus{
	PageStatusDiscovered: {PageStatusCrawling, PageStatusSkipped, PageStatusFailed},
	PageStatusCrawling:   {PageStatusProcessed, PageStatusFailed, PageStatusSkipped},
	PageStatusProcessed:  {PageStatusIndexed},
}

// PageContent carries everything a successful fetch produced, applied to a
// page in one atomic transition.
type PageContent struct {
	FinalURL       string   `json:"final_url,omitempty"`
	HTTPStatus     int      `json:"http_status"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	ContentType    string   `json:"content_type"`
	Charset        string   `json:"charset,omitempty"`
	Title          string   `json:"title,omitempty"`
	HTML           string   `json:"html,omitempty"`
	Text           string   `json:"text"`
	Markdown       string   `json:"markdown,omitempty"`
	SizeBytes      int64    `json:"size_bytes"`
	Links          []string `json:"links,omitempty"`
}

// Page represents one URL encountered during a crawl session, from discovery
// through fetch, extraction and indexing. Pages carry the session identifier
// by value; reconstruction goes through storage.
type Page struct {
	ID        string `json:"id"` // page_{uuid}
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`

	URL       string `json:"url"`
	FinalURL  string `json:"final_url,omitempty"` // After redirects, when it differs
	ParentURL string `json:"parent_url,omitempty"`
	Depth     int    `json:"depth"`

	HTTPStatus     int    `json:"http_status,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	Charset        string `json:"charset,omitempty"`

	Title       string `json:"title,omitempty"`
	HTML        string `json:"html,omitempty"`     // Raw response body
	Text        string `json:"text,omitempty"`     // Extracted plain text
	Markdown    string `json:"markdown,omitempty"` // Markdown rendering, best effort
	ContentHash string `json:"content_hash,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`

	Links         []string `json:"links,omitempty"` // Outbound, first-seen order
	InternalLinks []string `json:"internal_links,omitempty"`
	ExternalLinks []string `json:"external_links,omitempty"`

	Status         PageStatus `json:"status"`
	FailureMessage string     `json:"failure_message,omitempty"`
	SkipReason     string     `json:"skip_reason,omitempty"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`

	DiscoveredAt   time.Time  `json:"discovered_at"`
	CrawlStartedAt *time.Time `json:"crawl_started_at,omitempty"`
	CrawledAt      *time.Time `json:"crawled_at,omitempty"`
	IndexedAt      *time.Time `json:"indexed_at,omitempty"`
}

// ComputeContentHash returns the hex SHA-256 digest of the trimmed extracted
// text. Pages with identical digests are treated as duplicate content.
func ComputeContentHash(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// CanTransitionTo reports whether the page lifecycle permits a move to the
// target status.
func (p *Page) CanTransitionTo(target PageStatus) bool {
	for _, allowed := range pageTransitions[p.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (p *Page) transition(target PageStatus) error {
	if !p.CanTransitionTo(target) {
		return fmt.Errorf("invalid page transition: %s -> %s", p.Status, target)
	}
	p.Status = target
	return nil
}

// MarkCrawling moves the page from discovered to crawling.
func (p *Page) MarkCrawling() error {
	if err := p.transition(PageStatusCrawling); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.CrawlStartedAt = &now
	return nil
}

// MarkProcessed records the fetch result and extracted content in a single
// transition so a page is never observable with content but a stale status.
func (p *Page) MarkProcessed(content PageContent) error {
	if err := p.transition(PageStatusProcessed); err != nil {
		return err
	}
	if content.FinalURL != "" && content.FinalURL != p.URL {
		p.FinalURL = content.FinalURL
	}
	p.HTTPStatus = content.HTTPStatus
	p.ResponseTimeMs = content.ResponseTimeMs
	p.ContentType = content.ContentType
	p.Charset = content.Charset
	p.Title = content.Title
	p.HTML = content.HTML
	p.Text = content.Text
	p.Markdown = content.Markdown
	p.SizeBytes = content.SizeBytes
	p.Links = content.Links
	p.ContentHash = ComputeContentHash(content.Text)
	now := time.Now().UTC()
	p.CrawledAt = &now
	return nil
}

// MarkIndexed moves a processed page to indexed after its embeddings are
// stored.
func (p *Page) MarkIndexed() error {
	if err := p.transition(PageStatusIndexed); err != nil {
		return err
	}
	now := time.Now().UTC()
	p.IndexedAt = &now
	return nil
}

// MarkFailed records a fetch or processing failure. The message is required
// so failed pages are always diagnosable.
func (p *Page) MarkFailed(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return fmt.Errorf("failure message is required")
	}
	if err := p.transition(PageStatusFailed); err != nil {
		return err
	}
	p.FailureMessage = msg
	now := time.Now().UTC()
	p.CrawledAt = &now
	return nil
}

// MarkSkipped records that the page was intentionally not processed, with the
// reason (duplicate content, robots exclusion, unsupported content type).
func (p *Page) MarkSkipped(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("skip reason is required")
	}
	if err := p.transition(PageStatusSkipped); err != nil {
		return err
	}
	p.SkipReason = reason
	return nil
}

// CanRetry reports whether the page has retry attempts left.
func (p *Page) CanRetry() bool {
	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return p.RetryCount < maxRetries
}

// IsTerminal reports whether the page reached a final status.
func (p *Page) IsTerminal() bool {
	switch p.Status {
	case PageStatusIndexed, PageStatusFailed, PageStatusSkipped:
		return true
	}
	return false
}

// ToJSON serializes the page for storage snapshots and API responses.
func (p *Page) ToJSON() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PageFromJSON deserializes a page from its JSON form.
func PageFromJSON(data string) (*Page, error) {
	var page Page
	if err := json.Unmarshal([]byte(data), &page); err != nil {
		return nil, err
	}
	return &page, nil
}
