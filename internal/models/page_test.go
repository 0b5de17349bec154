package models

import (
	"strings"
	"testing"
	"time"
)

func newTestPage() *Page {
	return &Page{
		ID:           "page-test",
		SessionID:    "session-test",
		ProjectID:    "project-test",
		URL:          "https://docs.example.com/guide",
		Depth:        1,
		Status:       PageStatusDiscovered,
		DiscoveredAt: time.Now().UTC(),
	}
}

func TestPage_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    PageStatus
		to      PageStatus
		allowed bool
	}{
		{"discovered to crawling", PageStatusDiscovered, PageStatusCrawling, true},
		{"discovered to skipped", PageStatusDiscovered, PageStatusSkipped, true},
		{"discovered to failed", PageStatusDiscovered, PageStatusFailed, true},
		{"discovered to processed", PageStatusDiscovered, PageStatusProcessed, false},
		{"discovered to indexed", PageStatusDiscovered, PageStatusIndexed, false},
		{"crawling to processed", PageStatusCrawling, PageStatusProcessed, true},
		{"crawling to failed", PageStatusCrawling, PageStatusFailed, true},
		{"crawling to skipped", PageStatusCrawling, PageStatusSkipped, true},
		{"crawling to indexed", PageStatusCrawling, PageStatusIndexed, false},
		{"processed to indexed", PageStatusProcessed, PageStatusIndexed, true},
		{"processed to failed", PageStatusProcessed, PageStatusFailed, false},
		{"indexed is terminal", PageStatusIndexed, PageStatusCrawling, false},
		{"failed is terminal", PageStatusFailed, PageStatusCrawling, false},
		{"skipped is terminal", PageStatusSkipped, PageStatusCrawling, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPage()
			p.Status = tt.from
			if got := p.CanTransitionTo(tt.to); got != tt.allowed {
				t.Errorf("CanTransitionTo(%s): got %v, want %v", tt.to, got, tt.allowed)
			}
		})
	}
}

func TestPage_MarkProcessedSetsContentAtomically(t *testing.T) {
	p := newTestPage()
	if err := p.MarkCrawling(); err != nil {
		t.Fatalf("MarkCrawling: unexpected error %v", err)
	}
	if p.CrawlStartedAt == nil {
		t.Error("CrawlStartedAt: got nil, want set")
	}

	err := p.MarkProcessed(PageContent{
		FinalURL:       "https://docs.example.com/guide/",
		HTTPStatus:     200,
		ResponseTimeMs: 42,
		ContentType:    "text/html",
		Charset:        "utf-8",
		Title:          "Guide",
		HTML:           "<html><title>Guide</title><body>Getting started with the guide.</body></html>",
		Text:           "  Getting started with the guide.  ",
		Markdown:       "# Guide\n\nGetting started with the guide.",
		SizeBytes:      2048,
		Links:          []string{"https://docs.example.com/install"},
	})
	if err != nil {
		t.Fatalf("MarkProcessed: unexpected error %v", err)
	}

	if p.Status != PageStatusProcessed {
		t.Errorf("Status: got %v, want %v", p.Status, PageStatusProcessed)
	}
	if p.Title != "Guide" {
		t.Errorf("Title: got %q, want %q", p.Title, "Guide")
	}
	if p.FinalURL != "https://docs.example.com/guide/" {
		t.Errorf("FinalURL: got %q", p.FinalURL)
	}
	if p.HTTPStatus != 200 || p.SizeBytes != 2048 || p.ContentType != "text/html" {
		t.Errorf("fetch metadata: got status=%d size=%d type=%q", p.HTTPStatus, p.SizeBytes, p.ContentType)
	}
	if p.ResponseTimeMs != 42 || p.Charset != "utf-8" {
		t.Errorf("fetch metadata: got responseTime=%d charset=%q", p.ResponseTimeMs, p.Charset)
	}
	if len(p.Links) != 1 {
		t.Errorf("Links: got %d, want 1", len(p.Links))
	}
	if p.CrawledAt == nil {
		t.Error("CrawledAt: got nil, want set")
	}
	// Hash covers the trimmed text, so surrounding whitespace must not matter.
	if p.ContentHash != ComputeContentHash("Getting started with the guide.") {
		t.Errorf("ContentHash: got %q, want hash of trimmed text", p.ContentHash)
	}
}

func TestPage_MarkProcessedKeepsURLWhenNoRedirect(t *testing.T) {
	p := newTestPage()
	if err := p.MarkCrawling(); err != nil {
		t.Fatalf("MarkCrawling: unexpected error %v", err)
	}
	if err := p.MarkProcessed(PageContent{FinalURL: p.URL, HTTPStatus: 200, ContentType: "text/html", Text: "text", SizeBytes: 4}); err != nil {
		t.Fatalf("MarkProcessed: unexpected error %v", err)
	}
	if p.FinalURL != "" {
		t.Errorf("FinalURL: got %q, want empty when no redirect happened", p.FinalURL)
	}
}

func TestPage_MarkFailedRequiresMessage(t *testing.T) {
	p := newTestPage()
	if err := p.MarkCrawling(); err != nil {
		t.Fatalf("MarkCrawling: unexpected error %v", err)
	}

	if err := p.MarkFailed("   "); err == nil {
		t.Error("MarkFailed with blank message: got nil error, want rejection")
	}
	if p.Status != PageStatusCrawling {
		t.Errorf("Status after rejected MarkFailed: got %v, want %v", p.Status, PageStatusCrawling)
	}

	if err := p.MarkFailed("connection refused"); err != nil {
		t.Fatalf("MarkFailed: unexpected error %v", err)
	}
	if p.FailureMessage != "connection refused" {
		t.Errorf("FailureMessage: got %q", p.FailureMessage)
	}
	if p.CrawledAt == nil {
		t.Error("CrawledAt: got nil, want set on failure")
	}
}

func TestPage_MarkSkippedRequiresReason(t *testing.T) {
	p := newTestPage()
	if err := p.MarkSkipped(""); err == nil {
		t.Error("MarkSkipped with empty reason: got nil error, want rejection")
	}
	if err := p.MarkSkipped("Duplicate content"); err != nil {
		t.Fatalf("MarkSkipped: unexpected error %v", err)
	}
	if p.SkipReason != "Duplicate content" {
		t.Errorf("SkipReason: got %q", p.SkipReason)
	}
	if !p.IsTerminal() {
		t.Error("IsTerminal: got false, want true for skipped page")
	}
}

func TestPage_MarkIndexedOnlyFromProcessed(t *testing.T) {
	p := newTestPage()
	if err := p.MarkIndexed(); err == nil {
		t.Error("MarkIndexed from discovered: got nil error, want rejection")
	}

	if err := p.MarkCrawling(); err != nil {
		t.Fatalf("MarkCrawling: unexpected error %v", err)
	}
	if err := p.MarkProcessed(PageContent{HTTPStatus: 200, ContentType: "text/html", Text: "text", SizeBytes: 4}); err != nil {
		t.Fatalf("MarkProcessed: unexpected error %v", err)
	}
	if err := p.MarkIndexed(); err != nil {
		t.Fatalf("MarkIndexed: unexpected error %v", err)
	}
	if p.Status != PageStatusIndexed {
		t.Errorf("Status: got %v, want %v", p.Status, PageStatusIndexed)
	}
	if p.IndexedAt == nil {
		t.Error("IndexedAt: got nil, want set")
	}
}

func TestPage_CanRetry(t *testing.T) {
	p := newTestPage()
	p.MaxRetries = 2
	if !p.CanRetry() {
		t.Error("CanRetry at 0 of 2: got false, want true")
	}
	p.RetryCount = 2
	if p.CanRetry() {
		t.Error("CanRetry at 2 of 2: got true, want false")
	}

	// Zero falls back to the default cap.
	p = newTestPage()
	p.RetryCount = DefaultMaxRetries
	if p.CanRetry() {
		t.Errorf("CanRetry at default cap: got true at %d retries", p.RetryCount)
	}
}

func TestComputeContentHash(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		same bool
	}{
		{"identical", "hello world", "hello world", true},
		{"whitespace trimmed", "  hello world\n", "hello world", true},
		{"different", "hello world", "goodbye world", false},
		{"interior whitespace matters", "hello  world", "hello world", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ha := ComputeContentHash(tt.a)
			hb := ComputeContentHash(tt.b)
			if (ha == hb) != tt.same {
				t.Errorf("hash equality: got %v, want %v", ha == hb, tt.same)
			}
		})
	}

	h := ComputeContentHash("hello")
	if len(h) != 64 || strings.ToLower(h) != h {
		t.Errorf("hash format: got %q, want 64 lowercase hex chars", h)
	}
}
