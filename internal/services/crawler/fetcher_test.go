package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/docbro/internal/models"
)

func newTestFetcher(timeout time.Duration) *Fetcher {
	return NewFetcher("DocBro/test", timeout, 10*1024*1024, arbor.NewLogger())
}

func TestFetcher_ExtractsContent(t *testing.T) {
	const page = `<html>
<head>
  <title>  Install Guide  </title>
  <script>var x = "invisible";</script>
  <style>.hidden { display: none }</style>
  <link rel="stylesheet" href="/style.css">
</head>
<body>
  <h1>Install</h1>
  <p>Run   the    installer.</p>
  <noscript>enable js</noscript>
  <!-- a comment -->
  <a href="/docs/next">Next</a>
  <a href="/docs/next#frag">Next again</a>
  <a href="mailto:x@example.com">Mail</a>
  <a href="https://other.example/ref">Elsewhere</a>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}))
	defer server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/guide")
	if !result.OK() {
		t.Fatalf("Fetch failed: %s %s", result.ErrKind, result.Message)
	}

	if result.StatusCode != 200 {
		t.Errorf("StatusCode: got %d", result.StatusCode)
	}
	if result.Title != "Install Guide" {
		t.Errorf("Title: got %q", result.Title)
	}
	if result.MIMEType != "text/html" || result.Charset != "utf-8" {
		t.Errorf("content type: got %q / %q", result.MIMEType, result.Charset)
	}

	// Script, style and comments must not leak into text; whitespace runs
	// collapse to single spaces.
	if strings.Contains(result.Text, "invisible") || strings.Contains(result.Text, "display") ||
		strings.Contains(result.Text, "a comment") || strings.Contains(result.Text, "enable js") {
		t.Errorf("Text contains stripped content: %q", result.Text)
	}
	if !strings.Contains(result.Text, "Run the installer.") {
		t.Errorf("Text not collapsed: %q", result.Text)
	}

	// Links: resolved, fragment stripped, deduplicated, mailto dropped,
	// stylesheet link[href] kept, document order preserved.
	want := []string{
		server.URL + "/style.css",
		server.URL + "/docs/next",
		"https://other.example/ref",
	}
	if len(result.Links) != len(want) {
		t.Fatalf("Links: got %v, want %v", result.Links, want)
	}
	for i := range want {
		if result.Links[i] != want[i] {
			t.Errorf("Links[%d]: got %s, want %s", i, result.Links[i], want[i])
		}
	}

	if result.SizeBytes != int64(len(result.HTML)) {
		t.Errorf("SizeBytes: got %d, want %d", result.SizeBytes, len(result.HTML))
	}
}

func TestFetcher_RejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	fetcher := newTestFetcher(5 * time.Second)
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/manual.pdf")
	if result.OK() {
		t.Fatal("PDF response accepted")
	}
	if result.ErrKind != models.ErrorKindParse {
		t.Errorf("ErrKind: got %s, want parse", result.ErrKind)
	}
	if !strings.Contains(result.Message, "unsupported content type: application/pdf") {
		t.Errorf("Message: got %q", result.Message)
	}
}

func TestFetcher_HTTPErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   models.ErrorKind
	}{
		{http.StatusInternalServerError, models.ErrorKindNetwork},
		{http.StatusNotFound, models.ErrorKindNetwork},
		{http.StatusTooManyRequests, models.ErrorKindRateLimit},
		{http.StatusForbidden, models.ErrorKindPermission},
	}

	for _, tt := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))

		fetcher := newTestFetcher(5 * time.Second)
		result := fetcher.Fetch(context.Background(), server.URL)
		fetcher.Close()
		server.Close()

		if result.OK() {
			t.Errorf("status %d: fetch succeeded", tt.status)
			continue
		}
		if result.ErrKind != tt.want {
			t.Errorf("status %d: kind %s, want %s", tt.status, result.ErrKind, tt.want)
		}
		if result.StatusCode != tt.status {
			t.Errorf("status %d: StatusCode %d", tt.status, result.StatusCode)
		}
	}
}

func TestFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	fetcher := newTestFetcher(50 * time.Millisecond)
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL)
	if result.OK() {
		t.Fatal("slow response accepted")
	}
	if result.ErrKind != models.ErrorKindTimeout {
		t.Errorf("ErrKind: got %s, want timeout", result.ErrKind)
	}
}

func TestFetcher_NetworkError(t *testing.T) {
	fetcher := newTestFetcher(time.Second)
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), "http://127.0.0.1:1/")
	if result.OK() {
		t.Fatal("unreachable host accepted")
	}
	if result.ErrKind != models.ErrorKindNetwork {
		t.Errorf("ErrKind: got %s, want network", result.ErrKind)
	}
}

func TestFetcher_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><title>Moved</title><body><a href="page">Rel</a></body></html>`))
	})

	fetcher := newTestFetcher(5 * time.Second)
	defer fetcher.Close()

	result := fetcher.Fetch(context.Background(), server.URL+"/old")
	if !result.OK() {
		t.Fatalf("Fetch failed: %s", result.Message)
	}
	if result.FinalURL != server.URL+"/new" {
		t.Errorf("FinalURL: got %q", result.FinalURL)
	}
	// Relative links resolve against the post-redirect location.
	if len(result.Links) != 1 || result.Links[0] != server.URL+"/page" {
		t.Errorf("Links: got %v", result.Links)
	}
}

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a  b\t\nc", "a b c"},
		{"  leading and trailing  ", "leading and trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := collapseWhitespace(tt.in); got != tt.want {
			t.Errorf("collapseWhitespace(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
