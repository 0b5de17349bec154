package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

func newTestRobotsCache() *RobotsCache {
	return NewRobotsCache(2*time.Second, arbor.NewLogger())
}

func TestRobotsCache_DisallowRules(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	cache := newTestRobotsCache()
	ctx := context.Background()

	if !cache.IsAllowed(ctx, server.URL+"/docs/page", "DocBro/test") {
		t.Error("public path disallowed")
	}
	if cache.IsAllowed(ctx, server.URL+"/private/x", "DocBro/test") {
		t.Error("private path allowed")
	}
}

func TestRobotsCache_HTML404BodyAllowsAll(t *testing.T) {
	// Some servers answer /robots.txt with an HTML error page and status 200.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>404 Not Found</h1></body></html>"))
	}))
	defer server.Close()

	cache := newTestRobotsCache()
	if !cache.IsAllowed(context.Background(), server.URL+"/anything", "DocBro/test") {
		t.Error("HTML robots body should allow all")
	}
}

func TestRobotsCache_404AllowsAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	cache := newTestRobotsCache()
	if !cache.IsAllowed(context.Background(), server.URL+"/page", "DocBro/test") {
		t.Error("missing robots.txt should allow all")
	}
}

func TestRobotsCache_FetchErrorAllowsAll(t *testing.T) {
	cache := newTestRobotsCache()
	// Port 1 refuses connections.
	if !cache.IsAllowed(context.Background(), "http://127.0.0.1:1/page", "DocBro/test") {
		t.Error("unreachable robots.txt should allow all")
	}
}

func TestRobotsCache_OneFetchPerOrigin(t *testing.T) {
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fetches.Add(1)
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("User-agent: *\nDisallow: /blocked\n"))
		}
	}))
	defer server.Close()

	cache := newTestRobotsCache()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !cache.IsAllowed(ctx, server.URL+"/page", "DocBro/test") {
			t.Fatal("page unexpectedly disallowed")
		}
		if cache.IsAllowed(ctx, server.URL+"/blocked", "DocBro/test") {
			t.Fatal("blocked path unexpectedly allowed")
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", got)
	}
}

func TestLooksLikeRobots(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        bool
	}{
		{"plain content type", "text/plain", "anything", true},
		{"plain with charset", "text/plain; charset=utf-8", "anything", true},
		{"user-agent body", "text/html", "User-Agent: *\nDisallow: /", true},
		{"comment then rules", "", "# rules\n\nuser-agent: *\nallow: /", true},
		{"html body", "text/html", "<html><body>404</body></html>", false},
		{"empty body", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeRobots(tt.contentType, []byte(tt.body)); got != tt.want {
				t.Errorf("looksLikeRobots(%q, %q) = %v, want %v", tt.contentType, tt.body, got, tt.want)
			}
		})
	}
}
