package crawler

import (
	"context"
	"sync"

	"github.com/ternarybob/docbro/internal/common"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum inter-request spacing per origin. With r
// requests per second and burst 1, x/time/rate yields exactly the 1/r gap
// the crawl engine needs; distinct origins never delay one another.
type RateLimiter struct {
	rps float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter issuing requestsPerSecond tokens per
// origin.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return &RateLimiter{
		rps:      requestsPerSecond,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Acquire blocks until the URL's origin is allowed another request, or the
// context is cancelled. URLs without a parseable origin pass through
// unthrottled; the fetcher will classify their failure.
func (l *RateLimiter) Acquire(ctx context.Context, rawURL string) error {
	origin, err := common.Origin(rawURL)
	if err != nil {
		return nil
	}
	return l.limiterFor(origin).Wait(ctx)
}

func (l *RateLimiter) limiterFor(origin string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[origin]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.rps), 1)
		l.limiters[origin] = limiter
	}
	return limiter
}
