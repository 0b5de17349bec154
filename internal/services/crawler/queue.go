package crawler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ternarybob/docbro/internal/common"
)

// errQueueClosed signals that the frontier was closed while a Pop waited.
var errQueueClosed = errors.New("frontier closed")

// queueItem is one unit of crawl work: a URL, how many hops from the seed it
// was discovered at, and the page that linked to it.
type queueItem struct {
	URL       string
	Depth     int
	ParentURL string
}

// frontier is the FIFO work queue of a crawl session. URLs are deduplicated
// on push so a page linked from many parents is only enqueued once; the
// depth-first-seen entry wins, which preserves BFS order. The queue is
// unbounded: the depth cap and the dedup set bound it naturally.
type frontier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []queueItem
	seen   map[string]bool // Normalized URL -> enqueued before
	closed bool
}

func newFrontier() *frontier {
	f := &frontier{seen: make(map[string]bool)}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Push enqueues an item unless its URL was enqueued before. It reports
// whether the item was accepted.
func (f *frontier) Push(item queueItem) bool {
	normalized, err := common.NormalizeURL(item.URL)
	if err != nil {
		return false
	}
	item.URL = normalized

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.seen[normalized] {
		return false
	}
	f.seen[normalized] = true
	f.items = append(f.items, item)
	f.cond.Signal()
	return true
}

// Pop dequeues the oldest item, waiting up to timeout for one to arrive.
// The ok result is false when the timeout elapsed with an empty queue; the
// error is non-nil only on cancellation or close. The condition variable is
// woken by a short periodic timer so context cancellation is observed
// promptly even while waiting.
func (f *frontier) Pop(ctx context.Context, timeout time.Duration) (queueItem, bool, error) {
	deadline := time.Now().Add(timeout)

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return queueItem{}, false, err
		}
		if f.closed {
			return queueItem{}, false, errQueueClosed
		}
		if len(f.items) > 0 {
			item := f.items[0]
			f.items = f.items[1:]
			return item, true, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return queueItem{}, false, nil
		}
		if wait > time.Second {
			wait = time.Second
		}
		timer := time.AfterFunc(wait, f.cond.Broadcast)
		f.cond.Wait()
		timer.Stop()
	}
}

// Len returns the number of queued items.
func (f *frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Close wakes all waiting Pop calls and rejects further pushes.
func (f *frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.cond.Broadcast()
}
