package crawler

import (
	"context"
	"testing"
	"time"
)

func TestFrontier_FIFOOrder(t *testing.T) {
	f := newFrontier()
	urls := []string{"http://h/a", "http://h/b", "http://h/c"}
	for i, u := range urls {
		if !f.Push(queueItem{URL: u, Depth: i}) {
			t.Fatalf("Push(%s) rejected", u)
		}
	}

	ctx := context.Background()
	for i, want := range urls {
		item, ok, err := f.Pop(ctx, time.Second)
		if err != nil || !ok {
			t.Fatalf("Pop %d: ok=%v err=%v", i, ok, err)
		}
		if item.URL != want {
			t.Errorf("Pop %d: got %s, want %s", i, item.URL, want)
		}
		if item.Depth != i {
			t.Errorf("Pop %d: depth %d, want %d", i, item.Depth, i)
		}
	}
}

func TestFrontier_DeduplicatesOnPush(t *testing.T) {
	f := newFrontier()
	if !f.Push(queueItem{URL: "http://h/a"}) {
		t.Fatal("first Push rejected")
	}
	if f.Push(queueItem{URL: "http://h/a"}) {
		t.Error("duplicate Push accepted")
	}
	// Fragment and case variants collapse to the same normalized URL.
	if f.Push(queueItem{URL: "HTTP://H/a#section"}) {
		t.Error("normalized duplicate Push accepted")
	}
	if got := f.Len(); got != 1 {
		t.Errorf("Len: got %d, want 1", got)
	}
}

func TestFrontier_RejectsUnparseableURLs(t *testing.T) {
	f := newFrontier()
	if f.Push(queueItem{URL: "ftp://h/file"}) {
		t.Error("non-http scheme accepted")
	}
	if f.Push(queueItem{URL: "://bad"}) {
		t.Error("malformed URL accepted")
	}
}

func TestFrontier_PopTimesOutWhenEmpty(t *testing.T) {
	f := newFrontier()
	start := time.Now()
	_, ok, err := f.Pop(context.Background(), 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if ok {
		t.Error("Pop on empty queue returned an item")
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Pop returned after %v, want >= 50ms", elapsed)
	}
}

func TestFrontier_PopWakesOnPush(t *testing.T) {
	f := newFrontier()
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Push(queueItem{URL: "http://h/late"})
	}()

	item, ok, err := f.Pop(context.Background(), 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("Pop: ok=%v err=%v", ok, err)
	}
	if item.URL != "http://h/late" {
		t.Errorf("Pop: got %s", item.URL)
	}
}

func TestFrontier_PopObservesCancellation(t *testing.T) {
	f := newFrontier()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, _, err := f.Pop(ctx, time.Minute)
	if err != context.Canceled {
		t.Errorf("Pop after cancel: got %v, want context.Canceled", err)
	}
}

func TestFrontier_CloseUnblocksPop(t *testing.T) {
	f := newFrontier()
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Close()
	}()

	_, _, err := f.Pop(context.Background(), time.Minute)
	if err != errQueueClosed {
		t.Errorf("Pop after close: got %v, want errQueueClosed", err)
	}
	if f.Push(queueItem{URL: "http://h/x"}) {
		t.Error("Push accepted after close")
	}
}
