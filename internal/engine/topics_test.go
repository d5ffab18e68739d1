package engine

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
)

type countingTopics struct {
	calls   atomic.Int32
	release chan struct{}
	topics  []string
	err     error
}

func (c *countingTopics) GetTopics(ctx context.Context) ([]string, error) {
	c.calls.Add(1)
	if c.release != nil {
		select {
		case <-c.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.topics, c.err
}

func TestTopicCacheSingleFlight(t *testing.T) {
	for _, n := range []int{2, 8} {
		src := &countingTopics{release: make(chan struct{}), topics: []string{"a", "b"}}
		cache := NewTopicCache(src, nil)

		var (
			wg      sync.WaitGroup
			started sync.WaitGroup
		)
		results := make([][]string, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			started.Add(1)
			go func(i int) {
				defer wg.Done()
				started.Done()
				results[i], errs[i] = cache.EnsureLoaded(context.Background())
			}(i)
		}
		started.Wait()
		for src.calls.Load() == 0 {
			runtime.Gosched()
		}
		close(src.release)
		wg.Wait()

		if got := src.calls.Load(); got != 1 {
			t.Errorf("n=%d: expected exactly 1 upstream call, got %d", n, got)
		}
		for i := range results {
			if errs[i] != nil {
				t.Fatalf("n=%d: caller %d error: %v", n, i, errs[i])
			}
			if len(results[i]) != 2 {
				t.Errorf("n=%d: caller %d got %v", n, i, results[i])
			}
		}

		if _, err := cache.EnsureLoaded(context.Background()); err != nil {
			t.Fatalf("cached EnsureLoaded() error: %v", err)
		}
		if got := src.calls.Load(); got != 1 {
			t.Errorf("n=%d: cached call hit upstream, %d calls", n, got)
		}
	}
}

func TestTopicCacheCancelledCallerLeavesLoadRunning(t *testing.T) {
	src := &countingTopics{release: make(chan struct{}), topics: []string{"a"}}
	cache := NewTopicCache(src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.EnsureLoaded(ctx)
		first <- err
	}()
	for src.calls.Load() == 0 {
		runtime.Gosched()
	}
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
	}

	second := make(chan error, 1)
	var topics []string
	go func() {
		var err error
		topics, err = cache.EnsureLoaded(context.Background())
		second <- err
	}()
	close(src.release)
	if err := <-second; err != nil {
		t.Fatalf("second caller error: %v", err)
	}
	if len(topics) != 1 {
		t.Errorf("second caller got %v", topics)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("expected the first load to be shared, got %d upstream calls", got)
	}
}

func TestTopicCacheEmptyIsLoaded(t *testing.T) {
	src := &countingTopics{topics: nil}
	cache := NewTopicCache(src, nil)
	if cache.Loaded() {
		t.Fatal("new cache should not be loaded")
	}

	topics, err := cache.EnsureLoaded(context.Background())
	if err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}
	if topics == nil || len(topics) != 0 {
		t.Errorf("expected empty non-nil set, got %#v", topics)
	}
	if !cache.Loaded() {
		t.Error("empty set should count as loaded")
	}
	if _, err := cache.EnsureLoaded(context.Background()); err != nil {
		t.Fatalf("EnsureLoaded() error: %v", err)
	}
	if got := src.calls.Load(); got != 1 {
		t.Errorf("empty set was refetched, %d calls", got)
	}
}

func TestTopicCacheFailureNotCached(t *testing.T) {
	src := &countingTopics{err: errors.New("unavailable")}
	cache := NewTopicCache(src, nil)

	if _, err := cache.EnsureLoaded(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if cache.Loaded() {
		t.Error("failed load must not mark the cache loaded")
	}

	src.err = nil
	src.topics = []string{"x"}
	topics, err := cache.EnsureLoaded(context.Background())
	if err != nil {
		t.Fatalf("retry error: %v", err)
	}
	if len(topics) != 1 || src.calls.Load() != 2 {
		t.Errorf("expected retry to fetch again, got %v after %d calls", topics, src.calls.Load())
	}
}

func TestTopicCacheReturnsCopy(t *testing.T) {
	cache := NewTopicCache(&countingTopics{topics: []string{"a"}}, nil)
	topics, _ := cache.EnsureLoaded(context.Background())
	topics[0] = "mutated"
	again, _ := cache.EnsureLoaded(context.Background())
	if again[0] != "a" {
		t.Errorf("cache was mutated through a returned slice: %v", again)
	}
}
