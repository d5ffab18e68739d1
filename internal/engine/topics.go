package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tonhe/pulse/internal/logging"
)

// TopicCache loads the topic set once per session. Concurrent callers
// before the first load share a single upstream request.
type TopicCache struct {
	src    TopicSource
	logger *slog.Logger
	group  singleflight.Group

	mu     sync.RWMutex
	topics []string
	loaded bool
}

// NewTopicCache creates an empty cache over src.
func NewTopicCache(src TopicSource, logger *slog.Logger) *TopicCache {
	if logger == nil {
		logger = logging.Discard()
	}
	return &TopicCache{src: src, logger: logger}
}

// EnsureLoaded returns the cached topics, loading them first if needed.
// A failed load is not cached. The shared load is detached from the
// caller's cancellation; a caller that gives up returns its own ctx error
// while the others keep waiting.
func (c *TopicCache) EnsureLoaded(ctx context.Context) ([]string, error) {
	if topics, ok := c.cached(); ok {
		return topics, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("topics", func() (any, error) {
		if topics, ok := c.cached(); ok {
			return topics, nil
		}
		topics, err := c.src.GetTopics(loadCtx)
		if err != nil {
			c.logger.Warn("loading topics failed", logging.ErrAttr(err))
			return nil, err
		}
		if topics == nil {
			topics = []string{}
		}
		c.mu.Lock()
		c.topics = topics
		c.loaded = true
		c.mu.Unlock()
		c.logger.Debug("topics loaded", slog.Int("count", len(topics)))
		return topics, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("joined in-flight topic load")
		}
	}
	topics, _ := c.cached()
	return topics, nil
}

// Loaded reports whether the topic set has been fetched. An empty set
// counts as loaded.
func (c *TopicCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *TopicCache) cached() ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		return nil, false
	}
	return append([]string{}, c.topics...), true
}
