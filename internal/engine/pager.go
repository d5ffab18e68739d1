package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/metrics"
	"github.com/tonhe/pulse/internal/telemetry"
)

var (
	// ErrSuperseded is returned by Reload when a newer reload was issued
	// before the response arrived. The response was dropped.
	ErrSuperseded = errors.New("superseded by a newer request")
	// ErrPageOutOfRange is returned by NextPage and PrevPage at the edges.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Filter is a filter shape that can tell whether it changed.
type Filter[F any] interface {
	Equal(F) bool
}

// FetchFunc loads one page for the given filter.
type FetchFunc[T any, F any] func(ctx context.Context, filter F, page, pageSize int) (telemetry.Page[T], error)

// Pager holds one filtered, paginated list. Only the response to the most
// recently issued reload may change what it holds.
type Pager[T any, F Filter[F]] struct {
	name   string
	fetch  FetchFunc[T, F]
	logger *slog.Logger

	mu          sync.Mutex
	filter      F
	page        int
	pageSize    int
	held        *telemetry.Page[T]
	loading     bool
	err         error
	seq         uint64
	subscribers []chan struct{}
}

// NewPager creates a pager on page 1 with an empty filter. Nothing is
// fetched until the first reload.
func NewPager[T any, F Filter[F]](name string, pageSize int, fetch FetchFunc[T, F], logger *slog.Logger) *Pager[T, F] {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pager[T, F]{
		name:     name,
		fetch:    fetch,
		logger:   logger.With(slog.String("view", name)),
		page:     1,
		pageSize: pageSize,
	}
}

// Name returns the view name the pager was created with.
func (p *Pager[T, F]) Name() string { return p.name }

// SetFilter applies update to a copy of the current filter. If the result
// differs, the page goes back to 1. The pager is then reloaded.
func (p *Pager[T, F]) SetFilter(ctx context.Context, update func(*F)) error {
	p.mu.Lock()
	next := p.filter
	update(&next)
	if !next.Equal(p.filter) {
		p.filter = next
		p.page = 1
	}
	p.mu.Unlock()
	return p.Reload(ctx)
}

// SetPage jumps to page n and reloads.
func (p *Pager[T, F]) SetPage(ctx context.Context, n int) error {
	if n < 1 {
		return fmt.Errorf("%s: page must be >= 1, got %d", p.name, n)
	}
	p.mu.Lock()
	p.page = n
	p.mu.Unlock()
	return p.Reload(ctx)
}

// NextPage moves one page forward, bounded by the held page count.
func (p *Pager[T, F]) NextPage(ctx context.Context) error {
	p.mu.Lock()
	if p.held == nil || p.page >= p.held.TotalPages {
		p.mu.Unlock()
		return ErrPageOutOfRange
	}
	n := p.page + 1
	p.mu.Unlock()
	return p.SetPage(ctx, n)
}

// PrevPage moves one page back.
func (p *Pager[T, F]) PrevPage(ctx context.Context) error {
	p.mu.Lock()
	if p.page <= 1 {
		p.mu.Unlock()
		return ErrPageOutOfRange
	}
	n := p.page - 1
	p.mu.Unlock()
	return p.SetPage(ctx, n)
}

// Reload fetches the current filter and page. A failed reload keeps the held
// page and records the error. A reload overtaken by a newer one returns
// ErrSuperseded and changes nothing.
func (p *Pager[T, F]) Reload(ctx context.Context) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	filter, page, size := p.filter, p.page, p.pageSize
	p.loading = true
	p.notify()
	p.mu.Unlock()

	result, err := p.fetch(ctx, filter, page, size)

	p.mu.Lock()
	defer p.mu.Unlock()

	if seq != p.seq {
		metrics.ObservePageReload(p.name, metrics.ResultDiscarded)
		p.logger.Debug("dropping stale page", slog.Uint64("seq", seq), slog.Uint64("latest", p.seq))
		return ErrSuperseded
	}

	p.loading = false
	if err != nil {
		p.err = err
		metrics.ObservePageReload(p.name, metrics.ResultError)
		p.logger.Warn("page reload failed", slog.Int("page", page), logging.ErrAttr(err))
		p.notify()
		return err
	}

	p.held = &result
	p.err = nil
	metrics.ObservePageReload(p.name, metrics.ResultSuccess)
	p.notify()
	return nil
}

// State returns a copy of what the pager holds.
func (p *Pager[T, F]) State() PagerState[T, F] {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := PagerState[T, F]{
		Filter:   p.filter,
		PageNum:  p.page,
		PageSize: p.pageSize,
		Loading:  p.loading,
		Err:      p.err,
		Seq:      p.seq,
	}
	if p.held != nil {
		cp := *p.held
		cp.Items = append([]T(nil), p.held.Items...)
		st.Page = &cp
	}
	return st
}

// Contains reports whether the held page shows an item matching match.
func (p *Pager[T, F]) Contains(match func(T) bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.held == nil {
		return false
	}
	for _, it := range p.held.Items {
		if match(it) {
			return true
		}
	}
	return false
}

// Subscribe returns a channel that is signalled after every state change.
func (p *Pager[T, F]) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// notify must be called with p.mu held.
func (p *Pager[T, F]) notify() {
	for _, ch := range p.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
