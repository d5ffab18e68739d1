package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/metrics"
	"github.com/tonhe/pulse/internal/telemetry"
)

// AlertView is anything that displays alerts and can be refreshed.
type AlertView interface {
	ShowsAlert(id int64) bool
	Refresh(ctx context.Context) error
}

type alertPagerView[F Filter[F]] struct {
	pager *Pager[telemetry.Alert, F]
}

// AlertPagerView adapts an alert pager to AlertView.
func AlertPagerView[F Filter[F]](p *Pager[telemetry.Alert, F]) AlertView {
	return alertPagerView[F]{pager: p}
}

func (v alertPagerView[F]) ShowsAlert(id int64) bool {
	return v.pager.Contains(func(a telemetry.Alert) bool { return a.ID == id })
}

func (v alertPagerView[F]) Refresh(ctx context.Context) error {
	return v.pager.Reload(ctx)
}

// Resolver resolves alerts and refreshes the views showing them. Nothing is
// changed locally until the service confirms.
type Resolver struct {
	client AlertResolver
	logger *slog.Logger

	mu      sync.Mutex
	views   []AlertView
	lastErr error
}

// NewResolver creates a Resolver with no watched views.
func NewResolver(client AlertResolver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{client: client, logger: logger.With(slog.String("component", "resolver"))}
}

// Watch registers a view to refresh after resolutions.
func (r *Resolver) Watch(v AlertView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

// Resolve marks alert id resolved and reloads every watched view that
// currently shows it. Failed view reloads are logged and held by the views
// themselves; they do not fail the resolution.
func (r *Resolver) Resolve(ctx context.Context, id int64) (telemetry.Alert, error) {
	alert, err := r.client.ResolveAlert(ctx, id)
	metrics.ObserveResolve(err)

	r.mu.Lock()
	r.lastErr = err
	views := append([]AlertView(nil), r.views...)
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("resolve failed", slog.Int64("alert_id", id), logging.ErrAttr(err))
		return telemetry.Alert{}, err
	}
	r.logger.Info("alert resolved", slog.Int64("alert_id", id))

	var g errgroup.Group
	for _, v := range views {
		if !v.ShowsAlert(id) {
			continue
		}
		v := v
		g.Go(func() error { return v.Refresh(ctx) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, ErrSuperseded) {
		r.logger.Warn("refresh after resolve failed", slog.Int64("alert_id", id), logging.ErrAttr(err))
	}
	return alert, nil
}

// LastError returns the error from the most recent Resolve, or nil.
func (r *Resolver) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
