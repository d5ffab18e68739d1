package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/metrics"
	"github.com/tonhe/pulse/internal/telemetry"
)

const (
	DefaultPollInterval     = 5 * time.Second
	DefaultActiveAlertLimit = 10
	DefaultMaxHistory       = 360
)

// PollerConfig tunes a Poller. Zero fields take the defaults above.
type PollerConfig struct {
	Interval         time.Duration
	ActiveAlertLimit int
	MaxHistory       int
}

// Poller keeps the dashboard snapshot and active alerts fresh while it is
// active. A new cycle starts Interval after the previous one settled, so a
// slow service never sees overlapping polls.
type Poller struct {
	src        DashboardSource
	interval   time.Duration
	alertLimit int
	logger     *slog.Logger

	// cycleMu is held for the whole of a cycle. It keeps cycles from
	// overlapping even when a Stop/Start leaves an old loop finishing up.
	cycleMu sync.Mutex

	mu          sync.RWMutex
	state       EngineState
	gen         uint64
	stopCh      chan struct{}
	kick        chan struct{}
	snapshot    *telemetry.DashboardSnapshot
	active      []telemetry.Alert
	err         error
	lastPoll    time.Time
	pollCount   int
	errorCount  int
	history     *RingBuffer[RateSample]
	prev        *CounterSample
	subscribers []chan PollerEvent
}

var (
	// ErrPollerActive is returned by Start on a running poller.
	ErrPollerActive = errors.New("poller already active")
	// ErrPollerIdle is returned by Stop on a poller that is not running.
	ErrPollerIdle = errors.New("poller not active")
)

// NewPoller creates an idle Poller reading from src.
func NewPoller(src DashboardSource, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.ActiveAlertLimit <= 0 {
		cfg.ActiveAlertLimit = DefaultActiveAlertLimit
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Poller{
		src:        src,
		interval:   cfg.Interval,
		alertLimit: cfg.ActiveAlertLimit,
		logger:     logger.With(slog.String("component", "poller")),
		history:    NewRingBuffer[RateSample](cfg.MaxHistory),
	}
}

// Start moves the poller from idle to active and runs the first cycle
// right away.
func (p *Poller) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == EngineActive {
		return ErrPollerActive
	}
	p.state = EngineActive
	p.gen++
	p.stopCh = make(chan struct{})
	p.kick = make(chan struct{}, 1)
	p.logger.Info("poller started", slog.Duration("interval", p.interval))
	p.notify()

	go p.run(p.gen, p.stopCh, p.kick)
	return nil
}

// Stop moves the poller back to idle. The pending timer is cancelled; a
// cycle already in flight finishes but its result is dropped.
func (p *Poller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != EngineActive {
		return ErrPollerIdle
	}
	p.state = EngineIdle
	close(p.stopCh)
	p.logger.Info("poller stopped")
	p.notify()
	return nil
}

// RequestRefresh asks an active poller to run a cycle now instead of
// waiting for the timer. Requests made while a cycle is running collapse
// into one follow-up cycle. It reports false when the poller is idle.
func (p *Poller) RequestRefresh() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.state != EngineActive {
		return false
	}
	select {
	case p.kick <- struct{}{}:
	default:
	}
	return true
}

// ShowsAlert reports whether alert id is among the held active alerts.
func (p *Poller) ShowsAlert(id int64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, a := range p.active {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Refresh requests a cycle if the poller is active. An idle poller
// refreshes on its next Start anyway.
func (p *Poller) Refresh(context.Context) error {
	p.RequestRefresh()
	return nil
}

func (p *Poller) run(gen uint64, stop <-chan struct{}, kick <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		p.cycle(gen)

		timer := time.NewTimer(p.interval)
		select {
		case <-timer.C:
		case <-kick:
			timer.Stop()
		case <-stop:
			timer.Stop()
			return
		}
	}
}

// cycle fetches the snapshot and the active alerts together and applies
// both, or neither.
func (p *Poller) cycle(gen uint64) {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	if !p.current(gen) {
		return
	}

	start := time.Now()
	var (
		snap   telemetry.DashboardSnapshot
		alerts []telemetry.Alert
	)
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		var err error
		snap, err = p.src.GetDashboard(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		alerts, err = p.src.GetActiveAlerts(ctx, p.alertLimit)
		return err
	})
	err := g.Wait()
	elapsed := time.Since(start)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen || p.state != EngineActive {
		metrics.ObservePollCycle(metrics.ResultDiscarded, elapsed)
		p.logger.Debug("dropping poll result after stop", slog.Uint64("gen", gen))
		return
	}

	if err != nil {
		p.err = err
		p.errorCount++
		metrics.ObservePollCycle(metrics.ResultError, elapsed)
		p.logger.Warn("poll cycle failed", slog.Duration("elapsed", elapsed), logging.ErrAttr(err))
		p.notify()
		return
	}

	now := time.Now()
	p.recordRate(snap, now)
	if alerts == nil {
		alerts = []telemetry.Alert{}
	}
	p.snapshot = &snap
	p.active = alerts
	p.err = nil
	p.lastPoll = now
	p.pollCount++
	metrics.ObservePollCycle(metrics.ResultSuccess, elapsed)
	p.logger.Debug("poll cycle",
		slog.Duration("elapsed", elapsed),
		slog.Int64("messages", snap.TotalMessages),
		slog.Int("active_alerts", len(alerts)))
	p.notify()
}

func (p *Poller) current(gen uint64) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return gen == p.gen && p.state == EngineActive
}

// recordRate must be called with p.mu held.
func (p *Poller) recordRate(snap telemetry.DashboardSnapshot, now time.Time) {
	curr := CounterSample{Messages: snap.TotalMessages, Alerts: snap.TotalAlerts, Timestamp: now}
	if p.prev != nil {
		rate, err := CalculateRate(*p.prev, curr)
		switch {
		case err == nil:
			p.history.Add(rate)
		case errors.Is(err, ErrCounterReset):
			p.logger.Info("service counters went backwards, skipping rate sample")
		}
	}
	p.prev = &curr
}

// State returns a point-in-time copy of the poller.
func (p *Poller) State() PollerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stateLocked()
}

// stateLocked builds a PollerState. The caller must hold p.mu.
func (p *Poller) stateLocked() PollerState {
	st := PollerState{
		State:      p.state,
		Err:        p.err,
		LastPoll:   p.lastPoll,
		PollCount:  p.pollCount,
		ErrorCount: p.errorCount,
		History:    p.history.All(),
	}
	if rate, ok := p.history.Last(); ok {
		st.LatestRate = &rate
	}
	if p.snapshot != nil {
		snap := *p.snapshot
		st.Snapshot = &snap
	}
	if p.active != nil {
		st.ActiveAlerts = append([]telemetry.Alert{}, p.active...)
	}
	return st
}

// Subscribe returns a channel that receives an event after each applied
// cycle and each state change.
func (p *Poller) Subscribe() <-chan PollerEvent {
	ch := make(chan PollerEvent, 1)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// notify sends the current state to all subscribers (non-blocking).
// Must be called while holding the write lock on p.mu.
func (p *Poller) notify() {
	event := PollerEvent{State: p.stateLocked()}
	for _, ch := range p.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
