package engine

import (
	"context"
	"time"

	"github.com/tonhe/pulse/internal/telemetry"
)

// EngineState represents the lifecycle state of the dashboard poller.
type EngineState int

const (
	EngineIdle EngineState = iota
	EngineActive
)

func (s EngineState) String() string {
	switch s {
	case EngineActive:
		return "active"
	default:
		return "idle"
	}
}

// DashboardSource is what the poller needs from the telemetry client.
type DashboardSource interface {
	GetDashboard(ctx context.Context) (telemetry.DashboardSnapshot, error)
	GetActiveAlerts(ctx context.Context, limit int) ([]telemetry.Alert, error)
}

// TopicSource supplies the topic set.
type TopicSource interface {
	GetTopics(ctx context.Context) ([]string, error)
}

// AlertResolver marks alerts resolved upstream.
type AlertResolver interface {
	ResolveAlert(ctx context.Context, id int64) (telemetry.Alert, error)
}

// PollerState is a point-in-time copy of everything the poller holds.
// Snapshot is nil until the first successful cycle.
type PollerState struct {
	State        EngineState
	Snapshot     *telemetry.DashboardSnapshot
	ActiveAlerts []telemetry.Alert
	Err          error
	LastPoll     time.Time
	PollCount    int
	ErrorCount   int
	History      []RateSample
	LatestRate   *RateSample
}

// PollerEvent is emitted to subscribers after each applied poll cycle and
// on every state transition.
type PollerEvent struct {
	State PollerState
}

// PagerState is a read-only copy of a pager. Page is nil until the first
// successful reload.
type PagerState[T any, F any] struct {
	Page     *telemetry.Page[T]
	Filter   F
	PageNum  int
	PageSize int
	Loading  bool
	Err      error
	Seq      uint64
}
