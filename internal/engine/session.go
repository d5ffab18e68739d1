package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/telemetry"
)

const (
	DefaultSensorPageSize = 25
	DefaultAlertPageSize  = 20
)

// SessionConfig sizes the components of a Session. Zero fields take the
// package defaults.
type SessionConfig struct {
	PollInterval     time.Duration
	ActiveAlertLimit int
	MaxHistory       int
	SensorPageSize   int
	AlertPageSize    int
}

// SensorPager pages raw sensor readings.
type SensorPager = Pager[telemetry.SensorReading, telemetry.SensorDataFilter]

// AlertPager pages alerts.
type AlertPager = Pager[telemetry.Alert, telemetry.AlertFilter]

// Session wires together everything one operator session uses.
type Session struct {
	Client   *telemetry.Client
	Topics   *TopicCache
	RawData  *SensorPager
	Alerts   *AlertPager
	Poller   *Poller
	Resolver *Resolver

	logger *slog.Logger
}

// NewSession builds a Session over client. The resolver watches the alerts
// pager and the poller.
func NewSession(client *telemetry.Client, cfg SessionConfig, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.Discard()
	}
	if cfg.SensorPageSize <= 0 {
		cfg.SensorPageSize = DefaultSensorPageSize
	}
	if cfg.AlertPageSize <= 0 {
		cfg.AlertPageSize = DefaultAlertPageSize
	}

	s := &Session{
		Client: client,
		Topics: NewTopicCache(client, logger),
		RawData: NewPager("raw_data", cfg.SensorPageSize,
			func(ctx context.Context, f telemetry.SensorDataFilter, page, size int) (telemetry.Page[telemetry.SensorReading], error) {
				return client.GetSensorData(ctx, telemetry.SensorDataQuery{SensorDataFilter: f, Page: page, PageSize: size})
			}, logger),
		Alerts: NewPager("alerts", cfg.AlertPageSize,
			func(ctx context.Context, f telemetry.AlertFilter, page, size int) (telemetry.Page[telemetry.Alert], error) {
				return client.GetAlerts(ctx, telemetry.AlertQuery{AlertFilter: f, Page: page, PageSize: size})
			}, logger),
		Poller: NewPoller(client, PollerConfig{
			Interval:         cfg.PollInterval,
			ActiveAlertLimit: cfg.ActiveAlertLimit,
			MaxHistory:       cfg.MaxHistory,
		}, logger),
		Resolver: NewResolver(client, logger),
		logger:   logger,
	}
	s.Resolver.Watch(AlertPagerView(s.Alerts))
	s.Resolver.Watch(s.Poller)
	return s
}

// Close stops the poller if it is running.
func (s *Session) Close() {
	if err := s.Poller.Stop(); err != nil && !errors.Is(err, ErrPollerIdle) {
		s.logger.Warn("stop poller", logging.ErrAttr(err))
	}
}
