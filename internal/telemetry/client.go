// Package telemetry is a typed client for the remote sensor telemetry and
// alerting service.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/internal/metrics"
)

const (
	// DefaultBaseURL is used when no base URL is configured.
	DefaultBaseURL = "http://localhost:8000"
	// DefaultTimeout applies to every request.
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader carries the per-request UUID.
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 4 << 20
)

// Client issues requests against a fixed set of telemetry service endpoints.
// It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is used as
// the per-request timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Client for the service at baseURL. An empty baseURL
// means DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// GetDashboard fetches the aggregate dashboard snapshot.
func (c *Client) GetDashboard(ctx context.Context) (DashboardSnapshot, error) {
	var snap DashboardSnapshot
	err := c.do(ctx, "dashboard", http.MethodGet, "/api/dashboard/", nil, &snap)
	return snap, err
}

// GetSensorData fetches one page of raw sensor readings.
func (c *Client) GetSensorData(ctx context.Context, q SensorDataQuery) (Page[SensorReading], error) {
	var page Page[SensorReading]
	err := c.do(ctx, "sensor_data", http.MethodGet, "/api/sensor-data/", q.values(), &page)
	return page, err
}

// GetLatestReadings fetches the most recent readings across all topics.
func (c *Client) GetLatestReadings(ctx context.Context, limit int) ([]SensorReading, error) {
	var readings []SensorReading
	err := c.do(ctx, "latest_readings", http.MethodGet, "/api/sensor-data/latest", limitValues(limit), &readings)
	return readings, err
}

// GetTopics fetches the distinct set of topics that have sent data.
func (c *Client) GetTopics(ctx context.Context) ([]string, error) {
	var topics []string
	if err := c.do(ctx, "topics", http.MethodGet, "/api/sensor-data/topics", nil, &topics); err != nil {
		return nil, err
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}

// GetAlerts fetches one page of alerts.
func (c *Client) GetAlerts(ctx context.Context, q AlertQuery) (Page[Alert], error) {
	var page Page[Alert]
	err := c.do(ctx, "alerts", http.MethodGet, "/api/alerts/", q.values(), &page)
	return page, err
}

// GetActiveAlerts fetches up to limit unresolved alerts, newest first.
func (c *Client) GetActiveAlerts(ctx context.Context, limit int) ([]Alert, error) {
	var alerts []Alert
	err := c.do(ctx, "active_alerts", http.MethodGet, "/api/alerts/active", limitValues(limit), &alerts)
	return alerts, err
}

// ResolveAlert marks the alert resolved. It fails with a NotFoundError when the
// service does not know the id.
//
// Services that answer with a confirmation message instead of the alert yield
// an Alert carrying only the id and the resolved flag.
func (c *Client) ResolveAlert(ctx context.Context, id int64) (Alert, error) {
	var raw json.RawMessage
	path := "/api/alerts/" + strconv.FormatInt(id, 10) + "/resolve"
	if err := c.do(ctx, "resolve_alert", http.MethodPatch, path, nil, &raw); err != nil {
		return Alert{}, err
	}

	var probe struct {
		ID *int64 `json:"id"`
	}
	if len(raw) > 0 && json.Unmarshal(raw, &probe) == nil && probe.ID != nil {
		var alert Alert
		if err := json.Unmarshal(raw, &alert); err != nil {
			return Alert{}, fmt.Errorf("resolve_alert: decode response: %w", err)
		}
		return alert, nil
	}
	return Alert{ID: id, Resolved: true}, nil
}

// do performs one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, out any) (err error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		metrics.ObserveRequest(op, err, elapsed)
		attrs := []any{
			slog.String("op", op),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.Duration("elapsed", elapsed),
		}
		if err != nil {
			c.logger.Warn("telemetry request failed", append(attrs, logging.ErrAttr(err))...)
			return
		}
		c.logger.Debug("telemetry request", attrs...)
	}()

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &ServiceError{Op: op, Status: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound {
			return &NotFoundError{ServiceError: se}
		}
		return se
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func limitValues(limit int) url.Values {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	return v
}
