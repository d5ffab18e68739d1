// Package fakeservice is an in-memory stand-in for the remote telemetry
// service. It serves the same endpoints with the same JSON shapes, evaluates
// thresholds on ingested readings the way the real service does, and can be
// told to slow down or fail. Used by tests and by `pulse fake-server`.
package fakeservice

import (
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tonhe/pulse/internal/telemetry"
)

// DefaultThresholds mirrors the limits configured on the real service.
var DefaultThresholds = map[string]telemetry.Limit{
	"temperature": {Min: 0, Max: 80},
	"humidity":    {Min: 10, Max: 95},
	"voltage":     {Min: 180, Max: 260},
	"current":     {Min: 0, Max: 30},
	"pressure":    {Min: 900, Max: 1100},
}

// criticalKeyCount is the number of violated parameters at which an alert is
// critical instead of warning.
const criticalKeyCount = 3

// Service is the in-memory telemetry service.
type Service struct {
	mu            sync.Mutex
	readings      []telemetry.SensorReading
	alerts        []telemetry.Alert
	thresholds    map[string]telemetry.Limit
	nextReadingID int64
	nextAlertID   int64
	latency       time.Duration
	legacyResolve bool
	failCount     int
	failStatus    int
	calls         map[string]int
	router        http.Handler
}

// Option configures a Service.
type Option func(*Service)

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Service) { s.latency = d }
}

// WithLegacyResolve makes the resolve endpoint answer with a confirmation
// message instead of the resolved alert, like the original service does.
func WithLegacyResolve() Option {
	return func(s *Service) { s.legacyResolve = true }
}

// WithThresholds replaces the threshold limits.
func WithThresholds(t map[string]telemetry.Limit) Option {
	return func(s *Service) { s.thresholds = t }
}

// New creates an empty Service.
func New(opts ...Option) *Service {
	s := &Service{
		thresholds:    DefaultThresholds,
		nextReadingID: 1,
		nextAlertID:   1,
		calls:         make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// SetLatency changes the response delay.
func (s *Service) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// FailNext makes the next n requests answer with status.
func (s *Service) FailNext(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCount = n
	s.failStatus = status
}

// Calls returns how many requests hit the named endpoint. Endpoint names are
// the route patterns, e.g. "GET /api/sensor-data/topics".
func (s *Service) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// Ingest stores a reading and raises an alert if any value breaches its
// threshold. The stored reading and the alert (nil if none) are returned.
func (s *Service) Ingest(topic string, at time.Time, values map[string]float64) (telemetry.SensorReading, *telemetry.Alert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := telemetry.SensorReading{
		ID:         s.nextReadingID,
		Topic:      topic,
		ReceivedAt: telemetry.Timestamp{Time: at.UTC()},
	}
	s.nextReadingID++
	for k, v := range values {
		v := v
		switch k {
		case "temperature":
			r.Temperature = &v
		case "humidity":
			r.Humidity = &v
		case "voltage":
			r.Voltage = &v
		case "current":
			r.Current = &v
		case "pressure":
			r.Pressure = &v
		}
	}
	s.readings = append(s.readings, r)

	alert := s.checkThresholdsLocked(topic, at, values)
	return r, alert
}

// AddAlert stores an alert as given, assigning an id when it has none.
func (s *Service) AddAlert(a telemetry.Alert) telemetry.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.nextAlertID
	}
	if a.ID >= s.nextAlertID {
		s.nextAlertID = a.ID + 1
	}
	s.alerts = append(s.alerts, a)
	return a
}

// Alert returns the stored alert with the given id.
func (s *Service) Alert(id int64) (telemetry.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.alerts {
		if a.ID == id {
			return a, true
		}
	}
	return telemetry.Alert{}, false
}

// Seed ingests perTopic readings for every topic, spaced step apart and ending
// at end. Values are random but reproducible for a given seed, and roughly one
// reading in ten breaches a threshold.
func (s *Service) Seed(topics []string, perTopic int, end time.Time, step time.Duration, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	start := end.Add(-time.Duration(perTopic-1) * step)
	for i := 0; i < perTopic; i++ {
		at := start.Add(time.Duration(i) * step)
		for _, topic := range topics {
			s.Ingest(topic, at, RandomValues(rng, s.thresholds))
		}
	}
}

// RandomValues produces one value per threshold key, inside the limits most
// of the time.
func RandomValues(rng *rand.Rand, thresholds map[string]telemetry.Limit) map[string]float64 {
	values := make(map[string]float64, len(thresholds))
	for _, k := range telemetry.FieldNames {
		lim, ok := thresholds[k]
		if !ok {
			continue
		}
		span := lim.Max - lim.Min
		v := lim.Min + span*(0.1+0.8*rng.Float64())
		if rng.Intn(10) == 0 {
			v = lim.Max + span*0.1*(1+rng.Float64())
		}
		values[k] = float64(int(v*100)) / 100
	}
	return values
}

func (s *Service) checkThresholdsLocked(topic string, at time.Time, values map[string]float64) *telemetry.Alert {
	var violated []string
	actual := make(map[string]float64)
	limits := make(map[string]telemetry.Limit)
	for _, k := range telemetry.FieldNames {
		v, ok := values[k]
		if !ok {
			continue
		}
		lim, ok := s.thresholds[k]
		if !ok {
			continue
		}
		if v < lim.Min || v > lim.Max {
			violated = append(violated, k)
			actual[k] = v
			limits[k] = lim
		}
	}
	if len(violated) == 0 {
		return nil
	}

	severity := telemetry.SeverityWarning
	if len(violated) >= criticalKeyCount {
		severity = telemetry.SeverityCritical
	}
	parts := make([]string, 0, len(violated))
	for _, k := range violated {
		parts = append(parts, fmt.Sprintf("%s=%g (limit %g-%g)", k, actual[k], limits[k].Min, limits[k].Max))
	}

	a := telemetry.Alert{
		ID:              s.nextAlertID,
		Topic:           topic,
		Severity:        severity,
		CreatedAt:       telemetry.Timestamp{Time: at.UTC()},
		ViolatedKeys:    violated,
		ActualValues:    actual,
		ThresholdLimits: limits,
		Message:         fmt.Sprintf("Threshold breach on %s: %s", topic, strings.Join(parts, ", ")),
	}
	s.nextAlertID++
	s.alerts = append(s.alerts, a)
	return &a
}

// topicsLocked returns the distinct topics in first-seen order.
func (s *Service) topicsLocked() []string {
	seen := make(map[string]bool)
	topics := []string{}
	for _, r := range s.readings {
		if !seen[r.Topic] {
			seen[r.Topic] = true
			topics = append(topics, r.Topic)
		}
	}
	return topics
}

// readingsNewestFirst returns matching readings ordered by received time,
// newest first.
func (s *Service) readingsNewestFirstLocked(match func(telemetry.SensorReading) bool) []telemetry.SensorReading {
	out := make([]telemetry.SensorReading, 0, len(s.readings))
	for _, r := range s.readings {
		if match == nil || match(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt.Time) {
			return out[i].ID > out[j].ID
		}
		return out[i].ReceivedAt.After(out[j].ReceivedAt.Time)
	})
	return out
}

func (s *Service) alertsNewestFirstLocked(match func(telemetry.Alert) bool) []telemetry.Alert {
	out := make([]telemetry.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if match == nil || match(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt.Time) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt.Time)
	})
	return out
}

// before runs at the start of every request: counts the call, sleeps for the
// configured latency and reports a forced failure status, if any.
func (s *Service) before(endpoint string) (int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[endpoint]++
	if s.failCount > 0 {
		s.failCount--
		return s.failStatus, s.latency
	}
	return 0, s.latency
}

// paginate slices items for the requested page. total_pages is never below 1.
func paginate[T any](items []T, page, pageSize int) telemetry.Page[T] {
	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return telemetry.Page[T]{
		Items:      append([]T{}, items[start:end]...),
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		Total:      total,
	}
}

var _ http.Handler = (*Service)(nil)

// ServeHTTP routes the request to the matching endpoint.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
