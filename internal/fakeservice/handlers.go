package fakeservice

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tonhe/pulse/internal/telemetry"
)

// wireTimeLayout is the zone-less layout the real service emits.
const wireTimeLayout = "2006-01-02T15:04:05.000000"

const (
	defaultSensorPageSize = 25
	defaultAlertPageSize  = 25
	maxPageSize           = 100
	defaultLatestLimit    = 10
	maxLatestLimit        = 50
	defaultActiveLimit    = 20
	maxActiveLimit        = 100
)

func (s *Service) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	s.handle(r, http.MethodGet, "/api/dashboard/", s.handleDashboard)
	s.handle(r, http.MethodGet, "/api/sensor-data/", s.handleSensorData)
	s.handle(r, http.MethodGet, "/api/sensor-data/latest", s.handleLatest)
	s.handle(r, http.MethodGet, "/api/sensor-data/topics", s.handleTopics)
	s.handle(r, http.MethodGet, "/api/alerts/", s.handleAlerts)
	s.handle(r, http.MethodGet, "/api/alerts/active", s.handleActiveAlerts)
	s.handle(r, http.MethodPatch, "/api/alerts/{id}/resolve", s.handleResolve)
	return r
}

// handle registers fn behind the call counter, latency and failure injection.
func (s *Service) handle(r chi.Router, method, pattern string, fn http.HandlerFunc) {
	endpoint := method + " " + pattern
	r.Method(method, pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		status, latency := s.before(endpoint)
		if latency > 0 {
			select {
			case <-time.After(latency):
			case <-req.Context().Done():
				return
			}
		}
		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": http.StatusText(status)})
			return
		}
		fn(w, req)
	}))
}

type wireReading struct {
	ID          int64    `json:"id"`
	Topic       string   `json:"topic"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
	Pressure    *float64 `json:"pressure"`
	ReceivedAt  string   `json:"received_at"`
}

type wireAlert struct {
	ID              int64                      `json:"id"`
	Topic           string                     `json:"topic"`
	ViolatedKeys    []string                   `json:"violated_keys"`
	ActualValues    map[string]float64         `json:"actual_values"`
	ThresholdLimits map[string]telemetry.Limit `json:"threshold_limits"`
	Message         string                     `json:"message"`
	Severity        telemetry.Severity         `json:"severity"`
	Resolved        telemetry.Resolved         `json:"resolved"`
	CreatedAt       string                     `json:"created_at"`
}

type wireLatest struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Voltage     *float64 `json:"voltage"`
	Current     *float64 `json:"current"`
	Pressure    *float64 `json:"pressure"`
	ReceivedAt  *string  `json:"received_at"`
}

type wirePage[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

func toWireReading(r telemetry.SensorReading) wireReading {
	return wireReading{
		ID:          r.ID,
		Topic:       r.Topic,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		Voltage:     r.Voltage,
		Current:     r.Current,
		Pressure:    r.Pressure,
		ReceivedAt:  r.ReceivedAt.UTC().Format(wireTimeLayout),
	}
}

func toWireAlert(a telemetry.Alert) wireAlert {
	keys := a.ViolatedKeys
	if keys == nil {
		keys = []string{}
	}
	return wireAlert{
		ID:              a.ID,
		Topic:           a.Topic,
		ViolatedKeys:    keys,
		ActualValues:    a.ActualValues,
		ThresholdLimits: a.ThresholdLimits,
		Message:         a.Message,
		Severity:        a.Severity,
		Resolved:        a.Resolved,
		CreatedAt:       a.CreatedAt.UTC().Format(wireTimeLayout),
	}
}

func toWirePage[T, W any](p telemetry.Page[T], conv func(T) W) wirePage[W] {
	items := make([]W, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, conv(it))
	}
	return wirePage[W]{
		Items:      items,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active int64
	for _, a := range s.alerts {
		if !bool(a.Resolved) {
			active++
		}
	}

	topics := s.topicsLocked()
	latest := make(map[string]wireLatest, len(topics))
	for _, rd := range s.readingsNewestFirstLocked(nil) {
		if _, ok := latest[rd.Topic]; ok {
			continue
		}
		at := rd.ReceivedAt.UTC().Format(wireTimeLayout)
		latest[rd.Topic] = wireLatest{
			Temperature: rd.Temperature,
			Humidity:    rd.Humidity,
			Voltage:     rd.Voltage,
			Current:     rd.Current,
			Pressure:    rd.Pressure,
			ReceivedAt:  &at,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_messages":  len(s.readings),
		"total_alerts":    len(s.alerts),
		"active_alerts":   active,
		"latest_readings": latest,
		"topics":          topics,
		"thresholds":      s.thresholds,
	})
}

func (s *Service) handleSensorData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize, err := pagingParams(q.Get("page"), q.Get("page_size"), defaultSensorPageSize)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	topic := q.Get("topic")
	var start, end time.Time
	if v := q.Get("start_time"); v != "" {
		ts, err := telemetry.ParseTimestamp(v)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		start = ts.Time
	}
	if v := q.Get("end_time"); v != "" {
		ts, err := telemetry.ParseTimestamp(v)
		if err != nil {
			writeValidationError(w, err)
			return
		}
		end = ts.Time
	}

	s.mu.Lock()
	items := s.readingsNewestFirstLocked(func(rd telemetry.SensorReading) bool {
		if topic != "" && rd.Topic != topic {
			return false
		}
		if !start.IsZero() && rd.ReceivedAt.Before(start) {
			return false
		}
		if !end.IsZero() && rd.ReceivedAt.After(end) {
			return false
		}
		return true
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, toWirePage(paginate(items, page, pageSize), toWireReading))
}

func (s *Service) handleLatest(w http.ResponseWriter, r *http.Request) {
	limit, err := boundedInt(r.URL.Query().Get("limit"), "limit", defaultLatestLimit, maxLatestLimit)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	s.mu.Lock()
	items := s.readingsNewestFirstLocked(nil)
	s.mu.Unlock()

	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]wireReading, 0, len(items))
	for _, it := range items {
		out = append(out, toWireReading(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleTopics(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	topics := s.topicsLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, topics)
}

func (s *Service) handleAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, pageSize, err := pagingParams(q.Get("page"), q.Get("page_size"), defaultAlertPageSize)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	topic := q.Get("topic")
	severity := q.Get("severity")
	resolved := -1
	if v := q.Get("resolved"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeValidationError(w, fmt.Errorf("resolved: %w", err))
			return
		}
		resolved = n
	}

	s.mu.Lock()
	items := s.alertsNewestFirstLocked(func(a telemetry.Alert) bool {
		if topic != "" && a.Topic != topic {
			return false
		}
		if severity != "" && string(a.Severity) != severity {
			return false
		}
		if resolved >= 0 && bool(a.Resolved) != (resolved != 0) {
			return false
		}
		return true
	})
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, toWirePage(paginate(items, page, pageSize), toWireAlert))
}

func (s *Service) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := boundedInt(r.URL.Query().Get("limit"), "limit", defaultActiveLimit, maxActiveLimit)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	s.mu.Lock()
	items := s.alertsNewestFirstLocked(func(a telemetry.Alert) bool { return !bool(a.Resolved) })
	s.mu.Unlock()

	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]wireAlert, 0, len(items))
	for _, it := range items {
		out = append(out, toWireAlert(it))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeValidationError(w, fmt.Errorf("alert_id: %w", err))
		return
	}

	s.mu.Lock()
	idx := -1
	for i := range s.alerts {
		if s.alerts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Alert not found"})
		return
	}
	s.alerts[idx].Resolved = true
	alert := s.alerts[idx]
	legacy := s.legacyResolve
	s.mu.Unlock()

	if legacy {
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Alert %d resolved", id)})
		return
	}
	writeJSON(w, http.StatusOK, toWireAlert(alert))
}

func pagingParams(pageStr, sizeStr string, defaultSize int) (int, int, error) {
	page := 1
	if pageStr != "" {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 1 {
			return 0, 0, fmt.Errorf("page must be an integer >= 1")
		}
		page = n
	}
	size, err := boundedInt(sizeStr, "page_size", defaultSize, maxPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func boundedInt(v, name string, def, max int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, fmt.Errorf("%s must be an integer between 1 and %d", name, max)
	}
	return n, nil
}

func writeValidationError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
