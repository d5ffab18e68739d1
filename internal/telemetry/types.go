package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Field names of the numeric sensor parameters, in display order.
var FieldNames = []string{"temperature", "humidity", "voltage", "current", "pressure"}

// Severity classifies alert urgency.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ParseSeverity accepts "warning" or "critical" in any case. An empty string
// means any severity.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q (want warning or critical)", s)
}

// Timestamp decodes the timestamps the service emits. Values without a zone
// offset are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses any of the accepted wire layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// SensorReading is one message received by the service for a topic.
type SensorReading struct {
	ID          int64     `json:"id"`
	Topic       string    `json:"topic"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Voltage     *float64  `json:"voltage"`
	Current     *float64  `json:"current"`
	Pressure    *float64  `json:"pressure"`
	ReceivedAt  Timestamp `json:"received_at"`
}

// Values returns the numeric fields keyed by name; absent fields are nil.
func (r SensorReading) Values() map[string]*float64 {
	return map[string]*float64{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"voltage":     r.Voltage,
		"current":     r.Current,
		"pressure":    r.Pressure,
	}
}

// Limit is a min/max threshold pair for one parameter.
type Limit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Resolved is an alert's resolution flag. The service encodes it as 0/1.
type Resolved bool

func (r *Resolved) UnmarshalJSON(data []byte) error {
	switch s := string(bytes.TrimSpace(data)); s {
	case "true":
		*r = true
	case "false", "null":
		*r = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid resolved flag %s", s)
		}
		*r = n != 0
	}
	return nil
}

func (r Resolved) MarshalJSON() ([]byte, error) {
	if r {
		return []byte("1"), nil
	}
	return []byte("0"), nil
}

// Alert is a threshold breach recorded by the service.
type Alert struct {
	ID              int64              `json:"id"`
	Topic           string             `json:"topic"`
	Severity        Severity           `json:"severity"`
	CreatedAt       Timestamp          `json:"created_at"`
	Resolved        Resolved           `json:"resolved"`
	ViolatedKeys    []string           `json:"violated_keys"`
	ActualValues    map[string]float64 `json:"actual_values"`
	ThresholdLimits map[string]Limit   `json:"threshold_limits"`
	Message         string             `json:"message"`
}

// Page is one page of a paginated list response.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// HasNext reports whether a page after this one exists.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev reports whether a page before this one exists.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// LatestReading is the most recent reading of a topic as reported in the
// dashboard snapshot. Every field may be absent.
type LatestReading struct {
	Temperature *float64   `json:"temperature"`
	Humidity    *float64   `json:"humidity"`
	Voltage     *float64   `json:"voltage"`
	Current     *float64   `json:"current"`
	Pressure    *float64   `json:"pressure"`
	ReceivedAt  *Timestamp `json:"received_at"`
}

// Values returns the numeric fields keyed by name; absent fields are nil.
func (r LatestReading) Values() map[string]*float64 {
	return map[string]*float64{
		"temperature": r.Temperature,
		"humidity":    r.Humidity,
		"voltage":     r.Voltage,
		"current":     r.Current,
		"pressure":    r.Pressure,
	}
}

// DashboardSnapshot holds the aggregate statistics shown on the live view.
type DashboardSnapshot struct {
	TotalMessages  int64                    `json:"total_messages"`
	TotalAlerts    int64                    `json:"total_alerts"`
	ActiveAlerts   int64                    `json:"active_alerts"`
	Topics         []string                 `json:"topics"`
	LatestReadings map[string]LatestReading `json:"latest_readings"`
	Thresholds     map[string]Limit         `json:"thresholds,omitempty"`
}
