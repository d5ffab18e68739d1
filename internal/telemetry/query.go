package telemetry

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// QueryTimeLayout is the layout used for start_time/end_time parameters.
const QueryTimeLayout = "2006-01-02T15:04:05"

var inputTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInputTime parses a user-entered time bound. Values without a zone are
// read in loc. An empty string yields the zero time, meaning "no bound".
func ParseInputTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range inputTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q (want YYYY-MM-DD[ HH:MM[:SS]])", s)
}

// StatusFilter is the tri-state resolved filter of the alerts list.
type StatusFilter int

const (
	StatusAny StatusFilter = iota
	StatusActive
	StatusResolved
)

func (s StatusFilter) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusResolved:
		return "resolved"
	default:
		return "any"
	}
}

// ParseStatusFilter accepts "", "any", "active"/"0" and "resolved"/"1".
func ParseStatusFilter(s string) (StatusFilter, error) {
	switch strings.ToLower(s) {
	case "", "any", "all":
		return StatusAny, nil
	case "active", "0":
		return StatusActive, nil
	case "resolved", "1":
		return StatusResolved, nil
	}
	return StatusAny, fmt.Errorf("unknown status %q (want active or resolved)", s)
}

// SensorDataFilter narrows the raw sensor data list. Zero values mean the
// criterion is absent.
type SensorDataFilter struct {
	Topic string
	Start time.Time
	End   time.Time
}

// Equal reports whether both filters select the same readings.
func (f SensorDataFilter) Equal(o SensorDataFilter) bool {
	return f.Topic == o.Topic && f.Start.Equal(o.Start) && f.End.Equal(o.End)
}

// AlertFilter narrows the alerts list. Zero values mean the criterion is
// absent.
type AlertFilter struct {
	Topic    string
	Severity Severity
	Status   StatusFilter
}

// Equal reports whether both filters select the same alerts.
func (f AlertFilter) Equal(o AlertFilter) bool {
	return f == o
}

// SensorDataQuery is a request for one page of sensor data.
type SensorDataQuery struct {
	SensorDataFilter
	Page     int
	PageSize int
}

func (q SensorDataQuery) values() url.Values {
	v := url.Values{}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if !q.Start.IsZero() {
		v.Set("start_time", q.Start.UTC().Format(QueryTimeLayout))
	}
	if !q.End.IsZero() {
		v.Set("end_time", q.End.UTC().Format(QueryTimeLayout))
	}
	setPaging(v, q.Page, q.PageSize)
	return v
}

// AlertQuery is a request for one page of alerts.
type AlertQuery struct {
	AlertFilter
	Page     int
	PageSize int
}

func (q AlertQuery) values() url.Values {
	v := url.Values{}
	if q.Topic != "" {
		v.Set("topic", q.Topic)
	}
	if q.Severity != "" {
		v.Set("severity", string(q.Severity))
	}
	switch q.Status {
	case StatusActive:
		v.Set("resolved", "0")
	case StatusResolved:
		v.Set("resolved", "1")
	}
	setPaging(v, q.Page, q.PageSize)
	return v
}

func setPaging(v url.Values, page, pageSize int) {
	if page < 1 {
		page = 1
	}
	v.Set("page", strconv.Itoa(page))
	if pageSize > 0 {
		v.Set("page_size", strconv.Itoa(pageSize))
	}
}
