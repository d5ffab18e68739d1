package cmd

import (
	"errors"
	"testing"

	"github.com/tonhe/pulse/internal/telemetry"
)

func TestFormatCount(t *testing.T) {
	tests := map[int64]string{
		0:       "0",
		999:     "999",
		1234567: "1,234,567",
	}
	for in, want := range tests {
		if got := formatCount(in); got != want {
			t.Errorf("formatCount(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	v := 1234.5
	if got := formatValue(&v); got != "1,234.50" {
		t.Errorf("formatValue = %q", got)
	}
	if got := formatValue(nil); got != "-" {
		t.Errorf("absent value should print as -, got %q", got)
	}
}

func TestFormatBreaches(t *testing.T) {
	a := telemetry.Alert{
		ViolatedKeys:    []string{"voltage", "humidity"},
		ActualValues:    map[string]float64{"voltage": 300, "humidity": 99},
		ThresholdLimits: map[string]telemetry.Limit{"voltage": {Min: 180, Max: 260}, "humidity": {Min: 10, Max: 95}},
	}
	want := "humidity=99.00 [10..95], voltage=300.00 [180..260]"
	if got := formatBreaches(a); got != want {
		t.Errorf("formatBreaches = %q, want %q", got, want)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&telemetry.NotFoundError{ServiceError: &telemetry.ServiceError{Status: 404}}, "not found"},
		{&telemetry.ServiceError{Status: 500, Body: "boom"}, "service returned 500: boom"},
		{&telemetry.TransportError{Op: "topics", Err: errors.New("refused")}, "cannot reach service: refused"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := describeError(tt.err); got != tt.want {
			t.Errorf("describeError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSplitTopics(t *testing.T) {
	got := splitTopics(" a, b,,c ")
	if len(got) != 3 || got[0] != "a" || got[2] != "c" {
		t.Errorf("splitTopics = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("sensor/building-a/room-101", 10); got != "sensor/..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
}

func TestIsSubcommand(t *testing.T) {
	for _, c := range []string{"alerts", "fake-server", "watch"} {
		if !IsSubcommand(c) {
			t.Errorf("%q should be a subcommand", c)
		}
	}
	if IsSubcommand("--theme") {
		t.Error("flags are not subcommands")
	}
}
