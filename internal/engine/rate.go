package engine

import (
	"errors"
	"time"
)

// ErrCounterReset indicates that a service counter went backwards, usually
// because the service was restarted with an empty store.
var ErrCounterReset = errors.New("counter reset detected")

// CounterSample holds the service's running totals at a point in time.
type CounterSample struct {
	Messages  int64
	Alerts    int64
	Timestamp time.Time
}

// RateSample holds ingest rates, per second, at a point in time.
type RateSample struct {
	Timestamp   time.Time
	MessageRate float64
	AlertRate   float64
}

// CalculateRate computes message and alert rates between two samples.
// Returns ErrCounterReset if either counter has decreased.
func CalculateRate(prev, curr CounterSample) (RateSample, error) {
	elapsed := curr.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return RateSample{}, errors.New("zero or negative elapsed time")
	}

	if curr.Messages < prev.Messages || curr.Alerts < prev.Alerts {
		return RateSample{}, ErrCounterReset
	}

	return RateSample{
		Timestamp:   curr.Timestamp,
		MessageRate: float64(curr.Messages-prev.Messages) / elapsed,
		AlertRate:   float64(curr.Alerts-prev.Alerts) / elapsed,
	}, nil
}
