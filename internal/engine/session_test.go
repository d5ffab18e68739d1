package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tonhe/pulse/internal/fakeservice"
)

func TestSessionDefaultPageSizes(t *testing.T) {
	s := newTestSession(t, fakeservice.New())
	if got := s.RawData.State().PageSize; got != DefaultSensorPageSize {
		t.Errorf("raw data page size = %d, want %d", got, DefaultSensorPageSize)
	}
	if got := s.Alerts.State().PageSize; got != DefaultAlertPageSize {
		t.Errorf("alerts page size = %d, want %d", got, DefaultAlertPageSize)
	}
	if s.RawData.Name() == s.Alerts.Name() {
		t.Error("pagers should have distinct names")
	}
}

func TestSessionCloseStopsPoller(t *testing.T) {
	s := newTestSession(t, fakeservice.New())
	if err := s.Poller.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	s.Close()
	if s.Poller.State().State != EngineIdle {
		t.Error("Close should stop the poller")
	}
	// closing an idle session is harmless
	s.Close()
	if err := s.Poller.Stop(); !errors.Is(err, ErrPollerIdle) {
		t.Errorf("Stop after Close = %v, want ErrPollerIdle", err)
	}
}

func TestSessionCloseConcurrent(t *testing.T) {
	s := newTestSession(t, fakeservice.New())
	if err := s.Poller.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	if s.Poller.State().State != EngineIdle {
		t.Error("concurrent Close should leave the poller idle")
	}
}

func TestSessionResolveReachesPoller(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 3)
	s := newTestSession(t, svc)
	if err := s.Poller.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitFor(t, "first cycle", func() bool { return len(s.Poller.State().ActiveAlerts) == 1 })

	if _, err := s.Resolver.Resolve(context.Background(), 3); err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	waitFor(t, "refreshed active alerts", func() bool { return len(s.Poller.State().ActiveAlerts) == 0 })
}
