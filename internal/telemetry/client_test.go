package telemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tonhe/pulse/internal/fakeservice"
	"github.com/tonhe/pulse/internal/telemetry"
)

var testEnd = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, svc http.Handler, opts ...telemetry.Option) *telemetry.Client {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	c, err := telemetry.NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	tests := []string{"ftp://example.com", "://nope"}
	for _, u := range tests {
		if _, err := telemetry.NewClient(u); err == nil {
			t.Errorf("NewClient(%q) expected error", u)
		}
	}
}

func TestNewClientDefaultURL(t *testing.T) {
	c, err := telemetry.NewClient("")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.BaseURL() != telemetry.DefaultBaseURL {
		t.Errorf("expected %q, got %q", telemetry.DefaultBaseURL, c.BaseURL())
	}
}

func TestGetSensorDataPagination(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/room1"}, 60, testEnd, time.Minute, 1)
	svc.Seed([]string{"sensor/room2"}, 7, testEnd, time.Minute, 2)
	c := newTestClient(t, svc)

	page, err := c.GetSensorData(context.Background(), telemetry.SensorDataQuery{
		SensorDataFilter: telemetry.SensorDataFilter{Topic: "sensor/room1"},
		Page:             2,
		PageSize:         25,
	})
	if err != nil {
		t.Fatalf("GetSensorData() error: %v", err)
	}
	if page.Total != 60 {
		t.Errorf("expected total 60, got %d", page.Total)
	}
	if page.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", page.TotalPages)
	}
	if len(page.Items) != 25 {
		t.Errorf("expected 25 items, got %d", len(page.Items))
	}
	for _, r := range page.Items {
		if r.Topic != "sensor/room1" {
			t.Fatalf("unexpected topic %q in filtered page", r.Topic)
		}
		if r.ReceivedAt.IsZero() {
			t.Fatalf("reading %d has no timestamp", r.ID)
		}
	}
	if !page.HasNext() || !page.HasPrev() {
		t.Error("page 2 of 3 should have both neighbours")
	}
}

func TestGetSensorDataTimeRange(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/a"}, 10, testEnd, time.Minute, 1)
	c := newTestClient(t, svc)

	page, err := c.GetSensorData(context.Background(), telemetry.SensorDataQuery{
		SensorDataFilter: telemetry.SensorDataFilter{
			Start: testEnd.Add(-2 * time.Minute),
			End:   testEnd,
		},
		Page:     1,
		PageSize: 25,
	})
	if err != nil {
		t.Fatalf("GetSensorData() error: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("expected 3 readings in range, got %d", page.Total)
	}
}

func TestOptionalParamsOmitted(t *testing.T) {
	var got map[string][]string
	srv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[],"page":1,"page_size":20,"total_pages":1,"total":0}`))
	})
	c := newTestClient(t, srv)

	if _, err := c.GetAlerts(context.Background(), telemetry.AlertQuery{Page: 1, PageSize: 20}); err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	for _, key := range []string{"topic", "severity", "resolved"} {
		if _, ok := got[key]; ok {
			t.Errorf("parameter %q should be absent, got %v", key, got[key])
		}
	}
	if got["page"][0] != "1" || got["page_size"][0] != "20" {
		t.Errorf("unexpected paging params %v", got)
	}

	if _, err := c.GetAlerts(context.Background(), telemetry.AlertQuery{
		AlertFilter: telemetry.AlertFilter{Topic: "t", Severity: telemetry.SeverityCritical, Status: telemetry.StatusActive},
		Page:        1,
		PageSize:    20,
	}); err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	if got["resolved"][0] != "0" || got["severity"][0] != "critical" || got["topic"][0] != "t" {
		t.Errorf("unexpected filter params %v", got)
	}
}

func TestRequestIDHeader(t *testing.T) {
	var id string
	srv := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = r.Header.Get(telemetry.RequestIDHeader)
		w.Write([]byte(`[]`))
	})
	c := newTestClient(t, srv)
	if _, err := c.GetTopics(context.Background()); err != nil {
		t.Fatalf("GetTopics() error: %v", err)
	}
	if len(id) != 36 {
		t.Errorf("expected a UUID request id, got %q", id)
	}
}

func TestGetTopicsEmpty(t *testing.T) {
	c := newTestClient(t, fakeservice.New())
	topics, err := c.GetTopics(context.Background())
	if err != nil {
		t.Fatalf("GetTopics() error: %v", err)
	}
	if topics == nil || len(topics) != 0 {
		t.Errorf("expected empty non-nil topic set, got %#v", topics)
	}
}

func TestResolveAlert(t *testing.T) {
	svc := fakeservice.New()
	svc.AddAlert(telemetry.Alert{ID: 7, Topic: "sensor/a", Severity: telemetry.SeverityWarning, CreatedAt: telemetry.Timestamp{Time: testEnd}})
	svc.AddAlert(telemetry.Alert{ID: 8, Topic: "sensor/a", Severity: telemetry.SeverityWarning, CreatedAt: telemetry.Timestamp{Time: testEnd}})
	c := newTestClient(t, svc)
	ctx := context.Background()

	alert, err := c.ResolveAlert(ctx, 7)
	if err != nil {
		t.Fatalf("ResolveAlert() error: %v", err)
	}
	if alert.ID != 7 || !bool(alert.Resolved) {
		t.Errorf("expected resolved alert 7, got id=%d resolved=%v", alert.ID, alert.Resolved)
	}

	page, err := c.GetAlerts(ctx, telemetry.AlertQuery{
		AlertFilter: telemetry.AlertFilter{Status: telemetry.StatusActive},
		Page:        1,
		PageSize:    20,
	})
	if err != nil {
		t.Fatalf("GetAlerts() error: %v", err)
	}
	for _, a := range page.Items {
		if a.ID == 7 {
			t.Fatal("resolved alert 7 still listed as active")
		}
	}
	if page.Total != 1 {
		t.Errorf("expected 1 active alert, got %d", page.Total)
	}
}

func TestResolveAlertLegacyBody(t *testing.T) {
	svc := fakeservice.New(fakeservice.WithLegacyResolve())
	svc.AddAlert(telemetry.Alert{ID: 3, Topic: "sensor/a", Severity: telemetry.SeverityCritical})
	c := newTestClient(t, svc)

	alert, err := c.ResolveAlert(context.Background(), 3)
	if err != nil {
		t.Fatalf("ResolveAlert() error: %v", err)
	}
	if alert.ID != 3 || !bool(alert.Resolved) {
		t.Errorf("expected confirmation for alert 3, got %+v", alert)
	}
}

func TestResolveAlertNotFound(t *testing.T) {
	c := newTestClient(t, fakeservice.New())

	_, err := c.ResolveAlert(context.Background(), 99999)
	if !telemetry.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	var se *telemetry.ServiceError
	if !errors.As(err, &se) {
		t.Fatal("NotFoundError should also match *ServiceError")
	}
	if se.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", se.Status)
	}
}

func TestServiceError(t *testing.T) {
	svc := fakeservice.New()
	svc.FailNext(1, http.StatusInternalServerError)
	c := newTestClient(t, svc)

	_, err := c.GetDashboard(context.Background())
	var se *telemetry.ServiceError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServiceError, got %v", err)
	}
	if se.Status != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", se.Status)
	}
	if telemetry.IsNotFound(err) {
		t.Error("500 must not be a NotFoundError")
	}
}

func TestTransportErrorOnTimeout(t *testing.T) {
	svc := fakeservice.New(fakeservice.WithLatency(200 * time.Millisecond))
	c := newTestClient(t, svc, telemetry.WithTimeout(20*time.Millisecond))

	_, err := c.GetDashboard(context.Background())
	if !telemetry.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestTransportErrorOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := telemetry.NewClient(url)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := c.GetTopics(context.Background()); !telemetry.IsTransport(err) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestGetDashboard(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/a", "sensor/b"}, 5, testEnd, time.Minute, 3)
	c := newTestClient(t, svc)

	snap, err := c.GetDashboard(context.Background())
	if err != nil {
		t.Fatalf("GetDashboard() error: %v", err)
	}
	if snap.TotalMessages != 10 {
		t.Errorf("expected 10 messages, got %d", snap.TotalMessages)
	}
	if len(snap.Topics) != 2 {
		t.Errorf("expected 2 topics, got %d", len(snap.Topics))
	}
	latest, ok := snap.LatestReadings["sensor/a"]
	if !ok {
		t.Fatal("missing latest reading for sensor/a")
	}
	if latest.ReceivedAt == nil || !latest.ReceivedAt.Equal(testEnd) {
		t.Errorf("expected latest reading at %v, got %v", testEnd, latest.ReceivedAt)
	}
	if len(snap.Thresholds) != 5 {
		t.Errorf("expected 5 thresholds, got %d", len(snap.Thresholds))
	}
}

func TestGetLatestAndActive(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/a"}, 20, testEnd, time.Minute, 4)
	for i := 0; i < 12; i++ {
		svc.AddAlert(telemetry.Alert{Topic: "sensor/a", Severity: telemetry.SeverityWarning, CreatedAt: telemetry.Timestamp{Time: testEnd}})
	}
	c := newTestClient(t, svc)
	ctx := context.Background()

	readings, err := c.GetLatestReadings(ctx, 5)
	if err != nil {
		t.Fatalf("GetLatestReadings() error: %v", err)
	}
	if len(readings) != 5 {
		t.Errorf("expected 5 readings, got %d", len(readings))
	}

	alerts, err := c.GetActiveAlerts(ctx, 10)
	if err != nil {
		t.Fatalf("GetActiveAlerts() error: %v", err)
	}
	if len(alerts) != 10 {
		t.Errorf("expected 10 active alerts, got %d", len(alerts))
	}
}
