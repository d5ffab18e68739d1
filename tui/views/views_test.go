package views

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/fakeservice"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/styles"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newSession(t *testing.T, svc *fakeservice.Service) *engine.Session {
	t.Helper()
	srv := httptest.NewServer(svc)
	t.Cleanup(srv.Close)
	client, err := telemetry.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	s := engine.NewSession(client, engine.SessionConfig{PollInterval: time.Hour}, nil)
	t.Cleanup(s.Close)
	return s
}

func TestNextTopic(t *testing.T) {
	topics := []string{"a", "b"}
	tests := []struct {
		current  string
		expected string
	}{
		{"", "a"},
		{"a", "b"},
		{"b", ""},
		{"gone", ""},
	}
	for _, tt := range tests {
		if got := nextTopic(topics, tt.current); got != tt.expected {
			t.Errorf("nextTopic(%q) = %q, want %q", tt.current, got, tt.expected)
		}
	}
	if got := nextTopic(nil, "a"); got != "" {
		t.Errorf("no topics should select all, got %q", got)
	}
}

func TestNextSeverity(t *testing.T) {
	got := []telemetry.Severity{}
	s := telemetry.Severity("")
	for i := 0; i < 3; i++ {
		s = nextSeverity(s)
		got = append(got, s)
	}
	want := []telemetry.Severity{telemetry.SeverityWarning, telemetry.SeverityCritical, ""}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("severity cycle = %v, want %v", got, want)
		}
	}
}

func TestVisibleWindow(t *testing.T) {
	tests := []struct {
		n, cursor, height int
		start, end        int
	}{
		{10, 0, 5, 0, 5},
		{10, 4, 5, 0, 5},
		{10, 7, 5, 3, 8},
		{10, 9, 5, 5, 10},
		{3, 2, 5, 0, 3},
		{3, 0, 0, 0, 1},
	}
	for _, tt := range tests {
		start, end := visibleWindow(tt.n, tt.cursor, tt.height)
		if start != tt.start || end != tt.end {
			t.Errorf("visibleWindow(%d, %d, %d) = [%d,%d), want [%d,%d)",
				tt.n, tt.cursor, tt.height, start, end, tt.start, tt.end)
		}
	}
}

func TestBreaches(t *testing.T) {
	limits := map[string]telemetry.Limit{"temperature": {Min: 10, Max: 30}}
	v := func(f float64) *float64 { return &f }
	tests := []struct {
		value *float64
		field string
		want  bool
	}{
		{v(20), "temperature", false},
		{v(35), "temperature", true},
		{v(5), "temperature", true},
		{nil, "temperature", false},
		{v(999), "humidity", false},
	}
	for _, tt := range tests {
		if got := breaches(tt.value, limits, tt.field); got != tt.want {
			t.Errorf("breaches(%v, %s) = %v, want %v", tt.value, tt.field, got, tt.want)
		}
	}
}

func seedAlerts(svc *fakeservice.Service, ids ...int64) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, id := range ids {
		svc.AddAlert(telemetry.Alert{
			ID:        id,
			Topic:     "sensor/room1",
			Severity:  telemetry.SeverityCritical,
			CreatedAt: telemetry.Timestamp{Time: base.Add(time.Duration(id) * time.Minute)},
			Message:   "temperature out of range",
		})
	}
}

func TestAlertsViewResolve(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 1, 2)
	s := newSession(t, svc)
	if err := s.Alerts.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	v := NewAlertsView(styles.DefaultTheme, s.Alerts, s.Topics, s.Resolver)
	v.SetSize(120, 30)
	v, _ = v.Update(PageLoadedMsg{Pager: s.Alerts.Name()})

	sel, ok := v.selected()
	if !ok || bool(sel.Resolved) {
		t.Fatalf("expected an active alert selected, got %+v", sel)
	}

	v, cmd := v.Update(runes("x"))
	if cmd == nil {
		t.Fatal("resolve should issue a command")
	}
	if !v.Status().Loading {
		t.Error("view should report loading while resolving")
	}
	// a second press while the first is in flight is ignored
	if _, again := v.Update(runes("x")); again != nil {
		t.Error("second resolve while one is in flight should be ignored")
	}

	msg := cmd()
	res, ok := msg.(ResolvedMsg)
	if !ok || res.Err != nil || res.ID != sel.ID {
		t.Fatalf("unexpected resolve result %#v", msg)
	}
	v, _ = v.Update(res)

	if !strings.Contains(v.Status().Message, "resolved") {
		t.Errorf("expected a resolved message, got %q", v.Status().Message)
	}
	after, _ := v.selected()
	if after.ID != sel.ID || !bool(after.Resolved) {
		t.Errorf("list should show the alert resolved after refresh, got %+v", after)
	}

	if _, cmd := v.Update(runes("x")); cmd != nil {
		t.Error("resolving an already resolved alert should not call the service")
	}
}

func TestAlertsViewResolveFailureHeld(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 1)
	s := newSession(t, svc)
	if err := s.Alerts.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	v := NewAlertsView(styles.DefaultTheme, s.Alerts, s.Topics, s.Resolver)
	seq := s.Alerts.State().Seq

	svc.FailNext(1, 404)
	v, cmd := v.Update(runes("x"))
	v, _ = v.Update(cmd())

	if !telemetry.IsNotFound(v.Status().Err) {
		t.Errorf("expected NotFoundError in status, got %v", v.Status().Err)
	}
	if s.Alerts.State().Seq != seq {
		t.Error("failed resolve must not reload the list")
	}
	if a, _ := v.selected(); a.Resolved {
		t.Error("alert must stay active after a failed resolve")
	}
}

func TestAlertsViewFilterKeys(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 1)
	s := newSession(t, svc)
	v := NewAlertsView(styles.DefaultTheme, s.Alerts, s.Topics, s.Resolver)

	v, cmd := v.Update(runes("a"))
	if msg := cmd().(PageLoadedMsg); msg.Err != nil {
		t.Fatalf("status filter reload error: %v", msg.Err)
	}
	if got := s.Alerts.State().Filter.Status; got != telemetry.StatusActive {
		t.Errorf("expected status active, got %v", got)
	}

	v, cmd = v.Update(runes("s"))
	cmd()
	if got := s.Alerts.State().Filter.Severity; got != telemetry.SeverityWarning {
		t.Errorf("expected severity warning, got %q", got)
	}

	_, cmd = v.Update(runes("c"))
	cmd()
	if f := s.Alerts.State().Filter; f != (telemetry.AlertFilter{}) {
		t.Errorf("clear should reset filters, got %+v", f)
	}
}

func TestAlertsViewDetail(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 4)
	s := newSession(t, svc)
	if err := s.Alerts.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	v := NewAlertsView(styles.DefaultTheme, s.Alerts, s.Topics, s.Resolver)
	v.SetSize(120, 30)

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !v.showDetail || v.detail.AlertID() != 4 {
		t.Fatalf("enter should open the detail of alert 4")
	}
	if !strings.Contains(v.View(), "#4") {
		t.Error("detail view should name the alert")
	}
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if v.showDetail {
		t.Error("esc should return to the list")
	}
}

func TestRawDataViewTimeRange(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/room1"}, 5, time.Now(), time.Minute, 1)
	s := newSession(t, svc)
	v := NewRawDataView(styles.DefaultTheme, s.RawData, s.Topics)

	v, _ = v.Update(runes("/"))
	if !v.Capturing() {
		t.Fatal("range key should start editing")
	}
	for _, r := range "2025-03-01" {
		v, _ = v.Update(runes(string(r)))
	}
	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyTab})
	for _, r := range "bogus" {
		v, _ = v.Update(runes(string(r)))
	}

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || v.inputErr == "" || !v.Capturing() {
		t.Fatal("invalid end time should be rejected without a reload")
	}

	v.inputs[1].SetValue("")
	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if v.Capturing() || cmd == nil {
		t.Fatal("valid range should apply and stop editing")
	}
	if msg := cmd().(PageLoadedMsg); msg.Err != nil {
		t.Fatalf("reload error: %v", msg.Err)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)
	f := s.RawData.State().Filter
	if !f.Start.Equal(want) || !f.End.IsZero() {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestRawDataViewTopicCycle(t *testing.T) {
	svc := fakeservice.New()
	svc.Seed([]string{"sensor/a", "sensor/b"}, 3, time.Now(), time.Minute, 1)
	s := newSession(t, svc)
	v := NewRawDataView(styles.DefaultTheme, s.RawData, s.Topics)

	// topics are not loaded yet, so the first press fetches them
	v, cmd := v.Update(runes("t"))
	v, _ = v.Update(cmd())
	if len(v.topicList) != 2 {
		t.Fatalf("expected 2 topics, got %v", v.topicList)
	}

	_, cmd = v.Update(runes("t"))
	cmd()
	st := s.RawData.State()
	if st.Filter.Topic != v.topicList[0] {
		t.Errorf("expected first topic selected, got %q", st.Filter.Topic)
	}
	for _, r := range st.Page.Items {
		if r.Topic != st.Filter.Topic {
			t.Errorf("reading from %q shown under topic filter %q", r.Topic, st.Filter.Topic)
		}
	}
}

func TestAlertsViewPagingPastEdge(t *testing.T) {
	svc := fakeservice.New()
	seedAlerts(svc, 1)
	s := newSession(t, svc)
	if err := s.Alerts.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	v := NewAlertsView(styles.DefaultTheme, s.Alerts, s.Topics, s.Resolver)
	v.SetSize(120, 30)
	v, cmd := v.Update(runes("h"))
	if cmd == nil {
		t.Fatal("prev page should issue a command")
	}
	v, _ = v.Update(cmd())
	if !strings.Contains(v.View(), "no more pages") {
		t.Error("paging before the first page should say so")
	}

	v, _ = v.Update(runes("r"))
	v, _ = v.Update(PageLoadedMsg{Pager: s.Alerts.Name()})
	if strings.Contains(v.View(), "no more pages") {
		t.Error("a successful load should clear the edge notice")
	}
}

func TestDashboardRateCardUsesLatestRate(t *testing.T) {
	v := NewDashboardView(styles.DefaultTheme)
	v.SetSize(120, 40)
	snap := telemetry.DashboardSnapshot{TotalMessages: 10}
	v.SetState(engine.PollerState{Snapshot: &snap})
	if strings.Contains(v.View(), "4.3K/s") {
		t.Fatal("no rate should be shown before one is recorded")
	}

	latest := engine.RateSample{MessageRate: 4321}
	v.SetState(engine.PollerState{
		Snapshot:   &snap,
		History:    []engine.RateSample{{MessageRate: 1}, latest},
		LatestRate: &latest,
	})
	if !strings.Contains(v.View(), "4.3K/s") {
		t.Error("rate card should show the newest sample")
	}
}
