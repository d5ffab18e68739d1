package tui

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/fakeservice"
	"github.com/tonhe/pulse/internal/telemetry"
)

func newTestModel(t *testing.T) (AppModel, *engine.Session) {
	t.Helper()
	srv := httptest.NewServer(fakeservice.New())
	t.Cleanup(srv.Close)
	client, err := telemetry.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	session := engine.NewSession(client, engine.SessionConfig{PollInterval: time.Hour}, nil)
	t.Cleanup(session.Close)

	cfg := config.DefaultConfig()
	cfg.Theme = "nord"
	return NewAppModel(cfg, session, nil, "test"), session
}

func press(t *testing.T, m AppModel, k string) AppModel {
	t.Helper()
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
	return next.(AppModel)
}

func TestPollerFollowsDashboardVisibility(t *testing.T) {
	m, s := newTestModel(t)
	m.Init()
	if s.Poller.State().State != engine.EngineActive {
		t.Fatal("poller should run while the dashboard is shown")
	}

	m = press(t, m, "2")
	if m.state != StateRawData {
		t.Fatalf("expected raw data view, got %d", m.state)
	}
	if s.Poller.State().State != engine.EngineIdle {
		t.Error("poller should stop when the dashboard is hidden")
	}

	m = press(t, m, "3")
	if s.Poller.State().State != engine.EngineIdle {
		t.Error("poller should stay idle between list views")
	}

	m = press(t, m, "1")
	if s.Poller.State().State != engine.EngineActive {
		t.Error("poller should restart when the dashboard is shown again")
	}
}

func TestTabCyclesViews(t *testing.T) {
	m, _ := newTestModel(t)
	want := []AppState{StateRawData, StateAlerts, StateDashboard}
	for _, w := range want {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
		m = next.(AppModel)
		if m.state != w {
			t.Fatalf("expected state %d, got %d", w, m.state)
		}
	}
}

func TestFirstVisitLoadsList(t *testing.T) {
	m, _ := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")})
	if cmd == nil {
		t.Fatal("first visit to alerts should load it")
	}
	m = next.(AppModel)
	m = press(t, m, "1")
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("3")}); cmd != nil {
		t.Error("second visit should not reload")
	}
}

func TestViewRendersChrome(t *testing.T) {
	m, _ := newTestModel(t)
	if got := m.View(); got != "Loading..." {
		t.Errorf("expected placeholder before sizing, got %q", got)
	}
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(AppModel)
	out := m.View()
	for _, want := range []string{"pulse", "dashboard", "raw data", "alerts", "poll:"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestHelpOverlayToggles(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, "?")
	if !m.help.IsVisible() {
		t.Fatal("? should open help")
	}
	// keys are swallowed while help is open
	m = press(t, m, "2")
	if m.state != StateDashboard {
		t.Error("view switch should be ignored while help is open")
	}
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if next.(AppModel).help.IsVisible() {
		t.Error("esc should close help")
	}
}
