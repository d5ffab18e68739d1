package tui

import (
	"errors"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/internal/config"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/logging"
	"github.com/tonhe/pulse/tui/components"
	"github.com/tonhe/pulse/tui/keys"
	"github.com/tonhe/pulse/tui/styles"
	"github.com/tonhe/pulse/tui/views"
)

// AppState represents the current screen/view of the application.
type AppState int

const (
	StateDashboard AppState = iota
	StateRawData
	StateAlerts
)

var viewNames = []string{"dashboard", "raw data", "alerts"}

// TickMsg triggers a periodic UI refresh so relative times stay current.
type TickMsg struct{}

// pollMsg wraps an event from the dashboard poller.
type pollMsg engine.PollerEvent

// AppModel is the root Bubble Tea model that manages all views and state.
type AppModel struct {
	state     AppState
	theme     styles.Theme
	config    *config.Config
	session   *engine.Session
	logger    *slog.Logger
	version   string
	events    <-chan engine.PollerEvent
	activated map[AppState]bool

	dashboard views.DashboardView
	rawdata   views.RawDataView
	alerts    views.AlertsView
	help      views.HelpView

	width  int
	height int
}

// NewAppModel creates a new AppModel over an operator session. The
// dashboard is shown first and its poller is started by Init.
func NewAppModel(cfg *config.Config, session *engine.Session, logger *slog.Logger, version string) AppModel {
	if logger == nil {
		logger = logging.Discard()
	}
	theme, ok := styles.Resolve(cfg.Theme)
	if !ok && cfg.Theme != "" {
		logger.Warn("unknown theme, using default", slog.String("theme", cfg.Theme))
	}
	return AppModel{
		state:     StateDashboard,
		theme:     theme,
		config:    cfg,
		session:   session,
		logger:    logger.With(slog.String("component", "tui")),
		version:   version,
		events:    session.Poller.Subscribe(),
		activated: map[AppState]bool{StateDashboard: true},
		dashboard: views.NewDashboardView(theme),
		rawdata:   views.NewRawDataView(theme, session.RawData, session.Topics),
		alerts:    views.NewAlertsView(theme, session.Alerts, session.Topics, session.Resolver),
		help:      views.NewHelpView(theme),
	}
}

// Init starts the tick loop, the dashboard poller and the event listener.
func (m AppModel) Init() tea.Cmd {
	m.startPoller()
	return tea.Batch(tickCmd(), waitForPoll(m.events))
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForPoll blocks on the next poller event. It is re-armed after every
// event.
func waitForPoll(ch <-chan engine.PollerEvent) tea.Cmd {
	return func() tea.Msg {
		return pollMsg(<-ch)
	}
}

func (m AppModel) startPoller() {
	if err := m.session.Poller.Start(); err != nil && !errors.Is(err, engine.ErrPollerActive) {
		m.logger.Warn("start poller", logging.ErrAttr(err))
	}
}

func (m AppModel) stopPoller() {
	if err := m.session.Poller.Stop(); err != nil && !errors.Is(err, engine.ErrPollerIdle) {
		m.logger.Warn("stop poller", logging.ErrAttr(err))
	}
}

// switchTo changes the visible view. The poller only runs while the
// dashboard is visible; list views load on first display.
func (m AppModel) switchTo(next AppState) (AppModel, tea.Cmd) {
	if next == m.state {
		return m, nil
	}
	if m.state == StateDashboard {
		m.stopPoller()
	}
	m.state = next
	m.logger.Debug("view changed", slog.String("view", viewNames[next]))

	if next == StateDashboard {
		m.startPoller()
		return m, nil
	}
	if m.activated[next] {
		return m, nil
	}
	m.activated[next] = true
	switch next {
	case StateRawData:
		return m, m.rawdata.Activate()
	case StateAlerts:
		return m, m.alerts.Activate()
	}
	return m, nil
}

// Update handles messages and dispatches to the active view.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Body height = total - 1 (header) - 2 (status bar lines)
		bodyHeight := msg.Height - 3
		m.dashboard.SetSize(msg.Width, bodyHeight)
		m.rawdata.SetSize(msg.Width, bodyHeight)
		m.alerts.SetSize(msg.Width, bodyHeight)
		m.help.SetSize(msg.Width, bodyHeight)
		return m, nil

	case TickMsg:
		m.dashboard.SetState(m.session.Poller.State())
		return m, tickCmd()

	case pollMsg:
		m.dashboard.SetState(msg.State)
		return m, waitForPoll(m.events)

	case views.TopicsLoadedMsg:
		if msg.Err != nil {
			m.logger.Warn("load topics", logging.ErrAttr(msg.Err))
		}
		var c1, c2 tea.Cmd
		m.rawdata, c1 = m.rawdata.Update(msg)
		m.alerts, c2 = m.alerts.Update(msg)
		return m, tea.Batch(c1, c2)

	case views.PageLoadedMsg:
		var cmd tea.Cmd
		switch msg.Pager {
		case m.session.RawData.Name():
			m.rawdata, cmd = m.rawdata.Update(msg)
		case m.session.Alerts.Name():
			m.alerts, cmd = m.alerts.Update(msg)
		}
		return m, cmd

	case views.ResolvedMsg:
		var cmd tea.Cmd
		m.alerts, cmd = m.alerts.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := keys.DefaultKeyMap

	if msg.String() == "ctrl+c" {
		m.stopPoller()
		return m, tea.Quit
	}
	if m.help.IsVisible() {
		if key.Matches(msg, km.Help) || key.Matches(msg, km.Escape) {
			m.help.Toggle()
		}
		return m, nil
	}

	// text entry gets every key
	if m.state == StateRawData && m.rawdata.Capturing() {
		var cmd tea.Cmd
		m.rawdata, cmd = m.rawdata.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, km.Quit):
		m.stopPoller()
		return m, tea.Quit
	case key.Matches(msg, km.Help):
		m.help.Toggle()
		return m, nil
	case key.Matches(msg, km.Tab):
		return m.switchTo((m.state + 1) % AppState(len(viewNames)))
	case key.Matches(msg, km.View1):
		return m.switchTo(StateDashboard)
	case key.Matches(msg, km.View2):
		return m.switchTo(StateRawData)
	case key.Matches(msg, km.View3):
		return m.switchTo(StateAlerts)
	}

	var cmd tea.Cmd
	switch m.state {
	case StateDashboard:
		if key.Matches(msg, km.Refresh) {
			m.session.Poller.RequestRefresh()
			return m, nil
		}
		m.dashboard, cmd = m.dashboard.Update(msg)
	case StateRawData:
		m.rawdata, cmd = m.rawdata.Update(msg)
	case StateAlerts:
		m.alerts, cmd = m.alerts.Update(msg)
	}
	return m, cmd
}

// View renders the full application UI by composing header, body, and status.
func (m AppModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	pollerState := m.session.Poller.State()
	header := components.RenderHeader(
		m.theme,
		viewNames,
		int(m.state),
		pollerState.State == engine.EngineActive,
		m.session.Client.BaseURL(),
		m.width,
		m.version,
	)

	var (
		body  string
		info  components.StatusInfo
		hints []components.KeyHint
	)
	switch m.state {
	case StateDashboard:
		body, info, hints = m.dashboard.View(), m.dashboard.Status(), m.dashboard.Hints()
	case StateRawData:
		body, info, hints = m.rawdata.View(), m.rawdata.Status(), m.rawdata.Hints()
	case StateAlerts:
		body, info, hints = m.alerts.View(), m.alerts.Status(), m.alerts.Hints()
	}
	if m.help.IsVisible() {
		body = m.help.View()
	}
	info.Interval = m.config.PollInterval
	info.LastPoll = pollerState.LastPoll

	statusBar := components.RenderStatusBar(m.theme, info, hints, m.width)

	bodyHeight := max(m.height-1-2, 1) // 1 header line, 2 status bar lines
	bodyStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		MaxHeight(bodyHeight).
		Background(m.theme.Base00).
		Foreground(m.theme.Base05)

	return lipgloss.JoinVertical(lipgloss.Left, header, bodyStyle.Render(body), statusBar)
}
