package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/components"
	"github.com/tonhe/pulse/tui/keys"
	"github.com/tonhe/pulse/tui/styles"
)

// Column widths for the latest readings table.
const (
	colTopic    = 22
	colValue    = 10
	colReceived = 20
)

var readingFields = []string{"temperature", "humidity", "voltage", "current", "pressure"}

// DashboardView is the live overview: totals, ingest rate history, the
// latest reading per topic and the newest active alerts.
type DashboardView struct {
	theme  styles.Theme
	sty    *styles.Styles
	state  engine.PollerState
	cursor int
	width  int
	height int
}

// NewDashboardView creates a new DashboardView with the given theme.
func NewDashboardView(theme styles.Theme) DashboardView {
	return DashboardView{
		theme: theme,
		sty:   styles.NewStyles(theme),
	}
}

// Update handles key messages for cursor navigation within the readings
// table.
func (v DashboardView) Update(msg tea.Msg) (DashboardView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.DefaultKeyMap.Down):
			if v.cursor < len(v.topics())-1 {
				v.cursor++
			}
		}
	}
	return v, nil
}

// SetState replaces the displayed poller state and clamps the cursor.
func (v *DashboardView) SetState(st engine.PollerState) {
	v.state = st
	if n := len(v.topics()); v.cursor >= n {
		v.cursor = max(n-1, 0)
	}
}

// SetSize updates the available dimensions for the view.
func (v *DashboardView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Status reports what the status bar should show for this view.
func (v DashboardView) Status() components.StatusInfo {
	return components.StatusInfo{LastPoll: v.state.LastPoll, Err: v.state.Err}
}

// Hints returns the key hints shown while the dashboard is active.
func (v DashboardView) Hints() []components.KeyHint {
	return []components.KeyHint{
		{Key: "r", Desc: "refresh"},
		{Key: "1-3/tab", Desc: "views"},
		{Key: "?", Desc: "help"},
		{Key: "q", Desc: "quit"},
	}
}

// View renders the dashboard.
func (v DashboardView) View() string {
	if v.state.Snapshot == nil {
		return v.renderEmpty()
	}

	cards := v.renderCards()
	rates := v.renderRates()
	alerts := v.renderActiveAlerts()

	used := lipgloss.Height(cards) + lipgloss.Height(rates) + lipgloss.Height(alerts) + 2
	readings := v.renderReadings(max(v.height-used, 3))

	return lipgloss.JoinVertical(lipgloss.Left, cards, rates, "", readings, "", alerts)
}

func (v DashboardView) topics() []string {
	if v.state.Snapshot == nil {
		return nil
	}
	topics := make([]string, 0, len(v.state.Snapshot.LatestReadings))
	for t := range v.state.Snapshot.LatestReadings {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

func (v DashboardView) renderCards() string {
	snap := v.state.Snapshot
	rate := "-"
	if r := v.state.LatestRate; r != nil {
		rate = components.FormatRate(r.MessageRate) + "/s"
	}

	activeStyle := v.sty.CardValue
	if snap.ActiveAlerts > 0 {
		activeStyle = v.sty.SeverityCritical
	}

	card := func(label, value string, valueStyle lipgloss.Style) string {
		return v.sty.CardBorder.Width(18).Render(
			lipgloss.JoinVertical(lipgloss.Left,
				v.sty.CardLabel.Render(label),
				valueStyle.Render(value),
			),
		)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Messages", components.FormatCount(snap.TotalMessages), v.sty.CardValue),
		card("Alerts", components.FormatCount(snap.TotalAlerts), v.sty.CardValue),
		card("Active alerts", components.FormatCount(snap.ActiveAlerts), activeStyle),
		card("Topics", components.FormatCount(int64(len(snap.Topics))), v.sty.CardValue),
		card("Ingest", rate, v.sty.CardValue),
	)
}

// renderRates draws the message rate chart when there is room, and an
// alert rate sparkline below it.
func (v DashboardView) renderRates() string {
	msgRates := make([]float64, len(v.state.History))
	alertRates := make([]float64, len(v.state.History))
	for i, s := range v.state.History {
		msgRates[i] = s.MessageRate
		alertRates[i] = s.AlertRate
	}

	sparkWidth := max(v.width-16, 10)
	alertLine := v.sty.CardLabel.Render(padRight("alerts/s", 10)) +
		v.sty.SeverityWarning.Render(components.Sparkline(alertRates, sparkWidth))

	if v.height < 30 {
		msgLine := v.sty.CardLabel.Render(padRight("msg/s", 10)) +
			v.sty.SparklineStyle.Render(components.Sparkline(msgRates, sparkWidth))
		return lipgloss.JoinVertical(lipgloss.Left, msgLine, alertLine)
	}
	chart := v.sty.SparklineStyle.Render(
		components.RenderChart(msgRates, max(v.width-2, 20), 7, "messages/s", nil),
	)
	return lipgloss.JoinVertical(lipgloss.Left, chart, alertLine)
}

func (v DashboardView) renderReadings(height int) string {
	snap := v.state.Snapshot
	topics := v.topics()

	headerStyle := v.sty.TableHeader
	header := headerStyle.Render(padRight("Topic", colTopic))
	for _, f := range readingFields {
		header += headerStyle.Render(padLeft(truncate(f, colValue-1), colValue))
	}
	header += headerStyle.Render(padLeft("Received", colReceived))
	lines := []string{header}

	if len(topics) == 0 {
		lines = append(lines, v.sty.TableCellDim.Render("no readings yet"))
		return strings.Join(lines, "\n")
	}

	start, end := visibleWindow(len(topics), v.cursor, height-1)
	for i := start; i < end; i++ {
		lines = append(lines, v.renderReadingRow(topics[i], snap.LatestReadings[topics[i]], snap.Thresholds, i == v.cursor))
	}
	return strings.Join(lines, "\n")
}

func (v DashboardView) renderReadingRow(topic string, r telemetry.LatestReading, limits map[string]telemetry.Limit, selected bool) string {
	rowStyle := v.sty.TableRow
	breachStyle := v.sty.SeverityCritical
	if selected {
		rowStyle = v.sty.TableRowSel
		breachStyle = breachStyle.Background(v.theme.Base02)
	}

	row := rowStyle.Render(padRight(truncate(topic, colTopic-1), colTopic))
	values := r.Values()
	for _, f := range readingFields {
		cell := padLeft(formatValue(values[f]), colValue)
		if breaches(values[f], limits, f) {
			row += breachStyle.Render(cell)
		} else {
			row += rowStyle.Render(cell)
		}
	}
	received := "-"
	if r.ReceivedAt != nil {
		received = formatStamp(r.ReceivedAt.Time)
	}
	return row + rowStyle.Render(padLeft(received, colReceived))
}

// breaches reports whether v lies outside the limit configured for field.
func breaches(v *float64, limits map[string]telemetry.Limit, field string) bool {
	if v == nil {
		return false
	}
	l, ok := limits[field]
	if !ok {
		return false
	}
	return *v < l.Min || *v > l.Max
}

func (v DashboardView) renderActiveAlerts() string {
	lines := []string{v.sty.GroupHeader.Render("Active alerts")}
	if len(v.state.ActiveAlerts) == 0 {
		lines = append(lines, v.sty.Resolved.Render("  none"))
		return strings.Join(lines, "\n")
	}
	for _, a := range v.state.ActiveAlerts {
		sev := v.sty.Severity(string(a.Severity)).Render(padRight(string(a.Severity), 9))
		lines = append(lines, fmt.Sprintf("  %s %s %s %s",
			v.sty.TableCellDim.Render(padLeft(fmt.Sprintf("#%d", a.ID), 7)),
			sev,
			v.sty.TableRow.Render(padRight(truncate(a.Topic, colTopic-1), colTopic)),
			v.sty.TableRow.Render(truncate(a.Message, max(v.width-44, 10))),
		))
	}
	return strings.Join(lines, "\n")
}

// renderEmpty renders a centered message until the first poll lands.
func (v DashboardView) renderEmpty() string {
	msgStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Align(lipgloss.Center)

	text := "Waiting for the first poll..."
	if v.state.State == engine.EngineIdle {
		text = "Polling is paused"
	}
	lines := []string{"", msgStyle.Render(text)}
	if v.state.Err != nil {
		lines = append(lines, "", v.sty.StatusDown.Render(v.state.Err.Error()))
	}
	lines = append(lines, "")

	msg := lipgloss.JoinVertical(lipgloss.Center, lines...)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
}
