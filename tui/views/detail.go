package views

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/keys"
	"github.com/tonhe/pulse/tui/styles"
)

const gaugeWidth = 30

// DetailView shows one alert: its info panel and, for each violated key,
// the actual value against its limits.
type DetailView struct {
	theme  styles.Theme
	sty    *styles.Styles
	alert  *telemetry.Alert
	width  int
	height int
}

// NewDetailView creates a new DetailView with the given theme.
func NewDetailView(theme styles.Theme) DetailView {
	return DetailView{
		theme: theme,
		sty:   styles.NewStyles(theme),
	}
}

// SetAlert replaces the displayed alert.
func (v *DetailView) SetAlert(a telemetry.Alert) {
	v.alert = &a
}

// AlertID returns the displayed alert's ID, or 0.
func (v DetailView) AlertID() int64 {
	if v.alert == nil {
		return 0
	}
	return v.alert.ID
}

// MarkResolved flips the displayed alert to resolved once the service has
// confirmed it.
func (v *DetailView) MarkResolved() {
	if v.alert != nil {
		v.alert.Resolved = true
	}
}

// SetSize updates the available dimensions for the view.
func (v *DetailView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key messages for the detail view. The third return value
// indicates whether the user wants to go back (Esc pressed).
func (v DetailView) Update(msg tea.Msg) (DetailView, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Escape):
			return v, nil, true
		}
	}
	return v, nil, false
}

// View renders the info panel and the breach table.
func (v DetailView) View() string {
	if v.alert == nil {
		msg := lipgloss.NewStyle().
			Foreground(v.theme.Base04).
			Align(lipgloss.Center).
			Render("No alert selected")
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		v.renderInfoPanel(),
		"",
		v.renderBreaches(),
		"",
		v.renderHelp(),
	)
}

func (v DetailView) renderInfoPanel() string {
	a := v.alert
	labelStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Width(12)
	valueStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base05)
	highlightStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base0D).
		Bold(true)

	status, statusStyle := "active", v.sty.StatusDown
	if a.Resolved {
		status, statusStyle = "resolved", v.sty.Resolved
	}

	row := func(label, value string) string {
		return fmt.Sprintf("  %s%s", labelStyle.Render(label), value)
	}
	rows := []string{
		"",
		row("Alert:", highlightStyle.Render(fmt.Sprintf("#%d", a.ID))),
		row("Topic:", highlightStyle.Render(a.Topic)),
		row("Severity:", v.sty.Severity(string(a.Severity)).Render(string(a.Severity))),
		row("Status:", statusStyle.Render(status)),
		row("Created:", valueStyle.Render(formatStamp(a.CreatedAt.Time))),
		row("Message:", valueStyle.Render(truncate(a.Message, max(v.width-16, 20)))),
	}
	return strings.Join(rows, "\n")
}

// renderBreaches lists every violated key with a gauge placing the actual
// value relative to its limits.
func (v DetailView) renderBreaches() string {
	a := v.alert
	headerStyle := v.sty.TableHeader
	lines := []string{
		"  " + headerStyle.Render(padRight("Key", 14)) +
			headerStyle.Render(padLeft("Actual", colValue)) +
			headerStyle.Render(padLeft("Min", colValue)) +
			headerStyle.Render(padLeft("Max", colValue)) + "  " +
			headerStyle.Render("Range"),
	}

	violated := append([]string(nil), a.ViolatedKeys...)
	if len(violated) == 0 {
		for k := range a.ActualValues {
			violated = append(violated, k)
		}
		sort.Strings(violated)
	}
	if len(violated) == 0 {
		lines = append(lines, "  "+v.sty.TableCellDim.Render("no breach details"))
		return strings.Join(lines, "\n")
	}

	for _, k := range violated {
		actual, hasActual := a.ActualValues[k]
		limit, hasLimit := a.ThresholdLimits[k]

		actualStr, minStr, maxStr := "-", "-", "-"
		if hasActual {
			actualStr = fmt.Sprintf("%.2f", actual)
		}
		if hasLimit {
			minStr = fmt.Sprintf("%.2f", limit.Min)
			maxStr = fmt.Sprintf("%.2f", limit.Max)
		}
		gauge := ""
		if hasActual && hasLimit {
			gauge = v.renderGauge(actual, limit)
		}
		lines = append(lines, "  "+
			v.sty.TableRow.Render(padRight(truncate(k, 13), 14))+
			v.sty.SeverityCritical.Render(padLeft(actualStr, colValue))+
			v.sty.TableCellDim.Render(padLeft(minStr, colValue))+
			v.sty.TableCellDim.Render(padLeft(maxStr, colValue))+"  "+
			gauge,
		)
	}
	return strings.Join(lines, "\n")
}

// renderGauge draws [---|====|---] with the allowed band in the middle third
// and a marker where the actual value falls.
func (v DetailView) renderGauge(actual float64, l telemetry.Limit) string {
	band := l.Max - l.Min
	if band <= 0 {
		band = 1
	}
	third := gaugeWidth / 3
	pos := third + int((actual-l.Min)/band*float64(third))
	pos = min(max(pos, 0), gaugeWidth-1)

	cells := make([]string, gaugeWidth)
	for i := range cells {
		switch {
		case i == pos:
			cells[i] = v.sty.SeverityCritical.Render("●")
		case i >= third && i < 2*third:
			cells[i] = v.sty.Resolved.Render("═")
		default:
			cells[i] = v.sty.TableCellDim.Render("─")
		}
	}
	return "[" + strings.Join(cells, "") + "]"
}

// renderHelp renders a help line at the bottom of the detail view.
func (v DetailView) renderHelp() string {
	helpStyle := lipgloss.NewStyle().Foreground(v.theme.Base04)
	keyStyle := lipgloss.NewStyle().Foreground(v.theme.Base0D).Bold(true)
	return helpStyle.Render(fmt.Sprintf("  %s to resolve, %s to go back",
		keyStyle.Render("[x]"), keyStyle.Render("[esc]")))
}
