package views

import (
	"context"
	"fmt"
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

const (
	colSeverity = 10
	colStatus   = 10
	colCreated  = 20
)

var severityCycle = []telemetry.Severity{"", telemetry.SeverityWarning, telemetry.SeverityCritical}

// AlertsView lists alerts with topic, severity and status filters and lets
// the operator resolve them.
type AlertsView struct {
	theme     styles.Theme
	sty       *styles.Styles
	pager     *engine.AlertPager
	topics    *engine.TopicCache
	resolver  *engine.Resolver
	topicList []string

	detail     DetailView
	showDetail bool
	resolving  int64
	message    string
	resolveErr error
	edge       bool

	cursor int
	width  int
	height int
}

// NewAlertsView creates an AlertsView over pager. Resolutions go through
// resolver.
func NewAlertsView(theme styles.Theme, pager *engine.AlertPager, topics *engine.TopicCache, resolver *engine.Resolver) AlertsView {
	return AlertsView{
		theme:    theme,
		sty:      styles.NewStyles(theme),
		pager:    pager,
		topics:   topics,
		resolver: resolver,
		detail:   NewDetailView(theme),
	}
}

// Activate returns the commands to run when the view is first shown.
func (v AlertsView) Activate() tea.Cmd {
	cmds := []tea.Cmd{topicsCmd(v.topics)}
	if v.pager.State().Page == nil {
		cmds = append(cmds, pagerCmd(v.pager.Name(), v.pager.Reload))
	}
	return tea.Batch(cmds...)
}

// Capturing reports whether the view wants raw key input.
func (v AlertsView) Capturing() bool {
	return false
}

// SetSize updates the available dimensions for the view.
func (v *AlertsView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.detail.SetSize(width, height)
}

// Update handles key, load and resolve messages.
func (v AlertsView) Update(msg tea.Msg) (AlertsView, tea.Cmd) {
	switch msg := msg.(type) {
	case TopicsLoadedMsg:
		if msg.Err == nil {
			v.topicList = msg.Topics
		}
		return v, nil
	case ResolvedMsg:
		v.resolving = 0
		v.resolveErr = msg.Err
		if msg.Err != nil {
			v.message = ""
			return v, nil
		}
		v.message = fmt.Sprintf("alert #%d resolved", msg.ID)
		if v.showDetail && v.detail.AlertID() == msg.ID {
			v.detail.MarkResolved()
		}
		return v, nil
	case PageLoadedMsg:
		v.edge = atEdge(msg.Err)
		if n := v.rowCount(); v.cursor >= n {
			v.cursor = max(n-1, 0)
		}
		return v, nil
	case tea.KeyMsg:
		if v.showDetail {
			if key.Matches(msg, keys.DefaultKeyMap.Resolve) {
				cmd := v.resolve(v.detail.AlertID())
				return v, cmd
			}
			var back bool
			v.detail, _, back = v.detail.Update(msg)
			if back {
				v.showDetail = false
			}
			return v, nil
		}
		return v.updateList(msg)
	}
	return v, nil
}

func (v AlertsView) updateList(msg tea.KeyMsg) (AlertsView, tea.Cmd) {
	km := keys.DefaultKeyMap
	filter := v.pager.State().Filter
	switch {
	case key.Matches(msg, km.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case key.Matches(msg, km.Down):
		if v.cursor < v.rowCount()-1 {
			v.cursor++
		}
	case key.Matches(msg, km.Left):
		v.cursor = 0
		return v, pagerCmd(v.pager.Name(), v.pager.PrevPage)
	case key.Matches(msg, km.Right):
		v.cursor = 0
		return v, pagerCmd(v.pager.Name(), v.pager.NextPage)
	case key.Matches(msg, km.Refresh):
		return v, pagerCmd(v.pager.Name(), v.pager.Reload)
	case key.Matches(msg, km.Topic):
		if len(v.topicList) == 0 {
			return v, topicsCmd(v.topics)
		}
		topic := nextTopic(v.topicList, filter.Topic)
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.AlertFilter) { f.Topic = topic })
	case key.Matches(msg, km.Severity):
		sev := nextSeverity(filter.Severity)
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.AlertFilter) { f.Severity = sev })
	case key.Matches(msg, km.Status):
		status := (filter.Status + 1) % 3
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.AlertFilter) { f.Status = status })
	case key.Matches(msg, km.Clear):
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.AlertFilter) { *f = telemetry.AlertFilter{} })
	case key.Matches(msg, km.Enter):
		if a, ok := v.selected(); ok {
			v.detail.SetAlert(a)
			v.showDetail = true
		}
	case key.Matches(msg, km.Resolve):
		if a, ok := v.selected(); ok {
			if a.Resolved {
				v.message = fmt.Sprintf("alert #%d is already resolved", a.ID)
				return v, nil
			}
			cmd := v.resolve(a.ID)
			return v, cmd
		}
	}
	return v, nil
}

// resolve issues the resolution. The list is only changed once the
// resolver's refresh lands.
func (v *AlertsView) resolve(id int64) tea.Cmd {
	if v.resolving != 0 {
		return nil
	}
	v.resolving = id
	v.message = fmt.Sprintf("resolving #%d...", id)
	v.resolveErr = nil
	resolver := v.resolver
	return func() tea.Msg {
		alert, err := resolver.Resolve(context.Background(), id)
		return ResolvedMsg{ID: id, Alert: alert, Err: err}
	}
}

func (v AlertsView) setFilter(update func(*telemetry.AlertFilter)) tea.Cmd {
	return pagerCmd(v.pager.Name(), func(ctx context.Context) error {
		return v.pager.SetFilter(ctx, update)
	})
}

func (v AlertsView) selected() (telemetry.Alert, bool) {
	p := v.pager.State().Page
	if p == nil || len(p.Items) == 0 {
		return telemetry.Alert{}, false
	}
	return p.Items[min(v.cursor, len(p.Items)-1)], true
}

func (v AlertsView) rowCount() int {
	if p := v.pager.State().Page; p != nil {
		return len(p.Items)
	}
	return 0
}

func nextSeverity(s telemetry.Severity) telemetry.Severity {
	for i, sev := range severityCycle {
		if sev == s {
			return severityCycle[(i+1)%len(severityCycle)]
		}
	}
	return ""
}

// Status reports what the status bar should show for this view.
func (v AlertsView) Status() components.StatusInfo {
	st := v.pager.State()
	err := v.resolveErr
	if err == nil {
		err = st.Err
	}
	return components.StatusInfo{Loading: st.Loading || v.resolving != 0, Err: err, Message: v.message}
}

// Hints returns the key hints shown while the view is active.
func (v AlertsView) Hints() []components.KeyHint {
	if v.showDetail {
		return []components.KeyHint{
			{Key: "x", Desc: "resolve"},
			{Key: "esc", Desc: "back"},
		}
	}
	return []components.KeyHint{
		{Key: "enter", Desc: "detail"},
		{Key: "x", Desc: "resolve"},
		{Key: "h/l", Desc: "page"},
		{Key: "t/s/a", Desc: "topic/severity/status"},
		{Key: "c", Desc: "clear"},
		{Key: "?", Desc: "help"},
	}
}

// View renders the alert list, or the detail of the selected alert.
func (v AlertsView) View() string {
	if v.showDetail {
		return v.detail.View()
	}
	st := v.pager.State()

	label := v.sty.FormLabel
	value := v.sty.FormCursor
	sev := string(st.Filter.Severity)
	if sev == "" {
		sev = "any"
	}
	filterLine := strings.Join([]string{
		label.Render("topic: ") + value.Render(orAll(st.Filter.Topic)),
		label.Render("severity: ") + value.Render(sev),
		label.Render("status: ") + value.Render(st.Filter.Status.String()),
	}, "   ")

	footer := v.sty.TableCellDim.Render(pageSummary(st.Page))
	if v.edge {
		footer += "  " + v.sty.TableCellDim.Render("no more pages")
	}
	if st.Err != nil && st.Page != nil {
		footer += "  " + v.sty.StatusWarn.Render("showing last loaded page")
	}

	tableHeight := v.height - lipgloss.Height(filterLine) - lipgloss.Height(footer)
	return lipgloss.JoinVertical(lipgloss.Left, filterLine, v.renderTable(st, max(tableHeight, 2)), footer)
}

func (v AlertsView) renderTable(st engine.PagerState[telemetry.Alert, telemetry.AlertFilter], height int) string {
	headerStyle := v.sty.TableHeader
	header := headerStyle.Render(padLeft("ID", colID)) + " " +
		headerStyle.Render(padRight("Severity", colSeverity)) +
		headerStyle.Render(padRight("Status", colStatus)) +
		headerStyle.Render(padRight("Topic", colTopic)) +
		headerStyle.Render(padRight("Created", colCreated)) +
		headerStyle.Render("Message")
	lines := []string{header}

	if st.Page == nil {
		msg := "Loading..."
		if st.Err != nil {
			msg = st.Err.Error()
		}
		lines = append(lines, v.sty.TableCellDim.Render(msg))
		return strings.Join(lines, "\n")
	}
	if len(st.Page.Items) == 0 {
		lines = append(lines, v.sty.TableCellDim.Render("No alerts match the current filters"))
		return strings.Join(lines, "\n")
	}

	msgWidth := max(v.width-colID-1-colSeverity-colStatus-colTopic-colCreated, 10)
	cursor := min(v.cursor, len(st.Page.Items)-1)
	start, end := visibleWindow(len(st.Page.Items), cursor, height-1)
	for i := start; i < end; i++ {
		a := st.Page.Items[i]
		selected := i == cursor
		rowStyle := v.sty.TableRow
		sevStyle := v.sty.Severity(string(a.Severity))
		statusStyle := v.sty.StatusDown
		status := "active"
		if a.Resolved {
			statusStyle = v.sty.Resolved
			status = "resolved"
		}
		if selected {
			rowStyle = v.sty.TableRowSel
			sevStyle = sevStyle.Background(v.theme.Base02)
			statusStyle = statusStyle.Background(v.theme.Base02)
		}
		if a.ID == v.resolving {
			status = "resolving"
		}
		lines = append(lines,
			rowStyle.Render(padLeft(fmt.Sprintf("%d", a.ID), colID))+rowStyle.Render(" ")+
				sevStyle.Render(padRight(string(a.Severity), colSeverity))+
				statusStyle.Render(padRight(status, colStatus))+
				rowStyle.Render(padRight(truncate(a.Topic, colTopic-1), colTopic))+
				rowStyle.Render(padRight(formatStamp(a.CreatedAt.Time), colCreated))+
				rowStyle.Render(padRight(truncate(a.Message, msgWidth), msgWidth)),
		)
	}
	return strings.Join(lines, "\n")
}
