package views

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/components"
	"github.com/tonhe/pulse/tui/keys"
	"github.com/tonhe/pulse/tui/styles"
)

const colID = 8

// RawDataView pages through raw sensor readings with topic and time range
// filters.
type RawDataView struct {
	theme     styles.Theme
	sty       *styles.Styles
	pager     *engine.SensorPager
	topics    *engine.TopicCache
	topicList []string
	topicErr  error

	inputs   [2]textinput.Model
	editing  bool
	focus    int
	inputErr string
	edge     bool

	cursor int
	width  int
	height int
}

// NewRawDataView creates a RawDataView over pager. Topic choices come from
// topics.
func NewRawDataView(theme styles.Theme, pager *engine.SensorPager, topics *engine.TopicCache) RawDataView {
	v := RawDataView{
		theme:  theme,
		sty:    styles.NewStyles(theme),
		pager:  pager,
		topics: topics,
	}
	for i, label := range []string{"from", "to"} {
		ti := textinput.New()
		ti.Placeholder = "YYYY-MM-DD HH:MM"
		ti.Prompt = label + ": "
		ti.CharLimit = 25
		ti.Width = 20
		ti.PromptStyle = v.sty.FormLabel
		ti.TextStyle = v.sty.FormInput
		v.inputs[i] = ti
	}
	return v
}

// Activate returns the commands to run when the view is first shown.
func (v RawDataView) Activate() tea.Cmd {
	cmds := []tea.Cmd{topicsCmd(v.topics)}
	if v.pager.State().Page == nil {
		cmds = append(cmds, pagerCmd(v.pager.Name(), v.pager.Reload))
	}
	return tea.Batch(cmds...)
}

// Capturing reports whether the view wants raw key input.
func (v RawDataView) Capturing() bool {
	return v.editing
}

// SetSize updates the available dimensions for the view.
func (v *RawDataView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key and load messages.
func (v RawDataView) Update(msg tea.Msg) (RawDataView, tea.Cmd) {
	switch msg := msg.(type) {
	case TopicsLoadedMsg:
		v.topicErr = msg.Err
		if msg.Err == nil {
			v.topicList = msg.Topics
		}
		return v, nil
	case PageLoadedMsg:
		v.edge = atEdge(msg.Err)
		if n := v.rowCount(); v.cursor >= n {
			v.cursor = max(n-1, 0)
		}
		return v, nil
	case tea.KeyMsg:
		if v.editing {
			return v.updateEditing(msg)
		}
		return v.updateBrowsing(msg)
	}
	return v, nil
}

func (v RawDataView) updateBrowsing(msg tea.KeyMsg) (RawDataView, tea.Cmd) {
	km := keys.DefaultKeyMap
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
		topic := nextTopic(v.topicList, v.pager.State().Filter.Topic)
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.SensorDataFilter) { f.Topic = topic })
	case key.Matches(msg, km.Clear):
		v.cursor = 0
		v.inputs[0].SetValue("")
		v.inputs[1].SetValue("")
		return v, v.setFilter(func(f *telemetry.SensorDataFilter) { *f = telemetry.SensorDataFilter{} })
	case key.Matches(msg, km.Range):
		v.editing = true
		v.inputErr = ""
		v.focus = 0
		v.inputs[1].Blur()
		cmd := v.inputs[0].Focus()
		return v, cmd
	}
	return v, nil
}

func (v RawDataView) updateEditing(msg tea.KeyMsg) (RawDataView, tea.Cmd) {
	switch msg.String() {
	case "esc":
		v.editing = false
		v.inputErr = ""
		v.inputs[0].Blur()
		v.inputs[1].Blur()
		return v, nil
	case "tab", "shift+tab", "up", "down":
		v.inputs[v.focus].Blur()
		v.focus = 1 - v.focus
		cmd := v.inputs[v.focus].Focus()
		return v, cmd
	case "enter":
		start, err := telemetry.ParseInputTime(v.inputs[0].Value(), time.Local)
		if err != nil {
			v.inputErr = err.Error()
			return v, nil
		}
		end, err := telemetry.ParseInputTime(v.inputs[1].Value(), time.Local)
		if err != nil {
			v.inputErr = err.Error()
			return v, nil
		}
		if !start.IsZero() && !end.IsZero() && end.Before(start) {
			v.inputErr = "end is before start"
			return v, nil
		}
		v.editing = false
		v.inputErr = ""
		v.inputs[0].Blur()
		v.inputs[1].Blur()
		v.cursor = 0
		return v, v.setFilter(func(f *telemetry.SensorDataFilter) {
			f.Start = start
			f.End = end
		})
	}

	var cmd tea.Cmd
	v.inputs[v.focus], cmd = v.inputs[v.focus].Update(msg)
	return v, cmd
}

func (v RawDataView) setFilter(update func(*telemetry.SensorDataFilter)) tea.Cmd {
	return pagerCmd(v.pager.Name(), func(ctx context.Context) error {
		return v.pager.SetFilter(ctx, update)
	})
}

func (v RawDataView) rowCount() int {
	if p := v.pager.State().Page; p != nil {
		return len(p.Items)
	}
	return 0
}

// Status reports what the status bar should show for this view.
func (v RawDataView) Status() components.StatusInfo {
	st := v.pager.State()
	err := st.Err
	if err == nil {
		err = v.topicErr
	}
	return components.StatusInfo{Loading: st.Loading, Err: err}
}

// Hints returns the key hints shown while the view is active.
func (v RawDataView) Hints() []components.KeyHint {
	if v.editing {
		return []components.KeyHint{
			{Key: "tab", Desc: "from/to"},
			{Key: "enter", Desc: "apply"},
			{Key: "esc", Desc: "cancel"},
		}
	}
	return []components.KeyHint{
		{Key: "h/l", Desc: "page"},
		{Key: "t", Desc: "topic"},
		{Key: "/", Desc: "time range"},
		{Key: "c", Desc: "clear"},
		{Key: "r", Desc: "reload"},
		{Key: "?", Desc: "help"},
	}
}

// View renders the filter bar, the readings table and the page footer.
func (v RawDataView) View() string {
	st := v.pager.State()

	filterLine := v.renderFilters(st.Filter)
	footer := v.sty.TableCellDim.Render(pageSummary(st.Page))
	if v.edge {
		footer += "  " + v.sty.TableCellDim.Render("no more pages")
	}
	if st.Err != nil && st.Page != nil {
		footer += "  " + v.sty.StatusWarn.Render("showing last loaded page")
	}

	var editor string
	if v.editing {
		editor = lipgloss.JoinHorizontal(lipgloss.Top, v.inputs[0].View(), "   ", v.inputs[1].View())
		if v.inputErr != "" {
			editor += "\n" + v.sty.StatusDown.Render(v.inputErr)
		}
	}

	tableHeight := v.height - lipgloss.Height(filterLine) - lipgloss.Height(footer) - 1
	if editor != "" {
		tableHeight -= lipgloss.Height(editor)
	}

	parts := []string{filterLine}
	if editor != "" {
		parts = append(parts, editor)
	}
	parts = append(parts, v.renderTable(st, max(tableHeight, 2)), footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (v RawDataView) renderFilters(f telemetry.SensorDataFilter) string {
	label := v.sty.FormLabel
	value := v.sty.FormCursor
	bound := func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return formatStamp(t)
	}
	return strings.Join([]string{
		label.Render("topic: ") + value.Render(orAll(f.Topic)),
		label.Render("from: ") + value.Render(bound(f.Start)),
		label.Render("to: ") + value.Render(bound(f.End)),
	}, "   ")
}

func (v RawDataView) renderTable(st engine.PagerState[telemetry.SensorReading, telemetry.SensorDataFilter], height int) string {
	headerStyle := v.sty.TableHeader
	header := headerStyle.Render(padLeft("ID", colID)) + " " +
		headerStyle.Render(padRight("Topic", colTopic))
	for _, f := range readingFields {
		header += headerStyle.Render(padLeft(truncate(f, colValue-1), colValue))
	}
	header += headerStyle.Render(padLeft("Received", colReceived))
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
		lines = append(lines, v.sty.TableCellDim.Render("No readings match the current filters"))
		return strings.Join(lines, "\n")
	}

	cursor := min(v.cursor, len(st.Page.Items)-1)
	start, end := visibleWindow(len(st.Page.Items), cursor, height-1)
	for i := start; i < end; i++ {
		r := st.Page.Items[i]
		rowStyle := v.sty.TableRow
		if i == cursor {
			rowStyle = v.sty.TableRowSel
		}
		row := rowStyle.Render(padLeft(components.FormatCount(r.ID), colID)) + rowStyle.Render(" ") +
			rowStyle.Render(padRight(truncate(r.Topic, colTopic-1), colTopic))
		values := r.Values()
		for _, f := range readingFields {
			row += rowStyle.Render(padLeft(formatValue(values[f]), colValue))
		}
		row += rowStyle.Render(padLeft(formatStamp(r.ReceivedAt.Time), colReceived))
		lines = append(lines, row)
	}
	return strings.Join(lines, "\n")
}
