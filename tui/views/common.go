package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tonhe/pulse/internal/engine"
	"github.com/tonhe/pulse/internal/telemetry"
	"github.com/tonhe/pulse/tui/components"
)

// PageLoadedMsg reports that a pager operation settled.
type PageLoadedMsg struct {
	Pager string
	Err   error
}

// TopicsLoadedMsg carries the topic set once the cache has it.
type TopicsLoadedMsg struct {
	Topics []string
	Err    error
}

// ResolvedMsg reports the outcome of resolving an alert.
type ResolvedMsg struct {
	ID    int64
	Alert telemetry.Alert
	Err   error
}

// pagerCmd runs a blocking pager operation off the update loop.
func pagerCmd(name string, op func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return PageLoadedMsg{Pager: name, Err: op(context.Background())}
	}
}

// topicsCmd loads the topic set through the shared cache.
func topicsCmd(cache *engine.TopicCache) tea.Cmd {
	return func() tea.Msg {
		topics, err := cache.EnsureLoaded(context.Background())
		return TopicsLoadedMsg{Topics: topics, Err: err}
	}
}

// atEdge reports whether a paging request ran past the first or last page.
func atEdge(err error) bool {
	return errors.Is(err, engine.ErrPageOutOfRange)
}

// nextTopic cycles "" (all) -> topics[0] -> ... -> topics[n-1] -> "".
func nextTopic(topics []string, current string) string {
	if len(topics) == 0 {
		return ""
	}
	if current == "" {
		return topics[0]
	}
	for i, t := range topics {
		if t == current && i+1 < len(topics) {
			return topics[i+1]
		}
	}
	return ""
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// pageSummary describes where a pager is, e.g. "page 2/3  60 total".
func pageSummary[T any](p *telemetry.Page[T]) string {
	if p == nil {
		return "no data"
	}
	pages := max(p.TotalPages, 1)
	return fmt.Sprintf("page %d/%d  %s total", p.Page, pages, components.FormatCount(int64(p.Total)))
}

// visibleWindow returns the [start, end) slice of n rows that keeps cursor
// on screen within height rows.
func visibleWindow(n, cursor, height int) (int, int) {
	height = max(height, 1)
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, n)
	if end-start < height {
		start = max(end-height, 0)
	}
	return start, end
}

// padRight pads s with spaces on the right to the given width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// padLeft pads s with spaces on the left to the given width.
func padLeft(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// truncate shortens s to maxLen characters, adding an ellipsis if needed.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
