package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/tui/styles"
)

// KeyHint is one key/description pair shown in the footer.
type KeyHint struct {
	Key  string
	Desc string
}

// StatusInfo is what the top line of the status bar reports.
type StatusInfo struct {
	Interval time.Duration
	LastPoll time.Time
	Loading  bool
	Err      error
	Message  string
}

// RenderStatusBar renders the two-line status/footer bar showing poll info,
// the current error or message, and key bindings.
func RenderStatusBar(theme styles.Theme, info StatusInfo, hints []KeyHint, width int) string {
	bg := theme.Base01
	bgStyle := lipgloss.NewStyle().Background(bg)
	sep := lipgloss.NewStyle().Foreground(theme.Base03).Background(bg).Render(" | ")

	pollSeg := lipgloss.NewStyle().Foreground(theme.Base05).Background(bg).Render(fmt.Sprintf("poll: %s", info.Interval))
	lastStr := "never"
	if !info.LastPoll.IsZero() {
		lastStr = info.LastPoll.Format("15:04:05")
	}
	lastSeg := lipgloss.NewStyle().Foreground(theme.Base05).Background(bg).Render(fmt.Sprintf("last: %s", lastStr))

	var stateSeg string
	switch {
	case info.Err != nil:
		stateSeg = lipgloss.NewStyle().Foreground(theme.Base08).Background(bg).
			Render("error: " + info.Err.Error())
	case info.Loading:
		stateSeg = lipgloss.NewStyle().Foreground(theme.Base0A).Background(bg).Render("loading...")
	case info.Message != "":
		stateSeg = lipgloss.NewStyle().Foreground(theme.Base0B).Background(bg).Render(info.Message)
	default:
		stateSeg = lipgloss.NewStyle().Foreground(theme.Base0B).Background(bg).Render("ok")
	}

	topContent := bgStyle.Render(" ") + pollSeg + sep + lastSeg + sep + stateSeg
	topContent = fitLine(topContent, width, bgStyle)

	keyStyle := lipgloss.NewStyle().Foreground(theme.Base0D).Background(bg).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(theme.Base04).Background(bg)
	spacer := bgStyle.Render("  ")

	keys := bgStyle.Render(" ")
	for i, h := range hints {
		if i > 0 {
			keys += spacer
		}
		keys += keyStyle.Render(h.Key) + descStyle.Render(":"+h.Desc)
	}
	keys = fitLine(keys, width, bgStyle)

	return lipgloss.JoinVertical(lipgloss.Left, topContent, keys)
}

// fitLine pads a rendered line to width, or truncates it when it overflows.
func fitLine(s string, width int, bg lipgloss.Style) string {
	w := lipgloss.Width(s)
	if w < width {
		return s + bg.Render(strings.Repeat(" ", width-w))
	}
	if w > width {
		return lipgloss.NewStyle().MaxWidth(width).Render(s)
	}
	return s
}
