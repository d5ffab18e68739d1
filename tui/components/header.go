package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/pulse/tui/styles"
)

// RenderHeader renders the top header bar: app name, the view tabs with the
// active one highlighted, polling status and the service URL.
func RenderHeader(theme styles.Theme, tabs []string, active int, isLive bool, apiURL string, width int, ver string) string {
	bg := lipgloss.NewStyle().Background(theme.Base01)
	sep := bg.Render("  ")

	left := lipgloss.NewStyle().
		Foreground(theme.Base0D).
		Background(theme.Base01).
		Bold(true).
		Render("pulse")

	activeTab := lipgloss.NewStyle().
		Foreground(theme.Base00).
		Background(theme.Base0D).
		Bold(true).
		Padding(0, 1)
	inactiveTab := lipgloss.NewStyle().
		Foreground(theme.Base04).
		Background(theme.Base02).
		Padding(0, 1)
	rendered := make([]string, len(tabs))
	for i, name := range tabs {
		label := fmt.Sprintf("%d %s", i+1, name)
		if i == active {
			rendered[i] = activeTab.Render(label)
		} else {
			rendered[i] = inactiveTab.Render(label)
		}
	}
	tabBar := strings.Join(rendered, bg.Render(" "))

	status := "IDLE"
	statusColor := theme.Base03
	if isLive {
		status = "LIVE"
		statusColor = theme.Base0B
	}
	right := lipgloss.NewStyle().
		Foreground(statusColor).
		Background(theme.Base01).
		Bold(isLive).
		Render(status)

	url := lipgloss.NewStyle().
		Foreground(theme.Base04).
		Background(theme.Base01).
		Render(apiURL)

	versionSeg := lipgloss.NewStyle().
		Foreground(theme.Base03).
		Background(theme.Base01).
		Render(ver)

	content := bg.Render(" ") + left + sep + tabBar + sep + right + sep + url + sep + versionSeg

	return lipgloss.NewStyle().
		Background(theme.Base01).
		Width(width).
		Render(content)
}
