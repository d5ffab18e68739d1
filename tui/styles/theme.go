package styles

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// DefaultThemeName is the theme used when the config names none or an
// unknown one.
const DefaultThemeName = "solarized-dark"

// Theme is a Base16 palette. The comments give the role each slot plays in
// pulse.
type Theme struct {
	Name   string
	Base00 lipgloss.Color // background
	Base01 lipgloss.Color // header and status bar
	Base02 lipgloss.Color // selected row
	Base03 lipgloss.Color // dim text
	Base04 lipgloss.Color // labels
	Base05 lipgloss.Color // foreground
	Base06 lipgloss.Color // emphasized values
	Base07 lipgloss.Color // unused
	Base08 lipgloss.Color // critical, errors, breaches
	Base09 lipgloss.Color // unused
	Base0A lipgloss.Color // warning, loading
	Base0B lipgloss.Color // resolved, live
	Base0C lipgloss.Color // rate charts
	Base0D lipgloss.Color // headings, keys, active tab
	Base0E lipgloss.Color // section titles
	Base0F lipgloss.Color // unused
}

var (
	DefaultTheme Theme
	sortedSlugs  []string
)

func init() {
	sortedSlugs = make([]string, 0, len(Themes))
	for slug := range Themes {
		sortedSlugs = append(sortedSlugs, slug)
	}
	sort.Strings(sortedSlugs)
	DefaultTheme = Themes[DefaultThemeName]
}

// GetThemeByName returns a theme by its slug, or nil if not found.
func GetThemeByName(name string) *Theme {
	t, ok := Themes[name]
	if !ok {
		return nil
	}
	return &t
}

// Resolve returns the named theme, falling back to DefaultTheme. The bool
// reports whether name was found.
func Resolve(name string) (Theme, bool) {
	if t, ok := Themes[name]; ok {
		return t, true
	}
	return DefaultTheme, false
}

// ListThemes returns sorted theme slugs.
func ListThemes() []string {
	return sortedSlugs
}
