package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Escape   key.Binding
	Quit     key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Left     key.Binding
	Right    key.Binding
	Tab      key.Binding
	View1    key.Binding
	View2    key.Binding
	View3    key.Binding
	Topic    key.Binding
	Severity key.Binding
	Status   key.Binding
	Range    key.Binding
	Clear    key.Binding
	Resolve  key.Binding
}

// DefaultKeyMap provides the default set of key bindings.
var DefaultKeyMap = KeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "down")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Escape:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Left:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("left/h", "prev page")),
	Right:    key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("right/l", "next page")),
	Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	View1:    key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "dashboard")),
	View2:    key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "raw data")),
	View3:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "alerts")),
	Topic:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "topic")),
	Severity: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "severity")),
	Status:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "status")),
	Range:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "time range")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	Resolve:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "resolve")),
}
