package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines every key binding of the terminal front end. Letter keys
// only act on pages without a focused text field.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	NextField key.Binding
	PrevField key.Binding
	Cycle     key.Binding // Status and priority pickers.
	CycleBack key.Binding

	Submit     key.Binding
	Save       key.Binding // Ticket form; enter moves between fields there.
	Back       key.Binding
	SwitchAuth key.Binding

	Login     key.Binding
	Signup    key.Binding
	Dashboard key.Binding
	Tickets   key.Binding
	Logout    key.Binding
	Refresh   key.Binding

	New    key.Binding
	Edit   key.Binding
	Delete key.Binding

	Confirm key.Binding
	Cancel  key.Binding

	DismissToast key.Binding
	Quit         key.Binding
	ForceQuit    key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "prev field"),
	),
	Cycle: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("←/→", "change"),
	),
	CycleBack: key.NewBinding(
		key.WithKeys("left"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "submit"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("C-s", "save"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	SwitchAuth: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("C-t", "sign in / sign up"),
	),
	Login: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "sign in"),
	),
	Signup: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "create account"),
	),
	Dashboard: key.NewBinding(
		key.WithKeys("b", "esc"),
		key.WithHelp("b", "dashboard"),
	),
	Tickets: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "tickets"),
	),
	Logout: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "log out"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "enter"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "delete"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/Esc", "cancel"),
	),
	DismissToast: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("C-x", "dismiss"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q"),
		key.WithHelp("q", "quit"),
	),
	ForceQuit: key.NewBinding(
		key.WithKeys("ctrl+c"),
	),
}
