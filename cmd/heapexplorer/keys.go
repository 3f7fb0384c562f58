package main

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Actions
	Enter key.Binding
	Tab   key.Binding
	Esc   key.Binding

	// Heap commands
	Alloc    key.Binding
	Burst    key.Binding
	Free     key.Binding
	FreeAll  key.Binding
	Policy   key.Binding
	Reset    key.Binding
	NextUsed key.Binding
	Copy     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		// Navigation
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "move down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Home: key.NewBinding(
			key.WithKeys("home", "g"),
			key.WithHelp("g", "go to top"),
		),
		End: key.NewBinding(
			key.WithKeys("end", "G"),
			key.WithHelp("G", "go to bottom"),
		),

		// Actions
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "block detail"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "arena/free list"),
		),
		Esc: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),

		// Heap commands
		Alloc: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "allocate"),
		),
		Burst: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "allocate 16"),
		),
		Free: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "free block"),
		),
		FreeAll: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "free all"),
		),
		Policy: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "next fit policy"),
		),
		Reset: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reset heap"),
		),
		NextUsed: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next used block"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy pointer"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns key bindings for the short help view
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Alloc, k.Free, k.Policy, k.Tab, k.Help, k.Quit}
}

// FullHelp returns all key bindings for the full help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Enter, k.Tab, k.Esc, k.NextUsed, k.Copy},
		{k.Alloc, k.Burst, k.Free, k.FreeAll, k.Policy, k.Reset},
		{k.Help, k.Quit},
	}
}
