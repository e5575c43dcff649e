package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the bindings of the history browser.
type KeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	First  key.Binding
	Last   key.Binding
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Origin key.Binding
	Goto   key.Binding
	Copy   key.Binding
	Retry  key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// Keys is the default key map.
var Keys = KeyMap{
	Next:   key.NewBinding(key.WithKeys("n", "right", "l"), key.WithHelp("n/→", "next commit")),
	Prev:   key.NewBinding(key.WithKeys("p", "left", "h"), key.WithHelp("p/←", "previous commit")),
	First:  key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("0", "oldest")),
	Last:   key.NewBinding(key.WithKeys("end", "$"), key.WithHelp("$", "newest")),
	Up:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Toggle: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open/close folder")),
	Origin: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "jump to last change")),
	Goto:   key.NewBinding(key.WithKeys("g", ":"), key.WithHelp("g", "go to commit")),
	Copy:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy hash")),
	Retry:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Toggle, k.Origin, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last, k.Goto},
		{k.Up, k.Down, k.Toggle, k.Origin},
		{k.Copy, k.Retry, k.Help, k.Quit},
	}
}
