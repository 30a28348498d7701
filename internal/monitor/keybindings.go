package monitor

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// keyMap lists the dashboard bindings. It satisfies help.KeyMap.
type keyMap struct {
	Quit   key.Binding
	Export key.Binding
	Help   key.Binding
	Close  key.Binding
}

var keys = keyMap{
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Export: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export csv")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Close:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close help")),
}

// ShortHelp is shown in the footer.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Export, k.Help}
}

// FullHelp is shown in the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Export},
		{k.Help, k.Close},
	}
}

// HandleKeyMsg processes keyboard input. Returns true if the key was handled.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
		return true, nil

	case m.showHelp && key.Matches(msg, keys.Close):
		m.showHelp = false
		return true, nil

	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return true, tea.Quit

	case key.Matches(msg, keys.Export):
		return true, m.exportCmd()
	}
	return false, nil
}
