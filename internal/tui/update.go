package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// MsgRefresh asks the panel to re-read the report and host state.
type MsgRefresh struct{}

// Update handles events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.output.Width = msg.Width - 4
		m.output.Height = max(msg.Height/3, 3)
		return m, nil

	case MsgRefresh:
		m.reload()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s":
		m.message = ""
		m.cmds.StartDevServer()
	case "x":
		m.message = ""
		m.cmds.StopDevServer()
	case "r":
		m.message = ""
		m.cmds.Restart()
	case "o":
		m.showOutput = !m.showOutput
		if m.showOutput {
			m.cmds.RevealOutput()
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.rows)-1 {
			m.selected++
		}
	case "enter":
		m.message = m.describeSelected()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.output, cmd = m.output.Update(msg)
		return m, cmd
	}
	return m, nil
}

// describeSelected renders the selected row's navigation target.
func (m Model) describeSelected() string {
	if m.selected >= len(m.rows) {
		return ""
	}
	d := m.rows[m.selected].display
	if d.Target == nil {
		return "No location for " + d.Label
	}
	line, col, ok := d.Target.Position()
	if !ok {
		return d.Target.File
	}
	return fmt.Sprintf("%s:%d:%d", d.Target.File, line+1, col+1)
}
