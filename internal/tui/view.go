package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"git.home.luguber.info/inful/buildwatch/internal/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	selectedItemStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("81"))

	outputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("63"))
)

const helpText = "s start • x stop • r restart • o output • enter locate • q quit"

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("buildwatch"))
	if m.status != "" {
		style := infoStyle
		if m.tone == host.ToneError {
			style = errorStyle
		}
		b.WriteString("  " + style.Render(m.status))
	}
	b.WriteString("\n")
	for _, p := range m.progress {
		b.WriteString(m.spinner.View() + " " + p + "\n")
	}
	b.WriteString("\n")

	for i, r := range m.rows {
		label := r.display.Label
		if r.display.Description != "" {
			label += " " + dimStyle.Render(r.display.Description)
		}
		line := strings.Repeat("  ", r.depth) + label
		if i == m.selected {
			b.WriteString(selectedItemStyle.Render("> ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	if m.message != "" {
		b.WriteString("\n" + infoStyle.Render(m.message) + "\n")
	}
	if n := len(m.errors); n > 0 {
		b.WriteString("\n" + errorStyle.Render(m.errors[n-1]) + "\n")
	} else if n := len(m.infos); n > 0 {
		b.WriteString("\n" + infoStyle.Render(m.infos[n-1]) + "\n")
	}
	if m.showOutput {
		b.WriteString("\n" + outputStyle.Render(m.output.View()) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render(helpText) + "\n")
	return b.String()
}
