// Package tui is a terminal panel showing the build report tree, the output
// log and the dev server status.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"git.home.luguber.info/inful/buildwatch/internal/eventloop"
	"git.home.luguber.info/inful/buildwatch/internal/host"
	"git.home.luguber.info/inful/buildwatch/internal/report"
)

// Commands are the dev server actions bound to keys.
type Commands interface {
	StartDevServer() *eventloop.Future[struct{}]
	StopDevServer() *eventloop.Future[struct{}]
	Restart() *eventloop.Future[struct{}]
	RevealOutput()
}

// row is one visible line of the report tree.
type row struct {
	depth   int
	display report.DisplayItem
}

// Model holds the panel state.
type Model struct {
	cmds  Commands
	proxy *report.Proxy
	host  *host.Recorder

	// Data
	rows     []row
	lines    []string
	status   string
	tone     host.Tone
	progress []string
	errors   []string
	infos    []string

	// UI State
	selected   int
	showOutput bool
	reveals    int
	message    string
	width      int
	height     int

	// Components
	output  viewport.Model
	spinner spinner.Model
}

// New creates the panel. rec must be the host the commands report through.
func New(cmds Commands, proxy *report.Proxy, rec *host.Recorder) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	m := Model{
		cmds:    cmds,
		proxy:   proxy,
		host:    rec,
		output:  viewport.New(80, 10),
		spinner: sp,
	}
	m.reload()
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// reload copies the current report and host state into the model.
func (m *Model) reload() {
	m.rows = m.rows[:0]
	if m.proxy.Target() == nil {
		m.rows = append(m.rows, row{display: m.proxy.TreeItem(nil)})
	} else {
		m.appendRows(m.proxy.Children(nil), 0)
	}
	if m.selected >= len(m.rows) {
		m.selected = max(len(m.rows)-1, 0)
	}

	m.lines = m.host.Lines()
	m.progress = m.host.Progress()
	m.errors = m.host.Errors()
	m.infos = m.host.Infos()
	if text, tone, ok := m.host.Status(); ok {
		m.status, m.tone = text, tone
	} else {
		m.status, m.tone = "", host.ToneNormal
	}
	if r := m.host.Reveals(); r > m.reveals {
		m.reveals = r
		m.showOutput = true
	}
	m.output.SetContent(joinLines(m.lines))
	m.output.GotoBottom()
}

func (m *Model) appendRows(items []*report.Item, depth int) {
	for _, it := range items {
		m.rows = append(m.rows, row{depth: depth, display: m.proxy.TreeItem(it)})
		m.appendRows(m.proxy.Children(it), depth+1)
	}
}

func joinLines(lines []string) string {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}
	b := make([]byte, 0, n)
	for i, l := range lines {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, l...)
	}
	return string(b)
}
