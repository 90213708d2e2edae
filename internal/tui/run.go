package tui

import (
	"context"
	"errors"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"git.home.luguber.info/inful/buildwatch/internal/report"
)

// Refresher forwards change notifications to a running program. It is safe
// to call before the program exists.
type Refresher struct {
	program atomic.Pointer[tea.Program]
}

// Refresh asks the panel to redraw from current state.
func (r *Refresher) Refresh() {
	if p := r.program.Load(); p != nil {
		go p.Send(MsgRefresh{})
	}
}

// Run shows the panel until the user quits or ctx is done.
func Run(ctx context.Context, m Model, r *Refresher) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	r.program.Store(p)
	defer r.program.Store(nil)

	sub := m.proxy.OnDidChange(func(*report.Item) { r.Refresh() })
	defer sub.Dispose()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
