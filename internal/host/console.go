package host

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Console is a Host for terminals without a UI. The output log goes to slog;
// status changes, notifications and progress are printed to a writer.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	log *slog.Logger
}

// NewConsole prints to out (stdout when nil) and logs to the default logger.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, log: slog.Default()}
}

func (c *Console) AppendLine(line string) {
	c.log.Info(line, slog.String("source", "output"))
}

// RevealOutput is a no-op: the log is always visible.
func (c *Console) RevealOutput() {}

func (c *Console) NewStatus() Status {
	return &consoleStatus{c: c}
}

func (c *Console) ShowInfo(msg string) {
	c.println(color.New(color.FgCyan), msg)
}

func (c *Console) ShowError(msg string) {
	c.println(color.New(color.FgRed, color.Bold), msg)
}

// WithProgress prints title now and a completion line once done closes.
func (c *Console) WithProgress(title string, done <-chan struct{}) {
	c.println(color.New(color.FgYellow), title)
	go func() {
		<-done
		c.println(color.New(color.Faint), title+" done")
	}()
}

func (c *Console) println(p *color.Color, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = p.Fprintln(c.out, msg)
}

type consoleStatus struct {
	c      *Console
	mu     sync.Mutex
	text   string
	hidden bool
}

// Set prints the status when its text or tone changes.
func (s *consoleStatus) Set(text string, tone Tone) {
	s.mu.Lock()
	if s.hidden || s.text == text && tone == ToneNormal {
		s.mu.Unlock()
		return
	}
	s.text = text
	s.mu.Unlock()

	p := color.New(color.FgGreen)
	if tone == ToneError {
		p = color.New(color.FgRed)
	}
	s.c.println(p, fmt.Sprintf("● %s", text))
}

func (s *consoleStatus) Hide() {
	s.mu.Lock()
	s.hidden = true
	s.mu.Unlock()
}
