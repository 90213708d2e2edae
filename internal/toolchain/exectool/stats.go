package exectool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/buildwatch/internal/diagnostics"
)

// Stats is the decoded outcome of one build tool invocation.
type Stats struct {
	errors   []diagnostics.RawError
	warnings []diagnostics.RawError
	duration time.Duration
	hash     string
	root     string
}

func (s *Stats) Errors() []diagnostics.RawError   { return s.errors }
func (s *Stats) Warnings() []diagnostics.RawError { return s.warnings }

// Hash identifies the build output; empty when the tool reported none.
func (s *Stats) Hash() string { return s.hash }

// Duration is the build time reported by the tool, or the measured wall time.
func (s *Stats) Duration() time.Duration { return s.duration }

// String is a one-line summary of the run.
func (s *Stats) String() string {
	var b strings.Builder
	if s.hash != "" {
		fmt.Fprintf(&b, "hash %s, ", s.hash)
	}
	fmt.Fprintf(&b, "built in %s: %s, %s",
		s.duration.Round(time.Millisecond),
		plural(len(s.errors), "error"),
		plural(len(s.warnings), "warning"))
	return b.String()
}

// ShortenRequest renders paths inside the project root as "./rel/path".
func (s *Stats) ShortenRequest(path string) string {
	if s.root == "" || !filepath.IsAbs(path) {
		return path
	}
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return "./" + filepath.ToSlash(rel)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

// jsonStats is the subset of the tool's --json output that is consumed.
type jsonStats struct {
	Errors   []json.RawMessage `json:"errors"`
	Warnings []json.RawMessage `json:"warnings"`
	Time     int64             `json:"time"`
	Hash     string            `json:"hash"`
}

// statsEntry is the flat layout newer tool versions use for errors.
type statsEntry struct {
	Message          string `json:"message"`
	ModuleName       string `json:"moduleName"`
	ModuleIdentifier string `json:"moduleIdentifier"`
	Loc              string `json:"loc"`
}

// decodeStats interprets the tool's output. A failed run whose output is not
// a stats object becomes a single module build error carrying stderr.
func decodeStats(stdout, stderr []byte, runErr error, root string, elapsed time.Duration) *Stats {
	stats := &Stats{root: root, duration: elapsed}

	var js jsonStats
	if start := bytes.IndexByte(stdout, '{'); start >= 0 && json.Unmarshal(stdout[start:], &js) == nil {
		stats.errors = decodeEntries(js.Errors, root)
		stats.warnings = decodeEntries(js.Warnings, root)
		stats.hash = js.Hash
		if js.Time > 0 {
			stats.duration = time.Duration(js.Time) * time.Millisecond
		}
		return stats
	}

	if runErr != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = runErr.Error()
		}
		stats.errors = []diagnostics.RawError{{Error: &diagnostics.ModuleBuildError{Message: msg}}}
	}
	return stats
}

func decodeEntries(entries []json.RawMessage, root string) []diagnostics.RawError {
	out := make([]diagnostics.RawError, 0, len(entries))
	for _, e := range entries {
		out = append(out, decodeEntry(e, root))
	}
	return out
}

func decodeEntry(data json.RawMessage, root string) diagnostics.RawError {
	var text string
	if json.Unmarshal(data, &text) == nil {
		return diagnostics.RawError{Error: &diagnostics.ModuleBuildError{Message: text}}
	}

	var raw diagnostics.RawError
	_ = json.Unmarshal(data, &raw)
	if len(diagnostics.Shapes(raw)) > 0 {
		return raw
	}

	var flat statsEntry
	if json.Unmarshal(data, &flat) != nil {
		return raw
	}
	if flat.ModuleName == "" {
		// Entry-point resolution failures and config warnings carry no module.
		if flat.Message == "" {
			return raw
		}
		return diagnostics.RawError{Error: &diagnostics.ModuleBuildError{Message: flat.Message, Loc: parseLoc(flat.Loc)}}
	}
	converted := diagnostics.RawError{
		Error:  &diagnostics.ModuleBuildError{Message: flat.Message, Loc: parseLoc(flat.Loc)},
		Module: &diagnostics.ModuleRef{Resource: moduleResource(flat.ModuleName, root)},
	}
	return converted
}

// parseLoc reads "line:col" or "line:col-end" locations.
func parseLoc(loc string) *diagnostics.SourceLoc {
	lineStr, colStr, _ := strings.Cut(loc, ":")
	line, err := strconv.Atoi(lineStr)
	if err != nil {
		return nil
	}
	colStr, _, _ = strings.Cut(colStr, "-")
	out := &diagnostics.SourceLoc{Line: &line}
	if col, err := strconv.Atoi(colStr); err == nil {
		// Columns in this layout are 0-based.
		col++
		out.Column = &col
	}
	return out
}

func moduleResource(name, root string) string {
	name = strings.TrimSpace(name)
	if root == "" || filepath.IsAbs(name) || !strings.HasPrefix(name, "./") {
		return name
	}
	return filepath.Join(root, filepath.FromSlash(name))
}
