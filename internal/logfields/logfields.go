package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeySessionID  = "session_id"
	KeyState      = "state"
	KeyRoot       = "root"
	KeyConfigPath = "config_path"
	KeyPort       = "port"
	KeyHost       = "host"
	KeyPath       = "path"
	KeyErrors     = "errors"
	KeyWarnings   = "warnings"
	KeyDurationMS = "duration_ms"
	KeySubject    = "subject"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }
func State(s string) slog.Attr      { return slog.String(KeyState, s) }
func Root(p string) slog.Attr       { return slog.String(KeyRoot, p) }
func ConfigPath(p string) slog.Attr { return slog.String(KeyConfigPath, p) }
func Port(p int) slog.Attr          { return slog.Int(KeyPort, p) }
func Host(h string) slog.Attr       { return slog.String(KeyHost, h) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Errors(n int) slog.Attr        { return slog.Int(KeyErrors, n) }
func Warnings(n int) slog.Attr      { return slog.Int(KeyWarnings, n) }
func Subject(s string) slog.Attr    { return slog.String(KeySubject, s) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
