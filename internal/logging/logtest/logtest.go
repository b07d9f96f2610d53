// Package logtest provides loggers for tests.
package logtest

import (
	"log/slog"
	"sync"
	"testing"
)

// Entry is one recorded log call.
type Entry struct {
	Level slog.Level
	Msg   string
	Args  []any
}

// Recorder is a logging.Logger that keeps every call in memory.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func (r *Recorder) add(level slog.Level, msg string, args []any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Msg: msg, Args: args})
}

func (r *Recorder) Debug(msg string, args ...any) { r.add(slog.LevelDebug, msg, args) }
func (r *Recorder) Info(msg string, args ...any)  { r.add(slog.LevelInfo, msg, args) }
func (r *Recorder) Warn(msg string, args ...any)  { r.add(slog.LevelWarn, msg, args) }
func (r *Recorder) Error(msg string, args ...any) { r.add(slog.LevelError, msg, args) }

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Messages returns the messages logged at the given level, in order.
func (r *Recorder) Messages(level slog.Level) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}

// New returns a logger that writes to t.Log, so output only shows on
// failure or with -v.
func New(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
