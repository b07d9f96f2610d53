package dataerr

import (
	"fmt"
	"sync"

	"herbot/internal/logging"
)

// WarningKind categorises a non-fatal data condition.
type WarningKind string

const (
	MergeWarning            WarningKind = "MergeWarning"
	DataTypeNotFoundWarning WarningKind = "DataTypeNotFoundWarning"
	DuplicateDataWarning    WarningKind = "DuplicateDataWarning"
)

// Warning is a non-fatal data condition surfaced to the caller.
type Warning struct {
	Kind    WarningKind
	Message string
	// Count is the number of rows involved, when meaningful.
	Count int
}

func (w Warning) String() string { return fmt.Sprintf("%s: %s", w.Kind, w.Message) }

// WarningSink receives warnings as they are raised.
type WarningSink interface {
	Warn(w Warning)
}

// WarningFunc adapts a function to WarningSink.
type WarningFunc func(Warning)

func (f WarningFunc) Warn(w Warning) { f(w) }

// LogSink writes warnings to a logger at warn level.
type LogSink struct {
	Log logging.Logger
}

func (s LogSink) Warn(w Warning) {
	logging.OrDiscard(s.Log).Warn(w.Message, "kind", string(w.Kind), "count", w.Count)
}

// Recorder keeps every warning it receives. Safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	warnings []Warning
}

func (r *Recorder) Warn(w Warning) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

// Warnings returns a copy of the recorded warnings in arrival order.
func (r *Recorder) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// Count returns how many warnings of kind were recorded.
func (r *Recorder) Count(kind WarningKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, w := range r.warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Tee forwards each warning to every non-nil sink.
func Tee(sinks ...WarningSink) WarningSink {
	return WarningFunc(func(w Warning) {
		for _, s := range sinks {
			if s != nil {
				s.Warn(w)
			}
		}
	})
}
