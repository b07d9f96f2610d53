// Package dataerr defines the error and warning taxonomy shared by herbot's
// loaders, validators, joins and SQL client.
//
// Errors with structured payloads have their own types (ColumnsNotFoundError,
// MergeColumnsNotFoundError, ...). Message-only failures use *Error with a
// Kind, and each kind has a sentinel so callers can write
//
//	if errors.Is(err, dataerr.ErrSQLExecution) { ... }
//
// All messages are rendered on a single line: newlines become spaces and
// tabs are dropped.
package dataerr

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind classifies a message-only error.
type Kind string

const (
	KindNoFilePathProvided Kind = "NoFilePathProvided"
	KindNoDatasetsProvided Kind = "NoDatasetsProvided"
	KindNoDataProvided     Kind = "NoDataProvided"
	KindInvalidMonth       Kind = "InvalidMonth"
	KindDatabaseConnection Kind = "DatabaseConnection"
	KindSQLExecution       Kind = "SQLExecution"
	KindInvalidParameters  Kind = "InvalidParameters"
	KindDatasetNotFound    Kind = "DatasetNotFound"
	KindDuplicateData      Kind = "DuplicateData"
)

// Sentinels for errors.Is.
var (
	ErrNoFilePathProvided = &Error{Kind: KindNoFilePathProvided}
	ErrNoDatasetsProvided = &Error{Kind: KindNoDatasetsProvided}
	ErrNoDataProvided     = &Error{Kind: KindNoDataProvided}
	ErrInvalidMonth       = &Error{Kind: KindInvalidMonth}
	ErrDatabaseConnection = &Error{Kind: KindDatabaseConnection}
	ErrSQLExecution       = &Error{Kind: KindSQLExecution}
	ErrInvalidParameters  = &Error{Kind: KindInvalidParameters}
	ErrDatasetNotFound    = &Error{Kind: KindDatasetNotFound}
	ErrDuplicateData      = &Error{Kind: KindDuplicateData}
)

// Error is a message-only failure of a given Kind, optionally wrapping a
// cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New returns an *Error of the given kind.
func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

// Wrap returns an *Error of the given kind wrapping cause.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// Newf formats the message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return Flatten(e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// MissingSet is one named column set and the columns it lacks.
type MissingSet struct {
	Set     string
	Columns []string
}

// DefaultColumnsBase is the base message used when none is supplied.
const DefaultColumnsBase = "Columns were not found in the dataset."

// ColumnsNotFoundError reports named column sets with members absent from a
// table.
type ColumnsNotFoundError struct {
	Base    string
	Missing []MissingSet
}

// Detail returns the multi-line report:
//
//	<base>
//		MISSING COLUMNS:
//			SET_ONE: ['a', 'b']
func (e *ColumnsNotFoundError) Detail() string {
	base := e.Base
	if base == "" {
		base = DefaultColumnsBase
	}
	parts := []string{base, "MISSING COLUMNS:"}
	for _, m := range e.Missing {
		parts = append(parts, fmt.Sprintf("\t%s: %s", strings.ToUpper(m.Set), QuotedList(m.Columns)))
	}
	return strings.Join(parts, "\n\t")
}

func (e *ColumnsNotFoundError) Error() string { return Flatten(e.Detail()) }

// RaisedIncorrectlyError signals that an error was constructed although its
// triggering condition did not hold. It is a caller bug, not a data problem.
type RaisedIncorrectlyError struct {
	// Source names the error type that was misused.
	Source string
	Err    error
}

func (e *RaisedIncorrectlyError) Error() string {
	return e.Source + " was potentially raised incorrectly."
}

func (e *RaisedIncorrectlyError) Unwrap() error { return e.Err }

// MergeColumnsNotFoundError reports join keys absent from either input.
type MergeColumnsNotFoundError struct {
	Left  []string
	Right []string
}

// NewMergeColumnsNotFoundError computes which keys are missing on each side.
func NewMergeColumnsNotFoundError(leftColumns, rightColumns, leftOn, rightOn []string) *MergeColumnsNotFoundError {
	return &MergeColumnsNotFoundError{
		Left:  Difference(leftOn, leftColumns),
		Right: Difference(rightOn, rightColumns),
	}
}

func (e *MergeColumnsNotFoundError) Error() string {
	var parts []string
	if len(e.Left) > 0 {
		parts = append(parts, fmt.Sprintf("The column(s) %s were not found in the left dataset.", QuotedList(e.Left)))
	}
	if len(e.Right) > 0 {
		parts = append(parts, fmt.Sprintf("The column(s) %s were not found in the right dataset.", QuotedList(e.Right)))
	}
	return strings.Join(parts, " ")
}

// PathNotFoundError reports a missing file or directory.
type PathNotFoundError struct {
	Path string
	Err  error
}

func (e *PathNotFoundError) Error() string { return "Path not found: " + e.Path }

func (e *PathNotFoundError) Unwrap() error { return e.Err }

// Flatten collapses a multi-line message onto one line.
func Flatten(msg string) string {
	return strings.ReplaceAll(strings.ReplaceAll(msg, "\n", " "), "\t", "")
}

// QuotedList renders names as ['a', 'b'].
func QuotedList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Difference returns the sorted, de-duplicated members of want that are not
// in have.
func Difference(want, have []string) []string {
	present := make(map[string]struct{}, len(have))
	for _, h := range have {
		present[h] = struct{}{}
	}
	seen := make(map[string]struct{}, len(want))
	var out []string
	for _, w := range want {
		if _, ok := present[w]; ok {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}
