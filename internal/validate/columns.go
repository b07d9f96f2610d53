// Package validate checks that tables carry the columns a pipeline step
// depends on.
package validate

import (
	"errors"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging"
)

// ColumnSet is a labelled group of columns expected in a table.
type ColumnSet struct {
	Name    string
	Columns []string
}

// Set builds a ColumnSet. A single column is just a one-element set.
func Set(name string, columns ...string) ColumnSet {
	return ColumnSet{Name: name, Columns: columns}
}

// Report lists, per column set, the columns absent from a table. Sets with
// nothing missing are omitted.
type Report []dataerr.MissingSet

// Empty reports whether nothing is missing.
func (r Report) Empty() bool { return len(r) == 0 }

var errNoMissingColumns = errors.New("No missing columns found. This error might have raised in error.")

// FindMissing compares each set against tableColumns independently. Matching
// is exact and case-sensitive.
func FindMissing(tableColumns []string, sets ...ColumnSet) Report {
	var report Report
	for _, s := range sets {
		missing := dataerr.Difference(s.Columns, tableColumns)
		if len(missing) == 0 {
			continue
		}
		report = append(report, dataerr.MissingSet{Set: s.Name, Columns: missing})
	}
	return report
}

// NewColumnsNotFoundError builds the error describing which sets are not
// satisfied by tableColumns. It never returns nil: if every set is present
// the call is itself a mistake and a *dataerr.RaisedIncorrectlyError is
// returned instead.
func NewColumnsNotFoundError(tableColumns []string, base string, sets ...ColumnSet) error {
	report := FindMissing(tableColumns, sets...)
	if report.Empty() {
		return &dataerr.RaisedIncorrectlyError{Source: "ColumnsNotFoundError", Err: errNoMissingColumns}
	}
	return &dataerr.ColumnsNotFoundError{Base: base, Missing: report}
}

// RequireColumns returns nil when f has every column of every set, and a
// *dataerr.ColumnsNotFoundError otherwise.
func RequireColumns(f *frame.Frame, base string, sets ...ColumnSet) error {
	report := FindMissing(f.Columns(), sets...)
	if report.Empty() {
		return nil
	}
	return &dataerr.ColumnsNotFoundError{Base: base, Missing: report}
}

// Validator wraps the checks above and logs failures.
type Validator struct {
	Log logging.Logger
}

// New returns a Validator logging to log.
func New(log logging.Logger) *Validator {
	return &Validator{Log: logging.OrDiscard(log)}
}

func (v *Validator) logger() logging.Logger { return logging.OrDiscard(v.Log) }

// Require is RequireColumns with the failure logged at error level.
func (v *Validator) Require(f *frame.Frame, base string, sets ...ColumnSet) error {
	err := RequireColumns(f, base, sets...)
	if err != nil {
		v.logger().Error(err.Error())
	}
	return err
}

// ColumnsNotFound is NewColumnsNotFoundError with the result logged. The
// misuse case is logged with its cause so the call site can be traced.
func (v *Validator) ColumnsNotFound(tableColumns []string, base string, sets ...ColumnSet) error {
	err := NewColumnsNotFoundError(tableColumns, base, sets...)
	var ri *dataerr.RaisedIncorrectlyError
	if errors.As(err, &ri) {
		v.logger().Error(ri.Error(), "cause", ri.Err.Error())
		return err
	}
	v.logger().Error(err.Error())
	return err
}
