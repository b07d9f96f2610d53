package transform

import (
	"fmt"
	"time"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging"
	"herbot/internal/validate"
)

// CheckDuplicates counts rows whose key over keys repeats an earlier row.
// With strict a non-zero count is a DuplicateData error; otherwise it is
// reported to sink as a DuplicateDataWarning. A nil sink discards warnings.
func CheckDuplicates(f *frame.Frame, keys []string, strict bool, sink dataerr.WarningSink) (int, error) {
	if err := validate.RequireColumns(f, "", validate.Set("unique keys", keys...)); err != nil {
		return 0, err
	}
	dup, err := f.Duplicated(keys...)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range dup {
		if d {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}

	msg := fmt.Sprintf("There are %d duplicate rows on %s", n, dataerr.QuotedList(keys))
	if strict {
		return n, dataerr.New(dataerr.KindDuplicateData, msg)
	}
	if sink != nil {
		sink.Warn(dataerr.Warning{Kind: dataerr.DuplicateDataWarning, Message: msg, Count: n})
	}
	return n, nil
}

// Timed logs how long the caller took. Use as defer transform.Timed(log, "name")().
func Timed(log logging.Logger, name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		logging.OrDiscard(log).Debug(
			fmt.Sprintf("Function '%s' executed in %f s", name, d.Seconds()),
			"elapsed", d)
	}
}
