// Package join performs keyed joins between frames and reports on how well
// the two sides matched.
//
// When checking is on, every joined row is tagged in an indicator column
// with its provenance (both, left_only or right_only). Unmatched rows on
// either side raise a MergeWarning; the join itself still succeeds.
package join

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging"
	"herbot/internal/metrics"
)

// How selects which unmatched rows survive a join.
type How int

const (
	Left How = iota
	Right
	Outer
	Inner
)

func (h How) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	case Outer:
		return "outer"
	case Inner:
		return "inner"
	}
	return fmt.Sprintf("How(%d)", int(h))
}

// ParseHow parses left, right, outer or inner. Empty means left.
func ParseHow(s string) (How, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "left":
		return Left, nil
	case "right":
		return Right, nil
	case "outer", "full":
		return Outer, nil
	case "inner":
		return Inner, nil
	}
	return Left, dataerr.Newf(dataerr.KindInvalidParameters, "unknown join type %q", s)
}

// Provenance values written to the indicator column.
const (
	Both      = "both"
	LeftOnly  = "left_only"
	RightOnly = "right_only"

	DefaultIndicator = "_merge"
)

var defaultSuffixes = [2]string{"_x", "_y"}

// Options configures Join.
type Options struct {
	LeftOn  []string
	RightOn []string
	How     How

	// SkipCheck disables the indicator column and the health check.
	SkipCheck bool
	// KeepIndicator retains the indicator column in the result.
	KeepIndicator bool
	// Indicator names the indicator column. Defaults to "_merge".
	Indicator string
	// Suffixes disambiguate overlapping column names. Defaults to _x, _y.
	Suffixes [2]string
	// Name labels the join in metrics.
	Name string
}

// HealthOptions configures CheckMergeHealth.
type HealthOptions struct {
	Indicator     string
	KeepIndicator bool
	Name          string
}

// Checker joins frames and checks the result. The zero value logs nowhere
// and routes warnings to its logger.
type Checker struct {
	Log     logging.Logger
	Warn    dataerr.WarningSink
	Metrics *metrics.Recorder
}

// NewChecker wires a Checker. A nil sink logs warnings through log.
func NewChecker(log logging.Logger, sink dataerr.WarningSink, rec *metrics.Recorder) *Checker {
	return &Checker{Log: log, Warn: sink, Metrics: rec}
}

func (c *Checker) logger() logging.Logger { return logging.OrDiscard(c.Log) }

func (c *Checker) sink() dataerr.WarningSink {
	if c.Warn != nil {
		return c.Warn
	}
	return dataerr.LogSink{Log: c.logger()}
}

// Join joins left and right on the given key columns.
func (c *Checker) Join(left, right *frame.Frame, opts Options) (*frame.Frame, error) {
	c.logger().Info(fmt.Sprintf("Joining the datasets on %s and %s",
		dataerr.QuotedList(opts.LeftOn), dataerr.QuotedList(opts.RightOn)))

	if len(opts.LeftOn) == 0 || len(opts.LeftOn) != len(opts.RightOn) {
		return nil, dataerr.Newf(dataerr.KindInvalidParameters,
			"left_on and right_on must name the same, non-zero number of columns (got %d and %d)",
			len(opts.LeftOn), len(opts.RightOn))
	}
	leftCols, rightCols := left.Columns(), right.Columns()
	if err := dataerr.NewMergeColumnsNotFoundError(leftCols, rightCols, opts.LeftOn, opts.RightOn); len(err.Left) > 0 || len(err.Right) > 0 {
		c.logger().Error(err.Error())
		return nil, err
	}

	indicator := opts.Indicator
	if indicator == "" {
		indicator = DefaultIndicator
	}
	suffixes := opts.Suffixes
	if suffixes == ([2]string{}) {
		suffixes = defaultSuffixes
	}

	// An inner join drops unmatched rows, so the check runs over the outer
	// provenance and the result is narrowed to matched rows afterwards.
	how := opts.How
	if how == Inner && !opts.SkipCheck {
		how = Outer
	}
	pairs := match(left, right, opts.LeftOn, opts.RightOn, how)
	out, err := assemble(left, right, opts, suffixes, pairs)
	if err != nil {
		return nil, err
	}

	if opts.SkipCheck {
		return out, nil
	}
	if out.Has(indicator) {
		return nil, dataerr.Newf(dataerr.KindInvalidParameters,
			"cannot use name of an existing column for indicator column: %s", indicator)
	}
	marks := make([]any, len(pairs))
	for i, p := range pairs {
		switch {
		case p.l >= 0 && p.r >= 0:
			marks[i] = Both
		case p.l >= 0:
			marks[i] = LeftOnly
		default:
			marks[i] = RightOnly
		}
	}
	if err := out.AddColumn(indicator, marks); err != nil {
		return nil, err
	}
	if opts.How != Inner {
		return c.CheckMergeHealth(out, HealthOptions{
			Indicator:     indicator,
			KeepIndicator: opts.KeepIndicator,
			Name:          opts.Name,
		}), nil
	}

	checked := c.CheckMergeHealth(out, HealthOptions{Indicator: indicator, KeepIndicator: true, Name: opts.Name})
	inner := checked.Filter(func(r int) bool { return marks[r] == Both })
	if opts.KeepIndicator {
		return inner, nil
	}
	return inner.Drop(indicator), nil
}

// CheckMergeHealth inspects the indicator column of a joined frame. Each side
// with unmatched rows raises one MergeWarning; if neither has any the merge
// is logged as healthy. The indicator is dropped unless KeepIndicator is set.
// A frame without the indicator column is returned unchanged.
func (c *Checker) CheckMergeHealth(f *frame.Frame, opts HealthOptions) *frame.Frame {
	indicator := opts.Indicator
	if indicator == "" {
		indicator = DefaultIndicator
	}
	counts, ok := Counts(f, indicator)
	if !ok {
		c.logger().Info(fmt.Sprintf("The merge column, %s, was not found in the merged dataframe", indicator))
		return f
	}
	c.Metrics.Merge(opts.Name, counts)

	healthy := true
	for _, kind := range []string{LeftOnly, RightOnly} {
		n := counts[kind]
		if n == 0 {
			continue
		}
		healthy = false
		c.sink().Warn(dataerr.Warning{
			Kind:    dataerr.MergeWarning,
			Message: fmt.Sprintf("There are %d '%s' rows in the merged data", n, kind),
			Count:   n,
		})
		c.Metrics.Warning(string(dataerr.MergeWarning))
	}
	if healthy {
		c.logger().Info("The merge was healthy.")
	}

	if opts.KeepIndicator {
		return f
	}
	return f.Drop(indicator)
}

// Counts tallies the provenance values in the indicator column. The second
// result is false when the column is absent.
func Counts(f *frame.Frame, indicator string) (map[string]int, bool) {
	vals, ok := f.Column(indicator)
	if !ok {
		return nil, false
	}
	counts := map[string]int{Both: 0, LeftOnly: 0, RightOnly: 0}
	for _, v := range vals {
		if s, ok := v.(string); ok {
			counts[s]++
		}
	}
	return counts, true
}

// pair is one output row: indices into left and right, -1 when absent.
type pair struct{ l, r int }

// index maps key hashes to row numbers, keeping the encoded keys to resolve
// collisions.
type index struct {
	buckets map[uint64][]int
	keys    []string
}

func buildIndex(f *frame.Frame, cols []int) index {
	idx := index{buckets: make(map[uint64][]int), keys: make([]string, f.Len())}
	for r := 0; r < f.Len(); r++ {
		key, hasNull := f.RowKey(r, cols)
		if hasNull {
			continue
		}
		idx.keys[r] = key
		h := xxh3.HashString(key)
		idx.buckets[h] = append(idx.buckets[h], r)
	}
	return idx
}

func (idx index) lookup(key string) []int {
	var out []int
	for _, r := range idx.buckets[xxh3.HashString(key)] {
		if idx.keys[r] == key {
			out = append(out, r)
		}
	}
	return out
}

func positions(f *frame.Frame, names []string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		out[i] = f.Index(n)
	}
	return out
}

// match pairs up rows. Null keys never match.
func match(left, right *frame.Frame, leftOn, rightOn []string, how How) []pair {
	lk, rk := positions(left, leftOn), positions(right, rightOn)
	var pairs []pair

	if how == Right {
		lidx := buildIndex(left, lk)
		for r := 0; r < right.Len(); r++ {
			key, hasNull := right.RowKey(r, rk)
			var hits []int
			if !hasNull {
				hits = lidx.lookup(key)
			}
			if len(hits) == 0 {
				pairs = append(pairs, pair{-1, r})
				continue
			}
			for _, l := range hits {
				pairs = append(pairs, pair{l, r})
			}
		}
		return pairs
	}

	ridx := buildIndex(right, rk)
	matched := make([]bool, right.Len())
	for l := 0; l < left.Len(); l++ {
		key, hasNull := left.RowKey(l, lk)
		var hits []int
		if !hasNull {
			hits = ridx.lookup(key)
		}
		if len(hits) == 0 {
			if how != Inner {
				pairs = append(pairs, pair{l, -1})
			}
			continue
		}
		for _, r := range hits {
			matched[r] = true
			pairs = append(pairs, pair{l, r})
		}
	}
	if how == Outer {
		for r, ok := range matched {
			if !ok {
				pairs = append(pairs, pair{-1, r})
			}
		}
	}
	return pairs
}

// outColumn describes where one result column takes its values from.
type outColumn struct {
	name string
	left int // column position in left, -1 if none
	// right is the column position in right, -1 if none. A column with both
	// is a coalesced key.
	right int
}

func assemble(left, right *frame.Frame, opts Options, suffixes [2]string, pairs []pair) (*frame.Frame, error) {
	leftCols, rightCols := left.Columns(), right.Columns()

	// Keys with the same name on both sides collapse into one column.
	coalesced := map[string]bool{}
	for i := range opts.LeftOn {
		if opts.LeftOn[i] == opts.RightOn[i] {
			coalesced[opts.LeftOn[i]] = true
		}
	}
	inLeft := map[string]bool{}
	for _, n := range leftCols {
		inLeft[n] = true
	}
	inRight := map[string]bool{}
	for _, n := range rightCols {
		inRight[n] = true
	}

	var cols []outColumn
	for i, n := range leftCols {
		switch {
		case coalesced[n]:
			cols = append(cols, outColumn{name: n, left: i, right: right.Index(n)})
		case inRight[n]:
			cols = append(cols, outColumn{name: n + suffixes[0], left: i, right: -1})
		default:
			cols = append(cols, outColumn{name: n, left: i, right: -1})
		}
	}
	for j, n := range rightCols {
		switch {
		case coalesced[n]:
		case inLeft[n]:
			cols = append(cols, outColumn{name: n + suffixes[1], left: -1, right: j})
		default:
			cols = append(cols, outColumn{name: n, left: -1, right: j})
		}
	}

	out := frame.New()
	for _, oc := range cols {
		var lv, rv []any
		if oc.left >= 0 {
			lv, _ = left.Column(leftCols[oc.left])
		}
		if oc.right >= 0 {
			rv, _ = right.Column(rightCols[oc.right])
		}
		values := make([]any, len(pairs))
		for k, p := range pairs {
			switch {
			case lv != nil && p.l >= 0:
				values[k] = lv[p.l]
			case rv != nil && p.r >= 0:
				values[k] = rv[p.r]
			}
		}
		if err := out.AddColumn(oc.name, values); err != nil {
			return nil, fmt.Errorf("join: %w", err)
		}
	}
	return out, nil
}
