// Package dataset loads named CSV and Excel datasets into frames.
package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"herbot/internal/datasource"
	"herbot/internal/datasource/httpds"
	"herbot/internal/dataerr"
	"herbot/internal/frame"
	"herbot/internal/logging"
	"herbot/internal/metrics"
	pcsv "herbot/internal/parser/csv"
	"herbot/internal/parser/xlsx"
)

// Format identifies how a dataset is encoded.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// Spec describes where a dataset lives and how to read it.
type Spec struct {
	Path string `koanf:"path" validate:"required"`
	// Format is csv or xlsx. Empty means infer from the file extension.
	Format Format `koanf:"format" validate:"omitempty,oneof=csv xlsx"`
	// Sheet selects the worksheet for xlsx inputs.
	Sheet string `koanf:"sheet"`
	// Delimiter is the CSV field separator. Empty means ",".
	Delimiter string `koanf:"delimiter" validate:"omitempty,len=1"`
	// NoHeader reads the first row as data.
	NoHeader   bool              `koanf:"no_header"`
	TrimSpace  bool              `koanf:"trim_space"`
	LazyQuotes bool              `koanf:"lazy_quotes"`
	HeaderMap  map[string]string `koanf:"header_map"`
	// NAValues replaces the default set of missing-value markers.
	NAValues []string `koanf:"na_values"`
	// KeepStrings disables number inference.
	KeepStrings bool               `koanf:"keep_strings"`
	Replace     []pcsv.Replacement `koanf:"replace"`
}

// ResolvedFormat returns Format, or the format implied by the path.
func (s Spec) ResolvedFormat() Format {
	if s.Format != "" {
		return s.Format
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatXLSX
	}
	return FormatCSV
}

func (s Spec) csvOptions() pcsv.Options {
	opt := pcsv.Options{
		HasHeader:    !s.NoHeader,
		TrimSpace:    s.TrimSpace,
		LazyQuotes:   s.LazyQuotes,
		HeaderMap:    s.HeaderMap,
		NAValues:     s.NAValues,
		InferNumbers: !s.KeepStrings,
		Replace:      s.Replace,
	}
	if s.Delimiter != "" {
		opt.Comma = []rune(s.Delimiter)[0]
	}
	return opt
}

// Loader reads datasets. The zero value works with a default HTTP client
// and no logging.
type Loader struct {
	Log     logging.Logger
	HTTP    *httpds.Client
	Metrics *metrics.Recorder
	// Concurrency bounds LoadAll. Zero means 4.
	Concurrency int
}

func (l *Loader) logger() logging.Logger { return logging.OrDiscard(l.Log) }

// LoadCSV loads one delimited file. Rows in which every value is missing are
// dropped.
func (l *Loader) LoadCSV(ctx context.Context, name string, spec Spec) (*frame.Frame, error) {
	spec.Format = FormatCSV
	return l.Load(ctx, name, spec)
}

// Load loads one dataset in whatever format spec names.
func (l *Loader) Load(ctx context.Context, name string, spec Spec) (*frame.Frame, error) {
	if strings.TrimSpace(spec.Path) == "" {
		return nil, dataerr.New(dataerr.KindNoFilePathProvided, "No file path provided.")
	}

	src := datasource.Resolve(spec.Path, l.HTTP)
	args := []any{"dataset", name, "format", string(spec.ResolvedFormat())}
	if size, err := src.Size(ctx); err == nil && size >= 0 {
		args = append(args, "size", humanize.Bytes(uint64(size)))
	}
	l.logger().Info(fmt.Sprintf("Loading %s data from: %s", name, spec.Path), args...)

	start := time.Now()
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var f *frame.Frame
	switch spec.ResolvedFormat() {
	case FormatXLSX:
		f, err = xlsx.NewParser(xlsx.Options{
			Sheet:        spec.Sheet,
			TrimSpace:    spec.TrimSpace,
			HeaderMap:    spec.HeaderMap,
			NAValues:     spec.NAValues,
			InferNumbers: !spec.KeepStrings,
		}, l.Log).Parse(ctx, rc)
	default:
		var st pcsv.Stats
		f, st, err = pcsv.NewParser(spec.csvOptions(), l.Log).Parse(ctx, rc)
		l.Metrics.Rows("bad_width", int64(st.BadWidth))
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", spec.Path, err)
	}

	before := f.Len()
	f = f.DropEmptyRows()
	l.Metrics.Rows("dropped_empty", int64(before-f.Len()))
	l.Metrics.Rows("loaded", int64(f.Len()))
	l.logger().Debug("dataset loaded",
		"dataset", name,
		"rows", humanize.Comma(int64(f.Len())),
		"columns", f.Width(),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return f, nil
}

// LoadAll loads every dataset concurrently. The first failure cancels the
// rest.
func (l *Loader) LoadAll(ctx context.Context, specs map[string]Spec) (map[string]*frame.Frame, error) {
	if len(specs) == 0 {
		return nil, dataerr.New(dataerr.KindNoDatasetsProvided, "No datasets provided.")
	}

	limit := l.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var mu sync.Mutex
	out := make(map[string]*frame.Frame, len(specs))
	for _, name := range Names(specs) {
		spec := specs[name]
		g.Go(func() error {
			f, err := l.Load(gctx, name, spec)
			if err != nil {
				return fmt.Errorf("load dataset %q: %w", name, err)
			}
			mu.Lock()
			out[name] = f
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Names returns the keys of specs in sorted order.
func Names[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Get returns a loaded dataset by name.
func Get(datasets map[string]*frame.Frame, name string) (*frame.Frame, error) {
	f, ok := datasets[name]
	if !ok {
		return nil, dataerr.Newf(dataerr.KindDatasetNotFound,
			"Dataset '%s' not found. Available datasets: %s", name, dataerr.QuotedList(Names(datasets)))
	}
	return f, nil
}
