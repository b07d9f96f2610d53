// Package pipeline runs a configured job end to end: load every dataset,
// prepare each one, join them in order and write the result.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"herbot/internal/config"
	"herbot/internal/dataerr"
	"herbot/internal/dataset"
	"herbot/internal/datasource/httpds"
	"herbot/internal/dates"
	"herbot/internal/export"
	"herbot/internal/frame"
	"herbot/internal/join"
	"herbot/internal/logging"
	"herbot/internal/metrics"
	"herbot/internal/storage"
	"herbot/internal/transform"
	"herbot/internal/validate"
)

// DefaultFinDateColumn receives the computed date when fin_date.output is
// unset.
const DefaultFinDateColumn = "fin_date"

// OpenFunc opens the output database.
type OpenFunc func(ctx context.Context, cfg storage.Config, log logging.Logger) (*storage.Client, error)

// Runner executes jobs. The zero value logs nowhere, records no metrics and
// routes warnings to its logger.
type Runner struct {
	Log     logging.Logger
	Metrics *metrics.Recorder
	// Warn receives data warnings in addition to the run summary.
	Warn dataerr.WarningSink
	HTTP *httpds.Client
	// RunID tags the summary. Empty means a fresh UUID per run.
	RunID string
	// Open defaults to storage.Open.
	Open OpenFunc
}

// Summary describes a finished run.
type Summary struct {
	RunID string
	// Rows holds the row count of every dataset and join result by name.
	Rows map[string]int
	// Duplicates counts duplicate key rows per dataset with unique_keys.
	Duplicates map[string]int
	Warnings   []dataerr.Warning
	// Output names the frame that was written; Written counts rows sent to
	// a database.
	Output  string
	Written int64
	Elapsed time.Duration
}

func (r *Runner) logger() logging.Logger { return logging.OrDiscard(r.Log) }

// step times fn and records its outcome.
func (r *Runner) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	r.Metrics.Step(name, err, time.Since(start))
	if err != nil {
		r.logger().Error(fmt.Sprintf("Step %s failed: %v", name, err), "step", name)
	}
	return err
}

// Run executes cfg. The config is assumed to have passed config.Validate.
// On failure the partial summary is returned with the error.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (sum Summary, err error) {
	start := time.Now()
	sum = Summary{
		RunID:      r.RunID,
		Rows:       map[string]int{},
		Duplicates: map[string]int{},
	}
	if sum.RunID == "" {
		sum.RunID = uuid.NewString()
	}
	warnings := &dataerr.Recorder{}
	sink := dataerr.Tee(dataerr.LogSink{Log: r.Log}, r.Warn, warnings)
	defer func() {
		sum.Warnings = warnings.Warnings()
		sum.Elapsed = time.Since(start)
	}()

	r.logger().Info(fmt.Sprintf("Starting job %s", jobName(cfg)), "run_id", sum.RunID)

	var frames map[string]*frame.Frame
	err = r.step("load", func() error {
		loader := dataset.Loader{Log: r.Log, HTTP: r.HTTP, Metrics: r.Metrics, Concurrency: cfg.Runtime.Concurrency}
		var err error
		frames, err = loader.LoadAll(ctx, cfg.Specs())
		return err
	})
	if err != nil {
		return sum, err
	}

	for _, name := range dataset.Names(cfg.Datasets) {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		err := r.step("prepare", func() error {
			f, n, err := r.Prepare(frames[name], name, cfg.Datasets[name], sink)
			if err != nil {
				return fmt.Errorf("prepare dataset %q: %w", name, err)
			}
			frames[name] = f
			if len(cfg.Datasets[name].UniqueKeys) > 0 {
				sum.Duplicates[name] = n
			}
			return nil
		})
		if err != nil {
			return sum, err
		}
		sum.Rows[name] = frames[name].Len()
	}

	checker := join.NewChecker(r.Log, sink, r.Metrics)
	for _, j := range cfg.Joins {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		err := r.step("join", func() error {
			out, err := runJoin(checker, frames, j)
			if err != nil {
				return fmt.Errorf("join %q: %w", j.Name, err)
			}
			frames[j.Name] = out
			return nil
		})
		if err != nil {
			return sum, err
		}
		sum.Rows[j.Name] = frames[j.Name].Len()
	}

	if cfg.Output.Kind == config.OutputNone {
		r.logger().Info("No output configured; skipping write")
		return sum, nil
	}
	sum.Output = cfg.OutputDataset()
	err = r.step("write", func() error {
		f, err := dataset.Get(frames, sum.Output)
		if err != nil {
			return err
		}
		sum.Written, err = r.write(ctx, cfg, f)
		return err
	})
	return sum, err
}

// Prepare applies the per-dataset steps of d to f in order: normalise
// headers, reformat date headers, run the transform chain, add the
// financial date column, check required column sets, then count duplicate
// keys. The duplicate count is returned alongside the prepared frame.
func (r *Runner) Prepare(f *frame.Frame, name string, d config.Dataset, sink dataerr.WarningSink) (*frame.Frame, int, error) {
	defer transform.Timed(r.Log, "prepare "+name)()
	var err error

	if d.Normalise {
		if f, err = transform.NormaliseColumnNames(f, d.NormaliseOptions); err != nil {
			return nil, 0, err
		}
	}
	if dh := d.DateHeaders; dh != nil {
		if f, err = dates.FormatDateHeaders(f, dh.InLayout, dh.OutLayout, sink); err != nil {
			return nil, 0, err
		}
	}

	chain, err := d.Chain()
	if err != nil {
		return nil, 0, err
	}
	if f, err = chain.Apply(f); err != nil {
		return nil, 0, err
	}

	if fd := d.FinDate; fd != nil {
		out := fd.Output
		if out == "" {
			out = DefaultFinDateColumn
		}
		f = f.Clone()
		if err := dates.AddFinDateColumn(f, fd.MonthColumn, fd.YearColumn, out); err != nil {
			return nil, 0, err
		}
	}

	if len(d.Required) > 0 {
		sets := make([]validate.ColumnSet, 0, len(d.Required))
		for _, set := range dataset.Names(d.Required) {
			sets = append(sets, validate.Set(set, d.Required[set]...))
		}
		base := fmt.Sprintf("Dataset %s is missing required columns.", name)
		if err := validate.New(r.Log).Require(f, base, sets...); err != nil {
			return nil, 0, err
		}
	}

	dups := 0
	if len(d.UniqueKeys) > 0 {
		if dups, err = transform.CheckDuplicates(f, d.UniqueKeys, d.StrictUnique, sink); err != nil {
			return nil, dups, err
		}
		r.Metrics.Rows("duplicates", int64(dups))
	}
	return f, dups, nil
}

func runJoin(c *join.Checker, frames map[string]*frame.Frame, j config.Join) (*frame.Frame, error) {
	left, err := dataset.Get(frames, j.Left)
	if err != nil {
		return nil, err
	}
	right, err := dataset.Get(frames, j.Right)
	if err != nil {
		return nil, err
	}
	how, err := join.ParseHow(j.How)
	if err != nil {
		return nil, err
	}
	leftOn, rightOn := j.Keys()
	return c.Join(left, right, join.Options{
		LeftOn:        leftOn,
		RightOn:       rightOn,
		How:           how,
		SkipCheck:     j.SkipCheck,
		KeepIndicator: j.KeepIndicator,
		Indicator:     j.Indicator,
		Name:          j.Name,
	})
}

func (r *Runner) write(ctx context.Context, cfg config.Config, f *frame.Frame) (int64, error) {
	out := cfg.Output
	if out.UnNormalise {
		var err error
		if f, err = transform.UnNormaliseColumnNames(f); err != nil {
			return 0, err
		}
	}

	switch out.Kind {
	case config.OutputCSV:
		if err := export.WriteCSVFile(out.Path, f); err != nil {
			return 0, fmt.Errorf("write %s: %w", out.Path, err)
		}
	case config.OutputXLSX:
		if err := export.WriteXLSX(out.Path, out.Sheet, f); err != nil {
			return 0, fmt.Errorf("write %s: %w", out.Path, err)
		}
	case config.OutputSQL:
		open := r.Open
		if open == nil {
			open = storage.Open
		}
		client, err := open(ctx, cfg.Database, r.Log)
		if err != nil {
			return 0, err
		}
		defer client.Close()
		return client.WithMetrics(r.Metrics).WriteFrame(ctx, f, out.Table, out.WriteOptions)
	default:
		return 0, dataerr.Newf(dataerr.KindInvalidParameters, "unknown output kind %q", out.Kind)
	}

	r.Metrics.Rows("written", int64(f.Len()))
	r.logger().Info(fmt.Sprintf("Wrote %s rows to %s", humanize.Comma(int64(f.Len())), out.Path))
	return 0, nil
}

func jobName(cfg config.Config) string {
	if cfg.Job == "" {
		return "herbot"
	}
	return cfg.Job
}
