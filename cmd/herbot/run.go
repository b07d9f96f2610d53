package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"herbot/internal/config"
	"herbot/internal/dataset"
	"herbot/internal/metrics"
	"herbot/internal/metrics/datadog"
	"herbot/internal/metrics/prompush"
	"herbot/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			if err := a.check(cmd.ErrOrStderr()); err != nil {
				return err
			}

			rec, err := newRecorder(*a.cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := rec.Flush(); err != nil {
					a.log.Warn(fmt.Sprintf("Failed to flush metrics: %v", err))
				}
			}()

			r := &pipeline.Runner{Log: a.log, Metrics: rec, RunID: a.runID}
			sum, err := r.Run(cmd.Context(), *a.cfg)
			printSummary(cmd.OutOrStdout(), sum)
			return err
		},
	}
	f := cmd.Flags()
	f.Int("concurrency", config.DefaultConcurrency, "datasets loaded in parallel")
	f.String("output", "", "override output.path")
	f.String("if-exists", "", "override output.if_exists: fail, replace or append")
	f.String("metrics", "none", "metrics backend: none, prometheus or datadog")
	f.String("pushgateway-url", "", "Prometheus Pushgateway URL")
	f.String("statsd-addr", "", "DogStatsD address")
	return cmd
}

// newRecorder builds the metrics recorder the config asks for.
func newRecorder(cfg config.Config) (*metrics.Recorder, error) {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "", "none":
		b = metrics.Nop()
	case "prometheus":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.StatsdAddr,
			Namespace:  "herbot.",
			GlobalTags: cfg.Metrics.Tags,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics.Backend)
	}
	if err != nil {
		return nil, err
	}
	return metrics.New(cfg.Job, b), nil
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"frame", "rows", "duplicates"})
	for _, name := range dataset.Names(sum.Rows) {
		dups := ""
		if n, ok := sum.Duplicates[name]; ok {
			dups = humanize.Comma(int64(n))
		}
		t.AppendRow(table.Row{name, humanize.Comma(int64(sum.Rows[name])), dups})
	}
	t.Render()

	fmt.Fprintf(w, "run %s: %d warning(s) in %s\n", sum.RunID, len(sum.Warnings), sum.Elapsed.Round(time.Millisecond))
	for _, wn := range sum.Warnings {
		fmt.Fprintf(w, "  %s\n", wn)
	}
	if sum.Output != "" {
		fmt.Fprintf(w, "output: %s", sum.Output)
		if sum.Written > 0 {
			fmt.Fprintf(w, " (%s rows written)", humanize.Comma(sum.Written))
		}
		fmt.Fprintln(w)
	}
}
