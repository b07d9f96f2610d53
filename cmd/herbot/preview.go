package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"herbot/internal/dataset"
	"herbot/internal/export"
	"herbot/internal/transform"
)

func newPreviewCmd(a *app) *cobra.Command {
	var (
		spec      dataset.Spec
		rows      int
		normalise bool
	)
	cmd := &cobra.Command{
		Use:   "preview <path|url>",
		Short: "Load one CSV or Excel file and print its first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()

			spec.Path = args[0]
			name := strings.TrimSuffix(filepath.Base(spec.Path), filepath.Ext(spec.Path))
			loader := dataset.Loader{Log: a.log}
			f, err := loader.Load(cmd.Context(), name, spec)
			if err != nil {
				return err
			}
			if normalise {
				if f, err = transform.NormaliseColumnNames(f, transform.NormaliseOptions{}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d rows, %d columns\n", name, f.Len(), f.Width())
			export.RenderTable(out, f, rows)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&spec.Sheet, "sheet", "", "worksheet for Excel files")
	fl.StringVar(&spec.Delimiter, "delimiter", "", "CSV field separator")
	fl.BoolVar(&spec.KeepStrings, "keep-strings", false, "do not infer numbers")
	fl.IntVarP(&rows, "rows", "n", 10, "rows to show (0 for all)")
	fl.BoolVar(&normalise, "normalise", false, "normalise column names")
	return cmd
}
