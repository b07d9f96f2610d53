package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"herbot/internal/export"
	"herbot/internal/storage"
)

func newQueryCmd(a *app) *cobra.Command {
	var (
		params map[string]string
		rows   int
		exec   bool
	)
	cmd := &cobra.Command{
		Use:   "query <sql|@file>",
		Short: "Run SQL against the configured database",
		Long: `Runs a statement against the database section of the config. An argument
starting with @ names a SQL file. {key} placeholders are replaced with
--param values before execution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			client, err := storage.Open(ctx, a.cfg.Database, a.log)
			if err != nil {
				return err
			}
			defer client.Close()

			arg := args[0]
			path, fromFile := strings.CutPrefix(arg, "@")
			out := cmd.OutOrStdout()

			if exec {
				var n int64
				if fromFile {
					n, err = client.ExecNonQueryFromFile(ctx, path, params)
				} else {
					n, err = client.ExecNonQuery(ctx, arg, params)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d rows affected\n", n)
				return nil
			}

			if fromFile {
				f, err := client.QueryFromFile(ctx, path, params)
				if err != nil {
					return err
				}
				export.RenderTable(out, f, rows)
				return nil
			}
			f, err := client.Query(ctx, storage.ApplyReplacements(arg, params))
			if err != nil {
				return err
			}
			export.RenderTable(out, f, rows)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringToStringVarP(&params, "param", "p", nil, "placeholder replacement key=value (repeatable)")
	fl.IntVarP(&rows, "rows", "n", 50, "rows to show (0 for all)")
	fl.BoolVar(&exec, "exec", false, "run as a non-query inside a transaction and print rows affected")
	fl.String("dsn", "", "override database.dsn")
	return cmd
}
