package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"herbot/internal/config"
	"herbot/internal/logging"
)

// Version information, set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

// app carries state shared by subcommands for one invocation.
type app struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	log      *slog.Logger
	closeLog func()
	runID    string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "herbot",
		Short: "Load, check, join and publish tabular datasets",
		Long: `herbot runs reporting jobs described in a YAML file: it loads CSV and
Excel datasets, normalises and validates them, joins them with merge health
checks and writes the result to CSV, Excel or a SQL database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "job config file (YAML)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "text", "log format: text or json")
	pf.String("seq-url", "", "also ship logs to this Seq server")
	pf.String("job", "", "job name used in logs and metrics")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newPreviewCmd(a),
		newQueryCmd(a),
		newFinDateCmd(),
		newVersionCmd(),
	)
	return root
}

// setup loads the config and builds the logger. Every log line carries the
// invocation's run_id.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		SeqURL: cfg.Log.SeqURL,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.runID = uuid.NewString()
	a.cfg = cfg
	a.log = log.With("run_id", a.runID)
	a.closeLog = closeLog
	if a.cfgFile != "" {
		a.log.Debug(fmt.Sprintf("Using config file: %s", a.cfgFile))
	}
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// check prints every issue and fails when any is an error.
func (a *app) check(w io.Writer) error {
	issues := config.Validate(*a.cfg)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err := config.Err(issues); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "herbot %s (%s)\n", version, commit)
		},
	}
}
