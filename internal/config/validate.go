package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"herbot/internal/dataset"
	"herbot/internal/join"
	"herbot/internal/logging"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "output.table",
// "datasets.calls.steps[1].kind"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Err joins the error-severity issues into one error, or returns nil.
func Err(issues []Issue) error {
	var errs []error
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			errs = append(errs, iss)
		}
	}
	return errors.Join(errs...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("koanf"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate performs static checks over cfg without touching the
// filesystem or the database. Callers decide whether warnings are fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and logs will be labelled \"herbot\"",
		})
	}
	issues = append(issues, validateLog(cfg.Log)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	issues = append(issues, validateDatasets(cfg.Datasets)...)
	issues = append(issues, validateJoins(cfg)...)
	issues = append(issues, validateOutput(cfg)...)

	if cfg.Database.Kind != "" || cfg.Output.Kind == OutputSQL {
		if err := cfg.Database.Validate(); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: "database", Message: err.Error()})
		}
	}
	if cfg.Runtime.Concurrency < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.concurrency",
			Message:  "concurrency must not be negative",
		})
	}
	return issues
}

func validateLog(l Log) []Issue {
	var issues []Issue
	if _, err := logging.ParseLevel(l.Level); err != nil {
		issues = append(issues, Issue{Severity: SeverityError, Path: "log.level", Message: err.Error()})
	}
	switch strings.ToLower(l.Format) {
	case "", "text", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.format",
			Message:  fmt.Sprintf("unknown log format %q; use text or json", l.Format),
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none":
		return nil
	case "prometheus":
		if m.PushgatewayURL == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus metrics require a pushgateway_url",
			}}
		}
	case "datadog":
		if m.StatsdAddr == "" {
			return []Issue{{
				Severity: SeverityError,
				Path:     "metrics.statsd_addr",
				Message:  "datadog metrics require a statsd_addr",
			}}
		}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; use none, prometheus or datadog", m.Backend),
		}}
	}
	return nil
}

func validateDatasets(ds map[string]Dataset) []Issue {
	if len(ds) == 0 {
		return []Issue{{
			Severity: SeverityError,
			Path:     "datasets",
			Message:  "at least one dataset must be configured",
		}}
	}

	var issues []Issue
	for _, name := range dataset.Names(ds) {
		d := ds[name]
		base := "datasets." + name

		if err := validate.Struct(d.Spec); err != nil {
			var fe validator.ValidationErrors
			if errors.As(err, &fe) {
				for _, e := range fe {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Path:     base + "." + e.Field(),
						Message:  fieldMessage(e),
					})
				}
			} else {
				issues = append(issues, Issue{Severity: SeverityError, Path: base, Message: err.Error()})
			}
		}

		for i, s := range d.Steps {
			if _, err := s.Build(); err != nil {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s.steps[%d]", base, i),
					Message:  err.Error(),
				})
			}
		}

		for set, cols := range d.Required {
			if len(cols) == 0 {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Path:     base + ".required." + set,
					Message:  "required column set is empty and checks nothing",
				})
			}
		}
		for i, k := range d.UniqueKeys {
			if strings.TrimSpace(k) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     fmt.Sprintf("%s.unique_keys[%d]", base, i),
					Message:  "unique key column must not be empty",
				})
			}
		}
		if d.StrictUnique && len(d.UniqueKeys) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".strict_unique",
				Message:  "strict_unique has no effect without unique_keys",
			})
		}
		if fd := d.FinDate; fd != nil && (fd.MonthColumn == "" || fd.YearColumn == "") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".fin_date",
				Message:  "fin_date requires month_column and year_column",
			})
		}
	}
	return issues
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", e.Field(), strings.ReplaceAll(e.Param(), " ", ", "))
	case "len":
		return fmt.Sprintf("%s must be exactly %s character(s) long", e.Field(), e.Param())
	}
	return fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
}

func validateJoins(cfg Config) []Issue {
	var issues []Issue
	known := make(map[string]bool, len(cfg.Datasets)+len(cfg.Joins))
	for name := range cfg.Datasets {
		known[name] = true
	}

	for i, j := range cfg.Joins {
		base := fmt.Sprintf("joins[%d]", i)
		if strings.TrimSpace(j.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  "join name must not be empty",
			})
		} else if known[j.Name] {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".name",
				Message:  fmt.Sprintf("join name %q is already used by a dataset or an earlier join", j.Name),
			})
		}
		for _, side := range []struct{ path, name string }{{"left", j.Left}, {"right", j.Right}} {
			if !known[side.name] {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     base + "." + side.path,
					Message:  fmt.Sprintf("%q is not a dataset or an earlier join", side.name),
				})
			}
		}

		left, right := j.Keys()
		switch {
		case len(left) == 0 || len(right) == 0:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".on",
				Message:  "join keys are required; set on, or left_on and right_on",
			})
		case len(left) != len(right):
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     base + ".right_on",
				Message:  fmt.Sprintf("left_on has %d columns but right_on has %d", len(left), len(right)),
			})
		}
		if _, err := join.ParseHow(j.How); err != nil {
			issues = append(issues, Issue{Severity: SeverityError, Path: base + ".how", Message: err.Error()})
		}
		if j.SkipCheck && j.KeepIndicator {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     base + ".keep_indicator",
				Message:  "keep_indicator has no effect when skip_check is set",
			})
		}
		if j.Name != "" {
			known[j.Name] = true
		}
	}
	return issues
}

func validateOutput(cfg Config) []Issue {
	o := cfg.Output
	var issues []Issue
	switch o.Kind {
	case OutputNone:
		return nil
	case OutputCSV, OutputXLSX:
		if o.Path == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.path",
				Message:  fmt.Sprintf("%s output requires a path", o.Kind),
			})
		}
	case OutputSQL:
		if strings.TrimSpace(o.Table) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.table",
				Message:  "sql output requires a table",
			})
		}
		switch o.IfExists {
		case "", "fail", "replace", "append":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.if_exists",
				Message:  "if_exists must be 'fail', 'replace', or 'append'",
			})
		}
		if o.ChunkSize < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.chunk_size",
				Message:  "chunk_size must not be negative",
			})
		}
	default:
		return []Issue{{
			Severity: SeverityError,
			Path:     "output.kind",
			Message:  fmt.Sprintf("unknown output kind %q; use csv, xlsx or sql", o.Kind),
		}}
	}

	name := cfg.OutputDataset()
	if name == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dataset",
			Message:  "output.dataset must be set when there are several datasets and no joins",
		})
		return issues
	}
	if _, ok := cfg.Datasets[name]; ok {
		return issues
	}
	for _, j := range cfg.Joins {
		if j.Name == name {
			return issues
		}
	}
	issues = append(issues, Issue{
		Severity: SeverityError,
		Path:     "output.dataset",
		Message:  fmt.Sprintf("%q is not a dataset or a join", name),
	})
	return issues
}
