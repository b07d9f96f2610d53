package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"herbot/internal/dataset"
	"herbot/internal/storage"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validConfig() Config {
	return Config{
		Job:      "monthly-calls",
		Log:      Log{Level: "info", Format: "text"},
		Metrics:  Metrics{Backend: "none"},
		Database: storage.Config{Kind: "sqlite", Database: "out.db"},
		Datasets: map[string]Dataset{
			"calls":   {Spec: dataset.Spec{Path: "calls.csv"}, UniqueKeys: []string{"call_id"}},
			"devices": {Spec: dataset.Spec{Path: "devices.xlsx", Sheet: "Devices"}},
		},
		Joins: []Join{{Name: "calls_devices", Left: "calls", Right: "devices", On: []string{"device_id"}}},
		Output: Output{
			Kind:         OutputSQL,
			Table:        "calls_enriched",
			WriteOptions: storage.WriteOptions{IfExists: storage.IfExistsReplace},
		},
		Runtime: Runtime{Concurrency: 4},
	}
}

func TestValidateValid(t *testing.T) {
	assert.Empty(t, Validate(validConfig()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"empty job", func(c *Config) { c.Job = "" }, SeverityWarning, "job", "job is empty"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, SeverityError, "log.level", `unknown log level "loud"`},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, SeverityError, "log.format", `unknown log format "xml"`},
		{"prometheus without gateway", func(c *Config) { c.Metrics.Backend = "prometheus" },
			SeverityError, "metrics.pushgateway_url", "pushgateway_url"},
		{"datadog without addr", func(c *Config) { c.Metrics.Backend = "datadog" },
			SeverityError, "metrics.statsd_addr", "statsd_addr"},
		{"unknown metrics", func(c *Config) { c.Metrics.Backend = "graphite" },
			SeverityError, "metrics.backend", `unknown metrics backend "graphite"`},
		{"no datasets", func(c *Config) { c.Datasets = nil }, SeverityError, "datasets", "at least one dataset"},
		{"dataset path", func(c *Config) { setDataset(c, "calls", func(d *Dataset) { d.Path = "" }) },
			SeverityError, "datasets.calls.path", "path is required"},
		{"dataset format", func(c *Config) { setDataset(c, "calls", func(d *Dataset) { d.Format = "json" }) },
			SeverityError, "datasets.calls.format", "format must be one of: csv, xlsx"},
		{"dataset delimiter", func(c *Config) { setDataset(c, "calls", func(d *Dataset) { d.Delimiter = ";;" }) },
			SeverityError, "datasets.calls.delimiter", "exactly 1"},
		{"unknown step", func(c *Config) {
			setDataset(c, "calls", func(d *Dataset) { d.Steps = []Step{{Kind: "explode"}} })
		}, SeverityError, "datasets.calls.steps[0]", `unknown step kind "explode"`},
		{"bad step options", func(c *Config) {
			setDataset(c, "calls", func(d *Dataset) {
				d.Steps = []Step{{Kind: "clean"}, {Kind: "coerce", Options: Options{"typos": 1}}}
			})
		}, SeverityError, "datasets.calls.steps[1]", "coerce options"},
		{"empty required set", func(c *Config) {
			setDataset(c, "calls", func(d *Dataset) { d.Required = map[string][]string{"ids": nil} })
		}, SeverityWarning, "datasets.calls.required.ids", "empty"},
		{"blank unique key", func(c *Config) {
			setDataset(c, "calls", func(d *Dataset) { d.UniqueKeys = []string{"call_id", " "} })
		}, SeverityError, "datasets.calls.unique_keys[1]", "must not be empty"},
		{"strict without keys", func(c *Config) {
			setDataset(c, "devices", func(d *Dataset) { d.StrictUnique = true })
		}, SeverityWarning, "datasets.devices.strict_unique", "no effect"},
		{"fin date", func(c *Config) {
			setDataset(c, "calls", func(d *Dataset) { d.FinDate = &FinDate{MonthColumn: "m"} })
		}, SeverityError, "datasets.calls.fin_date", "month_column and year_column"},
		{"join name", func(c *Config) { c.Joins[0].Name = "" }, SeverityError, "joins[0].name", "must not be empty"},
		{"join name clash", func(c *Config) { c.Joins[0].Name = "calls" },
			SeverityError, "joins[0].name", "already used"},
		{"join unknown side", func(c *Config) { c.Joins[0].Right = "nope" },
			SeverityError, "joins[0].right", `"nope" is not a dataset or an earlier join`},
		{"join keys missing", func(c *Config) { c.Joins[0].On = nil }, SeverityError, "joins[0].on", "join keys are required"},
		{"join keys length", func(c *Config) { c.Joins[0].LeftOn = []string{"a", "b"} },
			SeverityError, "joins[0].right_on", "left_on has 2 columns but right_on has 1"},
		{"join how", func(c *Config) { c.Joins[0].How = "sideways" }, SeverityError, "joins[0].how", "unknown join type"},
		{"join indicator", func(c *Config) { c.Joins[0].SkipCheck, c.Joins[0].KeepIndicator = true, true },
			SeverityWarning, "joins[0].keep_indicator", "no effect"},
		{"output kind", func(c *Config) { c.Output.Kind = "parquet" }, SeverityError, "output.kind", `unknown output kind "parquet"`},
		{"output table", func(c *Config) { c.Output.Table = "" }, SeverityError, "output.table", "requires a table"},
		{"output policy", func(c *Config) { c.Output.IfExists = "merge" },
			SeverityError, "output.if_exists", "must be 'fail', 'replace', or 'append'"},
		{"output chunk", func(c *Config) { c.Output.ChunkSize = -1 }, SeverityError, "output.chunk_size", "negative"},
		{"csv path", func(c *Config) { c.Output.Kind = OutputCSV }, SeverityError, "output.path", "csv output requires a path"},
		{"output dataset", func(c *Config) { c.Output.Dataset = "nope" },
			SeverityError, "output.dataset", `"nope" is not a dataset or a join`},
		{"ambiguous output", func(c *Config) { c.Joins = nil },
			SeverityError, "output.dataset", "must be set"},
		{"database", func(c *Config) { c.Database = storage.Config{} }, SeverityError, "database", "kind is required"},
		{"concurrency", func(c *Config) { c.Runtime.Concurrency = -1 },
			SeverityError, "runtime.concurrency", "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			issues := Validate(cfg)
			assert.True(t, hasIssue(t, issues, tt.sev, tt.path, tt.msg), "got issues: %+v", issues)
		})
	}
}

func TestValidateJoinChain(t *testing.T) {
	cfg := validConfig()
	cfg.Joins = append(cfg.Joins, Join{Name: "final", Left: "calls_devices", Right: "calls", On: []string{"call_id"}})
	assert.Empty(t, Validate(cfg))
}

func TestValidateNoOutputSkipsDatabase(t *testing.T) {
	cfg := validConfig()
	cfg.Output = Output{}
	cfg.Database = storage.Config{}
	assert.Empty(t, Validate(cfg))
}

func TestErr(t *testing.T) {
	assert.NoError(t, Err(nil))
	assert.NoError(t, Err([]Issue{{Severity: SeverityWarning, Path: "job", Message: "x"}}))

	err := Err([]Issue{
		{Severity: SeverityWarning, Path: "job", Message: "x"},
		{Severity: SeverityError, Path: "output.table", Message: "sql output requires a table"},
	})
	assert.EqualError(t, err, "error at output.table: sql output requires a table")
}

func setDataset(c *Config, name string, fn func(d *Dataset)) {
	d := c.Datasets[name]
	fn(&d)
	c.Datasets[name] = d
}
