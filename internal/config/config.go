// Package config defines herbot's job configuration and loads it from YAML,
// a .env file, HERBOT_* environment variables and command-line flags.
//
// Example (trimmed):
//
//	job: monthly-calls
//	database: { kind: mssql, server: sql01, user: analyst, database: reporting }
//	datasets:
//	  calls:   { path: data/calls.csv, normalise: true, unique_keys: [call_id] }
//	  devices: { path: data/devices.xlsx, sheet: Devices, normalise: true }
//	joins:
//	  - { name: calls_devices, left: calls, right: devices, on: [device_id], how: left }
//	output: { kind: sql, dataset: calls_devices, table: calls_enriched, if_exists: replace }
package config

import (
	"herbot/internal/dataset"
	"herbot/internal/storage"
	"herbot/internal/transform"
)

// Config is the top-level job description.
type Config struct {
	// Job labels metrics and log lines for this run.
	Job      string             `koanf:"job"`
	Log      Log                `koanf:"log"`
	Metrics  Metrics            `koanf:"metrics"`
	Database storage.Config     `koanf:"database"`
	Datasets map[string]Dataset `koanf:"datasets"`
	// Joins run in order; each result is registered under the join's name
	// and can feed later joins.
	Joins   []Join  `koanf:"joins"`
	Output  Output  `koanf:"output"`
	Runtime Runtime `koanf:"runtime"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	SeqURL string `koanf:"seq_url"`
}

// Metrics selects a metrics backend: none, prometheus (Pushgateway) or
// datadog (DogStatsD).
type Metrics struct {
	Backend        string   `koanf:"backend"`
	PushgatewayURL string   `koanf:"pushgateway_url"`
	StatsdAddr     string   `koanf:"statsd_addr"`
	Tags           []string `koanf:"tags"`
}

// Dataset is a dataset.Spec plus the per-dataset preparation steps the
// pipeline runs after loading, in field order.
type Dataset struct {
	dataset.Spec `koanf:",squash"`

	Normalise        bool                       `koanf:"normalise"`
	NormaliseOptions transform.NormaliseOptions `koanf:"normalise_options"`
	// Steps run after normalisation.
	Steps []Step `koanf:"steps"`
	// Required maps a set name to columns that must be present.
	Required map[string][]string `koanf:"required"`
	// UniqueKeys are checked for duplicate rows; StrictUnique turns the
	// warning into an error.
	UniqueKeys   []string     `koanf:"unique_keys"`
	StrictUnique bool         `koanf:"strict_unique"`
	FinDate      *FinDate     `koanf:"fin_date"`
	DateHeaders  *DateHeaders `koanf:"date_headers"`
}

// Step is one transform with a free-form options bag. Kind is clean,
// coerce, dedup or require.
type Step struct {
	Kind    string  `koanf:"kind"`
	Options Options `koanf:"options"`
}

// FinDate adds a calendar date column computed from financial month and
// year columns.
type FinDate struct {
	MonthColumn string `koanf:"month_column"`
	YearColumn  string `koanf:"year_column"`
	Output      string `koanf:"output"`
}

// DateHeaders reformats column headers that parse as dates.
type DateHeaders struct {
	InLayout  string `koanf:"in_layout"`
	OutLayout string `koanf:"out_layout"`
}

// Join joins two datasets (or earlier join results) by name. On sets both
// key lists when they share names.
type Join struct {
	Name          string   `koanf:"name"`
	Left          string   `koanf:"left"`
	Right         string   `koanf:"right"`
	On            []string `koanf:"on"`
	LeftOn        []string `koanf:"left_on"`
	RightOn       []string `koanf:"right_on"`
	How           string   `koanf:"how"`
	SkipCheck     bool     `koanf:"skip_check"`
	KeepIndicator bool     `koanf:"keep_indicator"`
	Indicator     string   `koanf:"indicator"`
}

// Keys returns the effective left and right key lists.
func (j Join) Keys() (left, right []string) {
	left, right = j.LeftOn, j.RightOn
	if len(left) == 0 {
		left = j.On
	}
	if len(right) == 0 {
		right = j.On
	}
	return left, right
}

// Output kinds.
const (
	OutputNone = ""
	OutputCSV  = "csv"
	OutputXLSX = "xlsx"
	OutputSQL  = "sql"
)

// Output says what to do with the final frame.
type Output struct {
	Kind string `koanf:"kind"`
	// Dataset names the frame to write. Empty means the last join, or the
	// only dataset when there are no joins.
	Dataset string `koanf:"dataset"`
	Path    string `koanf:"path"`
	Sheet   string `koanf:"sheet"`
	Table   string `koanf:"table"`
	// UnNormalise turns snake_case headers back into title case.
	UnNormalise bool `koanf:"unnormalise"`

	storage.WriteOptions `koanf:",squash"`
}

// Runtime tunes execution.
type Runtime struct {
	// Concurrency bounds parallel dataset loads.
	Concurrency int `koanf:"concurrency"`
}

// Specs returns the dataset specs keyed by name, for dataset.Loader.
func (c Config) Specs() map[string]dataset.Spec {
	out := make(map[string]dataset.Spec, len(c.Datasets))
	for name, d := range c.Datasets {
		out[name] = d.Spec
	}
	return out
}

// OutputDataset resolves Output.Dataset.
func (c Config) OutputDataset() string {
	if c.Output.Dataset != "" {
		return c.Output.Dataset
	}
	if len(c.Joins) > 0 {
		return c.Joins[len(c.Joins)-1].Name
	}
	if len(c.Datasets) == 1 {
		for name := range c.Datasets {
			return name
		}
	}
	return ""
}
