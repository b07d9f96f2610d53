package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"herbot/internal/storage"
)

// EnvPrefix marks environment variables that override the config file.
// A double underscore separates nesting levels:
// HERBOT_DATABASE__PASSWORD sets database.password.
const EnvPrefix = "HERBOT_"

// delim separates nested keys inside koanf. It is not "." so that header
// names and column names containing dots survive as map keys.
const delim = "::"

// DefaultConcurrency bounds parallel dataset loads when runtime.concurrency
// is unset.
const DefaultConcurrency = 4

// FlagKeys maps command-line flag names onto config keys. Only flags the
// user actually set are applied.
var FlagKeys = map[string]string{
	"job":             "job",
	"log-level":       "log::level",
	"log-format":      "log::format",
	"seq-url":         "log::seq_url",
	"metrics":         "metrics::backend",
	"pushgateway-url": "metrics::pushgateway_url",
	"statsd-addr":     "metrics::statsd_addr",
	"concurrency":     "runtime::concurrency",
	"output":          "output::path",
	"if-exists":       "output::if_exists",
	"dsn":             "database::dsn",
}

func defaults() map[string]any {
	return map[string]any{
		"log::level":           "info",
		"log::format":          "text",
		"metrics::backend":     "none",
		"runtime::concurrency": DefaultConcurrency,
		"output::if_exists":    storage.IfExistsFail,
		"output::chunk_size":   storage.DefaultBatchSize,
	}
}

// Load builds a Config from, in increasing precedence: defaults, the YAML
// file at path, a .env file beside it, HERBOT_* environment variables and
// the changed flags in flags (which may be nil). Relative dataset, output
// and sqlite paths are resolved against the config file's directory.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(delim)

	if err := k.Load(confmap.Provider(defaults(), delim), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	baseDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			baseDir = filepath.Dir(abs)
		}
	}

	dotenv, err := readDotenv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, err
	}
	if err := k.Load(confmap.Provider(dotenv, delim), nil); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, delim, envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, delim, k, func(f *pflag.Flag) (string, any) {
			key, ok := FlagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths(baseDir)
	if cfg.Runtime.Concurrency == 0 {
		cfg.Runtime.Concurrency = DefaultConcurrency
	}
	return &cfg, nil
}

// envKey turns HERBOT_DATABASE__PASSWORD into database::password. Single
// underscores are kept since config keys are snake_case.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", delim)
}

// readDotenv returns the HERBOT_* entries of a .env file keyed for koanf.
// A missing file yields an empty map.
func readDotenv(path string) (map[string]any, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		if strings.HasPrefix(k, EnvPrefix) {
			out[envKey(k)] = v
		}
	}
	return out, nil
}

func (c *Config) resolvePaths(base string) {
	for name, d := range c.Datasets {
		d.Path = resolve(d.Path, base)
		c.Datasets[name] = d
	}
	c.Output.Path = resolve(c.Output.Path, base)
	if c.Database.Kind == "sqlite" && c.Database.DSN == "" {
		c.Database.Database = resolve(c.Database.Database, base)
	}
}

// resolve joins relative filesystem paths onto base. URLs, absolute paths
// and special names such as ":memory:" are returned unchanged.
func resolve(p, base string) string {
	switch {
	case p == "", filepath.IsAbs(p), strings.HasPrefix(p, ":"), strings.Contains(p, "://"):
		return p
	}
	return filepath.Join(base, p)
}
