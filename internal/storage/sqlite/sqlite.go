// Package sqlite registers a pure-Go SQLite dialect (modernc.org/sqlite).
// Database in storage.Config is the file path.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"herbot/internal/ddl"
	"herbot/internal/storage"
)

// Name is the dialect's registry key and storage.Config kind.
const Name = "sqlite"

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Name }

func (Dialect) DriverName(storage.Config) string { return "sqlite" }

// DSN is cfg.DSN, or the database path with foreign keys enabled and a busy
// timeout matching cfg's timeout.
func (Dialect) DSN(cfg storage.Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	path := strings.TrimSpace(cfg.Database)
	if path == "" {
		return "", fmt.Errorf("sqlite: database path must not be empty")
	}
	ms := cfg.EffectiveTimeout().Milliseconds()
	return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, ms), nil
}

// DefaultSchema is empty: SQLite tables are addressed by bare name.
func (Dialect) DefaultSchema() string { return "" }

func (Dialect) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (Dialect) Placeholder(int) string { return "?" }

// MaxParams matches SQLITE_MAX_VARIABLE_NUMBER in current SQLite builds.
func (Dialect) MaxParams() int { return 32766 }

// MapType maps logical kinds onto SQLite storage classes. Booleans are 0/1
// and timestamps are ISO-8601 text.
func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint", "bool", "boolean":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "numeric", "decimal":
		return "NUMERIC"
	case "blob", "bytes":
		return "BLOB"
	default:
		return "TEXT"
	}
}

func (d Dialect) CreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnClauses(t, d.Quote)
	if err != nil {
		return "", fmt.Errorf("sqlite %w", err)
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		ddl.QuoteFQN(t.FQN, d.Quote),
		strings.Join(cols, ",\n  "),
	), nil
}

// TableExistsSQL ignores the schema unless it names an attached database.
func (Dialect) TableExistsSQL(t storage.TableName) (string, []any) {
	master := "sqlite_master"
	if t.Schema != "" && t.Schema != "main" {
		master = `"` + strings.ReplaceAll(t.Schema, `"`, `""`) + `".sqlite_master`
	}
	return "SELECT COUNT(*) FROM " + master + " WHERE type = 'table' AND name = ?", []any{t.Table}
}

// Copy inserts rows with multi-row INSERT statements in one transaction.
func (d Dialect) Copy(ctx context.Context, db *sql.DB, t storage.TableName, columns []string, rows [][]any) (int64, error) {
	return storage.InsertValues(ctx, db, d, t, columns, rows)
}
