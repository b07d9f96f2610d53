// Package postgres registers the Postgres dialect on top of pgx's
// database/sql driver. Bulk writes use COPY through the underlying pgx
// connection.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"herbot/internal/ddl"
	"herbot/internal/storage"
)

// Name is the dialect's registry key and storage.Config kind.
const Name = "postgres"

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for Postgres.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Name }

func (Dialect) DriverName(storage.Config) string { return "pgx" }

// DSN builds a postgres:// URL from cfg unless cfg.DSN is set, and checks
// that pgx can parse it.
func (Dialect) DSN(cfg storage.Config) (string, error) {
	dsn := cfg.DSN
	if dsn == "" {
		host := cfg.Server
		if cfg.Port > 0 {
			host += ":" + strconv.Itoa(cfg.Port)
		}
		u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + cfg.Database}
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
		q := url.Values{}
		q.Set("connect_timeout", strconv.Itoa(int(cfg.EffectiveTimeout().Seconds())))
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		dsn = u.String()
	}
	if _, err := pgx.ParseConfig(dsn); err != nil {
		return "", fmt.Errorf("postgres dsn: %w", err)
	}
	return dsn, nil
}

func (Dialect) DefaultSchema() string { return "public" }

// Quote double-quotes an identifier, doubling embedded quotes.
func (Dialect) Quote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

func (Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Dialect) MaxParams() int { return 65535 }

// MapType maps logical kinds onto Postgres types.
func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BOOLEAN"
	case "float", "double":
		return "DOUBLE PRECISION"
	case "numeric", "decimal":
		return "NUMERIC"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// CreateTableSQL renders CREATE TABLE IF NOT EXISTS with double-quoted
// identifiers.
func (d Dialect) CreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnClauses(t, d.Quote)
	if err != nil {
		return "", fmt.Errorf("postgres %w", err)
	}
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n  %s\n);",
		ddl.QuoteFQN(t.FQN, d.Quote),
		strings.Join(cols, ",\n  "),
	), nil
}

func (Dialect) TableExistsSQL(t storage.TableName) (string, []any) {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2",
		[]any{t.Schema, t.Table}
}

// Copy streams rows into t with COPY FROM on the connection's pgx handle.
func (Dialect) Copy(ctx context.Context, db *sql.DB, t storage.TableName, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Close()

	ident := pgx.Identifier{t.Table}
	if t.Schema != "" {
		ident = pgx.Identifier{t.Schema, t.Table}
	}
	var n int64
	err = conn.Raw(func(driverConn any) error {
		pc, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("postgres: unexpected driver connection %T", driverConn)
		}
		var cerr error
		n, cerr = pc.Conn().CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
		return cerr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return n, fmt.Errorf("copy into %s: %s (%s)", t.FQN(), pgErr.Detail, pgErr.SQLState())
		}
		return n, fmt.Errorf("copy into %s: %w", t.FQN(), err)
	}
	return n, nil
}
