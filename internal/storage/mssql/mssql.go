// Package mssql registers the SQL Server dialect. Bulk writes go through the
// go-mssqldb bulk copy API; Azure AD sign-in uses the azuresql driver.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"
	"github.com/microsoft/go-mssqldb/msdsn"

	"herbot/internal/ddl"
	"herbot/internal/storage"
)

// Name is the dialect's registry key and storage.Config kind.
const Name = "mssql"

func init() { storage.Register(Dialect{}) }

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

var _ storage.Dialect = Dialect{}

func (Dialect) Name() string { return Name }

// DriverName picks azuresql when an Azure AD authentication flow is set.
func (Dialect) DriverName(cfg storage.Config) string {
	if cfg.Authentication != "" {
		return azuread.DriverName
	}
	return "sqlserver"
}

// DSN builds a sqlserver:// URL from cfg, or passes cfg.DSN through, and
// checks it parses.
func (Dialect) DSN(cfg storage.Config) (string, error) {
	dsn := cfg.DSN
	if dsn == "" {
		host := cfg.Server
		if cfg.Port > 0 {
			host += ":" + strconv.Itoa(cfg.Port)
		}
		u := &url.URL{Scheme: "sqlserver", Host: host}
		if cfg.User != "" {
			if cfg.Password != "" {
				u.User = url.UserPassword(cfg.User, cfg.Password)
			} else {
				u.User = url.User(cfg.User)
			}
		}
		q := url.Values{}
		q.Set("database", cfg.Database)
		q.Set("connection timeout", strconv.Itoa(int(cfg.EffectiveTimeout().Seconds())))
		if cfg.Authentication != "" {
			q.Set("fedauth", cfg.Authentication)
		}
		for k, v := range cfg.Params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		dsn = u.String()
	}
	if _, err := msdsn.Parse(dsn); err != nil {
		return "", fmt.Errorf("mssql dsn: %w", err)
	}
	return dsn, nil
}

func (Dialect) DefaultSchema() string { return "dbo" }

// Quote brackets an identifier, escaping ].
func (Dialect) Quote(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func (Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

// MaxParams stays under SQL Server's 2100 parameter ceiling.
func (Dialect) MaxParams() int { return 2000 }

// MapType maps logical kinds onto SQL Server types.
func (Dialect) MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "int", "integer", "bigint":
		return "BIGINT"
	case "bool", "boolean":
		return "BIT"
	case "date":
		return "DATE"
	case "timestamp", "datetime", "timestamptz":
		return "DATETIME2"
	case "float", "double":
		return "FLOAT"
	case "numeric", "decimal":
		return "DECIMAL(38, 10)"
	case "uuid":
		return "UNIQUEIDENTIFIER"
	default:
		return "NVARCHAR(MAX)"
	}
}

// CreateTableSQL wraps CREATE TABLE in an IF OBJECT_ID guard since T-SQL
// has no CREATE TABLE IF NOT EXISTS:
//
//	IF OBJECT_ID(N'[schema].[table]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [schema].[table] (
//	    [col1] TYPE [NOT NULL] [DEFAULT expr],
//	    PRIMARY KEY ([pk1])
//	  );
//	END;
func (d Dialect) CreateTableSQL(t ddl.TableDef) (string, error) {
	cols, err := ddl.ColumnClauses(t, d.Quote)
	if err != nil {
		return "", fmt.Errorf("mssql %w", err)
	}
	fqn := ddl.QuoteFQN(t.FQN, d.Quote)
	return fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
		strings.ReplaceAll(fqn, "'", "''"),
		fqn,
		strings.Join(cols, ",\n    "),
	), nil
}

func (Dialect) TableExistsSQL(t storage.TableName) (string, []any) {
	return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2",
		[]any{t.Schema, t.Table}
}

// Copy bulk-copies rows into t inside a transaction.
func (d Dialect) Copy(ctx context.Context, db *sql.DB, t storage.TableName, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(t.Quoted(d.Quote), mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}
