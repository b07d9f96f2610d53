package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"herbot/internal/ddl"
)

// TableName is a schema-qualified table. An empty Schema means the
// dialect's default.
type TableName struct {
	Schema string
	Table  string
}

// FQN renders schema.table, or just table when Schema is empty.
func (t TableName) FQN() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// Quoted renders the FQN with q applied to each part.
func (t TableName) Quoted(q ddl.Quoter) string {
	return ddl.QuoteFQN(t.FQN(), q)
}

// Dialect captures what differs between database backends.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver to open for cfg.
	DriverName(cfg Config) string
	DSN(cfg Config) (string, error)
	DefaultSchema() string
	Quote(ident string) string
	// Placeholder returns the bind marker for the n-th parameter, from 1.
	Placeholder(n int) string
	// MaxParams is the bind parameter limit per statement.
	MaxParams() int
	// MapType turns a ddl kind into a column type.
	MapType(kind string) string
	CreateTableSQL(t ddl.TableDef) (string, error)
	TableExistsSQL(t TableName) (string, []any)
	// Copy inserts rows into an existing table and reports how many landed.
	Copy(ctx context.Context, db *sql.DB, t TableName, columns []string, rows [][]any) (int64, error)
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// Register makes d available to Open under d.Name(). It panics on a
// duplicate name, like sql.Register.
func Register(d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if d == nil {
		panic("storage: Register dialect is nil")
	}
	if _, dup := dialects[d.Name()]; dup {
		panic("storage: Register called twice for dialect " + d.Name())
	}
	dialects[d.Name()] = d
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// Kinds lists registered dialect names, sorted.
func Kinds() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	out := make([]string, 0, len(dialects))
	for k := range dialects {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// InsertValues writes rows with multi-row INSERT statements, as many rows
// per statement as the dialect's parameter limit allows.
func InsertValues(ctx context.Context, db *sql.DB, d Dialect, t TableName, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("insert into %s: no columns", t.FQN())
	}
	perStmt := len(rows)
	if maxParams := d.MaxParams(); maxParams > 0 {
		perStmt = maxParams / len(columns)
		if perStmt < 1 {
			return 0, fmt.Errorf("insert into %s: %d columns exceed the %d parameter limit", t.FQN(), len(columns), maxParams)
		}
	}

	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.Quote(c)
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", t.Quoted(d.Quote), strings.Join(quoted, ", "))

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		var sb strings.Builder
		sb.WriteString(head)
		args := make([]any, 0, (end-start)*len(columns))
		n := 0
		for r := start; r < end; r++ {
			if len(rows[r]) != len(columns) {
				return total, fmt.Errorf("insert into %s: row %d has %d values, want %d", t.FQN(), r, len(rows[r]), len(columns))
			}
			if r > start {
				sb.WriteString(", ")
			}
			sb.WriteByte('(')
			for c := range columns {
				if c > 0 {
					sb.WriteString(", ")
				}
				n++
				sb.WriteString(d.Placeholder(n))
			}
			sb.WriteByte(')')
			args = append(args, rows[r]...)
		}
		if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return total, err
		}
		total += int64(end - start)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}
