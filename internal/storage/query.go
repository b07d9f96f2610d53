package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"herbot/internal/dataerr"
	"herbot/internal/frame"
)

// Query runs sql and returns the result set as a frame. Byte slices are
// returned as strings; repeated column names get .1, .2 suffixes.
func (c *Client) Query(ctx context.Context, sql string) (*frame.Frame, error) {
	if strings.TrimSpace(sql) == "" {
		return nil, dataerr.New(dataerr.KindInvalidParameters, "SQL query cannot be empty")
	}
	if err := c.ready(); err != nil {
		return nil, err
	}
	c.log.Info("Executing SQL query")
	f, err := c.query(ctx, sql)
	if err != nil {
		return nil, dataerr.Wrap(dataerr.KindSQLExecution, err, fmt.Sprintf("Failed to execute SQL query: %v", err))
	}
	c.log.Info(fmt.Sprintf("Query executed successfully, returned %d rows and %d columns", f.Len(), f.Width()))
	c.metrics.Rows("queried", int64(f.Len()))
	return f, nil
}

func (c *Client) query(ctx context.Context, sql string) (*frame.Frame, error) {
	rows, err := c.db.QueryContext(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := frame.New(frame.UniqueNames(cols)...)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		if err := out.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	return out, rows.Err()
}

// QueryFromFile reads a query from path, substitutes each {key} with its
// replacement and runs it.
func (c *Client) QueryFromFile(ctx context.Context, path string, replacements map[string]string) (*frame.Frame, error) {
	text, err := readSQLFile(path)
	if err != nil {
		return nil, err
	}
	c.log.Info(fmt.Sprintf("Reading SQL query from file: %s", path))
	if len(replacements) > 0 {
		c.log.Info(fmt.Sprintf("Applying %d replacements to SQL query", len(replacements)))
		text = ApplyReplacements(text, replacements)
	}
	f, err := c.Query(ctx, text)
	if err != nil {
		if errors.Is(err, dataerr.ErrSQLExecution) {
			return nil, err
		}
		return nil, dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to read or execute SQL file '%s': %v", path, err))
	}
	return f, nil
}

// ExecNonQuery runs a statement that returns no rows inside a transaction
// and reports the rows affected. params are {key} substitutions applied to
// the text, not bind parameters. On failure the transaction is rolled back.
func (c *Client) ExecNonQuery(ctx context.Context, sql string, params map[string]string) (int64, error) {
	if strings.TrimSpace(sql) == "" {
		return 0, dataerr.New(dataerr.KindInvalidParameters, "SQL statement cannot be empty")
	}
	if err := c.ready(); err != nil {
		return 0, err
	}
	c.log.Info("Executing non-query SQL statement")
	if len(params) > 0 {
		c.log.Info(fmt.Sprintf("Applying %d parameter replacements", len(params)))
		sql = ApplyReplacements(sql, params)
	}

	fail := func(err error) (int64, error) {
		return 0, dataerr.Wrap(dataerr.KindSQLExecution, err, fmt.Sprintf("Failed to execute non-query: %v", err))
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fail(err)
	}
	res, err := tx.ExecContext(ctx, sql)
	var n int64
	if err == nil {
		n, err = res.RowsAffected()
	}
	if err == nil {
		err = tx.Commit()
	} else if rerr := tx.Rollback(); rerr != nil {
		c.log.Error("Failed to rollback transaction", "err", rerr)
	} else {
		c.log.Warn("Transaction rolled back due to error")
	}
	if err != nil {
		return fail(err)
	}
	c.log.Info(fmt.Sprintf("Non-query executed successfully, %d rows affected", n))
	return n, nil
}

// ExecNonQueryFromFile is ExecNonQuery with the statement read from path.
func (c *Client) ExecNonQueryFromFile(ctx context.Context, path string, params map[string]string) (int64, error) {
	text, err := readSQLFile(path)
	if err != nil {
		return 0, err
	}
	c.log.Info(fmt.Sprintf("Reading non-query SQL from file: %s", path))
	return c.ExecNonQuery(ctx, text, params)
}

// ApplyReplacements substitutes every {key} in text with its value. Longer
// keys are applied first so {ab} wins over {a}. Unknown placeholders are
// left alone.
func ApplyReplacements(text string, replacements map[string]string) string {
	keys := make([]string, 0, len(replacements))
	for k := range replacements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", replacements[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func readSQLFile(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", dataerr.Wrap(dataerr.KindInvalidParameters, err, "SQL file not found: "+path)
		}
		return "", dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to read or execute SQL file '%s': %v", path, err))
	}
	if !fi.Mode().IsRegular() {
		return "", dataerr.New(dataerr.KindInvalidParameters, "Path is not a file: "+path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to read or execute SQL file '%s': %v", path, err))
	}
	return string(b), nil
}
