package storage

import (
	"context"
	"fmt"

	"herbot/internal/dataerr"
	"herbot/internal/ddl"
	"herbot/internal/frame"
)

// DefaultBatchSize is the rows-per-copy used when WriteOptions.ChunkSize is
// unset.
const DefaultBatchSize = 1000

// IfExists policies for WriteFrame.
const (
	IfExistsFail    = "fail"
	IfExistsReplace = "replace"
	IfExistsAppend  = "append"
)

// WriteOptions controls WriteFrame.
type WriteOptions struct {
	// Schema defaults to the dialect's default schema.
	Schema string `koanf:"schema"`
	// IfExists is fail (the default), replace or append.
	IfExists  string `koanf:"if_exists"`
	ChunkSize int    `koanf:"chunk_size"`
	// TypeMapping overrides inferred column types by column name when the
	// table is created.
	TypeMapping map[string]string `koanf:"type_mapping"`
}

// WriteFrame writes every row of f to table, creating the table from the
// frame's columns when it does not exist.
func (c *Client) WriteFrame(ctx context.Context, f *frame.Frame, table string, opt WriteOptions) (int64, error) {
	if err := checkFrame(f); err != nil {
		return 0, err
	}
	t, err := c.table(table, opt.Schema)
	if err != nil {
		return 0, err
	}
	policy := opt.IfExists
	if policy == "" {
		policy = IfExistsFail
	}
	if policy != IfExistsFail && policy != IfExistsReplace && policy != IfExistsAppend {
		return 0, dataerr.New(dataerr.KindInvalidParameters, "if_exists must be 'fail', 'replace', or 'append'")
	}
	chunk := opt.ChunkSize
	if chunk <= 0 {
		chunk = DefaultBatchSize
	}
	if err := c.ready(); err != nil {
		return 0, err
	}

	c.log.Info(fmt.Sprintf("Writing frame to table %s", t.FQN()), "if_exists", policy, "rows", f.Len())
	fail := func(err error) (int64, error) {
		return 0, dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to write frame to %s: %v", t.FQN(), err))
	}

	exists, err := c.tableExists(ctx, t)
	if err != nil {
		return fail(err)
	}
	switch {
	case exists && policy == IfExistsFail:
		return fail(fmt.Errorf("table '%s' already exists", t.FQN()))
	case exists && policy == IfExistsReplace:
		if _, err := c.db.ExecContext(ctx, "DROP TABLE "+t.Quoted(c.dialect.Quote)); err != nil {
			return fail(err)
		}
		exists = false
	}
	if !exists {
		if err := c.createTable(ctx, f, t, opt.TypeMapping); err != nil {
			return fail(err)
		}
	}
	n, err := c.insert(ctx, f, t, chunk)
	if err != nil {
		return fail(err)
	}
	c.log.Info(fmt.Sprintf("Successfully wrote %d rows to %s", n, t.FQN()))
	return n, nil
}

// BulkInsert appends every row of f to an existing table in batches of
// batchSize, using the dialect's bulk copy path.
func (c *Client) BulkInsert(ctx context.Context, f *frame.Frame, table, schema string, batchSize int) (int64, error) {
	if err := checkFrame(f); err != nil {
		return 0, err
	}
	t, err := c.table(table, schema)
	if err != nil {
		return 0, err
	}
	if batchSize <= 0 {
		return 0, dataerr.New(dataerr.KindInvalidParameters, "Batch size must be positive")
	}
	if err := c.ready(); err != nil {
		return 0, err
	}

	c.log.Info(fmt.Sprintf("Starting bulk insert to %s with batch size %d", t.FQN(), batchSize))
	n, err := c.insert(ctx, f, t, batchSize)
	if err != nil {
		return n, dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Bulk insert failed for %s: %v", t.FQN(), err))
	}
	c.log.Info(fmt.Sprintf("Bulk insert completed: %d rows inserted to %s", n, t.FQN()))
	return n, nil
}

// CreateTableFromFrame creates table with one column per frame column. Types
// are inferred from the values unless typeMapping names one. It fails when
// the table already exists.
func (c *Client) CreateTableFromFrame(ctx context.Context, f *frame.Frame, table, schema string, typeMapping map[string]string) error {
	if err := checkFrame(f); err != nil {
		return err
	}
	t, err := c.table(table, schema)
	if err != nil {
		return err
	}
	if err := c.ready(); err != nil {
		return err
	}

	c.log.Info(fmt.Sprintf("Creating table %s from frame structure", t.FQN()))
	fail := func(err error) error {
		return dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to create table %s: %v", t.FQN(), err))
	}
	exists, err := c.tableExists(ctx, t)
	if err != nil {
		return fail(err)
	}
	if exists {
		return fail(fmt.Errorf("table '%s' already exists", t.FQN()))
	}
	if len(typeMapping) > 0 {
		c.log.Info(fmt.Sprintf("Applying %d data type mappings", len(typeMapping)))
	}
	if err := c.createTable(ctx, f, t, typeMapping); err != nil {
		return fail(err)
	}
	c.log.Info(fmt.Sprintf("Table %s created successfully", t.FQN()))
	return nil
}

// TableExists reports whether table exists in schema.
func (c *Client) TableExists(ctx context.Context, table, schema string) (bool, error) {
	t, err := c.table(table, schema)
	if err != nil {
		return false, err
	}
	if err := c.ready(); err != nil {
		return false, err
	}
	c.log.Info(fmt.Sprintf("Checking if table %s exists", t.FQN()))
	exists, err := c.tableExists(ctx, t)
	if err != nil {
		return false, dataerr.Wrap(dataerr.KindSQLExecution, err,
			fmt.Sprintf("Failed to check if table %s exists: %v", t.FQN(), err))
	}
	c.log.Info(fmt.Sprintf("Table %s exists: %t", t.FQN(), exists))
	return exists, nil
}

func (c *Client) tableExists(ctx context.Context, t TableName) (bool, error) {
	q, args := c.dialect.TableExistsSQL(t)
	var n int64
	if err := c.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *Client) createTable(ctx context.Context, f *frame.Frame, t TableName, typeMapping map[string]string) error {
	names := f.Columns()
	values := make([][]any, len(names))
	for i, name := range names {
		values[i], _ = f.Column(name)
	}
	def := ddl.Infer(t.FQN(), names, values, c.dialect.MapType, typeMapping)
	stmt, err := c.dialect.CreateTableSQL(def)
	if err != nil {
		return err
	}
	c.log.Debug("creating table", "table", t.FQN(), "sql", stmt)
	_, err = c.db.ExecContext(ctx, stmt)
	return err
}

// insert streams f's rows through LoadBatches into the dialect's Copy.
func (c *Client) insert(ctx context.Context, f *frame.Frame, t TableName, batchSize int) (int64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, batchSize)
	go func() {
		defer close(in)
		for i := 0; i < f.Len(); i++ {
			select {
			case in <- f.Row(i):
			case <-ctx.Done():
				return
			}
		}
	}()
	copyFn := func(ctx context.Context, columns []string, rows [][]any) (int64, error) {
		return c.dialect.Copy(ctx, c.db, t, columns, rows)
	}
	return LoadBatches(ctx, f.Columns(), in, batchSize, copyFn, c.log, c.metrics)
}

func checkFrame(f *frame.Frame) error {
	if f == nil || f.Len() == 0 || f.Width() == 0 {
		return dataerr.New(dataerr.KindInvalidParameters, "Frame cannot be nil or empty")
	}
	return nil
}
