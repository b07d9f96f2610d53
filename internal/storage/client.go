package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"herbot/internal/dataerr"
	"herbot/internal/logging"
	"herbot/internal/metrics"
)

// Client runs queries and writes frames against one database.
type Client struct {
	db      *sql.DB
	dialect Dialect
	log     logging.Logger
	metrics *metrics.Recorder

	closeOnce sync.Once
	closeErr  error
}

// Open validates cfg, opens the dialect's driver and pings the server within
// cfg's timeout.
func Open(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	log = logging.OrDiscard(log)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, ok := Lookup(cfg.Kind)
	if !ok {
		return nil, dataerr.Newf(dataerr.KindInvalidParameters,
			"Unsupported database kind %q. Registered kinds: %s", cfg.Kind, dataerr.QuotedList(Kinds()))
	}
	dsn, err := d.DSN(cfg)
	if err != nil {
		return nil, dataerr.Wrap(dataerr.KindInvalidParameters, err, err.Error())
	}

	log.Info(fmt.Sprintf("Connecting to database '%s' on server '%s'", cfg.Database, cfg.Server), "kind", d.Name())
	fail := func(err error) error {
		return dataerr.Wrap(dataerr.KindDatabaseConnection, err,
			fmt.Sprintf("Failed to connect to database '%s' on server '%s': %v", cfg.Database, cfg.Server, err))
	}

	db, err := sql.Open(d.DriverName(cfg), dsn)
	if err != nil {
		return nil, fail(err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	pingCtx, cancel := context.WithTimeout(ctx, cfg.EffectiveTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fail(err)
	}
	log.Info("Database connection successful")
	return NewClient(db, d, log), nil
}

// NewClient wraps an open database handle.
func NewClient(db *sql.DB, d Dialect, log logging.Logger) *Client {
	return &Client{db: db, dialect: d, log: logging.OrDiscard(log)}
}

// WithMetrics attaches a recorder for row and batch counters.
func (c *Client) WithMetrics(rec *metrics.Recorder) *Client {
	c.metrics = rec
	return c
}

// DB exposes the underlying handle.
func (c *Client) DB() *sql.DB { return c.db }

// Dialect returns the client's dialect.
func (c *Client) Dialect() Dialect { return c.dialect }

// Close closes the database handle. Errors are logged and returned; later
// calls return the first result.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.db == nil {
			return
		}
		if err := c.db.Close(); err != nil {
			c.log.Warn(fmt.Sprintf("Error closing database connection: %v", err))
			c.closeErr = err
			return
		}
		c.log.Info("Database connection closed")
	})
	return c.closeErr
}

func (c *Client) table(name, schema string) (TableName, error) {
	if strings.TrimSpace(name) == "" {
		return TableName{}, dataerr.New(dataerr.KindInvalidParameters, "Table name cannot be empty")
	}
	if schema == "" {
		schema = c.dialect.DefaultSchema()
	}
	return TableName{Schema: schema, Table: name}, nil
}

func (c *Client) ready() error {
	if c == nil || c.db == nil {
		return dataerr.New(dataerr.KindSQLExecution, "No database connection available")
	}
	return nil
}
