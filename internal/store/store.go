package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/vizq/internal/extract"
)

// driverSeq numbers the per-store drivers; database/sql driver names are
// process-global and cannot be registered twice.
var driverSeq atomic.Int64

// Store is an in-memory table store.
type Store struct {
	db        *sqlx.DB
	evaluator *extract.Evaluator
	logger    *slog.Logger
}

type config struct {
	logger    *slog.Logger
	cacheSize int
	evaluator *extract.Evaluator
}

// Option configures a Store.
type Option func(*config)

// WithLogger sets the store logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithExtractCacheSize bounds the extraction memo cache.
func WithExtractCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithEvaluator shares an existing extraction evaluator.
func WithEvaluator(e *extract.Evaluator) Option {
	return func(c *config) { c.evaluator = e }
}

// Open creates an empty in-memory store.
func Open(opts ...Option) (*Store, error) {
	cfg := config{logger: slog.Default(), cacheSize: extract.DefaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	evaluator := cfg.evaluator
	if evaluator == nil {
		var err error
		evaluator, err = extract.New(cfg.cacheSize, extract.WithLogger(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create evaluator: %w", err)
		}
	}

	driverName := fmt.Sprintf("sqlite3_vizq_%d", driverSeq.Add(1))
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return registerFunctions(conn, evaluator)
		},
	})

	db, err := sqlx.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection, so the pool must never
	// open a second one or recycle the first.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Store{db: db, evaluator: evaluator, logger: cfg.logger}, nil
}

// Close closes the database. All tables are lost.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying handle for direct queries.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Evaluator returns the extraction evaluator shared by AddData and the
// jsonata SQL function.
func (s *Store) Evaluator() *extract.Evaluator {
	return s.evaluator
}
