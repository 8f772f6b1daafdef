// Package db provides PostgreSQL access for the curator.
//
// This package contains:
//   - DB: connection pool lifecycle with retries
//   - Session: a scoped unit of item reads and transactional writes
//   - Migration support via goose
//   - Type conversions between Go and PostgreSQL types
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/lueurxax/channel-curator/migrations"
)

// ErrNotOpen is returned when the pool is used before Open.
var ErrNotOpen = errors.New("database is not open")

// DB wraps a PostgreSQL connection pool. It is opened and closed
// once per curation run.
type DB struct {
	Pool   *pgxpool.Pool
	Logger *zerolog.Logger

	dsn  string
	opts PoolOptions
}

// PoolOptions configures the database connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectRetries    int
}

// DefaultPoolOptions returns sensible default pool configuration.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          defaultMaxConns,
		MinConns:          defaultMinConns,
		MaxConnIdleTime:   defaultMaxConnIdleTime,
		MaxConnLifetime:   defaultMaxConnLifetime,
		HealthCheckPeriod: defaultHealthCheckPeriod,
		ConnectRetries:    defaultConnectionRetries,
	}
}

// New prepares a database handle. No connection is made until Open.
func New(dsn string, opts PoolOptions, logger *zerolog.Logger) *DB {
	return &DB{dsn: dsn, opts: opts, Logger: logger}
}

// Open connects the pool, retrying while the server is unavailable.
func (db *DB) Open(ctx context.Context) error {
	config, err := pgxpool.ParseConfig(db.dsn)
	if err != nil {
		return fmt.Errorf("parse db config: %w", err)
	}

	applyPoolOptions(config, db.opts)

	pool, err := connectWithRetries(ctx, config, db.opts.ConnectRetries, db.Logger)
	if err != nil {
		return err
	}

	db.Pool = pool

	return nil
}

// Name identifies the resource in logs.
func (db *DB) Name() string {
	return "postgres"
}

// applyPoolOptions applies non-zero pool options to the config.
func applyPoolOptions(config *pgxpool.Config, opts PoolOptions) {
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}

	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}

	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}

	if opts.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = opts.HealthCheckPeriod
	}
}

// connectWithRetries attempts to connect to the database with retries.
func connectWithRetries(ctx context.Context, config *pgxpool.Config, retries int, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	if retries <= 0 {
		retries = defaultConnectionRetries
	}

	var err error

	for i := 0; i < retries; i++ {
		var pool *pgxpool.Pool

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}

			pool.Close()
		}

		logger.Warn().Err(err).Int("attempt", i+1).Msg("database not ready, retrying")

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to database: %w", ctx.Err())
		case <-time.After(ConnectionRetrySleep):
		}
	}

	return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	if db.Pool != nil {
		db.Pool.Close()
		db.Pool = nil
	}

	return nil
}

// Ping checks the pool is usable.
func (db *DB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return ErrNotOpen
	}

	if err := db.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

type gooseLogger struct {
	logger *zerolog.Logger
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal().Msgf(format, v...)
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info().Msgf(strings.TrimSuffix(format, "\n"), v...)
}

// Migrate runs database migrations using goose.
// It holds an advisory lock so only one instance migrates at a time.
func (db *DB) Migrate(ctx context.Context) error {
	if db.Pool == nil {
		return ErrNotOpen
	}

	release, err := db.acquireLock(ctx, migrationLockID, true)
	if err != nil {
		return err
	}
	defer release()

	dbSQL := stdlib.OpenDB(*db.Pool.Config().ConnConfig)

	defer func() {
		_ = dbSQL.Close()
	}()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{logger: db.Logger})

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, dbSQL, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Helpers

// SanitizeUTF8 removes invalid UTF-8 sequences and NUL bytes, which
// PostgreSQL text columns reject.
func SanitizeUTF8(s string) string {
	if s == "" {
		return s
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	return strings.ReplaceAll(s, "\x00", "")
}

func sanitizePtr(s *string) *string {
	if s == nil {
		return nil
	}

	clean := SanitizeUTF8(*s)

	return &clean
}
