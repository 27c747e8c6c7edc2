package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/router-ingest/internal/common"
)

// InMemoryDSN is the SQLite DSN used by --inmem runs.
const InMemoryDSN = "file::memory:?cache=shared"

// DB is an open durable store: a *sql.DB plus the dialect its statements are built for.
type DB struct {
	SQL     *sql.DB
	Dialect string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// Open connects to the store named by cfg.Driver and creates the schema if needed.
// Postgres goes through a pgx pool wrapped as *sql.DB; SQLite uses modernc.org/sqlite.
func Open(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var db *DB
	var err error
	switch cfg.Driver {
	case "postgres", "":
		db, err = openPostgres(ctx, cfg, logger)
	case "sqlite":
		db, err = openSQLite(cfg.DSN, logger)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "driver", "postgres")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "router-ingest"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 3 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return &DB{SQL: stdlib.OpenDBFromPool(pool), Dialect: dialect.Postgres, pool: pool, logger: logger}, nil
}

func openSQLite(dsn string, logger *slog.Logger) (*DB, error) {
	if dsn == "" {
		dsn = InMemoryDSN
	}
	logger.Info("opening sqlite database", "dsn", dsn)
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer; also keeps a shared in-memory database alive.
	sqldb.SetMaxOpenConns(1)
	return &DB{SQL: sqldb, Dialect: dialect.SQLite, logger: logger}, nil
}

// Migrate creates the router_queue table and its index if missing.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := schemaStatements(db.Dialect)
	for _, s := range stmts {
		if _, err := db.SQL.ExecContext(ctx, s); err != nil {
			db.logger.Error("migration failed", "error", err)
			return fmt.Errorf("migrate: %w", err)
		}
	}
	db.logger.Debug("schema ready", "dialect", db.Dialect)
	return nil
}

func schemaStatements(d string) []string {
	idType, tsType := "TEXT", "TEXT"
	if d == dialect.Postgres {
		idType, tsType = "UUID", "TIMESTAMPTZ"
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS router_queue (
	id ` + idType + ` PRIMARY KEY,
	serial_number TEXT NOT NULL DEFAULT '',
	default_ssid TEXT NOT NULL DEFAULT '',
	default_pass TEXT NOT NULL DEFAULT '',
	sim_id TEXT NOT NULL DEFAULT '',
	target_ssid TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	created_at ` + tsType + ` NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS router_queue_status_created_at ON router_queue (status, created_at)`,
	}
}

// Close closes the database connections gracefully
func (db *DB) Close() {
	if db == nil {
		return
	}
	db.logger.Info("closing database connections")
	if err := db.SQL.Close(); err != nil {
		db.logger.Error("failed to close database", "error", err)
	}
	if db.pool != nil {
		db.pool.Close()
	}
	db.logger.Info("database connections closed")
}

// HealthCheck pings the store to catch DSN issues early.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	db.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if db.pool != nil {
		err = db.pool.Ping(ctx)
	} else {
		err = db.SQL.PingContext(ctx)
	}
	if err != nil {
		db.logger.Error("database ping failed", "error", err)
		return err
	}
	db.logger.Debug("database ping successful")
	return nil
}
