package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/dbscope/internal/config"
)

// DB wraps the driver's connection pool. Request code never uses it directly;
// it goes through a Scope which hands out one connection per request.
type DB struct {
	*sql.DB
	driver string
	name   string
}

// Open opens the database described by cfg and verifies it is reachable
func Open(cfg config.DatabaseConfig) (*DB, error) {
	cfg.Driver = normalizeDriver(cfg.Driver)

	driverName, dsn, err := dsnFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx := context.Background()
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite with WAL mode supports concurrent reads but serializes writes
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	}

	log.Debug().
		Str("driver", cfg.Driver).
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Msg("Database connection established")

	return &DB{
		DB:     db,
		driver: cfg.Driver,
		name:   cfg.Name,
	}, nil
}

// Driver returns the configured driver name (mysql, postgres or sqlite)
func (db *DB) Driver() string {
	return db.driver
}

// Name returns the database name, or the file path for sqlite
func (db *DB) Name() string {
	return db.name
}

// VersionQuery returns a query yielding a single "version" column with the server version
func (db *DB) VersionQuery() string {
	switch db.driver {
	case DriverSQLite:
		return "SELECT sqlite_version() AS version"
	case DriverPostgres:
		return "SELECT version() AS version"
	default:
		return "SELECT VERSION() AS version"
	}
}
