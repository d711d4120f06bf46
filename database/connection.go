// database/connection.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/go-sql-driver/mysql" // MariaDB / MySQL driver
	_ "modernc.org/sqlite"

	"github.com/gewnthar/gnss-archiver/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DB wraps the connection pool together with the dialect it speaks.
type DB struct {
	conn   *sql.DB
	driver string
	logger *log.Logger
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS run_records (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		run_id VARCHAR(36) NOT NULL,
		product VARCHAR(32) NOT NULL,
		outcome VARCHAR(16) NOT NULL,
		reason VARCHAR(32) NOT NULL DEFAULT '',
		source_file VARCHAR(255) NOT NULL,
		product_id VARCHAR(64) NOT NULL DEFAULT '',
		coverage_start VARCHAR(32) NOT NULL DEFAULT '',
		coverage_end VARCHAR(32) NOT NULL DEFAULT '',
		canonical_name VARCHAR(255) NOT NULL DEFAULT '',
		target_date VARCHAR(10) NOT NULL,
		day_of_year VARCHAR(3) NOT NULL,
		committed_at VARCHAR(32) NOT NULL DEFAULT '',
		INDEX idx_run_records_target_date (target_date)
	)`,
	`CREATE TABLE IF NOT EXISTS product_versions (
		product VARCHAR(64) PRIMARY KEY,
		source_url TEXT NOT NULL,
		canonical_name VARCHAR(255) NOT NULL,
		stored_path TEXT NOT NULL,
		coverage_start VARCHAR(32) NULL,
		coverage_end VARCHAR(32) NULL,
		last_committed_at VARCHAR(32) NOT NULL
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS run_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		product TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		source_file TEXT NOT NULL,
		product_id TEXT NOT NULL DEFAULT '',
		coverage_start TEXT NOT NULL DEFAULT '',
		coverage_end TEXT NOT NULL DEFAULT '',
		canonical_name TEXT NOT NULL DEFAULT '',
		target_date TEXT NOT NULL,
		day_of_year TEXT NOT NULL,
		committed_at TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_run_records_target_date ON run_records(target_date)`,
	`CREATE TABLE IF NOT EXISTS product_versions (
		product TEXT PRIMARY KEY,
		source_url TEXT NOT NULL,
		canonical_name TEXT NOT NULL,
		stored_path TEXT NOT NULL,
		coverage_start TEXT,
		coverage_end TEXT,
		last_committed_at TEXT NOT NULL
	)`,
}

// Open connects to the configured database and creates the tables it needs.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *log.Logger) (*DB, error) {
	var schema []string
	switch cfg.Driver {
	case DriverMySQL:
		schema = mysqlSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	dsn := cfg.DataSourceName()
	if cfg.Driver == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY on the single file.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(25)
		conn.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if logger != nil {
		logger.Info("connected to database", "driver", cfg.Driver)
	}
	return &DB{conn: conn, driver: cfg.Driver, logger: logger}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Ping verifies the connection is still usable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
