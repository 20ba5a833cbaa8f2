// pkg/connector/sqlite.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sensorflow/pipeline/pkg/config"
)

func init() {
	// modernc registers as "sqlite", which sqlx's bind table does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLiteConnector implements the DatabaseConnector interface for embedded
// SQLite storage
type SQLiteConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.StorageConfig
}

// NewSQLiteConnector opens the SQLite database file, creating it and its
// parent directory when missing
func NewSQLiteConnector(ctx context.Context, cfg *config.StorageConfig) (*SQLiteConnector, error) {
	logger := zap.L().Named("sqlite-connector")
	path := cfg.SQLite.Path

	logger.Info("Opening SQLite database", zap.String("path", path))

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Session pragmas applied before any table access
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	// Writes serialize on a single connection
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	connector := &SQLiteConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, path, db)
	return connector, nil
}

// DB returns the underlying database handle
func (c *SQLiteConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName reports the SQL driver behind the handle
func (c *SQLiteConnector) DriverName() string {
	return c.db.DriverName()
}

// Validate verifies the database file is readable and writable
func (c *SQLiteConnector) Validate() error {
	// Check library version
	var version string
	err := c.db.QueryRow("SELECT sqlite_version()").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}
	c.logger.Info("Connected to SQLite", zap.String("version", version))

	// Check write access with a temp table
	stmts := []string{
		"CREATE TEMP TABLE _permission_check (id integer, test text)",
		"INSERT INTO _permission_check (test) VALUES ('test')",
		"DROP TABLE _permission_check",
	}
	for _, stmt := range stmts {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("permission validation failed: %w", err)
		}
	}

	c.logger.Info("SQLite connection validated", zap.String("path", c.cfg.SQLite.Path))

	return nil
}

// Close closes the database connection
func (c *SQLiteConnector) Close() error {
	c.logger.Info("Closing SQLite connection")
	LogConnectionStats(c.logger, c.cfg.SQLite.Path, c.db)
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (c *SQLiteConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.ExecContext(queryCtx, query, args...)
}

// QueryWithTimeout executes a query with a timeout
func (c *SQLiteConnector) QueryWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (*sql.Rows, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.QueryContext(queryCtx, query, args...)
}
