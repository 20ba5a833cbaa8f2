// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
)

// PostgresConnector implements the DatabaseConnector interface for PostgreSQL
type PostgresConnector struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.StorageConfig
}

// NewPostgresConnector creates and initializes a new PostgreSQL connector
func NewPostgresConnector(ctx context.Context, cfg *config.StorageConfig) (*PostgresConnector, error) {
	logger := zap.L().Named("postgres-connector")
	pg := cfg.Postgres

	// Log connection attempt (without credentials)
	logger.Info("Connecting to PostgreSQL",
		zap.String("host", pg.Host),
		zap.Int("port", pg.Port),
		zap.String("database", pg.Database),
		zap.String("user", pg.User))

	db, err := sqlx.Open("postgres", pg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL connection: %w", err)
	}

	// Configure connection pool
	ApplyConnectionSettings(
		db,
		cfg.MaxOpenConns,
		cfg.MaxIdleConns,
		cfg.ConnMaxLifetime,
		cfg.ConnMaxIdleTime,
	)

	// Set statement timeout if configured
	if cfg.StatementTimeout > 0 {
		_, err = db.ExecContext(
			ctx,
			fmt.Sprintf("SET statement_timeout = %d", cfg.StatementTimeout.Milliseconds()),
		)
		if err != nil {
			logger.Warn("Failed to set statement timeout", zap.Error(err))
		}
	}

	// Verify connection
	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	connector := &PostgresConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, pg.Database, db)
	return connector, nil
}

// DB returns the underlying database handle
func (c *PostgresConnector) DB() *sqlx.DB {
	return c.db
}

// DriverName reports the SQL driver behind the handle
func (c *PostgresConnector) DriverName() string {
	return c.db.DriverName()
}

// Validate verifies the PostgreSQL connection and required permissions
func (c *PostgresConnector) Validate() error {
	// Check database version
	var version string
	err := c.db.QueryRow("SELECT version()").Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	// Check permissions by creating a temp table
	_, err = c.db.Exec(`
		DO $$
		BEGIN
			CREATE TEMP TABLE _permission_check (id serial, test text);
			INSERT INTO _permission_check (test) VALUES ('test');
			DROP TABLE _permission_check;
		EXCEPTION WHEN OTHERS THEN
			RAISE EXCEPTION 'Permission check failed: %', SQLERRM;
		END $$;
	`)
	if err != nil {
		return fmt.Errorf("permission validation failed: %w", err)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Postgres.Database),
		zap.String("host", c.cfg.Postgres.Host),
		zap.Int("port", c.cfg.Postgres.Port))

	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	LogConnectionStats(c.logger, c.cfg.Postgres.Database, c.db)
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (c *PostgresConnector) ExecWithTimeout(
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
func (c *PostgresConnector) QueryWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (*sql.Rows, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.QueryContext(queryCtx, query, args...)
}
