// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StorageConfig holds storage backend selection and shared connection
// behavior. Exactly one of Postgres/SQLite is populated, matching Driver.
type StorageConfig struct {
	Driver   string
	Postgres *PostgresConfig
	SQLite   *SQLiteConfig

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout applied to individual queries
	StatementTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// SQLiteConfig holds the embedded database location
type SQLiteConfig struct {
	Path string
}

// LoadStorageConfig loads storage configuration from environment variables.
// The selected driver's parameters are loaded strictly; the other backend is
// left nil.
func LoadStorageConfig() (*StorageConfig, error) {
	cfg := &StorageConfig{
		Driver: getEnv("STORAGE_DRIVER", DriverPostgres),

		MaxOpenConns:    getEnvAsInt("STORAGE_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("STORAGE_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: time.Duration(getEnvAsInt("STORAGE_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("STORAGE_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,

		StatementTimeout: time.Duration(getEnvAsInt("STORAGE_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	switch cfg.Driver {
	case DriverPostgres:
		pg, err := loadPostgresConfig()
		if err != nil {
			return nil, err
		}
		cfg.Postgres = pg
	case DriverSQLite:
		cfg.SQLite = &SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "data/sensorflow.db"),
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}

	return cfg, nil
}

func loadPostgresConfig() (*PostgresConfig, error) {
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return nil, errors.New("POSTGRES_USER environment variable is required")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, errors.New("POSTGRES_PASSWORD environment variable is required")
	}

	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		return nil, errors.New("POSTGRES_DB environment variable is required")
	}

	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
	}, nil
}

// Validate ensures the storage configuration is coherent
func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.Postgres == nil {
			return errors.New("postgres configuration is required for the postgres driver")
		}
	case DriverSQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return errors.New("sqlite path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Driver)
	}

	if c.MaxOpenConns <= 0 {
		return errors.New("max open connections must be positive")
	}

	return nil
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// ConnectionString returns the SQLite DSN
func (c *SQLiteConfig) ConnectionString() string {
	return c.Path
}
