// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sensorflow/pipeline/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.StorageConfig
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.StorageConfig, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// Create builds the connector selected by the storage configuration
func (f *ConnectorFactory) Create(ctx context.Context) (DatabaseConnector, error) {
	switch f.cfg.Driver {
	case config.DriverPostgres:
		return f.CreatePostgresConnector(ctx)
	case config.DriverSQLite:
		return f.CreateSQLiteConnector(ctx)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", f.cfg.Driver)
	}
}

// CreatePostgresConnector creates a new PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	connector, err := NewPostgresConnector(ctx, f.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	return connector, nil
}

// CreateSQLiteConnector creates a new SQLite connector
func (f *ConnectorFactory) CreateSQLiteConnector(ctx context.Context) (*SQLiteConnector, error) {
	f.logger.Info("Creating SQLite connector")

	connector, err := NewSQLiteConnector(ctx, f.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite connector: %w", err)
	}

	return connector, nil
}
