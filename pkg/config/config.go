// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	// Storage backend and validation rule table
	Storage *StorageConfig
	Rules   *ValidationRules

	// Pipeline directories
	DataDir       string
	ProcessedDir  string
	QuarantineDir string
	ReportsDir    string

	// File intake
	FileExtensions  []string
	MonitorInterval time.Duration
	StartupScan     bool
	DataSource      string

	// Persistence behavior
	MaxRetries int
	RetryDelay time.Duration
	BatchSize  int

	WorkerPoolSize int // 0 means derive from runtime.NumCPU()

	// Dataset fetcher
	FetchURLs    []string
	FetchTimeout time.Duration

	// Cron expression (with seconds field) for the daily summary report;
	// empty disables the job
	SummarySchedule string

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from the environment. A .env file in the
// working directory is applied first when present.
func LoadConfig() (*Config, error) {
	// .env is optional; real environments set variables directly
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:       getEnv("DATA_DIR", "data"),
		ProcessedDir:  getEnv("PROCESSED_DIR", "processed"),
		QuarantineDir: getEnv("QUARANTINE_DIR", "quarantine"),
		ReportsDir:    getEnv("REPORTS_DIR", "reports"),

		FileExtensions:  getEnvAsSlice("FILE_EXTENSIONS", []string{".csv", ".xlsx"}),
		MonitorInterval: time.Duration(getEnvAsInt("MONITOR_INTERVAL_SECONDS", 10)) * time.Second,
		StartupScan:     getEnvAsBool("STARTUP_SCAN", true),
		DataSource:      getEnv("DATA_SOURCE", "kaggle_iot_dataset"),

		MaxRetries: getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay: time.Duration(getEnvAsInt("RETRY_DELAY_SECONDS", 5)) * time.Second,
		BatchSize:  getEnvAsInt("BATCH_SIZE", 1000),

		WorkerPoolSize: getEnvAsInt("WORKER_POOL_SIZE", 0),

		FetchURLs:    getEnvAsSlice("FETCH_URLS", nil),
		FetchTimeout: time.Duration(getEnvAsInt("FETCH_TIMEOUT_SECONDS", 120)) * time.Second,

		SummarySchedule: getEnv("SUMMARY_SCHEDULE", "0 0 9 * * *"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	storage, err := LoadStorageConfig()
	if err != nil {
		return nil, errors.New("failed to load storage configuration: " + err.Error())
	}
	cfg.Storage = storage

	cfg.Rules = LoadValidationRules()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Storage == nil {
		return errors.New("storage configuration is required")
	}

	if err := c.Storage.Validate(); err != nil {
		return err
	}

	if c.Rules == nil {
		return errors.New("validation rules are required")
	}

	if err := c.Rules.Validate(); err != nil {
		return err
	}

	if c.DataDir == "" {
		return errors.New("data directory is required")
	}

	if len(c.FileExtensions) == 0 {
		return errors.New("at least one file extension is required")
	}

	if c.MonitorInterval <= 0 {
		return errors.New("monitor interval must be positive")
	}

	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}

	if c.RetryDelay < 0 {
		return errors.New("retry delay cannot be negative")
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}
	return result
}
