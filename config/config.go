package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5001"`

		// debug, release or test
		GinMode string `env:"GIN_MODE" envDefault:"release"`

		AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Requests per second accepted by the prediction endpoints, 0 disables limiting
		RateLimit float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
		RateBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	}

	Model struct {
		Path string `env:"MODEL_PATH" envDefault:"configs/models.yaml"`
	}

	Tables struct {
		Dir          string `env:"TABLES_DIR" envDefault:"configs/tables"`
		CategoryFile string `env:"TABLE_VEHICLE_CATEGORY" envDefault:"car_category_data.csv"`
		BrandFile    string `env:"TABLE_VEHICLE_BRAND" envDefault:"car_brand_data.csv"`
		OrgExactFile string `env:"TABLE_ORG_EXACT" envDefault:"map_keywords.csv"`
		OrgInFile    string `env:"TABLE_ORG_CONTAINS" envDefault:"in_keywords.csv"`
	}

	History struct {
		// sqlite or redis
		Backend       string `env:"HISTORY_BACKEND" envDefault:"sqlite"`
		SQLitePath    string `env:"HISTORY_SQLITE_PATH" envDefault:"database/history.db"`
		RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"history:"`

		// Upper bound for a single lookup or upsert
		Timeout time.Duration `env:"HISTORY_TIMEOUT" envDefault:"2s"`

		// Treat an unreachable store as a first sighting instead of failing the request
		DegradeOnUnavailable bool `env:"HISTORY_DEGRADE_ON_UNAVAILABLE" envDefault:"true"`
	}

	// BatchProcessing configures the offline ingestion pipeline
	BatchProcessing struct {
		// Maximum number of listings per queued batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of queued batches before Push reports the queue as full
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"64"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// LoadConfig reads an optional .env file and then the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	switch c.History.Backend {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported history backend %q", c.History.Backend)
	}
	if c.History.Timeout <= 0 {
		return fmt.Errorf("history timeout must be positive, got %s", c.History.Timeout)
	}
	if c.BatchProcessing.MaxBatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchProcessing.MaxBatchSize)
	}
	return nil
}

// TablePath resolves a keyword table file name against the tables directory
func (c *Config) TablePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Tables.Dir, name)
}
