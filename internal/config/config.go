// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.selldesk/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Embedder: provider, model, vector dimension
//   - Storage: PostgreSQL connection (see storage.go)
//   - Indexing: freshness window, embedding batch size, retry policy, workers
//   - Search: result count, similarity threshold, context length
//
// Validation uses sentinel errors for errors.Is() checks; sensitive values
// are never logged.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the vector dimension is out of range.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidBatchSize indicates the embedding batch size is out of range.
	ErrInvalidBatchSize = errors.New("invalid embedding batch size")

	// ErrInvalidRetryPolicy indicates the embedding retry settings are invalid.
	ErrInvalidRetryPolicy = errors.New("invalid embedding retry policy")

	// ErrInvalidFreshnessWindow indicates the freshness window is invalid.
	ErrInvalidFreshnessWindow = errors.New("invalid freshness window")

	// ErrInvalidWorkers indicates the indexing worker count is out of range.
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidSearchDefaults indicates the search defaults are out of range.
	ErrInvalidSearchDefaults = errors.New("invalid search defaults")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation via OutputDimensionality; the pgvector schema uses 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension must match the vector(N) column in the
	// rag_embeddings migration. Changing it requires a schema migration
	// and a full re-embed of every tenant.
	DefaultEmbedderDimension = 768

	// DefaultFreshnessWindowDays bounds how far back orders, reviews and
	// sales are indexed.
	DefaultFreshnessWindowDays = 90

	// DefaultEmbedBatchSize is the number of texts sent per embedding
	// API call.
	DefaultEmbedBatchSize = 100
)

// Config stores application configuration.
type Config struct {
	// Embedder configuration
	EmbedderModel     string `mapstructure:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Indexing configuration
	FreshnessWindowDays int `mapstructure:"freshness_window_days"`
	EmbedBatchSize      int `mapstructure:"embed_batch_size"`
	EmbedMaxRetries     int `mapstructure:"embed_max_retries"`
	EmbedRetryBaseMS    int `mapstructure:"embed_retry_base_ms"`
	EmbedTimeoutMS      int `mapstructure:"embed_timeout_ms"`
	EmbedRatePerSecond  int `mapstructure:"embed_rate_per_second"`
	IndexWorkers        int `mapstructure:"index_workers"`

	// Search configuration
	SearchMaxResults    int     `mapstructure:"search_max_results"`
	SearchMinSimilarity float64 `mapstructure:"search_min_similarity"`
	ContextMaxLength    int     `mapstructure:"context_max_length"`

	// HTTP server bind address for the serve command.
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".selldesk")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(v *viper.Viper) {
	// Embedder defaults
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("embedder_dimension", DefaultEmbedderDimension)

	// PostgreSQL defaults for local development
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "selldesk")
	v.SetDefault("postgres_password", "selldesk_dev_password")
	v.SetDefault("postgres_db_name", "selldesk")
	v.SetDefault("postgres_ssl_mode", "disable")

	// Indexing defaults
	v.SetDefault("freshness_window_days", DefaultFreshnessWindowDays)
	v.SetDefault("embed_batch_size", DefaultEmbedBatchSize)
	v.SetDefault("embed_max_retries", 3)
	v.SetDefault("embed_retry_base_ms", 500)
	v.SetDefault("embed_timeout_ms", 30000)
	v.SetDefault("embed_rate_per_second", 5)
	v.SetDefault("index_workers", 4)

	// Search defaults
	v.SetDefault("search_max_results", 5)
	v.SetDefault("search_min_similarity", 0.7)
	v.SetDefault("context_max_length", 3000)

	v.SetDefault("listen_addr", "127.0.0.1:3500")
}

// bindEnvVariables binds environment variables explicitly.
// Secrets stay out of config files: GEMINI_API_KEY is read directly by the
// Genkit plugin, DATABASE_URL and POSTGRES_PASSWORD override storage config.
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("postgres_password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("postgres_host", "POSTGRES_HOST")
	_ = v.BindEnv("postgres_port", "POSTGRES_PORT")
	_ = v.BindEnv("embedder_model", "SELLDESK_EMBEDDER_MODEL")
	_ = v.BindEnv("listen_addr", "SELLDESK_LISTEN_ADDR")
}

// FreshnessWindow returns the freshness window as a duration.
func (c *Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowDays) * 24 * time.Hour
}

// EmbedRetryBase returns the initial backoff interval for embedding retries.
func (c *Config) EmbedRetryBase() time.Duration {
	return time.Duration(c.EmbedRetryBaseMS) * time.Millisecond
}

// EmbedTimeout returns the per-batch embedding call timeout.
func (c *Config) EmbedTimeout() time.Duration {
	return time.Duration(c.EmbedTimeoutMS) * time.Millisecond
}
