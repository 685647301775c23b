package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// Embedder configuration
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedderDimension < 1 || c.EmbedderDimension > 4096 {
		return fmt.Errorf("%w: must be between 1 and 4096, got %d",
			ErrInvalidEmbedderDimension, c.EmbedderDimension)
	}

	// Indexing configuration
	if c.FreshnessWindowDays < 1 || c.FreshnessWindowDays > 3650 {
		return fmt.Errorf("%w: must be between 1 and 3650 days, got %d",
			ErrInvalidFreshnessWindow, c.FreshnessWindowDays)
	}
	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 1000 {
		return fmt.Errorf("%w: must be between 1 and 1000, got %d",
			ErrInvalidBatchSize, c.EmbedBatchSize)
	}
	if c.EmbedMaxRetries < 0 || c.EmbedMaxRetries > 10 {
		return fmt.Errorf("%w: embed_max_retries must be between 0 and 10, got %d",
			ErrInvalidRetryPolicy, c.EmbedMaxRetries)
	}
	if c.EmbedRetryBaseMS < 1 {
		return fmt.Errorf("%w: embed_retry_base_ms must be positive, got %d",
			ErrInvalidRetryPolicy, c.EmbedRetryBaseMS)
	}
	if c.EmbedTimeoutMS < 1000 {
		return fmt.Errorf("%w: embed_timeout_ms must be at least 1000, got %d",
			ErrInvalidRetryPolicy, c.EmbedTimeoutMS)
	}
	if c.EmbedRatePerSecond < 1 {
		return fmt.Errorf("%w: embed_rate_per_second must be positive, got %d",
			ErrInvalidRetryPolicy, c.EmbedRatePerSecond)
	}
	if c.IndexWorkers < 1 || c.IndexWorkers > 64 {
		return fmt.Errorf("%w: must be between 1 and 64, got %d",
			ErrInvalidWorkers, c.IndexWorkers)
	}

	// Search configuration
	if c.SearchMaxResults < 1 || c.SearchMaxResults > 100 {
		return fmt.Errorf("%w: search_max_results must be between 1 and 100, got %d",
			ErrInvalidSearchDefaults, c.SearchMaxResults)
	}
	if c.SearchMinSimilarity < 0 || c.SearchMinSimilarity > 1 {
		return fmt.Errorf("%w: search_min_similarity must be between 0 and 1, got %.2f",
			ErrInvalidSearchDefaults, c.SearchMinSimilarity)
	}
	if c.ContextMaxLength < 100 {
		return fmt.Errorf("%w: context_max_length must be at least 100, got %d",
			ErrInvalidSearchDefaults, c.ContextMaxLength)
	}

	// PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d",
			ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "selldesk_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"hint", "change postgres_password for production deployments")
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not a valid sslmode", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}

	return nil
}

// ValidateEmbedder checks the requirements for paths that call the embedding
// API. Commands that only touch the database (migrate, status) skip this.
func (c *Config) ValidateEmbedder() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}
	return nil
}
