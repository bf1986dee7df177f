package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g. SUMMARY_ENDPOINT_API_KEY).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.commitsense
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/commitsense.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// MaxDiffChars bounds the diff excerpt sent to the summary endpoint.
	// Env: MAX_DIFF_CHARS (default: 8000)
	MaxDiffChars int `envconfig:"MAX_DIFF_CHARS" default:"8000"`

	// Hosting configures the repository hosting provider API.
	Hosting HostingEnv `envconfig:"HOSTING"`

	// SummaryEndpoint configures the summary AI service.
	SummaryEndpoint EndpointEnv `envconfig:"SUMMARY_ENDPOINT"`

	// EmbeddingEndpoint configures the embedding AI service.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// Indexing configures chunking and embedding behaviour.
	Indexing IndexingEnv `envconfig:"INDEXING"`
}

// HostingEnv holds environment configuration for the hosting provider.
type HostingEnv struct {
	// BaseURL is the provider API base URL.
	// Env: HOSTING_BASE_URL (default: https://api.github.com)
	BaseURL string `envconfig:"BASE_URL" default:"https://api.github.com"`

	// Token is the default access token used when a project carries none.
	// Env: HOSTING_TOKEN
	Token string `envconfig:"TOKEN"`

	// PageSize is the commits-per-page request size.
	// Env: HOSTING_PAGE_SIZE (default: 100)
	PageSize int `envconfig:"PAGE_SIZE" default:"100"`

	// MaxRetries is the per-page retry count.
	// Env: HOSTING_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: HOSTING_INITIAL_DELAY (default: 0.5)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"0.5"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: HOSTING_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`

	// Timeout is the per-request timeout in seconds.
	// Env: HOSTING_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`
}

// EndpointEnv holds environment configuration for an AI endpoint.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: *_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier.
	// Env: *_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: *_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: *_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: *_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: *_INITIAL_DELAY (default: 1.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"1.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: *_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// IndexingEnv holds environment configuration for chunking and embedding.
type IndexingEnv struct {
	// ChunkSize is the target chunk size in runes.
	// Env: INDEXING_CHUNK_SIZE (default: 1000)
	ChunkSize int `envconfig:"CHUNK_SIZE" default:"1000"`

	// ChunkOverlap is the chunk overlap in runes.
	// Env: INDEXING_CHUNK_OVERLAP (default: 100)
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"100"`

	// ChunkMinSize is the minimum emitted chunk size in runes.
	// Env: INDEXING_CHUNK_MIN_SIZE (default: 20)
	ChunkMinSize int `envconfig:"CHUNK_MIN_SIZE" default:"20"`

	// BatchSize is the number of chunks per embedding request.
	// Env: INDEXING_BATCH_SIZE (default: 32)
	BatchSize int `envconfig:"BATCH_SIZE" default:"32"`

	// Parallelism is the number of concurrent embedding batches.
	// Env: INDEXING_PARALLELISM (default: 4)
	Parallelism int `envconfig:"PARALLELISM" default:"4"`

	// MaxFileBytes is the maximum indexable file size in bytes.
	// Env: INDEXING_MAX_FILE_BYTES (default: 524288)
	MaxFileBytes int64 `envconfig:"MAX_FILE_BYTES" default:"524288"`
}

// LoadFromEnv reads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// Normalize fills derived defaults that envconfig cannot express.
func (c EnvConfig) Normalize() EnvConfig {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.DataDir = filepath.Join(home, ".commitsense")
	}
	return c
}

// ToAppConfig converts environment configuration into the resolved AppConfig.
func (c EnvConfig) ToAppConfig() AppConfig {
	hosting := NewHosting()
	hosting.baseURL = c.Hosting.BaseURL
	hosting.token = c.Hosting.Token
	if c.Hosting.PageSize > 0 {
		hosting.pageSize = c.Hosting.PageSize
	}
	if c.Hosting.MaxRetries > 0 {
		hosting.maxRetries = c.Hosting.MaxRetries
	}
	if c.Hosting.InitialDelay > 0 {
		hosting.initialDelay = secondsToDuration(c.Hosting.InitialDelay)
	}
	if c.Hosting.BackoffFactor > 0 {
		hosting.backoffFactor = c.Hosting.BackoffFactor
	}
	if c.Hosting.Timeout > 0 {
		hosting.timeout = secondsToDuration(c.Hosting.Timeout)
	}

	indexing := NewIndexing()
	if c.Indexing.ChunkSize > 0 {
		indexing.chunkSize = c.Indexing.ChunkSize
	}
	if c.Indexing.ChunkOverlap >= 0 {
		indexing.chunkOverlap = c.Indexing.ChunkOverlap
	}
	if c.Indexing.ChunkMinSize > 0 {
		indexing.chunkMinSize = c.Indexing.ChunkMinSize
	}
	if c.Indexing.BatchSize > 0 {
		indexing.batchSize = c.Indexing.BatchSize
	}
	if c.Indexing.Parallelism > 0 {
		indexing.parallelism = c.Indexing.Parallelism
	}
	if c.Indexing.MaxFileBytes > 0 {
		indexing.maxFileBytes = c.Indexing.MaxFileBytes
	}

	maxDiff := c.MaxDiffChars
	if maxDiff <= 0 {
		maxDiff = DefaultMaxDiffChars
	}

	return AppConfig{
		host:            c.Host,
		port:            c.Port,
		dataDir:         c.DataDir,
		dbURL:           c.DBURL,
		logLevel:        c.LogLevel,
		logFormat:       parseLogFormat(c.LogFormat),
		cloneSubdir:     DefaultCloneSubdir,
		maxDiffChars:    maxDiff,
		hosting:         hosting,
		summaryEndpoint: c.SummaryEndpoint.toEndpoint(),
		embedEndpoint:   c.EmbeddingEndpoint.toEndpoint(),
		indexing:        indexing,
	}
}

func (e EndpointEnv) toEndpoint() Endpoint {
	ep := NewEndpoint()
	ep.baseURL = e.BaseURL
	ep.model = e.Model
	ep.apiKey = e.APIKey
	if e.Timeout > 0 {
		ep.timeout = secondsToDuration(e.Timeout)
	}
	if e.MaxRetries > 0 {
		ep.maxRetries = e.MaxRetries
	}
	if e.InitialDelay > 0 {
		ep.initialDelay = secondsToDuration(e.InitialDelay)
	}
	if e.BackoffFactor > 0 {
		ep.backoffFactor = e.BackoffFactor
	}
	return ep
}

func parseLogFormat(s string) LogFormat {
	if s == string(LogFormatJSON) {
		return LogFormatJSON
	}
	return LogFormatPretty
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
