// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost              = "0.0.0.0"
	DefaultPort              = 8080
	DefaultLogLevel          = "INFO"
	DefaultCloneSubdir       = "repos"
	DefaultHostingPageSize   = 100
	DefaultHostingMaxRetries = 3
	DefaultHostingDelay      = 500 * time.Millisecond
	DefaultHostingBackoff    = 2.0
	DefaultHostingTimeout    = 30 * time.Second
	DefaultEndpointTimeout   = 60 * time.Second
	DefaultEndpointRetries   = 3
	DefaultEndpointDelay     = time.Second
	DefaultEndpointBackoff   = 2.0
	DefaultChunkSize         = 1000
	DefaultChunkOverlap      = 100
	DefaultChunkMinSize      = 20
	DefaultEmbedBatchSize    = 32
	DefaultEmbedParallelism  = 4
	DefaultMaxFileBytes      = 512 * 1024
	DefaultMaxDiffChars      = 8000
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// Endpoint configures an AI service endpoint (summary generation or embedding).
type Endpoint struct {
	baseURL       string
	model         string
	apiKey        string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewEndpoint creates an Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:       DefaultEndpointTimeout,
		maxRetries:    DefaultEndpointRetries,
		initialDelay:  DefaultEndpointDelay,
		backoffFactor: DefaultEndpointBackoff,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// InitialDelay returns the initial retry delay.
func (e Endpoint) InitialDelay() time.Duration { return e.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (e Endpoint) BackoffFactor() float64 { return e.backoffFactor }

// IsConfigured returns true if the endpoint has the credentials needed to
// reach its backend.
func (e Endpoint) IsConfigured() bool {
	return e.apiKey != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) EndpointOption {
	return func(e *Endpoint) { e.backoffFactor = f }
}

// NewEndpointWith creates an Endpoint with the given options applied.
func NewEndpointWith(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Hosting configures the repository hosting provider API.
type Hosting struct {
	baseURL       string
	token         string
	pageSize      int
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	timeout       time.Duration
}

// NewHosting creates a Hosting config with defaults.
func NewHosting() Hosting {
	return Hosting{
		pageSize:      DefaultHostingPageSize,
		maxRetries:    DefaultHostingMaxRetries,
		initialDelay:  DefaultHostingDelay,
		backoffFactor: DefaultHostingBackoff,
		timeout:       DefaultHostingTimeout,
	}
}

// HostingOption configures a Hosting value.
type HostingOption func(*Hosting)

// WithHostingBaseURL sets the provider API base URL.
func WithHostingBaseURL(url string) HostingOption {
	return func(h *Hosting) { h.baseURL = url }
}

// WithHostingToken sets the default access token.
func WithHostingToken(token string) HostingOption {
	return func(h *Hosting) { h.token = token }
}

// WithHostingPageSize sets the commits-per-page request size.
func WithHostingPageSize(n int) HostingOption {
	return func(h *Hosting) { h.pageSize = n }
}

// WithHostingMaxRetries sets the per-page retry count.
func WithHostingMaxRetries(n int) HostingOption {
	return func(h *Hosting) { h.maxRetries = n }
}

// WithHostingInitialDelay sets the initial retry delay.
func WithHostingInitialDelay(d time.Duration) HostingOption {
	return func(h *Hosting) { h.initialDelay = d }
}

// WithHostingTimeout sets the per-request timeout.
func WithHostingTimeout(d time.Duration) HostingOption {
	return func(h *Hosting) { h.timeout = d }
}

// NewHostingWith creates a Hosting config from defaults plus options.
func NewHostingWith(opts ...HostingOption) Hosting {
	h := NewHosting()
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

// BaseURL returns the provider API base URL.
func (h Hosting) BaseURL() string { return h.baseURL }

// Token returns the default access token.
func (h Hosting) Token() string { return h.token }

// PageSize returns the commits-per-page request size.
func (h Hosting) PageSize() int { return h.pageSize }

// MaxRetries returns the per-page retry count.
func (h Hosting) MaxRetries() int { return h.maxRetries }

// InitialDelay returns the initial retry delay.
func (h Hosting) InitialDelay() time.Duration { return h.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (h Hosting) BackoffFactor() float64 { return h.backoffFactor }

// Timeout returns the per-request timeout.
func (h Hosting) Timeout() time.Duration { return h.timeout }

// Indexing configures chunking and embedding behaviour.
type Indexing struct {
	chunkSize    int
	chunkOverlap int
	chunkMinSize int
	batchSize    int
	parallelism  int
	maxFileBytes int64
}

// NewIndexing creates an Indexing config with defaults.
func NewIndexing() Indexing {
	return Indexing{
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
		chunkMinSize: DefaultChunkMinSize,
		batchSize:    DefaultEmbedBatchSize,
		parallelism:  DefaultEmbedParallelism,
		maxFileBytes: DefaultMaxFileBytes,
	}
}

// IndexingOption configures an Indexing value.
type IndexingOption func(*Indexing)

// WithChunkSize sets the target chunk size in runes.
func WithChunkSize(n int) IndexingOption {
	return func(i *Indexing) { i.chunkSize = n }
}

// WithChunkOverlap sets the chunk overlap in runes.
func WithChunkOverlap(n int) IndexingOption {
	return func(i *Indexing) { i.chunkOverlap = n }
}

// WithChunkMinSize sets the minimum chunk size in runes.
func WithChunkMinSize(n int) IndexingOption {
	return func(i *Indexing) { i.chunkMinSize = n }
}

// WithEmbedBatchSize sets the number of chunks per embedding request.
func WithEmbedBatchSize(n int) IndexingOption {
	return func(i *Indexing) { i.batchSize = n }
}

// WithEmbedParallelism sets the number of concurrent embedding batches.
func WithEmbedParallelism(n int) IndexingOption {
	return func(i *Indexing) { i.parallelism = n }
}

// WithMaxFileBytes sets the maximum indexable file size.
func WithMaxFileBytes(n int64) IndexingOption {
	return func(i *Indexing) { i.maxFileBytes = n }
}

// NewIndexingWith creates an Indexing config from defaults plus options.
func NewIndexingWith(opts ...IndexingOption) Indexing {
	i := NewIndexing()
	for _, opt := range opts {
		opt(&i)
	}
	return i
}

// ChunkSize returns the target chunk size in runes.
func (i Indexing) ChunkSize() int { return i.chunkSize }

// ChunkOverlap returns the chunk overlap in runes.
func (i Indexing) ChunkOverlap() int { return i.chunkOverlap }

// ChunkMinSize returns the minimum chunk size in runes.
func (i Indexing) ChunkMinSize() int { return i.chunkMinSize }

// BatchSize returns the number of chunks per embedding request.
func (i Indexing) BatchSize() int { return i.batchSize }

// Parallelism returns the number of concurrent embedding batches.
func (i Indexing) Parallelism() int { return i.parallelism }

// MaxFileBytes returns the maximum indexable file size.
func (i Indexing) MaxFileBytes() int64 { return i.maxFileBytes }

// AppConfig is the resolved application configuration.
type AppConfig struct {
	host         string
	port         int
	dataDir      string
	dbURL        string
	logLevel     string
	logFormat    LogFormat
	cloneSubdir  string
	maxDiffChars int

	hosting         Hosting
	summaryEndpoint Endpoint
	embedEndpoint   Endpoint
	indexing        Indexing
}

// Host returns the server host.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port.
func (c AppConfig) Port() int { return c.port }

// Addr returns the host:port listen address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL, defaulting to a SQLite file
// under the data directory.
func (c AppConfig) DBURL() string {
	if c.dbURL != "" {
		return c.dbURL
	}
	return "sqlite:///" + filepath.Join(c.dataDir, "commitsense.db")
}

// LogLevel returns the log verbosity level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log output format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// CloneDir returns the directory that holds repository working copies.
func (c AppConfig) CloneDir() string {
	return filepath.Join(c.dataDir, c.cloneSubdir)
}

// MaxDiffChars returns the maximum diff excerpt length passed to the
// summary endpoint.
func (c AppConfig) MaxDiffChars() int { return c.maxDiffChars }

// Hosting returns the hosting provider configuration.
func (c AppConfig) Hosting() Hosting { return c.hosting }

// SummaryEndpoint returns the summary AI endpoint configuration.
func (c AppConfig) SummaryEndpoint() Endpoint { return c.summaryEndpoint }

// EmbeddingEndpoint returns the embedding AI endpoint configuration.
func (c AppConfig) EmbeddingEndpoint() Endpoint { return c.embedEndpoint }

// Indexing returns the chunking/embedding configuration.
func (c AppConfig) Indexing() Indexing { return c.indexing }

// WithHost returns a copy with the host replaced.
func (c AppConfig) WithHost(host string) AppConfig {
	if host != "" {
		c.host = host
	}
	return c
}

// WithPort returns a copy with the port replaced.
func (c AppConfig) WithPort(port int) AppConfig {
	if port > 0 {
		c.port = port
	}
	return c
}

// EnsureDataDir creates the data directory if it does not exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureCloneDir creates the clone directory if it does not exist.
func (c AppConfig) EnsureCloneDir() error {
	return os.MkdirAll(c.CloneDir(), 0o755)
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c AppConfig) Validate() error {
	if c.indexing.chunkOverlap >= c.indexing.chunkSize {
		return fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			c.indexing.chunkOverlap, c.indexing.chunkSize)
	}
	if c.hosting.baseURL != "" && !strings.HasPrefix(c.hosting.baseURL, "http") {
		return fmt.Errorf("hosting base url must be an http(s) URL, got %q", c.hosting.baseURL)
	}
	return nil
}
