package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Core settings
	Environment string
	ServiceName string
	LogLevel    string
	Version     string

	// Component configurations
	HTTP     HTTPConfig
	Handler  HandlerConfig
	Executor ExecutorConfig
	Download DownloadConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Transfer TransferConfig
	RabbitMQ RabbitMQConfig
}

// HTTPConfig holds HTTP server and client configuration
type HTTPConfig struct {
	Addr      string // Server address for HTTP mode
	Timeout   time.Duration
	UserAgent string
}

// HandlerConfig holds handler configuration
type HandlerConfig struct {
	Timeout        time.Duration
	MaxRequestSize int64
	EnableHealth   bool
	EnableMetrics  bool
	Platform       string // auto-detected if empty
}

// ExecutorConfig holds the job executor trigger configuration used by the relay.
// The relay dispatches either over HTTP (a repository-dispatch style endpoint
// authenticated with a token) or by publishing to an SQS queue.
type ExecutorConfig struct {
	Dispatcher string // "http" or "sqs"
	BaseURL    string
	Token      string
	Owner      string
	Repo       string
	QueueURL   string
	Region     string
	Timeout    time.Duration
}

// DownloadConfig holds segmented download engine configuration
type DownloadConfig struct {
	Dir             string // local workspace for downloaded files
	MaxConnections  int    // concurrent connections per transfer
	MaxSegments     int    // maximum number of byte-range segments
	MinSegmentSize  int64  // segments are never smaller than this
	MaxRetries      int    // attempts per request before giving up
	ConnectTimeout  time.Duration
	TransferTimeout time.Duration // overall bound for a single attempt
	UserAgent       string
}

// UploadConfig holds upload engine configuration
type UploadConfig struct {
	TransferConcurrency int // concurrent object transfers
	ListConcurrency     int // concurrent listing/metadata operations
	RequestsPerSecond   int // rate cap against the storage backend
	MaxFileRetries      int // coarse retries of a whole failed transfer
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Provider   string
	Timeout    time.Duration
	MaxRetries int // per-request retry attempts inside the storage client
	S3         S3Config
}

// S3Config holds S3-specific configuration
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // custom endpoint for S3-compatible backends
}

// TransferConfig holds transfer orchestrator configuration
type TransferConfig struct {
	BasePath string // base upload path; destination is <base>/<YYYY-MM-DD>/<file>
}

// RabbitMQConfig holds queue consumer configuration for the transfer worker
type RabbitMQConfig struct {
	URL           string
	Queue         string
	PrefetchCount int
	Timeout       time.Duration
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	var errors []string

	if c.ServiceName == "" {
		errors = append(errors, "SERVICE_NAME is required")
	}
	if c.HTTP.Timeout <= 0 {
		errors = append(errors, "HTTP_TIMEOUT must be positive")
	}
	if c.Handler.Timeout <= 0 {
		errors = append(errors, "HANDLER_TIMEOUT must be positive")
	}
	if c.Handler.MaxRequestSize <= 0 {
		errors = append(errors, "HANDLER_MAX_REQUEST_SIZE must be positive")
	}
	if c.Download.MaxConnections <= 0 {
		errors = append(errors, "DOWNLOAD_MAX_CONNECTIONS must be positive")
	}
	if c.Download.MaxSegments <= 0 {
		errors = append(errors, "DOWNLOAD_MAX_SEGMENTS must be positive")
	}
	if c.Download.MinSegmentSize <= 0 {
		errors = append(errors, "DOWNLOAD_MIN_SEGMENT_SIZE must be positive")
	}
	if c.Download.MaxRetries < 0 {
		errors = append(errors, "DOWNLOAD_MAX_RETRIES cannot be negative")
	}
	if c.Upload.TransferConcurrency <= 0 {
		errors = append(errors, "UPLOAD_TRANSFER_CONCURRENCY must be positive")
	}
	if c.Upload.ListConcurrency <= 0 {
		errors = append(errors, "UPLOAD_LIST_CONCURRENCY must be positive")
	}
	if c.Upload.RequestsPerSecond <= 0 {
		errors = append(errors, "UPLOAD_REQUESTS_PER_SECOND must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate checks that the executor trigger has everything it needs.
// A missing value here is a fail-closed condition for the relay: no
// dispatch may be attempted without complete credentials.
func (e *ExecutorConfig) Validate() error {
	var errors []string

	switch e.Dispatcher {
	case "http":
		if e.Token == "" {
			errors = append(errors, "EXECUTOR_TOKEN is required")
		}
		if e.Owner == "" {
			errors = append(errors, "EXECUTOR_OWNER is required")
		}
		if e.Repo == "" {
			errors = append(errors, "EXECUTOR_REPO is required")
		}
	case "sqs":
		if e.QueueURL == "" {
			errors = append(errors, "EXECUTOR_QUEUE_URL is required")
		}
	default:
		errors = append(errors, fmt.Sprintf("unsupported EXECUTOR_DISPATCHER: %q", e.Dispatcher))
	}

	if len(errors) > 0 {
		return fmt.Errorf("executor configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Validate checks transfer-side required values. The transfer worker must
// not start without a destination bucket and a base upload path.
func (t *TransferConfig) Validate(storage *StorageConfig) error {
	var errors []string

	if t.BasePath == "" {
		errors = append(errors, "BASE_UPLOAD_PATH is required")
	}
	if storage.S3.Bucket == "" {
		errors = append(errors, "S3_BUCKET is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("transfer configuration errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// Environment detection methods

// IsLocal returns true if running in local/development environment
func (c *Config) IsLocal() bool {
	env := strings.ToLower(c.Environment)
	return env == "local" || env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}

// IsTest returns true if running in test environment
func (c *Config) IsTest() bool {
	env := strings.ToLower(c.Environment)
	return env == "test" || env == "testing"
}
