package config

import "time"

// DefaultHandlerConfig returns sensible defaults for handler configuration
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		Timeout:        15 * time.Minute,
		MaxRequestSize: 1024 * 1024,
		EnableHealth:   true,
		EnableMetrics:  true,
		Platform:       "", // Auto-detect
	}
}

// DefaultDownloadConfig returns sensible defaults for the download engine
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Dir:             "downloads",
		MaxConnections:  16,
		MaxSegments:     16,
		MinSegmentSize:  1024 * 1024,
		MaxRetries:      5,
		ConnectTimeout:  10 * time.Second,
		TransferTimeout: 600 * time.Second,
		UserAgent:       "download-action/1.0",
	}
}

// DefaultUploadConfig returns sensible defaults for the upload engine
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		TransferConcurrency: 4,
		ListConcurrency:     8,
		RequestsPerSecond:   10,
		MaxFileRetries:      3,
	}
}

// DefaultStorageConfig returns sensible defaults for storage configuration
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Provider:   "s3",
		Timeout:    30 * time.Second,
		MaxRetries: 10,
		S3: S3Config{
			Region: "us-east-2",
		},
	}
}

// DefaultConfig returns a complete configuration with sensible defaults.
// This is useful for testing or when you want to start with defaults and
// override specific parts.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		ServiceName: "download-action",
		LogLevel:    "info",
		Version:     "1.0.0",

		HTTP: HTTPConfig{
			Addr:      ":8080",
			Timeout:   30 * time.Second,
			UserAgent: "download-action/1.0",
		},
		Handler:  DefaultHandlerConfig(),
		Download: DefaultDownloadConfig(),
		Upload:   DefaultUploadConfig(),
		Storage:  DefaultStorageConfig(),
		Executor: ExecutorConfig{
			Dispatcher: "http",
			BaseURL:    "https://api.github.com",
			Timeout:    10 * time.Second,
		},
	}
}
