// Package types defines the contracts for structured logging and metrics
// collection used by every component of the download-action services.
package types

import (
	"context"
	"io"
)

// Logger defines the contract for structured logging.
// Implementations emit JSON-formatted output suitable for log aggregation.
// All methods are context-aware so request and job identifiers can be
// extracted and correlated automatically.
type Logger interface {
	// Info logs an informational message.
	Info(ctx context.Context, msg string, fields Fields)

	// Error logs an error message with the associated error.
	Error(ctx context.Context, msg string, err error, fields Fields)

	// Warn logs a potentially harmful situation that doesn't prevent operation.
	Warn(ctx context.Context, msg string, fields Fields)

	// Debug logs detailed information useful during development.
	// These messages are typically filtered out in production.
	Debug(ctx context.Context, msg string, fields Fields)

	// WithFields returns a new Logger that includes the given fields in
	// every subsequent log entry. Useful for adding consistent context
	// like request or job IDs.
	WithFields(fields Fields) Logger
}

// Metrics defines the contract for metrics collection.
// Implementations provide Prometheus-compatible metrics for monitoring
// and alerting.
type Metrics interface {
	// RecordSuccess increments the success counter for an operation type.
	RecordSuccess(operationType string)

	// RecordError increments the error counter for an operation and error type.
	RecordError(operationType string, errorType string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, duration float64)

	// RecordFileSize records the size of transferred files in bytes.
	RecordFileSize(fileType string, bytes int64)

	// StartOperation increments the in-progress gauge for an operation.
	// Must be paired with EndOperation to maintain accurate counts.
	StartOperation(operation string)

	// EndOperation decrements the in-progress gauge for an operation.
	// Should be called in a defer so it runs even on errors.
	EndOperation(operation string)
}

// Fields represents structured logging fields as key-value pairs.
// Values can be any type that is JSON-serializable.
type Fields map[string]interface{}

// Config holds observability configuration for the provider.
type Config struct {
	// ServiceName identifies the service in logs and metrics.
	ServiceName string

	// Environment specifies the deployment environment
	// ("development", "staging", "production").
	Environment string

	// LogLevel sets the minimum log level to output
	// ("debug", "info", "warn", "error").
	LogLevel string

	// LogOutput specifies where logs should be written.
	// If nil, defaults to os.Stdout.
	LogOutput io.Writer

	// AdditionalFields are fields included in every log entry,
	// e.g. version or region.
	AdditionalFields Fields
}

// Provider manages the lifecycle of observability components. It acts as a
// factory for Logger and Metrics instances; multiple calls with the same
// component name return the same instance.
type Provider interface {
	// Logger returns a Logger instance for the specified component.
	Logger(component string) Logger

	// Metrics returns a Metrics instance for the specified component.
	Metrics(component string) Metrics

	// Close shuts down the provider and releases all resources.
	Close() error
}
