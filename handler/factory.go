package handler

import (
	"os"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
)

// Factory creates handlers with the standard middleware stack. This is the
// recommended entry point for wiring a worker into a platform adapter.
type Factory struct {
	worker     Worker
	provider   observability.Provider
	handlerCfg config.HandlerConfig
}

// NewFactory creates a new handler factory with sensible defaults.
func NewFactory(worker Worker, provider observability.Provider) *Factory {
	return &Factory{
		worker:     worker,
		provider:   provider,
		handlerCfg: config.DefaultHandlerConfig(),
	}
}

// WithHandlerConfig sets custom handler configuration.
func (f *Factory) WithHandlerConfig(cfg config.HandlerConfig) *Factory {
	f.handlerCfg = cfg
	return f
}

// Create creates a handler for the detected or configured platform.
func (f *Factory) Create() *Handler {
	if f.handlerCfg.Platform == "" || f.handlerCfg.Platform == "auto" {
		f.handlerCfg.Platform = DetectPlatform()
	}

	handler := NewHandler(f.worker, f.provider, &f.handlerCfg)

	f.applyDefaultMiddleware(handler)

	return handler
}

// applyDefaultMiddleware adds the standard middleware stack. There is no
// retry middleware: the relay trigger is at-most-once and the transfer
// engines retry internally.
func (f *Factory) applyDefaultMiddleware(handler *Handler) {
	// Recovery middleware (outermost - catches all panics)
	handler.Use(RecoveryMiddleware(f.provider))

	if f.handlerCfg.Timeout > 0 {
		handler.Use(TimeoutMiddleware(f.handlerCfg.Timeout))
	}

	if f.handlerCfg.EnableMetrics {
		handler.Use(MetricsMiddleware(f.provider))
	}

	handler.Use(LoggingMiddleware(f.provider))

	handler.Use(ValidationMiddleware())
}

// DetectPlatform attempts to detect the runtime platform from environment.
func DetectPlatform() string {
	// Lambda runtime indicators
	if _, exists := os.LookupEnv("AWS_LAMBDA_FUNCTION_NAME"); exists {
		return "lambda"
	}
	if _, exists := os.LookupEnv("AWS_LAMBDA_RUNTIME_API"); exists {
		return "lambda"
	}

	// RabbitMQ consumer mode is opt-in via configuration
	if os.Getenv("HANDLER_PLATFORM") == "rabbitmq" {
		return "rabbitmq"
	}

	// Default to HTTP
	return "http"
}
