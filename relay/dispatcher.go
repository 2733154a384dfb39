package relay

import (
	"context"
	"fmt"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
)

// Dispatcher delivers a dispatch event to the job executor. Implementations
// make exactly one delivery attempt per call; retry policy belongs to the
// caller of the relay, not to the relay itself.
type Dispatcher interface {
	Dispatch(ctx context.Context, event DispatchEvent) error
}

// NewDispatcher creates the dispatcher selected by configuration.
func NewDispatcher(cfg *config.ExecutorConfig, logger observability.Logger) (Dispatcher, error) {
	switch cfg.Dispatcher {
	case "http":
		return NewHTTPDispatcher(cfg, logger), nil
	case "sqs":
		return NewSQSDispatcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported dispatcher: %s", cfg.Dispatcher)
	}
}
