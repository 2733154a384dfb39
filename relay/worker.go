package relay

import (
	"context"
	"time"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability"
)

// TriggerPayload is the worker's inbound payload shape.
type TriggerPayload struct {
	DownloadURL string `json:"download_url"`
}

// TriggerResult is the worker's success data.
type TriggerResult struct {
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Worker validates a trigger request and emits exactly one dispatch event.
type Worker struct {
	dispatcher Dispatcher
	cfg        *config.ExecutorConfig
	logger     observability.Logger
	metrics    observability.Metrics
	now        func() time.Time
}

// NewWorker creates the relay worker.
func NewWorker(dispatcher Dispatcher, cfg *config.ExecutorConfig, obs observability.Provider) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     obs.Logger("relay"),
		metrics:    obs.Metrics("relay"),
		now:        time.Now,
	}
}

// Name implements handler.Worker.
func (w *Worker) Name() string {
	return "relay"
}

// Health implements handler.Worker. The relay is healthy when its executor
// configuration is complete; it holds no connections of its own.
func (w *Worker) Health(ctx context.Context) error {
	return w.cfg.Validate()
}

// Process validates the URL and issues a single trigger call. It never
// retries: at-most-once trigger semantics from the relay's side.
func (w *Worker) Process(ctx context.Context, req handler.Request) (handler.Response, error) {
	var payload TriggerPayload
	if err := req.Unmarshal(&payload); err != nil {
		w.metrics.RecordError("trigger", "unmarshal_failed")
		return handler.NewErrorResponse(req.ID, "INVALID_REQUEST", "invalid trigger payload", err.Error()), nil
	}

	transferReq, err := NewTransferRequest(payload.DownloadURL, w.now())
	if err != nil {
		w.metrics.RecordError("trigger", "invalid_url")
		w.logger.Warn(ctx, "rejected trigger request", observability.Fields{
			"reason": err.Error(),
		})
		return handler.NewErrorResponse(req.ID, "INVALID_REQUEST", "invalid download URL", err.Error()), nil
	}

	if err := w.cfg.Validate(); err != nil {
		w.metrics.RecordError("trigger", "config_incomplete")
		return handler.NewErrorResponse(req.ID, "CONFIGURATION_ERROR", "executor configuration incomplete", err.Error()), nil
	}

	if err := w.dispatcher.Dispatch(ctx, transferReq.DispatchEvent()); err != nil {
		w.metrics.RecordError("trigger", "dispatch_failed")
		w.logger.Error(ctx, "trigger call failed", err, observability.Fields{
			"download_url": transferReq.SourceURL,
		})
		return handler.NewErrorResponse(req.ID, "DISPATCH_FAILED", "failed to trigger job executor", err.Error()), nil
	}

	w.metrics.RecordSuccess("trigger")
	w.logger.Info(ctx, "transfer triggered", observability.Fields{
		"download_url": transferReq.SourceURL,
	})

	return handler.NewSuccessResponse(req.ID, TriggerResult{
		URL:     transferReq.SourceURL,
		Message: "download job triggered",
	})
}
