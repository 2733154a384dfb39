package transfer

import (
	"context"
	"strings"

	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability"
)

// JobPayload is the worker's inbound payload. Both the dispatch event's
// client payload and the direct manual trigger carry this shape.
type JobPayload struct {
	DownloadURL string `json:"download_url"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// JobResult is the worker's success data.
type JobResult struct {
	SourceURL   string `json:"source_url"`
	Destination string `json:"destination"`
	Bytes       int64  `json:"bytes"`
	Verified    bool   `json:"verified"`
}

// Worker runs the orchestrator for each dispatch event.
type Worker struct {
	orchestrator *Orchestrator
	logger       observability.Logger
	metrics      observability.Metrics
}

// NewWorker creates the transfer worker.
func NewWorker(orchestrator *Orchestrator, obs observability.Provider) *Worker {
	return &Worker{
		orchestrator: orchestrator,
		logger:       obs.Logger("transfer.worker"),
		metrics:      obs.Metrics("transfer.worker"),
	}
}

// Name implements handler.Worker.
func (w *Worker) Name() string {
	return "transfer"
}

// Health implements handler.Worker.
func (w *Worker) Health(ctx context.Context) error {
	return w.orchestrator.storage.CheckReachable(ctx)
}

// Process runs one transfer job. Stage failures are terminal; the event
// is not retryable since re-running the same URL needs a fresh trigger.
func (w *Worker) Process(ctx context.Context, req handler.Request) (handler.Response, error) {
	var payload JobPayload
	if err := req.Unmarshal(&payload); err != nil {
		w.metrics.RecordError("transfer", "unmarshal_failed")
		return handler.NewErrorResponse(req.ID, "INVALID_REQUEST", "invalid job payload", err.Error()), nil
	}

	sourceURL := strings.TrimSpace(payload.DownloadURL)
	if sourceURL == "" {
		w.metrics.RecordError("transfer", "missing_url")
		return handler.NewErrorResponse(req.ID, "INVALID_REQUEST", "download_url is required", ""), nil
	}

	w.logger.Info(ctx, "processing transfer job", observability.Fields{
		"download_url": sourceURL,
		"dispatched":   payload.Timestamp,
	})

	job, err := w.orchestrator.Run(ctx, sourceURL)
	if err != nil {
		stage := ""
		if job != nil && job.Outcome != nil {
			stage = string(job.Outcome.Stage)
		}
		return handler.NewErrorResponse(req.ID, "TRANSFER_FAILED", "transfer failed at "+stage+" stage", err.Error()), nil
	}

	return handler.NewSuccessResponse(req.ID, JobResult{
		SourceURL:   job.SourceURL,
		Destination: job.DestinationPath,
		Bytes:       job.LocalBytes,
		Verified:    job.UploadVerified,
	})
}
