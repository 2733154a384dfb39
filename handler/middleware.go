package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/observability/types"
)

// LoggingMiddleware adds structured logging to request processing.
func LoggingMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			logger := provider.Logger("handler")

			workerName, _ := ctx.Value("worker").(string)
			platform, _ := ctx.Value("platform").(string)

			requestLogger := logger.WithFields(types.Fields{
				"request_id": req.ID,
				"type":       req.Type,
				"source":     req.Source,
				"worker":     workerName,
				"platform":   platform,
			})

			requestLogger.Info(ctx, "Processing request", types.Fields{
				"payload_size": len(req.Payload),
			})

			start := time.Now()

			resp, err := next(ctx, req)

			duration := time.Since(start)

			if err != nil {
				requestLogger.Error(ctx, "Request failed with error", err, types.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			} else if !resp.Success {
				requestLogger.Warn(ctx, "Request completed with failure", types.Fields{
					"error_code":  resp.Error.Code,
					"error_msg":   resp.Error.Message,
					"duration_ms": duration.Milliseconds(),
				})
			} else {
				requestLogger.Info(ctx, "Request completed successfully", types.Fields{
					"duration_ms": duration.Milliseconds(),
				})
			}

			resp.Duration = duration

			return resp, err
		}
	}
}

// MetricsMiddleware records metrics for request processing.
func MetricsMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			metrics := provider.Metrics("handler")

			workerName, _ := ctx.Value("worker").(string)
			if workerName == "" {
				workerName = "unknown"
			}

			metrics.StartOperation(workerName)
			defer metrics.EndOperation(workerName)

			start := time.Now()

			resp, err := next(ctx, req)

			metrics.RecordDuration(workerName, time.Since(start).Seconds())

			if err != nil {
				metrics.RecordError(workerName, "processing_error")
			} else if !resp.Success {
				errorType := "unknown_error"
				if resp.Error != nil {
					errorType = resp.Error.Code
				}
				metrics.RecordError(workerName, errorType)
			} else {
				metrics.RecordSuccess(workerName)
			}

			return resp, err
		}
	}
}

// RecoveryMiddleware recovers from panics and returns an error response.
// This should be the outermost layer so it catches panics from the whole
// chain.
func RecoveryMiddleware(provider observability.Provider) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (resp Response, err error) {
			logger := provider.Logger("handler")
			metrics := provider.Metrics("handler")

			defer func() {
				if r := recover(); r != nil {
					logger.Error(ctx, "Panic recovered", fmt.Errorf("%v", r), types.Fields{
						"request_id": req.ID,
						"worker":     ctx.Value("worker"),
						"stack":      string(debug.Stack()),
					})

					metrics.RecordError("panic", "panic_recovered")

					// Don't expose panic details to the client
					resp = NewErrorResponse(
						req.ID,
						"INTERNAL_ERROR",
						"An internal error occurred",
						"",
					)

					err = fmt.Errorf("panic recovered: %v", r)
				}
			}()

			return next(ctx, req)
		}
	}
}

// TimeoutMiddleware enforces a timeout on request processing. If the
// timeout is exceeded it returns a timeout error response.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			type result struct {
				resp Response
				err  error
			}
			resultChan := make(chan result, 1)

			go func() {
				resp, err := next(timeoutCtx, req)
				resultChan <- result{resp, err}
			}()

			select {
			case res := <-resultChan:
				return res.resp, res.err

			case <-timeoutCtx.Done():
				return NewErrorResponse(
					req.ID,
					"TIMEOUT",
					"Request processing timed out",
					fmt.Sprintf("Exceeded timeout of %v", timeout),
				), timeoutCtx.Err()
			}
		}
	}
}

// ValidationMiddleware validates and enriches incoming requests. It ensures
// requests have required fields and adds defaults where needed.
func ValidationMiddleware() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req Request) (Response, error) {
			if req.ID == "" {
				req.ID = uuid.New().String()
			}

			if req.Timestamp.IsZero() {
				req.Timestamp = time.Now().UTC()
			}

			if req.Type == "" {
				return NewErrorResponse(
					req.ID,
					"VALIDATION_ERROR",
					"Request type is required",
					"Missing 'type' field in request",
				), nil
			}

			if len(req.Payload) == 0 {
				return NewErrorResponse(
					req.ID,
					"VALIDATION_ERROR",
					"Request payload is required",
					"Empty payload",
				), nil
			}

			if !json.Valid(req.Payload) {
				return NewErrorResponse(
					req.ID,
					"VALIDATION_ERROR",
					"Invalid JSON payload",
					"Payload must be valid JSON",
				), nil
			}

			if req.Metadata == nil {
				req.Metadata = make(map[string]string)
			}

			return next(ctx, req)
		}
	}
}
