package platforms

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autoactions/download-action/handler"
)

// HTTPAdapter adapts the handler for standard HTTP servers. It is the
// direct-trigger entry point for the transfer worker: a POST with a JSON
// body such as {"download_url": "..."} runs one transfer synchronously.
type HTTPAdapter struct {
	handler *handler.Handler
}

// NewHTTPAdapter creates a new HTTP adapter with the provided handler.
func NewHTTPAdapter(h *handler.Handler) *HTTPAdapter {
	return &HTTPAdapter{handler: h}
}

// ServeHTTP implements the http.Handler interface.
func (a *HTTPAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if a.isHealthCheck(r.URL.Path) {
		a.handleHealth(w, r)
		return
	}

	body, err := a.readBody(r)
	if err != nil {
		a.writeResponse(w, handler.NewErrorResponse(
			uuid.New().String(),
			"INVALID_REQUEST",
			"Failed to read request body",
			err.Error(),
		), nil)
		return
	}

	req := a.buildRequest(r, body)

	resp, err := a.handler.Handle(r.Context(), req)

	a.writeResponse(w, resp, err)
}

// isHealthCheck checks if the path is a health check endpoint
func (a *HTTPAdapter) isHealthCheck(path string) bool {
	switch path {
	case "/health", "/healthz", "/ready", "/readyz", "/live", "/livez":
		return true
	}
	return false
}

// handleHealth handles health check requests
func (a *HTTPAdapter) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := a.handler.Health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"worker": a.handler.Worker().Name(),
		"time":   time.Now().UTC(),
	})
}

// readBody reads and validates the request body
func (a *HTTPAdapter) readBody(r *http.Request) ([]byte, error) {
	maxSize := a.handler.Config().MaxRequestSize
	if maxSize <= 0 {
		maxSize = 1024 * 1024
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxSize)
	defer r.Body.Close()

	return io.ReadAll(r.Body)
}

// buildRequest creates a platform-agnostic request from the HTTP request
func (a *HTTPAdapter) buildRequest(r *http.Request, body []byte) handler.Request {
	requestID := a.extractRequestID(r)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	requestType := r.Header.Get("X-Request-Type")
	if requestType == "" {
		// The first path segment names the event type; default to the
		// worker's primary event.
		path := strings.Trim(r.URL.Path, "/")
		if idx := strings.Index(path, "/"); idx > 0 {
			path = path[:idx]
		}
		if path != "" {
			requestType = path
		} else {
			requestType = "download_file"
		}
	}

	metadata := map[string]string{
		"http_method": r.Method,
		"http_path":   r.URL.Path,
		"http_host":   r.Host,
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		metadata["user_agent"] = ua
	}

	return handler.Request{
		ID:        requestID,
		Source:    "http",
		Type:      requestType,
		Payload:   json.RawMessage(body),
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
}

// extractRequestID attempts to extract a request ID from common headers
func (a *HTTPAdapter) extractRequestID(r *http.Request) string {
	headers := []string{
		"X-Request-ID",
		"X-Request-Id",
		"X-Correlation-ID",
		"X-Correlation-Id",
	}

	for _, header := range headers {
		if id := r.Header.Get(header); id != "" {
			return id
		}
	}

	return ""
}

// writeResponse writes the handler response as an HTTP response
func (a *HTTPAdapter) writeResponse(w http.ResponseWriter, resp handler.Response, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", resp.ID)

	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(handler.NewErrorResponse(
			resp.ID,
			"INTERNAL_ERROR",
			"Request processing failed",
			err.Error(),
		))
		return
	}

	w.WriteHeader(a.determineStatusCode(resp))
	json.NewEncoder(w).Encode(resp)
}

// determineStatusCode maps a response to an HTTP status code
func (a *HTTPAdapter) determineStatusCode(resp handler.Response) int {
	if resp.Success {
		return http.StatusOK
	}

	if resp.Error == nil {
		return http.StatusInternalServerError
	}

	switch resp.Error.Code {
	case "VALIDATION_ERROR", "INVALID_REQUEST", "INVALID_PAYLOAD":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	case "SERVICE_UNAVAILABLE":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Serve starts an HTTP server with the adapter.
// This is a convenience method for quick setup.
func (a *HTTPAdapter) Serve(addr string) error {
	return http.ListenAndServe(addr, a)
}
