package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability"
)

// TriggerResponse is the JSON body returned to the relay's caller.
type TriggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Server exposes the trigger endpoint: the request path, percent-decoded,
// is the source URL to transfer. Responses are JSON with an open CORS
// origin so browser callers can consume them cross-origin.
type Server struct {
	handler *handler.Handler
	logger  observability.Logger
	server  *http.Server
}

// NewServer creates the relay's HTTP surface around a configured handler.
func NewServer(h *handler.Handler, obs observability.Provider) *Server {
	return &Server{
		handler: h,
		logger:  obs.Logger("relay.server"),
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)

	switch {
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case r.URL.Path == "/health" && r.Method == http.MethodGet:
		s.handleHealth(w, r)
		return
	case r.Method != http.MethodGet:
		writeTrigger(w, http.StatusMethodNotAllowed, TriggerResponse{
			Success: false,
			Message: "method not allowed",
			Error:   fmt.Sprintf("method %s is not supported", r.Method),
		})
		return
	}

	rawURL, err := extractSourceURL(r)
	if err != nil {
		writeTrigger(w, http.StatusBadRequest, TriggerResponse{
			Success: false,
			Message: "missing or malformed download URL",
			Error:   err.Error(),
		})
		return
	}

	req, err := buildTriggerRequest(rawURL)
	if err != nil {
		writeTrigger(w, http.StatusInternalServerError, TriggerResponse{
			Success: false,
			Message: "failed to build trigger request",
			Error:   err.Error(),
		})
		return
	}

	resp, err := s.handler.Handle(r.Context(), req)
	if err != nil {
		s.logger.Error(r.Context(), "trigger handling failed", err, observability.Fields{
			"request_id": req.ID,
		})
		writeTrigger(w, http.StatusInternalServerError, TriggerResponse{
			Success: false,
			Message: "failed to trigger job executor",
			Error:   err.Error(),
		})
		return
	}

	writeTrigger(w, statusForResponse(resp), triggerResponseFrom(resp, rawURL))
}

// extractSourceURL recovers the target URL from the request path. The raw
// request URI is used so percent-encoded slashes survive until we decode
// them ourselves; the query string belongs to the target URL and is kept.
func extractSourceURL(r *http.Request) (string, error) {
	raw := strings.TrimPrefix(r.RequestURI, "/")
	if raw == "" {
		return "", fmt.Errorf("request path is empty")
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode request path: %w", err)
	}
	if strings.TrimSpace(decoded) == "" {
		return "", fmt.Errorf("request path is empty")
	}

	return decoded, nil
}

func buildTriggerRequest(rawURL string) (handler.Request, error) {
	payload, err := json.Marshal(TriggerPayload{DownloadURL: rawURL})
	if err != nil {
		return handler.Request{}, fmt.Errorf("failed to encode trigger payload: %w", err)
	}

	return handler.Request{
		ID:        uuid.New().String(),
		Source:    "http",
		Type:      EventTypeDownloadFile,
		Payload:   payload,
		Timestamp: time.Now(),
	}, nil
}

func statusForResponse(resp handler.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	if resp.Error != nil && resp.Error.Code == "INVALID_REQUEST" {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func triggerResponseFrom(resp handler.Response, rawURL string) TriggerResponse {
	if resp.Success {
		out := TriggerResponse{
			Success: true,
			Message: "download job triggered",
			URL:     rawURL,
		}
		var result TriggerResult
		if len(resp.Data) > 0 && json.Unmarshal(resp.Data, &result) == nil {
			if result.URL != "" {
				out.URL = result.URL
			}
			if result.Message != "" {
				out.Message = result.Message
			}
		}
		return out
	}

	out := TriggerResponse{
		Success: false,
		Message: "failed to trigger job executor",
	}
	if resp.Error != nil {
		out.Message = resp.Error.Message
		out.Error = resp.Error.Details
		if out.Error == "" {
			out.Error = resp.Error.Message
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.handler.Health(r.Context()); err != nil {
		writeTrigger(w, http.StatusServiceUnavailable, TriggerResponse{
			Success: false,
			Message: "unhealthy",
			Error:   err.Error(),
		})
		return
	}
	writeTrigger(w, http.StatusOK, TriggerResponse{Success: true, Message: "healthy"})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeTrigger(w http.ResponseWriter, status int, body TriggerResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve starts the HTTP server and blocks until it stops.
func (s *Server) Serve(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info(context.Background(), "relay server listening", observability.Fields{
		"addr": addr,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("relay server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
