package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
)

// HTTPDispatcher triggers the job executor through a repository dispatch
// call: POST <base>/repos/<owner>/<repo>/dispatches with a token credential.
// Any 2xx status, including 204 No Content, is a successful trigger.
type HTTPDispatcher struct {
	client  *http.Client
	baseURL string
	token   string
	owner   string
	repo    string
	logger  observability.Logger
}

// NewHTTPDispatcher creates a dispatcher for the executor's trigger endpoint.
func NewHTTPDispatcher(cfg *config.ExecutorConfig, logger observability.Logger) *HTTPDispatcher {
	return &HTTPDispatcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		logger:  logger,
	}
}

// Dispatch sends the event. It makes exactly one attempt.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, event DispatchEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode dispatch event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/dispatches", d.baseURL, d.owner, d.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build trigger request: %w", err)
	}
	req.Header.Set("Authorization", "token "+d.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("trigger call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		d.logger.Error(ctx, "executor rejected trigger", fmt.Errorf("status %d", resp.StatusCode), observability.Fields{
			"status":   resp.StatusCode,
			"endpoint": endpoint,
		})
		return fmt.Errorf("executor rejected trigger: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	d.logger.Info(ctx, "dispatch event delivered", observability.Fields{
		"event_type": event.EventType,
		"status":     resp.StatusCode,
	})

	return nil
}
