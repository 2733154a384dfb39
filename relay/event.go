// Package relay implements the public-facing trigger endpoint. It validates
// an inbound request, builds a dispatch event, and emits it to the job
// executor exactly once. The relay acknowledges the trigger only; transfer
// outcome is never reported back through it.
package relay

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// EventTypeDownloadFile is the event type consumed by the transfer worker.
const EventTypeDownloadFile = "download_file"

// TransferRequest is the validated inbound request. Immutable once created.
type TransferRequest struct {
	SourceURL  string    `json:"source_url"`
	ReceivedAt time.Time `json:"received_at"`
}

// ClientPayload is the payload carried inside a dispatch event.
type ClientPayload struct {
	DownloadURL string `json:"download_url"`
	Timestamp   string `json:"timestamp"`
}

// DispatchEvent is the wire format sent to the job executor.
type DispatchEvent struct {
	EventType     string        `json:"event_type"`
	ClientPayload ClientPayload `json:"client_payload"`
}

// NewTransferRequest validates the raw URL and builds a TransferRequest.
// The URL must be absolute with an http or https scheme and a host.
func NewTransferRequest(rawURL string, receivedAt time.Time) (*TransferRequest, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("source URL is empty")
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("source URL has no host")
	}

	return &TransferRequest{
		SourceURL:  trimmed,
		ReceivedAt: receivedAt.UTC(),
	}, nil
}

// DispatchEvent converts the request into its event wire format.
func (r *TransferRequest) DispatchEvent() DispatchEvent {
	return DispatchEvent{
		EventType: EventTypeDownloadFile,
		ClientPayload: ClientPayload{
			DownloadURL: r.SourceURL,
			Timestamp:   r.ReceivedAt.Format(time.RFC3339),
		},
	}
}
