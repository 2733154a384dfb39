package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransferRequest_Valid(t *testing.T) {
	receivedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	req, err := NewTransferRequest("https://example.com/file.zip?x=1", receivedAt)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/file.zip?x=1", req.SourceURL)
	assert.Equal(t, receivedAt, req.ReceivedAt)
}

func TestNewTransferRequest_TrimsWhitespace(t *testing.T) {
	req, err := NewTransferRequest("  https://example.com/f.bin  ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/f.bin", req.SourceURL)
}

func TestNewTransferRequest_Rejections(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"whitespace":    "   ",
		"no scheme":     "example.com/file.zip",
		"wrong scheme":  "ftp://example.com/file.zip",
		"no host":       "https:///file.zip",
		"relative path": "/file.zip",
		"bare word":     "health",
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewTransferRequest(raw, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestDispatchEvent_WireFormat(t *testing.T) {
	receivedAt := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	req, err := NewTransferRequest("https://example.com/file.zip", receivedAt)
	require.NoError(t, err)

	data, err := json.Marshal(req.DispatchEvent())
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"event_type": "download_file",
		"client_payload": {
			"download_url": "https://example.com/file.zip",
			"timestamp": "2024-06-01T12:30:45Z"
		}
	}`, string(data))
}
