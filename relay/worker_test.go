package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability/mocks"
)

// stubDispatcher records dispatch calls and returns a fixed error.
type stubDispatcher struct {
	err   error
	calls int
}

func (d *stubDispatcher) Dispatch(ctx context.Context, event DispatchEvent) error {
	d.calls++
	return d.err
}

func executorConfig() *config.ExecutorConfig {
	return &config.ExecutorConfig{
		Dispatcher: "http",
		BaseURL:    "https://executor.example.com",
		Token:      "secret",
		Owner:      "acme",
		Repo:       "transfers",
		Timeout:    5 * time.Second,
	}
}

func newMetricsWorker(dispatcher Dispatcher, cfg *config.ExecutorConfig) (*Worker, *mocks.MockMetrics) {
	metrics := new(mocks.MockMetrics)
	provider := new(mocks.MockProvider)
	provider.On("Logger", mock.Anything).Return(mocks.NopLogger{})
	provider.On("Metrics", mock.Anything).Return(metrics)

	return NewWorker(dispatcher, cfg, provider), metrics
}

func triggerRequest(t *testing.T, url string) handler.Request {
	t.Helper()

	req, err := handler.NewRequest(EventTypeDownloadFile, TriggerPayload{DownloadURL: url})
	require.NoError(t, err)
	return req
}

func TestWorker_RecordsTriggerMetrics(t *testing.T) {
	t.Run("successful dispatch", func(t *testing.T) {
		dispatcher := &stubDispatcher{}
		worker, metrics := newMetricsWorker(dispatcher, executorConfig())
		metrics.On("RecordSuccess", "trigger").Return().Once()

		resp, err := worker.Process(context.Background(), triggerRequest(t, "https://example.com/file.zip"))

		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, 1, dispatcher.calls)
		metrics.AssertExpectations(t)
	})

	t.Run("failed dispatch", func(t *testing.T) {
		dispatcher := &stubDispatcher{err: errors.New("executor rejected trigger: status 401")}
		worker, metrics := newMetricsWorker(dispatcher, executorConfig())
		metrics.On("RecordError", "trigger", "dispatch_failed").Return().Once()

		resp, err := worker.Process(context.Background(), triggerRequest(t, "https://example.com/file.zip"))

		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Equal(t, "DISPATCH_FAILED", resp.Error.Code)
		metrics.AssertExpectations(t)
	})

	t.Run("invalid url", func(t *testing.T) {
		dispatcher := &stubDispatcher{}
		worker, metrics := newMetricsWorker(dispatcher, executorConfig())
		metrics.On("RecordError", "trigger", "invalid_url").Return().Once()

		resp, err := worker.Process(context.Background(), triggerRequest(t, "ftp://example.com/file.zip"))

		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Zero(t, dispatcher.calls)
		metrics.AssertExpectations(t)
	})

	t.Run("incomplete configuration fails closed", func(t *testing.T) {
		cfg := executorConfig()
		cfg.Token = ""
		dispatcher := &stubDispatcher{}
		worker, metrics := newMetricsWorker(dispatcher, cfg)
		metrics.On("RecordError", "trigger", "config_incomplete").Return().Once()

		resp, err := worker.Process(context.Background(), triggerRequest(t, "https://example.com/file.zip"))

		require.NoError(t, err)
		require.False(t, resp.Success)
		assert.Equal(t, "CONFIGURATION_ERROR", resp.Error.Code)
		assert.Zero(t, dispatcher.calls)
		metrics.AssertExpectations(t)
	})
}
