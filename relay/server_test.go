package relay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/handler"
	"github.com/autoactions/download-action/observability/mocks"
)

// newTestRelay wires a full relay (server, handler chain, worker, HTTP
// dispatcher) against a fake executor returning execStatus.
func newTestRelay(t *testing.T, execStatus int) (*Server, *int32, func()) {
	t.Helper()

	var calls int32
	executor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/acme/transfers/dispatches", r.URL.Path)
		assert.Equal(t, "token secret", r.Header.Get("Authorization"))

		var event DispatchEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		assert.Equal(t, EventTypeDownloadFile, event.EventType)
		assert.NotEmpty(t, event.ClientPayload.DownloadURL)
		assert.NotEmpty(t, event.ClientPayload.Timestamp)

		w.WriteHeader(execStatus)
	}))

	cfg := &config.ExecutorConfig{
		Dispatcher: "http",
		BaseURL:    executor.URL,
		Token:      "secret",
		Owner:      "acme",
		Repo:       "transfers",
		Timeout:    5 * time.Second,
	}

	obs := mocks.NopProvider{}
	dispatcher := NewHTTPDispatcher(cfg, obs.Logger("relay.dispatcher"))
	worker := NewWorker(dispatcher, cfg, obs)
	h := handler.NewFactory(worker, obs).Create()

	return NewServer(h, obs), &calls, executor.Close
}

func doTrigger(server *Server, target string) (*httptest.ResponseRecorder, TriggerResponse) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	var body TriggerResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestServer_TriggerSuccessOnNoContent(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusNoContent)
	defer cleanup()

	rec, body := doTrigger(server, "/https%3A%2F%2Fexample.com%2Ffile.zip")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "https://example.com/file.zip", body.URL)
	assert.Equal(t, "download job triggered", body.Message)
	assert.Empty(t, body.Error)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestServer_UnencodedURLKeepsQuery(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusOK)
	defer cleanup()

	rec, body := doTrigger(server, "/https://example.com/file.zip?x=1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, "https://example.com/file.zip?x=1", body.URL)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestServer_ExecutorRejectionIsServerError(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusUnauthorized)
	defer cleanup()

	rec, body := doTrigger(server, "/https%3A%2F%2Fexample.com%2Ffile.zip")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, body.Success)
	assert.Contains(t, body.Error, "401")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_EmptyPathRejectedWithoutDispatch(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusNoContent)
	defer cleanup()

	rec, body := doTrigger(server, "/")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestServer_MalformedURLRejectedWithoutDispatch(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusNoContent)
	defer cleanup()

	rec, body := doTrigger(server, "/not-a-url")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, body.Success)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestServer_PreflightGetsCORSHeaders(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusNoContent)
	defer cleanup()

	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestServer_MethodNotAllowed(t *testing.T) {
	server, calls, cleanup := newTestRelay(t, http.StatusNoContent)
	defer cleanup()

	req := httptest.NewRequest(http.MethodPost, "/https%3A%2F%2Fexample.com%2Ffile.zip", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}
