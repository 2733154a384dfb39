package upload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability/mocks"
	storagemocks "github.com/autoactions/download-action/storage/mocks"
	"github.com/autoactions/download-action/storage/types"
)

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		TransferConcurrency: 4,
		ListConcurrency:     8,
		RequestsPerSecond:   0, // no cap in tests
		MaxFileRetries:      3,
	}
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestEngine_UploadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"file.zip":        "aaaa",
		"nested/file.txt": "bb",
	})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)
	storage.On("Put", mock.Anything, "uploads/2024-06-01/file.zip", mock.Anything, mock.Anything).Return(nil)
	storage.On("Put", mock.Anything, "uploads/2024-06-01/nested/file.txt", mock.Anything, mock.Anything).Return(nil)
	storage.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	report, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesCopied)
	assert.Equal(t, int64(6), report.BytesCopied)
	storage.AssertExpectations(t)
}

func TestEngine_DestinationUnreachableAbortsBeforeData(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(errors.New("connection refused"))

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	_, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")

	require.ErrorIs(t, err, ErrDestinationUnreachable)
	storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_ListingFailureAbortsBeforeData(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("access denied"))

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	_, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")

	require.ErrorIs(t, err, ErrDestinationUnreachable)
	storage.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEngine_RetriesWholeTransfer(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("throttled")).Twice()
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()
	storage.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	engine.retryDelay = time.Millisecond
	report, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")
	require.NoError(t, err)

	assert.Equal(t, 1, report.FilesCopied)
	storage.AssertNumberOfCalls(t, "Put", 3)
}

func TestEngine_AllFilesFailingIsRetriesExhausted(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)
	storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("throttled"))

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	engine.retryDelay = time.Millisecond
	report, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")

	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 0, report.FilesCopied)
	storage.AssertNumberOfCalls(t, "Put", 3)
}

func TestEngine_PartialCopyReported(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"good.zip": "aaaa",
		"bad.zip":  "bbbb",
	})

	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)
	storage.On("Put", mock.Anything, "uploads/2024-06-01/good.zip", mock.Anything, mock.Anything).Return(nil)
	storage.On("Put", mock.Anything, "uploads/2024-06-01/bad.zip", mock.Anything, mock.Anything).
		Return(errors.New("checksum mismatch"))
	storage.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	engine.retryDelay = time.Millisecond
	report, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")

	require.ErrorIs(t, err, ErrPartialCopy)
	assert.Equal(t, 1, report.FilesCopied)
}

func TestEngine_EmptyDirIsAnError(t *testing.T) {
	storage := new(storagemocks.MockObjectStorage)
	storage.On("CheckReachable", mock.Anything).Return(nil)
	storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)

	engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
	_, err := engine.Upload(context.Background(), t.TempDir(), "/uploads/2024-06-01")
	assert.Error(t, err)
}

func TestRateLimiter_CapsRequestsPerWindow(t *testing.T) {
	limiter := newRateLimiter(10)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 11; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	// 11th request has to wait for the next one-second window
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestRateLimiter_ZeroLimitDisablesCap(t *testing.T) {
	limiter := newRateLimiter(0)
	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiter_RespectsContextCancellation(t *testing.T) {
	limiter := newRateLimiter(1)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, limiter.Wait(ctx), context.Canceled)
}

func TestEngine_RecordsMetricsByOperation(t *testing.T) {
	t.Run("success records operation and file sizes", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

		storage := new(storagemocks.MockObjectStorage)
		storage.On("CheckReachable", mock.Anything).Return(nil)
		storage.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{}, nil)
		storage.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
		storage.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

		metrics := new(mocks.MockMetrics)
		metrics.On("StartOperation", "upload").Return().Maybe()
		metrics.On("EndOperation", "upload").Return().Maybe()
		metrics.On("RecordDuration", "upload", mock.Anything).Return().Maybe()
		metrics.On("RecordSuccess", "upload").Return().Once()
		metrics.On("RecordFileSize", "upload", int64(4)).Return().Once()

		engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
		engine.metrics = metrics

		_, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")
		require.NoError(t, err)

		metrics.AssertExpectations(t)
	})

	t.Run("unreachable destination records operation and error", func(t *testing.T) {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"file.zip": "aaaa"})

		storage := new(storagemocks.MockObjectStorage)
		storage.On("CheckReachable", mock.Anything).Return(errors.New("no route to host"))

		metrics := new(mocks.MockMetrics)
		metrics.On("StartOperation", "upload").Return().Maybe()
		metrics.On("EndOperation", "upload").Return().Maybe()
		metrics.On("RecordDuration", "upload", mock.Anything).Return().Maybe()
		metrics.On("RecordError", "upload", "destination_unreachable").Return().Once()

		engine := NewEngine(storage, testUploadConfig(), mocks.NopProvider{})
		engine.metrics = metrics

		_, err := engine.Upload(context.Background(), dir, "/uploads/2024-06-01")
		require.ErrorIs(t, err, ErrDestinationUnreachable)

		metrics.AssertExpectations(t)
	})
}
