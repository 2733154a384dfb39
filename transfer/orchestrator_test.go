package transfer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/download"
	"github.com/autoactions/download-action/observability/mocks"
	storagemocks "github.com/autoactions/download-action/storage/mocks"
	"github.com/autoactions/download-action/storage/types"
	"github.com/autoactions/download-action/upload"
)

// fakeDownloader writes a file of the configured size, or fails.
type fakeDownloader struct {
	size  int64
	err   error
	calls int
}

func (f *fakeDownloader) Download(ctx context.Context, url, dir, filename string) (*download.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, make([]byte, f.size), 0o644); err != nil {
		return nil, err
	}
	return &download.Result{Path: path, Bytes: f.size}, nil
}

// fakeUploader records the prefix it was asked to fill.
type fakeUploader struct {
	err    error
	calls  int
	prefix string
}

func (f *fakeUploader) Upload(ctx context.Context, localDir, remotePrefix string) (*upload.Report, error) {
	f.calls++
	f.prefix = remotePrefix
	if f.err != nil {
		return nil, f.err
	}
	return &upload.Report{FilesCopied: 1, BytesCopied: 4}, nil
}

func newTestOrchestrator(t *testing.T, d *fakeDownloader, u *fakeUploader, st types.ObjectStorage) *Orchestrator {
	t.Helper()

	o := NewOrchestrator(d, u, st, config.TransferConfig{BasePath: "uploads"}, t.TempDir(), mocks.NopProvider{})
	o.now = func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	}
	return o
}

func listableStorage() *storagemocks.MockObjectStorage {
	st := new(storagemocks.MockObjectStorage)
	st.On("List", mock.Anything, mock.Anything).Return([]types.ObjectInfo{{Key: "uploads/2024-06-01/file.zip", Size: 4}}, nil)
	return st
}

func TestOrchestrator_SuccessfulJob(t *testing.T) {
	downloader := &fakeDownloader{size: 4}
	uploader := &fakeUploader{}

	o := newTestOrchestrator(t, downloader, uploader, listableStorage())
	job, err := o.Run(context.Background(), "https://example.com/file.zip?x=1")
	require.NoError(t, err)

	assert.Equal(t, "file.zip", job.LocalFilename)
	assert.Equal(t, "/uploads/2024-06-01/file.zip", job.DestinationPath)
	assert.Equal(t, "/uploads/2024-06-01", uploader.prefix)
	assert.True(t, job.UploadVerified)
	assert.Equal(t, StateUploaded, job.State)
	require.NotNil(t, job.Outcome)
	assert.True(t, job.Outcome.Succeeded)
}

func TestOrchestrator_DownloadFailureSkipsUpload(t *testing.T) {
	downloader := &fakeDownloader{err: download.NewError(download.KindRetriesExhausted, errors.New("gave up"))}
	uploader := &fakeUploader{}

	o := newTestOrchestrator(t, downloader, uploader, listableStorage())
	job, err := o.Run(context.Background(), "https://example.com/file.zip")
	require.Error(t, err)

	assert.Equal(t, StateFailed, job.State)
	require.NotNil(t, job.Outcome)
	assert.Equal(t, StageDownload, job.Outcome.Stage)
	assert.Equal(t, 0, uploader.calls, "upload must never run after a failed download")
}

func TestOrchestrator_EmptyDownloadIsDownloadStageFailure(t *testing.T) {
	downloader := &fakeDownloader{size: 0} // engine "succeeds" with a zero-byte file
	uploader := &fakeUploader{}

	o := newTestOrchestrator(t, downloader, uploader, listableStorage())
	job, err := o.Run(context.Background(), "https://example.com/file.zip")
	require.Error(t, err)

	require.NotNil(t, job.Outcome)
	assert.Equal(t, StageDownload, job.Outcome.Stage)
	assert.Equal(t, 0, uploader.calls)
}

func TestOrchestrator_UploadFailureLeavesLocalBytes(t *testing.T) {
	downloader := &fakeDownloader{size: 4}
	uploader := &fakeUploader{err: fmt.Errorf("precondition: %w", upload.ErrDestinationUnreachable)}

	o := newTestOrchestrator(t, downloader, uploader, listableStorage())
	job, err := o.Run(context.Background(), "https://example.com/file.zip")
	require.Error(t, err)

	require.NotNil(t, job.Outcome)
	assert.Equal(t, StageUpload, job.Outcome.Stage)
	assert.Contains(t, job.Outcome.Reason, "destination unreachable")

	// downloaded bytes stay on disk for manual recovery
	matches, globErr := filepath.Glob(filepath.Join(o.workDir, "*", "file.zip"))
	require.NoError(t, globErr)
	require.Len(t, matches, 1)
	info, statErr := os.Stat(matches[0])
	require.NoError(t, statErr)
	assert.Equal(t, int64(4), info.Size())
}

func TestOrchestrator_VerificationFailureIsSoft(t *testing.T) {
	downloader := &fakeDownloader{size: 4}
	uploader := &fakeUploader{}

	st := new(storagemocks.MockObjectStorage)
	st.On("List", mock.Anything, mock.Anything).Return(nil, errors.New("listing blew up"))

	o := newTestOrchestrator(t, downloader, uploader, st)
	job, err := o.Run(context.Background(), "https://example.com/file.zip")
	require.NoError(t, err, "a failed verification listing must not fail the job")

	assert.False(t, job.UploadVerified)
	require.NotNil(t, job.Outcome)
	assert.True(t, job.Outcome.Succeeded)
}

func TestOrchestrator_GeneratedFilenameForBareURL(t *testing.T) {
	downloader := &fakeDownloader{size: 4}
	uploader := &fakeUploader{}

	o := newTestOrchestrator(t, downloader, uploader, listableStorage())
	job, err := o.Run(context.Background(), "https://example.com/")
	require.NoError(t, err)

	assert.Contains(t, job.LocalFilename, "download-")
	assert.Contains(t, job.DestinationPath, "/uploads/2024-06-01/download-")
}
