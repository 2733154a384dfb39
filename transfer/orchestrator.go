package transfer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/download"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage/types"
	"github.com/autoactions/download-action/upload"
)

// Downloader is the download engine as the orchestrator sees it.
type Downloader interface {
	Download(ctx context.Context, url, dir, filename string) (*download.Result, error)
}

// Uploader is the upload engine as the orchestrator sees it.
type Uploader interface {
	Upload(ctx context.Context, localDir, remotePrefix string) (*upload.Report, error)
}

// Orchestrator runs one transfer job end to end.
type Orchestrator struct {
	downloader Downloader
	uploader   Uploader
	storage    types.ObjectStorage
	cfg        config.TransferConfig
	workDir    string
	logger     observability.Logger
	metrics    observability.Metrics
	now        func() time.Time
}

// NewOrchestrator wires the engines together.
func NewOrchestrator(
	downloader Downloader,
	uploader Uploader,
	storage types.ObjectStorage,
	cfg config.TransferConfig,
	workDir string,
	obs observability.Provider,
) *Orchestrator {
	return &Orchestrator{
		downloader: downloader,
		uploader:   uploader,
		storage:    storage,
		cfg:        cfg,
		workDir:    workDir,
		logger:     obs.Logger("transfer.orchestrator"),
		metrics:    obs.Metrics("transfer.orchestrator"),
		now:        time.Now,
	}
}

// Run executes one job for sourceURL and returns its terminal state. The
// returned job always carries an Outcome; the error mirrors the failure
// reason for callers that prefer error flow.
func (o *Orchestrator) Run(ctx context.Context, sourceURL string) (*Job, error) {
	job := NewJob(sourceURL, o.now())
	start := time.Now()
	o.metrics.StartOperation("transfer")
	defer func() {
		o.metrics.EndOperation("transfer")
		o.metrics.RecordDuration("transfer", time.Since(start).Seconds())
	}()

	ctx = context.WithValue(ctx, "job_id", uuid.New().String())

	// Stage 1: filename resolution. Falls back to a generated name for
	// URLs with no path segment, so this stage cannot fail.
	job.LocalFilename = ResolveFilename(sourceURL)

	jobDir := filepath.Join(o.workDir, job.StartedAt.UTC().Format("20060102T150405.000000000"))

	// Stage 2: download.
	job.State = StateDownloading
	result, err := o.downloader.Download(ctx, sourceURL, jobDir, job.LocalFilename)
	if err != nil {
		return o.finishFailed(ctx, job, StageDownload, err)
	}
	job.LocalBytes = result.Bytes
	job.State = StateDownloaded

	// Stage 3: non-empty check. A zero-byte result counts as a download
	// failure even when the engine reported success.
	if err := validateNonEmpty(jobDir); err != nil {
		return o.finishFailed(ctx, job, StageDownload, err)
	}

	// Stage 4: path resolution from the job's start time.
	storagePath := NewStoragePath(o.cfg.BasePath, job.StartedAt)
	job.DestinationPath = storagePath.For(job.LocalFilename)

	// Stage 5: upload. Downloaded bytes stay on disk on failure, for
	// manual inspection; the job environment is discarded anyway.
	job.State = StateUploading
	report, err := o.uploader.Upload(ctx, jobDir, storagePath.String())
	if err != nil {
		return o.finishFailed(ctx, job, StageUpload, err)
	}

	// Stage 6: verification. A failed listing logs and moves on; it is a
	// post-hoc sanity check, not a correctness gate.
	job.UploadVerified = o.verifyUpload(ctx, storagePath, report)

	outcome := job.succeed()
	o.metrics.RecordSuccess("transfer")
	o.logger.Info(ctx, "transfer job complete", observability.Fields{
		"source_url":  job.SourceURL,
		"destination": job.DestinationPath,
		"bytes":       job.LocalBytes,
		"files":       report.FilesCopied,
		"verified":    job.UploadVerified,
		"outcome":     outcome.String(),
	})

	return job, nil
}

func (o *Orchestrator) finishFailed(ctx context.Context, job *Job, stage Stage, err error) (*Job, error) {
	outcome := job.fail(stage, err)
	o.metrics.RecordError("transfer", string(stage))
	o.logger.Error(ctx, "transfer job failed", err, observability.Fields{
		"source_url": job.SourceURL,
		"stage":      string(stage),
		"outcome":    outcome.String(),
	})
	return job, fmt.Errorf("transfer failed at %s stage: %w", stage, err)
}

// verifyUpload lists the destination prefix and confirms the uploaded
// files are visible.
func (o *Orchestrator) verifyUpload(ctx context.Context, storagePath StoragePath, report *upload.Report) bool {
	prefix := listingPrefix(storagePath)
	objects, err := o.storage.List(ctx, prefix)
	if err != nil {
		o.logger.Warn(ctx, "destination listing failed, skipping verification", observability.Fields{
			"prefix": prefix,
			"error":  err.Error(),
		})
		return false
	}
	if len(objects) < report.FilesCopied {
		o.logger.Warn(ctx, "destination listing shows fewer files than uploaded", observability.Fields{
			"prefix":   prefix,
			"listed":   len(objects),
			"uploaded": report.FilesCopied,
		})
		return false
	}
	return true
}

// validateNonEmpty requires at least one file of non-zero size in dir.
func validateNonEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read download dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() > 0 {
			return nil
		}
	}

	return fmt.Errorf("download produced no non-empty files in %s", dir)
}

// listingPrefix converts the destination path into a rootless object key
// prefix, matching how the upload engine names keys.
func listingPrefix(storagePath StoragePath) string {
	p := storagePath.String()
	if len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	return p
}
