// Package upload implements the multi-threaded upload engine: bounded
// concurrent transfers with a request rate cap and two retry layers,
// coarse per-file retries here and fine-grained request retries inside
// the storage client.
package upload

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
	"github.com/autoactions/download-action/storage/types"
)

// Report summarizes a completed upload.
type Report struct {
	FilesCopied int
	BytesCopied int64
}

// fileJob is one local file queued for transfer.
type fileJob struct {
	localPath string
	key       string
	size      int64
}

// Engine copies a local directory tree to a remote prefix.
type Engine struct {
	storage    types.ObjectStorage
	cfg        config.UploadConfig
	limiter    *rateLimiter
	retryDelay time.Duration
	logger     observability.Logger
	metrics    observability.Metrics
}

// NewEngine creates an engine bound to a storage backend.
func NewEngine(storage types.ObjectStorage, cfg config.UploadConfig, obs observability.Provider) *Engine {
	return &Engine{
		storage:    storage,
		cfg:        cfg,
		limiter:    newRateLimiter(cfg.RequestsPerSecond),
		retryDelay: time.Second,
		logger:     obs.Logger("upload.engine"),
		metrics:    obs.Metrics("upload.engine"),
	}
}

// Upload copies every file under localDir to remotePrefix. The destination
// must answer a listing before any data is sent; a failed precondition
// aborts the whole upload with ErrDestinationUnreachable.
func (e *Engine) Upload(ctx context.Context, localDir, remotePrefix string) (*Report, error) {
	start := time.Now()
	e.metrics.StartOperation("upload")
	defer func() {
		e.metrics.EndOperation("upload")
		e.metrics.RecordDuration("upload", time.Since(start).Seconds())
	}()

	if err := e.checkDestination(ctx, remotePrefix); err != nil {
		e.metrics.RecordError("upload", "destination_unreachable")
		return nil, err
	}

	jobs, err := e.collectFiles(localDir, remotePrefix)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("no files to upload under %s", localDir)
	}

	report, failed := e.transferAll(ctx, jobs)

	switch {
	case len(failed) == 0:
		e.metrics.RecordSuccess("upload")
		e.logger.Info(ctx, "upload complete", observability.Fields{
			"files": report.FilesCopied,
			"bytes": report.BytesCopied,
		})
		return report, nil
	case report.FilesCopied > 0:
		e.metrics.RecordError("upload", "partial_copy")
		return report, fmt.Errorf("%w: %d of %d files failed: %v",
			ErrPartialCopy, len(failed), len(jobs), failed[0])
	default:
		e.metrics.RecordError("upload", "retries_exhausted")
		return report, fmt.Errorf("%w: all %d files failed: %v",
			ErrRetriesExhausted, len(jobs), failed[0])
	}
}

// checkDestination confirms the remote prefix answers a listing. The
// listing itself is discarded; only reachability matters here.
func (e *Engine) checkDestination(ctx context.Context, remotePrefix string) error {
	if err := e.storage.CheckReachable(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrDestinationUnreachable, err)
	}
	if _, err := e.storage.List(ctx, parentPrefix(remotePrefix)); err != nil {
		return fmt.Errorf("%w: listing failed: %v", ErrDestinationUnreachable, err)
	}
	return nil
}

// collectFiles walks localDir and builds the transfer queue.
func (e *Engine) collectFiles(localDir, remotePrefix string) ([]fileJob, error) {
	var jobs []fileJob

	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}

		jobs = append(jobs, fileJob{
			localPath: p,
			key:       objectKey(remotePrefix, rel),
			size:      info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk local dir: %w", err)
	}

	return jobs, nil
}

// transferAll runs the bounded worker pool over the queue. Listing and
// verification requests run under their own wider bound so cheap metadata
// calls do not queue behind data transfers.
func (e *Engine) transferAll(ctx context.Context, jobs []fileJob) (*Report, []error) {
	var (
		mu     sync.Mutex
		report Report
		failed []error
		wg     sync.WaitGroup
	)

	queue := make(chan fileJob)
	listSem := make(chan struct{}, e.cfg.ListConcurrency)

	workers := e.cfg.TransferConcurrency
	if workers < 1 {
		workers = 1
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range queue {
				err := e.transferFile(ctx, job, listSem)

				mu.Lock()
				if err != nil {
					failed = append(failed, err)
				} else {
					report.FilesCopied++
					report.BytesCopied += job.size
				}
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		queue <- job
	}
	close(queue)
	wg.Wait()

	return &report, failed
}

// transferFile uploads one file, retrying the whole transfer on failure.
func (e *Engine) transferFile(ctx context.Context, job fileJob, listSem chan struct{}) error {
	var lastErr error

	attempts := e.cfg.MaxFileRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * e.retryDelay):
			}
		}

		if err := e.putFile(ctx, job); err != nil {
			lastErr = err
			e.logger.Warn(ctx, "file transfer attempt failed", observability.Fields{
				"key":     job.key,
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		e.verifyFile(ctx, job, listSem)
		e.metrics.RecordFileSize("upload", job.size)
		return nil
	}

	return fmt.Errorf("transfer %s failed after %d attempts: %w", job.key, attempts, lastErr)
}

// putFile streams one local file to storage under the rate cap.
func (e *Engine) putFile(ctx context.Context, job fileJob) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}

	f, err := os.Open(job.localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", job.localPath, err)
	}
	defer f.Close()

	return e.storage.Put(ctx, job.key, f, types.ObjectMetadata{
		ContentType:   contentTypeFor(job.localPath),
		ContentLength: job.size,
	})
}

// verifyFile confirms the object landed. A failed check is logged but
// never fails the transfer; it is a sanity check, not a correctness gate.
func (e *Engine) verifyFile(ctx context.Context, job fileJob, listSem chan struct{}) {
	select {
	case listSem <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-listSem }()

	if err := e.limiter.Wait(ctx); err != nil {
		return
	}

	exists, err := e.storage.Exists(ctx, job.key)
	if err != nil || !exists {
		e.logger.Warn(ctx, "uploaded object not visible yet", observability.Fields{
			"key": job.key,
		})
	}
}

// objectKey joins the remote prefix and a relative local path into a
// storage key. Leading separators are dropped; object keys are rootless.
func objectKey(remotePrefix, rel string) string {
	key := path.Join(remotePrefix, filepath.ToSlash(rel))
	return strings.TrimPrefix(key, "/")
}

// parentPrefix returns the prefix one level above the target.
func parentPrefix(remotePrefix string) string {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(remotePrefix, "/"), "/")
	parent := path.Dir(trimmed)
	if parent == "." || parent == "/" {
		return ""
	}
	return parent
}

func contentTypeFor(localPath string) string {
	if ct := mime.TypeByExtension(filepath.Ext(localPath)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
