// Package download implements the segmented download engine: a bounded
// pool of range-request workers that split one file into concurrent
// segments, with resume support through a control file written next to
// the partial download.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/autoactions/download-action/config"
	"github.com/autoactions/download-action/observability"
)

// Result describes a completed download.
type Result struct {
	Path      string
	Bytes     int64
	Segmented bool
	Resumed   bool
}

// Engine downloads one file at a time, internally parallelized across
// range segments.
type Engine struct {
	client  *Client
	cfg     config.DownloadConfig
	logger  observability.Logger
	metrics observability.Metrics
}

// NewEngine creates an engine with the configured bounds.
func NewEngine(cfg config.DownloadConfig, obs observability.Provider) *Engine {
	client := NewClient(ClientOptions{
		ConnectTimeout:  cfg.ConnectTimeout,
		TransferTimeout: cfg.TransferTimeout,
		RetryAttempts:   cfg.MaxRetries,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
		MaxConnsPerHost: cfg.MaxConnections,
		UserAgent:       cfg.UserAgent,
	})

	return &Engine{
		client:  client,
		cfg:     cfg,
		logger:  obs.Logger("download.engine"),
		metrics: obs.Metrics("download.engine"),
	}
}

// Download fetches url into dir under the given filename. An existing file
// with the same name is overwritten so retries of the same job stay
// idempotent; a partial download with a matching control file is resumed
// instead.
func (e *Engine) Download(ctx context.Context, url, dir, filename string) (*Result, error) {
	start := time.Now()
	e.metrics.StartOperation("download")
	defer func() {
		e.metrics.EndOperation("download")
		e.metrics.RecordDuration("download", time.Since(start).Seconds())
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("create destination dir: %w", err))
	}
	filePath := filepath.Join(dir, filename)

	info, err := e.client.Head(ctx, url)
	if err != nil {
		e.metrics.RecordError("download", string(Classify(err).Kind))
		return nil, Classify(err)
	}

	e.logger.Info(ctx, "starting download", observability.Fields{
		"url":            url,
		"path":           filePath,
		"size":           info.Size,
		"accepts_ranges": info.AcceptsRanges,
	})

	var result *Result
	if info.AcceptsRanges && info.Size >= 2*e.cfg.MinSegmentSize {
		result, err = e.downloadSegmented(ctx, url, filePath, info)
		if errors.Is(err, ErrRangeNotSupported) {
			// probe lied about range support, fall back to one stream
			result, err = e.downloadSingle(ctx, url, filePath, info)
		}
	} else {
		result, err = e.downloadSingle(ctx, url, filePath, info)
	}
	if err != nil {
		classified := Classify(err)
		e.metrics.RecordError("download", string(classified.Kind))
		e.logger.Error(ctx, "download failed", classified, observability.Fields{
			"url":  url,
			"kind": string(classified.Kind),
		})
		return nil, classified
	}

	e.metrics.RecordSuccess("download")
	e.metrics.RecordFileSize("download", result.Bytes)
	e.logger.Info(ctx, "download complete", observability.Fields{
		"path":      result.Path,
		"bytes":     result.Bytes,
		"segmented": result.Segmented,
		"resumed":   result.Resumed,
	})

	return result, nil
}

// downloadSegmented transfers the file as concurrent range segments.
func (e *Engine) downloadSegmented(ctx context.Context, url, filePath string, info *FileInfo) (*Result, error) {
	segments := planSegments(info.Size, e.cfg.MaxSegments, e.cfg.MinSegmentSize)

	st := loadState(filePath, url, info.ETag, info.Size)
	resumed := st != nil && st.matchesSegmentation(segments) && fileSize(filePath) > 0
	if !resumed {
		st = newState(filePath, url, info.ETag, info.Size, segments)
	}

	flags := os.O_RDWR | os.O_CREATE
	if !resumed {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(filePath, flags, 0o644)
	if err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("open destination file: %w", err))
	}
	defer f.Close()

	if err := f.Truncate(info.Size); err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("preallocate destination file: %w", err))
	}

	workers := e.cfg.MaxConnections
	if workers > len(segments) {
		workers = len(segments)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Segment)
	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		errMu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		errMu.Unlock()
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seg := range jobs {
				if st.isCompleted(seg.Index) {
					continue
				}
				if err := e.downloadSegment(ctx, url, f, seg); err != nil {
					fail(err)
					return
				}
				if err := st.markCompleted(seg.Index); err != nil {
					e.logger.Warn(ctx, "failed to persist resume state", observability.Fields{
						"segment": seg.Index,
						"error":   err.Error(),
					})
				}
			}
		}()
	}

feed:
	for _, seg := range segments {
		select {
		case jobs <- seg:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindNetwork, err)
	}

	if err := f.Sync(); err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("sync destination file: %w", err))
	}
	st.remove()

	return &Result{Path: filePath, Bytes: info.Size, Segmented: true, Resumed: resumed}, nil
}

// downloadSegment fetches one byte range and writes it at its offset.
func (e *Engine) downloadSegment(ctx context.Context, url string, f *os.File, seg Segment) error {
	resp, err := e.client.GetRange(ctx, url, seg.Start, seg.End)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	n, err := io.Copy(io.NewOffsetWriter(f, seg.Start), io.LimitReader(resp.Body, seg.Length()))
	if err != nil {
		return fmt.Errorf("write segment %d: %w", seg.Index, err)
	}
	if n != seg.Length() {
		return fmt.Errorf("segment %d truncated: got %d of %d bytes", seg.Index, n, seg.Length())
	}

	return nil
}

// downloadSingle transfers the file over one connection. Used for small
// files and servers without range support.
func (e *Engine) downloadSingle(ctx context.Context, url, filePath string, info *FileInfo) (*Result, error) {
	body, err := e.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	f, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("open destination file: %w", err))
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return nil, fmt.Errorf("write destination file: %w", err)
	}
	if info.Size > 0 && n != info.Size {
		return nil, NewError(KindNetwork, fmt.Errorf("short download: got %d of %d bytes", n, info.Size))
	}

	if err := f.Sync(); err != nil {
		return nil, NewError(KindNetwork, fmt.Errorf("sync destination file: %w", err))
	}

	return &Result{Path: filePath, Bytes: n}, nil
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
