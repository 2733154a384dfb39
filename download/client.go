package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrRangeNotSupported signals the server cannot serve byte ranges; the
// engine falls back to a single-stream transfer.
var ErrRangeNotSupported = errors.New("download: server does not support range requests")

// statusError carries a non-success HTTP status through the retry loop.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.status)
}

// ClientOptions configures the range-capable HTTP client.
type ClientOptions struct {
	// ConnectTimeout bounds connection establishment per attempt.
	ConnectTimeout time.Duration

	// TransferTimeout bounds a whole request, headers to last byte.
	TransferTimeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	RetryBackoff time.Duration

	// RetryMaxBackoff caps the exponential backoff.
	RetryMaxBackoff time.Duration

	// MaxConnsPerHost bounds concurrent connections to one server.
	MaxConnsPerHost int

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

// DefaultClientOptions returns options with the engine's standard bounds.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		ConnectTimeout:  10 * time.Second,
		TransferTimeout: 600 * time.Second,
		RetryAttempts:   5,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
		MaxConnsPerHost: 16,
	}
}

// FileInfo contains metadata about a remote file.
type FileInfo struct {
	Size          int64
	ETag          string
	AcceptsRanges bool
	ContentType   string
}

// RangeResponse is the open body of a satisfied range request.
type RangeResponse struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Client is an HTTP client tuned for large segmented downloads. Requests
// are retried with exponential backoff and jitter on transient failures;
// client errors from the server are returned without retry.
type Client struct {
	client *http.Client
	opts   ClientOptions
}

// NewClient creates a client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 600 * time.Second
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = 16
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.RetryMaxBackoff <= 0 {
		opts.RetryMaxBackoff = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: opts.ConnectTimeout,
		}).DialContext,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		MaxIdleConnsPerHost: opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		// raw bytes: transparent gzip would corrupt range offsets
		DisableCompression: true,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.TransferTimeout,
		},
		opts: opts,
	}
}

// Head probes the remote file for size and range support. Some servers
// reject HEAD; a failed probe with status 405 falls back to a zero-byte
// ranged GET.
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := c.newRequest(ctx, http.MethodHead, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 500 {
			lastErr = &statusError{status: resp.StatusCode}
			continue
		}
		if resp.StatusCode == http.StatusMethodNotAllowed {
			return c.probeWithRangedGet(ctx, url)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &statusError{status: resp.StatusCode}
		}

		return &FileInfo{
			Size:          resp.ContentLength,
			ETag:          cleanETag(resp.Header.Get("ETag")),
			AcceptsRanges: strings.EqualFold(resp.Header.Get("Accept-Ranges"), "bytes"),
			ContentType:   resp.Header.Get("Content-Type"),
		}, nil
	}

	return nil, &exhaustedError{op: "head request", attempts: c.opts.RetryAttempts + 1, err: lastErr}
}

// probeWithRangedGet asks for the first byte to learn size and range support.
func (c *Client) probeWithRangedGet(ctx context.Context, url string) (*FileInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	info := &FileInfo{
		ETag:        cleanETag(resp.Header.Get("ETag")),
		ContentType: resp.Header.Get("Content-Type"),
		Size:        -1,
	}

	if resp.StatusCode == http.StatusPartialContent {
		info.AcceptsRanges = true
		if _, _, total, err := ParseContentRange(resp.Header.Get("Content-Range")); err == nil {
			info.Size = total
		}
		return info, nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		info.Size = resp.ContentLength
		return info, nil
	}

	return nil, &statusError{status: resp.StatusCode}
}

// GetRange requests an inclusive byte range.
func (c *Client) GetRange(ctx context.Context, url string, startByte, endByte int64) (*RangeResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", startByte, endByte))

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &statusError{status: resp.StatusCode}
			continue
		}
		if resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
			resp.Body.Close()
			return nil, ErrRangeNotSupported
		}
		// 200 without Content-Range means the server ignored the header
		if resp.StatusCode == http.StatusOK && resp.Header.Get("Content-Range") == "" {
			resp.Body.Close()
			return nil, ErrRangeNotSupported
		}
		if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &statusError{status: resp.StatusCode}
		}

		return &RangeResponse{
			Body:          resp.Body,
			ContentLength: resp.ContentLength,
		}, nil
	}

	return nil, &exhaustedError{op: "range request", attempts: c.opts.RetryAttempts + 1, err: lastErr}
}

// Get performs a plain GET for single-stream transfers.
func (c *Client) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := c.newRequest(ctx, http.MethodGet, url)
		if err != nil {
			return nil, err
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = &statusError{status: resp.StatusCode}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return nil, &statusError{status: resp.StatusCode}
		}

		return resp.Body, nil
	}

	return nil, &exhaustedError{op: "get request", attempts: c.opts.RetryAttempts + 1, err: lastErr}
}

func (c *Client) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	return req, nil
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// cleanETag removes the weak prefix and quotes from an ETag value.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}

// ParseContentRange parses a Content-Range header value. Total is -1 when
// the server reports an unknown length.
func ParseContentRange(header string) (start, end, total int64, err error) {
	header = strings.TrimPrefix(header, "bytes ")
	slash := strings.IndexByte(header, '/')
	if slash < 0 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	rangePart, totalPart := header[:slash], header[slash+1:]
	dash := strings.IndexByte(rangePart, '-')
	if dash < 0 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err = strconv.ParseInt(rangePart[:dash], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	end, err = strconv.ParseInt(rangePart[dash+1:], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if totalPart == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(totalPart, 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
		}
	}

	return start, end, total, nil
}
