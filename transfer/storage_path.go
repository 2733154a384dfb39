package transfer

import (
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoragePath computes the destination for one job:
// <base>/<YYYY-MM-DD>/<filename>. The date bucket comes from the job's
// start time, so every file of one job lands in the same bucket.
type StoragePath struct {
	Base       string
	DateBucket string
}

// NewStoragePath normalizes the base path and derives the date bucket
// from startedAt. The base always begins with a single "/" regardless of
// how it was configured.
func NewStoragePath(base string, startedAt time.Time) StoragePath {
	return StoragePath{
		Base:       NormalizeBasePath(base),
		DateBucket: startedAt.UTC().Format("2006-01-02"),
	}
}

// String returns the destination prefix without a filename.
func (p StoragePath) String() string {
	return path.Join(p.Base, p.DateBucket)
}

// For returns the full destination path for one filename.
func (p StoragePath) For(filename string) string {
	return path.Join(p.Base, p.DateBucket, filename)
}

// NormalizeBasePath trims surrounding whitespace and guarantees exactly
// one leading path separator and no trailing one.
func NormalizeBasePath(base string) string {
	base = strings.TrimSpace(base)
	base = strings.Trim(base, "/")
	return "/" + base
}

// ResolveFilename derives a local filename from the URL's path component,
// dropping the query string. URLs with no usable path segment get a
// generated name so the job proceeds instead of aborting.
func ResolveFilename(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err == nil {
		if name := path.Base(parsed.Path); name != "" && name != "." && name != "/" {
			return name
		}
	}
	return "download-" + uuid.New().String()
}
