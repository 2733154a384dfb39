// Package types defines the object storage abstraction used by the
// upload engine and the transfer orchestrator's verification stage.
package types

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned when an object is not found in storage
var ErrObjectNotFound = errors.New("object not found")

// ObjectMetadata describes an object being stored or retrieved.
type ObjectMetadata struct {
	ContentType     string
	ContentLength   int64
	ContentEncoding string
	LastModified    time.Time
	ETag            string
	UserMetadata    map[string]string
}

// ObjectInfo describes an object returned by List.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectStorage abstracts the storage backend so the engines can be tested
// against mocks and swapped between S3-compatible providers.
type ObjectStorage interface {
	// Put stores an object under the given key.
	Put(ctx context.Context, key string, reader io.Reader, metadata ObjectMetadata) error

	// Get retrieves an object by key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the objects under the given prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes an object.
	Delete(ctx context.Context, key string) error

	// CheckReachable verifies the destination is reachable and listable.
	// The upload engine calls this before sending any data.
	CheckReachable(ctx context.Context) error
}
