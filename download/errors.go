package download

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies download failures. All kinds are fatal to the
// enclosing transfer job once the engine's retry budget is spent.
type ErrorKind string

const (
	KindNetwork          ErrorKind = "network"
	KindTimeout          ErrorKind = "timeout"
	KindServerRejected   ErrorKind = "server_rejected"
	KindRetriesExhausted ErrorKind = "retries_exhausted"
)

// Error is a classified download failure.
type Error struct {
	Kind   ErrorKind
	Status int // HTTP status for server_rejected, zero otherwise
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServerRejected:
		return fmt.Sprintf("download failed: server rejected request with status %d: %v", e.Status, e.Err)
	default:
		return fmt.Sprintf("download failed (%s): %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with the given kind.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// NewServerRejectedError wraps a non-success HTTP status.
func NewServerRejectedError(status int, err error) *Error {
	return &Error{Kind: KindServerRejected, Status: status, Err: err}
}

// exhaustedError marks a request that failed every attempt in the retry
// budget.
type exhaustedError struct {
	op       string
	attempts int
	err      error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.op, e.attempts, e.err)
}

func (e *exhaustedError) Unwrap() error {
	return e.err
}

// Classify maps an arbitrary error onto an ErrorKind. Already-classified
// errors pass through unchanged.
func Classify(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}

	var ee *exhaustedError
	if errors.As(err, &ee) {
		return NewError(KindRetriesExhausted, err)
	}

	var se *statusError
	if errors.As(err, &se) {
		return NewServerRejectedError(se.status, err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewError(KindTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, err)
	}

	return NewError(KindNetwork, err)
}
