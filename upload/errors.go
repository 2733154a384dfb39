package upload

import "errors"

// Engine-level failures. All abort the enclosing transfer job.
var (
	// ErrDestinationUnreachable means the precondition listing check
	// failed; no bytes were sent.
	ErrDestinationUnreachable = errors.New("upload: destination unreachable")

	// ErrPartialCopy means some files copied and some exhausted their
	// retries.
	ErrPartialCopy = errors.New("upload: partial copy")

	// ErrRetriesExhausted means no file could be copied within the retry
	// budget.
	ErrRetriesExhausted = errors.New("upload: retries exhausted")
)
