package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across usecases. ErrNotFound deliberately covers both
// "does not exist" and "exists but owned by someone else" so that ownership is
// never disclosed through error shape.
var (
	ErrEmptyDocument     = errors.New("document contains no extractable text")
	ErrMissingQuery      = errors.New("query text is required")
	ErrNotFound          = errors.New("resource not found")
	ErrIndexInconsistent = errors.New("index returned a chunk with unresolvable metadata")
)

// ExternalError wraps a failure of an external capability (embedding,
// generation, vector store). Permanent failures (bad credentials, exhausted
// quota) are surfaced immediately; transient ones only after the retry budget
// is spent.
type ExternalError struct {
	Capability string // "embedding", "generation", "vector-index"
	Permanent  bool
	Err        error
}

func (e *ExternalError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s capability failed (%s): %v", e.Capability, kind, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// EmbeddingError reports which slice of the input batch failed, so callers can
// tell partial progress from total failure.
type EmbeddingError struct {
	BatchStart int
	BatchEnd   int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding batch [%d:%d] failed: %v", e.BatchStart, e.BatchEnd, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// IsPermanent reports whether err (anywhere in the chain) is a permanent
// external failure that must not be retried.
func IsPermanent(err error) bool {
	var ext *ExternalError
	return errors.As(err, &ext) && ext.Permanent
}
