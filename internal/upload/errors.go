package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSubmission means an identical submission by the same owner
	// landed inside the dedup window. Nothing was uploaded or written.
	ErrDuplicateSubmission = errors.New("duplicate submission")

	// ErrNotFound is returned by repositories when the target record does not
	// exist. Domain packages alias it so callers match on a single sentinel.
	ErrNotFound = errors.New("record not found")
)

// ValidationError reports a missing or malformed input field. The workflow
// stops before any upload happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UploadError wraps a blob write failure. No record was persisted and no
// cleanup is needed.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("blob upload failed: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// PersistError reports a record write failure after the blob was already
// uploaded. CleanupFailed is set when the compensating delete also failed,
// leaving an orphaned object in the store.
type PersistError struct {
	Err           error
	CleanupFailed bool
}

func (e *PersistError) Error() string {
	if e.CleanupFailed {
		return fmt.Sprintf("record write failed, orphaned blob left behind: %v", e.Err)
	}
	return fmt.Sprintf("record write failed: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
