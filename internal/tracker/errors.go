package tracker

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a referenced project or block that does not exist
// or is archived. Surfaced to the caller as a client error, never retried.
var ErrNotFound = errors.New("not found")

// ErrSyncInProgress is returned when a sync is requested for a project
// that is already being synced by this process.
var ErrSyncInProgress = errors.New("sync already in progress")

// ProviderError is a failed remote fetch (document or images). It carries
// the upstream HTTP-like status so callers can surface it as-is. The
// orchestrator never retries automatically.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.Status, e.Message)
}

// ValidationError is malformed input to a creation or update operation,
// rejected before any store mutation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
