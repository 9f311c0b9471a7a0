package audit

import "errors"

var (
	// ErrEventValidation indicates a malformed audit event.
	ErrEventValidation = errors.New("audit: invalid event")

	// ErrStorageClosed indicates the storage no longer accepts events.
	ErrStorageClosed = errors.New("audit: storage closed")
)
