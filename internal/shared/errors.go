package shared

import "errors"

var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the input failed validation before any write.
	ErrValidation = errors.New("validation failed")
	// ErrTransactionConflict indicates the storage transaction lost a write
	// conflict and was rolled back; the operation is safe to retry.
	ErrTransactionConflict = errors.New("transaction conflict")
)
