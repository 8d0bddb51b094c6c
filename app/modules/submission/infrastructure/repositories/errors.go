package submissiondb

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("submission not found")

	// ErrAttemptsExhausted indicates the counter is already at AttemptCap.
	// The transaction that observed it has been rolled back.
	ErrAttemptsExhausted = errors.New("no attempts remaining")

	// ErrNoRowsAffected indicates an UPDATE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)
