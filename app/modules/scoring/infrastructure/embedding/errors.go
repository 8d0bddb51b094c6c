package embedding

import (
	"errors"
	"fmt"
)

// EmbeddingServiceError reports a failed call to the remote embedding
// service: transport failure, timeout or a non-2xx status.
type EmbeddingServiceError struct {
	StatusCode int // 0 when no response was received
	Body       string
	Timeout    bool
	Err        error
}

func (e *EmbeddingServiceError) Error() string {
	switch {
	case e.Timeout:
		return "embedding service timed out"
	case e.StatusCode != 0:
		return fmt.Sprintf("embedding service returned status %d: %s", e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("embedding service call failed: %v", e.Err)
	}
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// InvalidEmbeddingError reports a vector that came back empty, all zero or
// with non-finite components.
type InvalidEmbeddingError struct {
	Reason string
}

func (e *InvalidEmbeddingError) Error() string {
	return "invalid embedding: " + e.Reason
}

// IsRetryable reports whether err is a transient embedding failure worth
// another attempt.
func IsRetryable(err error) bool {
	var svcErr *EmbeddingServiceError
	if errors.As(err, &svcErr) {
		// 4xx other than 408/429 means the request itself is bad.
		if svcErr.StatusCode >= 400 && svcErr.StatusCode < 500 &&
			svcErr.StatusCode != 408 && svcErr.StatusCode != 429 {
			return false
		}
		return true
	}
	var invalid *InvalidEmbeddingError
	return errors.As(err, &invalid)
}
