package generation

import (
	"fmt"
	"time"
)

// GenerationProviderError is a transport failure, a non-2xx response or a
// job that finished as failed.
type GenerationProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *GenerationProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation provider error: %v", e.Err)
	}
	return fmt.Sprintf("generation provider http %d: %s", e.StatusCode, e.Body)
}

func (e *GenerationProviderError) Unwrap() error { return e.Err }

// NoImageReturnedError means the provider answered 2xx without an image URL.
type NoImageReturnedError struct{}

func (e *NoImageReturnedError) Error() string { return "no image returned" }

// PollingTimeoutError means a job did not reach a terminal state in time.
type PollingTimeoutError struct {
	JobID   string
	Polls   int
	Elapsed time.Duration
}

func (e *PollingTimeoutError) Error() string {
	return fmt.Sprintf("generation job %s not finished after %d polls (%s)", e.JobID, e.Polls, e.Elapsed.Round(time.Millisecond))
}
