package submissionservice

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
)

// Service is the submission pipeline entry point.
//
// Error semantics for Submit:
//   - expected rejections (bad prompt, unknown challenge, no attempts left,
//     generation failure) are returned as a *SubmitFailure result
//   - an error means the ledger could not record a scored attempt, or the
//     request context ended before scoring started
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (results.OperationResult[*SubmitResponse, *SubmitFailure], error)
	GetAttemptCount(ctx context.Context, userID, challengeID int64) (AttemptCount, error)
	ListAttemptCounts(ctx context.Context, userID int64) ([]AttemptCount, error)
	ListMySubmissions(ctx context.Context, userID int64) ([]submissiondb.SubmissionView, error)
}

// Metrics is implemented by *observability.ModuleMetrics.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
	RecordGeneration(ctx context.Context, status string)
	RecordLedgerFailure(ctx context.Context)
}

// User is the authenticated caller.
type User struct {
	ID       int64
	Username string
}

type SubmitRequest struct {
	ChallengeID int64
	UserPrompt  string
	User        User
}

type SubmitResponse struct {
	SubmissionID      int64   `json:"id"`
	Score             float64 `json:"score"`
	GeneratedImageURL string  `json:"generated_image_url"`
	AttemptsUsed      int     `json:"attempts_used"`
	AttemptsRemaining int     `json:"attempts_remaining"`
	CanSubmit         bool    `json:"can_submit"`
	TotalScore        float64 `json:"total_score"`
	NewPersonalBest   bool    `json:"new_personal_best"`
}

// FailureCode classifies an expected Submit rejection.
type FailureCode string

const (
	CodeInvalidPrompt       FailureCode = "invalid_prompt"
	CodeChallengeNotFound   FailureCode = "challenge_not_found"
	CodeNoAttemptsRemaining FailureCode = "no_attempts_remaining"
	CodeGenerationFailed    FailureCode = "generation_failed"
)

// SubmitFailure is a user-presentable rejection. Reason never carries
// provider or database internals.
type SubmitFailure struct {
	Code   FailureCode `json:"code"`
	Reason string      `json:"reason"`
}

func (f *SubmitFailure) Error() string { return f.Reason }

// AttemptCount is a user's standing on one challenge.
type AttemptCount struct {
	ChallengeID       int64 `json:"challenge_id"`
	AttemptsUsed      int   `json:"attempts_used"`
	AttemptsRemaining int   `json:"attempts_remaining"`
	CanSubmit         bool  `json:"can_submit"`
}

// Config tunes the pipeline.
type Config struct {
	MaxPromptLength  int
	LedgerAttempts   int
	LedgerBackoff    time.Duration
	PipelineTimeout  time.Duration
	GenerationParams GenerationDefaults
}

// GenerationDefaults are per-request overrides passed to the generator.
type GenerationDefaults struct {
	Seed           *int
	NegativePrompt string
}
