package scoringservice

import (
	"context"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	scoringdomain "github.com/Black-And-White-Club/promptduel/app/modules/scoring/domain"
)

// Service scores a generated image against a challenge reference.
//
// Error semantics:
//   - fetch and embedding failures never surface as errors; they produce a
//     fallback outcome with FallbackUsed set.
//   - an error is returned only when the caller's context is done.
type Service interface {
	ScoreSubmission(ctx context.Context, challenge scoringdomain.Challenge, generatedImageURL string) (results.OperationResult[scoringdomain.ScoreOutcome, error], error)
}

// Metrics is implemented by *observability.ModuleMetrics.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, d time.Duration)
	RecordFallback(ctx context.Context, reason string)
	RecordEmbeddingRetry(ctx context.Context)
	RecordScore(ctx context.Context, score float64)
}

// Config tunes retries and the fallback score.
type Config struct {
	FallbackScore  float64
	RetryAttempts  int
	BackoffBase    time.Duration
	AttemptTimeout time.Duration
	CacheKeyLen    int
}
