package scoringservice

import (
	"context"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedding"
	"github.com/cenkalti/backoff/v5"
)

// embeddingBackOff waits BackoffBase, 2*BackoffBase, ... between attempts.
func (s *ScoringService) embeddingBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval: s.cfg.BackoffBase,
		Multiplier:      2,
		MaxInterval:     s.cfg.BackoffBase * time.Duration(1<<uint(s.cfg.RetryAttempts)),
	}
}

// embedWithRetry stops immediately on non-retryable errors.
func (s *ScoringService) embedWithRetry(ctx context.Context, payload string) ([]float64, error) {
	attempt := 0
	vec, err := backoff.Retry(ctx, func() ([]float64, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()

		vec, err := s.embedder.Embed(attemptCtx, payload)
		if err == nil {
			return vec, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		if !embedding.IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(uint(s.cfg.RetryAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			if s.metrics != nil {
				s.metrics.RecordEmbeddingRetry(ctx)
			}
			s.logger.WarnContext(ctx, "Embedding attempt failed",
				attr.Int("attempt", attempt),
				attr.Int("max_attempts", s.cfg.RetryAttempts),
				attr.String("retry_in", next.String()),
				attr.Error(err),
			)
		}),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return vec, nil
}
