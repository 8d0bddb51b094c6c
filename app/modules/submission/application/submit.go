package submissionservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/cenkalti/backoff/v5"
	"github.com/uptrace/bun"
)

type submitResult = results.OperationResult[*SubmitResponse, *SubmitFailure]

func submitFailure(code FailureCode, reason string) submitResult {
	return results.FailureResult[*SubmitResponse, *SubmitFailure](&SubmitFailure{Code: code, Reason: reason})
}

// Submit runs generate, score and record for one attempt.
func (s *SubmissionService) Submit(ctx context.Context, req SubmitRequest) (submitResult, error) {
	return withTelemetry(s, ctx, "Submit", userIdentifier(req.User.ID, req.ChallengeID), func(ctx context.Context) (submitResult, error) {
		return s.submitLogic(ctx, req)
	})
}

func (s *SubmissionService) submitLogic(ctx context.Context, req SubmitRequest) (submitResult, error) {
	prompt := strings.TrimSpace(req.UserPrompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > s.cfg.MaxPromptLength {
		return submitFailure(CodeInvalidPrompt, "invalid prompt"), nil
	}
	if req.ChallengeID <= 0 {
		return submitFailure(CodeChallengeNotFound, "challenge not found"), nil
	}

	challenge, err := s.challenges.GetByID(ctx, s.idb(), req.ChallengeID)
	if err != nil {
		if errors.Is(err, challengedb.ErrNotFound) {
			return submitFailure(CodeChallengeNotFound, "challenge not found"), nil
		}
		return submitResult{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	used, err := s.ledger.GetAttemptsUsed(ctx, s.idb(), req.User.ID, req.ChallengeID)
	if err != nil {
		return submitResult{}, fmt.Errorf("failed to read attempt counter: %w", err)
	}
	if submissiondb.Remaining(used) == 0 {
		return submitFailure(CodeNoAttemptsRemaining, "no attempts remaining"), nil
	}

	imageURL, err := s.generator.Generate(ctx, prompt, generation.Params{
		Seed:           s.cfg.GenerationParams.Seed,
		NegativePrompt: s.cfg.GenerationParams.NegativePrompt,
	})
	if err != nil {
		s.recordGeneration(ctx, generationStatus(err))
		s.logger.ErrorContext(ctx, "Image generation failed",
			attr.Int64("user_id", req.User.ID),
			attr.Int64("challenge_id", req.ChallengeID),
			attr.Int("attempt", used+1),
			attr.Error(err),
		)
		return submitFailure(CodeGenerationFailed, "generation failed"), nil
	}
	s.recordGeneration(ctx, "success")

	// The provider call has been paid for; finish scoring and recording even
	// if the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.PipelineTimeout)
	defer cancel()

	scored, err := s.scorer.ScoreSubmission(ctx, challenge.ToDomain(), imageURL)
	if err != nil {
		return submitResult{}, fmt.Errorf("failed to score submission: %w", err)
	}
	if !scored.IsSuccess() {
		return submitResult{}, errors.New("scorer returned no outcome")
	}
	outcome := *scored.Success

	rec, err := s.recordWithRetry(ctx, submissiondb.AttemptInput{
		UserID:            req.User.ID,
		ChallengeID:       req.ChallengeID,
		Prompt:            prompt,
		GeneratedImageURL: imageURL,
		Score:             outcome.Score,
	})
	if err != nil {
		if errors.Is(err, submissiondb.ErrAttemptsExhausted) {
			return submitFailure(CodeNoAttemptsRemaining, "no attempts remaining"), nil
		}
		if s.metrics != nil {
			s.metrics.RecordLedgerFailure(ctx)
		}
		s.logger.ErrorContext(ctx, "Failed to record scored submission",
			attr.Int64("user_id", req.User.ID),
			attr.Int64("challenge_id", req.ChallengeID),
			attr.Int("attempt", used+1),
			attr.Float64("score", outcome.Score),
			attr.String("generated_image_url", imageURL),
			attr.Error(err),
		)
		return submitResult{}, fmt.Errorf("failed to record submission: %w", err)
	}

	s.logger.InfoContext(ctx, "Submission recorded",
		attr.Int64("user_id", req.User.ID),
		attr.Int64("challenge_id", req.ChallengeID),
		attr.Int64("submission_id", rec.SubmissionID),
		attr.Float64("score", outcome.Score),
		attr.Bool("fallback_used", outcome.FallbackUsed),
		attr.Bool("new_personal_best", rec.NewPersonalBest),
		attr.Int("attempts_used", rec.AttemptsUsed),
	)

	return results.SuccessResult[*SubmitResponse, *SubmitFailure](&SubmitResponse{
		SubmissionID:      rec.SubmissionID,
		Score:             outcome.Score,
		GeneratedImageURL: imageURL,
		AttemptsUsed:      rec.AttemptsUsed,
		AttemptsRemaining: rec.AttemptsRemaining,
		CanSubmit:         rec.AttemptsRemaining > 0,
		TotalScore:        rec.TotalScore,
		NewPersonalBest:   rec.NewPersonalBest,
	}), nil
}

// recordWithRetry writes the attempt, retrying infrastructure failures with a
// linear backoff. An exhausted counter is final.
func (s *SubmissionService) recordWithRetry(ctx context.Context, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (*submissiondb.AttemptRecord, error) {
		attempt++
		result, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*submissiondb.AttemptRecord, error], error) {
			rec, err := s.ledger.RecordAttempt(ctx, db, in)
			if err != nil {
				return results.OperationResult[*submissiondb.AttemptRecord, error]{}, err
			}
			return results.SuccessResult[*submissiondb.AttemptRecord, error](rec), nil
		})
		if err == nil {
			return *result.Success, nil
		}
		if errors.Is(err, submissiondb.ErrAttemptsExhausted) || errors.Is(err, submissiondb.ErrNoRowsAffected) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	},
		backoff.WithBackOff(s.backOff()),
		backoff.WithMaxTries(uint(s.cfg.LedgerAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.WarnContext(ctx, "Ledger write failed",
				attr.Int("attempt", attempt),
				attr.Int64("user_id", in.UserID),
				attr.Int64("challenge_id", in.ChallengeID),
				attr.String("retry_in", next.String()),
				attr.Error(err),
			)
		}),
	)
}

func (s *SubmissionService) recordGeneration(ctx context.Context, status string) {
	if s.metrics != nil {
		s.metrics.RecordGeneration(ctx, status)
	}
}

func generationStatus(err error) string {
	var (
		providerErr *generation.GenerationProviderError
		noImage     *generation.NoImageReturnedError
		pollTimeout *generation.PollingTimeoutError
	)
	switch {
	case errors.As(err, &providerErr):
		return "provider_error"
	case errors.As(err, &noImage):
		return "no_image"
	case errors.As(err, &pollTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// idb returns the service database as a bun.IDB, or nil when unset.
func (s *SubmissionService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}
