package scoringservice

import (
	"context"
	"strconv"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	scoringdomain "github.com/Black-And-White-Club/promptduel/app/modules/scoring/domain"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedcache"
	"golang.org/x/sync/errgroup"
)

type scoreResult = results.OperationResult[scoringdomain.ScoreOutcome, error]

// ScoreSubmission compares the generated image with the challenge reference.
// Fetch failures and exhausted embedding retries yield the configured
// fallback score.
func (s *ScoringService) ScoreSubmission(ctx context.Context, challenge scoringdomain.Challenge, generatedImageURL string) (scoreResult, error) {
	return withTelemetry(s, ctx, "ScoreSubmission", strconv.FormatInt(challenge.ID, 10), func(ctx context.Context) (scoreResult, error) {
		return s.scoreSubmissionLogic(ctx, challenge, generatedImageURL)
	})
}

func (s *ScoringService) scoreSubmissionLogic(ctx context.Context, challenge scoringdomain.Challenge, generatedImageURL string) (scoreResult, error) {
	var (
		refPayload, genPayload string
		refErr, genErr         error
	)

	// Each goroutine keeps its own error so one failed fetch does not cancel
	// the other and the fallback reason stays precise.
	var g errgroup.Group
	g.Go(func() error {
		refPayload, refErr = s.resolver.ResolveToBase64(ctx, challenge.ReferenceImageLocator)
		return nil
	})
	g.Go(func() error {
		genPayload, genErr = s.resolver.ResolveToBase64(ctx, generatedImageURL)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return scoreResult{}, err
	}
	if refErr != nil {
		return s.fallback(ctx, challenge, scoringdomain.FallbackReferenceFetch, refErr), nil
	}
	if genErr != nil {
		return s.fallback(ctx, challenge, scoringdomain.FallbackGeneratedFetch, genErr), nil
	}

	var (
		refVec, genVec []float64
		refHit, genHit bool
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		refVec, refHit, err = s.embedCached(egCtx, refPayload)
		return err
	})
	eg.Go(func() (err error) {
		genVec, genHit, err = s.embedCached(egCtx, genPayload)
		return err
	})
	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return scoreResult{}, ctxErr
		}
		return s.fallback(ctx, challenge, scoringdomain.FallbackEmbedding, err), nil
	}

	// A dimension mismatch scores 0 rather than falling back.
	sim, ok := scoringdomain.CosineSimilarity(refVec, genVec)
	if !ok {
		s.logger.WarnContext(ctx, "Embedding dimensions differ",
			attr.Int64("challenge_id", challenge.ID),
			attr.Int("reference_dims", len(refVec)),
			attr.Int("generated_dims", len(genVec)),
		)
	}

	outcome := scoringdomain.ScoreOutcome{
		Score:         scoringdomain.ClampScore(sim),
		RawSimilarity: sim,
		CacheHits:     countTrue(refHit, genHit),
	}
	if s.metrics != nil {
		s.metrics.RecordScore(ctx, outcome.Score)
	}
	s.logger.InfoContext(ctx, "Submission scored",
		attr.Int64("challenge_id", challenge.ID),
		attr.Float64("raw_similarity", sim),
		attr.Float64("score", outcome.Score),
		attr.Int("cache_hits", outcome.CacheHits),
	)
	return results.SuccessResult[scoringdomain.ScoreOutcome, error](outcome), nil
}

func (s *ScoringService) embedCached(ctx context.Context, payload string) ([]float64, bool, error) {
	key := embedcache.Key(payload, s.cfg.CacheKeyLen)
	if vec, ok := s.cache.Get(ctx, key); ok {
		return vec, true, nil
	}
	vec, err := s.embedWithRetry(ctx, payload)
	if err != nil {
		return nil, false, err
	}
	s.cache.Put(ctx, key, vec)
	return vec, false, nil
}

func (s *ScoringService) fallback(ctx context.Context, challenge scoringdomain.Challenge, reason scoringdomain.FallbackReason, cause error) scoreResult {
	if s.metrics != nil {
		s.metrics.RecordFallback(ctx, string(reason))
	}
	logAttrs := []any{
		attr.Int64("challenge_id", challenge.ID),
		attr.String("fallback_reason", string(reason)),
		attr.Float64("fallback_score", s.cfg.FallbackScore),
	}
	if cause != nil {
		logAttrs = append(logAttrs, attr.Error(cause))
	}
	s.logger.WarnContext(ctx, "Scoring fell back to default score", logAttrs...)

	return results.SuccessResult[scoringdomain.ScoreOutcome, error](scoringdomain.ScoreOutcome{
		Score:          s.cfg.FallbackScore,
		FallbackUsed:   true,
		FallbackReason: reason,
	})
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
