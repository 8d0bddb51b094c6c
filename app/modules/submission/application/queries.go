package submissionservice

import (
	"context"
	"fmt"

	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
)

func toAttemptCount(challengeID int64, used int) AttemptCount {
	remaining := submissiondb.Remaining(used)
	return AttemptCount{
		ChallengeID:       challengeID,
		AttemptsUsed:      used,
		AttemptsRemaining: remaining,
		CanSubmit:         remaining > 0,
	}
}

// GetAttemptCount reports the caller's attempts on one challenge. Unattempted
// challenges report zero used.
func (s *SubmissionService) GetAttemptCount(ctx context.Context, userID, challengeID int64) (AttemptCount, error) {
	used, err := s.ledger.GetAttemptsUsed(ctx, s.idb(), userID, challengeID)
	if err != nil {
		return AttemptCount{}, fmt.Errorf("GetAttemptCount: %w", err)
	}
	return toAttemptCount(challengeID, used), nil
}

// ListAttemptCounts reports every challenge the caller has attempted.
func (s *SubmissionService) ListAttemptCounts(ctx context.Context, userID int64) ([]AttemptCount, error) {
	counters, err := s.ledger.ListAttemptCounts(ctx, s.idb(), userID)
	if err != nil {
		return nil, fmt.Errorf("ListAttemptCounts: %w", err)
	}
	out := make([]AttemptCount, 0, len(counters))
	for _, c := range counters {
		out = append(out, toAttemptCount(c.ChallengeID, c.AttemptsUsed))
	}
	return out, nil
}

// ListMySubmissions returns the caller's latest submissions, newest first.
func (s *SubmissionService) ListMySubmissions(ctx context.Context, userID int64) ([]submissiondb.SubmissionView, error) {
	subs, err := s.ledger.ListUserSubmissions(ctx, s.idb(), userID, mySubmissionsLimit)
	if err != nil {
		return nil, fmt.Errorf("ListMySubmissions: %w", err)
	}
	return subs, nil
}
