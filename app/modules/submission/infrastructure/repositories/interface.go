package submissiondb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository is the submission ledger.
//
// Error semantics:
//   - ErrAttemptsExhausted: RecordAttempt found the counter at AttemptCap; nothing was written
//   - ErrNoRowsAffected: RecordAttempt could not update the user's total (unknown user)
//   - other errors: infrastructure failures
type Repository interface {
	// RecordAttempt appends a submission, bumps the attempt counter and
	// raises the user's total when the score beats their previous best, all
	// in one transaction. When db is a bun.Tx the caller's transaction is used.
	RecordAttempt(ctx context.Context, db bun.IDB, in AttemptInput) (*AttemptRecord, error)

	// GetAttemptsUsed returns 0 when the user has not attempted the challenge.
	GetAttemptsUsed(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error)
	ListAttemptCounts(ctx context.Context, db bun.IDB, userID int64) ([]AttemptCounter, error)
	ListUserSubmissions(ctx context.Context, db bun.IDB, userID int64, limit int) ([]SubmissionView, error)
}
