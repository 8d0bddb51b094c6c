package leaderboarddb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository reads standings and rebuilds totals from submissions.
type Repository interface {
	// TopUsers returns users ordered by total score, highest first; ties by id.
	TopUsers(ctx context.Context, db bun.IDB, limit int) ([]Entry, error)
	// ChallengeBests returns MAX(score) per (user, challenge) for every attempted pair.
	ChallengeBests(ctx context.Context, db bun.IDB) ([]ChallengeBest, error)
	// RecalculateTotals sets every user's total to the sum of their
	// per-challenge bests and returns the number of users updated. It runs
	// in db when db is a transaction, else in a new one, and blocks ledger
	// writes to submissions until that transaction ends.
	RecalculateTotals(ctx context.Context, db bun.IDB) (int, error)
}
