package leaderboardservice

import (
	"context"

	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeRepository provides a programmable stub for leaderboarddb.Repository.
type FakeRepository struct {
	TopUsersFunc          func(ctx context.Context, db bun.IDB, limit int) ([]leaderboarddb.Entry, error)
	ChallengeBestsFunc    func(ctx context.Context, db bun.IDB) ([]leaderboarddb.ChallengeBest, error)
	RecalculateTotalsFunc func(ctx context.Context, db bun.IDB) (int, error)
}

func (f *FakeRepository) TopUsers(ctx context.Context, db bun.IDB, limit int) ([]leaderboarddb.Entry, error) {
	if f.TopUsersFunc != nil {
		return f.TopUsersFunc(ctx, db, limit)
	}
	return nil, nil
}

func (f *FakeRepository) ChallengeBests(ctx context.Context, db bun.IDB) ([]leaderboarddb.ChallengeBest, error) {
	if f.ChallengeBestsFunc != nil {
		return f.ChallengeBestsFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeRepository) RecalculateTotals(ctx context.Context, db bun.IDB) (int, error) {
	if f.RecalculateTotalsFunc != nil {
		return f.RecalculateTotalsFunc(ctx, db)
	}
	return 0, nil
}

type FakeScheduler struct {
	EnqueueFunc func(ctx context.Context, requestedBy int64) (int64, error)
}

func (f *FakeScheduler) EnqueueRecalculation(ctx context.Context, requestedBy int64) (int64, error) {
	if f.EnqueueFunc != nil {
		return f.EnqueueFunc(ctx, requestedBy)
	}
	return 1, nil
}
