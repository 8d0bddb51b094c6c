package challengeservice

import (
	"context"

	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeChallengeRepo provides a programmable stub for challengedb.Repository.
type FakeChallengeRepo struct {
	GetByIDFunc      func(ctx context.Context, db bun.IDB, id int64) (*challengedb.Challenge, error)
	ListFunc         func(ctx context.Context, db bun.IDB) ([]challengedb.Challenge, error)
	SeedDefaultsFunc func(ctx context.Context, db bun.IDB) (int, error)
}

func (f *FakeChallengeRepo) GetByID(ctx context.Context, db bun.IDB, id int64) (*challengedb.Challenge, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	return nil, challengedb.ErrNotFound
}

func (f *FakeChallengeRepo) List(ctx context.Context, db bun.IDB) ([]challengedb.Challenge, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeChallengeRepo) SeedDefaults(ctx context.Context, db bun.IDB) (int, error) {
	if f.SeedDefaultsFunc != nil {
		return f.SeedDefaultsFunc(ctx, db)
	}
	return len(challengedb.DefaultChallenges), nil
}
