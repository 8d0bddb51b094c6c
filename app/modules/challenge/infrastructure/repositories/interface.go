package challengedb

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when a challenge id has no row.
var ErrNotFound = errors.New("challenge not found")

// Repository defines the contract for challenge persistence.
type Repository interface {
	GetByID(ctx context.Context, db bun.IDB, id int64) (*Challenge, error)
	List(ctx context.Context, db bun.IDB) ([]Challenge, error)

	// SeedDefaults inserts DefaultChallenges, leaving existing ids untouched.
	SeedDefaults(ctx context.Context, db bun.IDB) (int, error)
}
