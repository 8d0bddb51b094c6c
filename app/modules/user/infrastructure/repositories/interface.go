package userdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the persistence contract for user accounts.
//
// Error semantics:
//   - ErrNotFound: requested user does not exist (Get* methods)
//   - other errors: infrastructure failures
type Repository interface {
	GetByID(ctx context.Context, db bun.IDB, id int64) (*User, error)
	GetByUsername(ctx context.Context, db bun.IDB, username string) (*User, error)

	// SaveUsers inserts accounts, skipping usernames that already exist.
	// It returns the number of rows inserted.
	SaveUsers(ctx context.Context, db bun.IDB, users []*User) (int, error)
}
