package authservice

import (
	"context"

	userdb "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// FakeUserRepository provides a programmable stub for userdb.Repository.
type FakeUserRepository struct {
	GetByIDFunc       func(ctx context.Context, db bun.IDB, id int64) (*userdb.User, error)
	GetByUsernameFunc func(ctx context.Context, db bun.IDB, username string) (*userdb.User, error)
	SaveUsersFunc     func(ctx context.Context, db bun.IDB, users []*userdb.User) (int, error)
}

func (f *FakeUserRepository) GetByID(ctx context.Context, db bun.IDB, id int64) (*userdb.User, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	return nil, userdb.ErrNotFound
}

func (f *FakeUserRepository) GetByUsername(ctx context.Context, db bun.IDB, username string) (*userdb.User, error) {
	if f.GetByUsernameFunc != nil {
		return f.GetByUsernameFunc(ctx, db, username)
	}
	return nil, userdb.ErrNotFound
}

func (f *FakeUserRepository) SaveUsers(ctx context.Context, db bun.IDB, users []*userdb.User) (int, error) {
	if f.SaveUsersFunc != nil {
		return f.SaveUsersFunc(ctx, db, users)
	}
	return len(users), nil
}
