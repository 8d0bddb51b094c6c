package userdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id int64) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userdb.GetByID: %w", err)
	}
	return user, nil
}

func (r *Impl) GetByUsername(ctx context.Context, db bun.IDB, username string) (*User, error) {
	db = r.resolveDB(db)
	user := new(User)
	err := db.NewSelect().
		Model(user).
		Where("u.username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userdb.GetByUsername: %w", err)
	}
	return user, nil
}

func (r *Impl) SaveUsers(ctx context.Context, db bun.IDB, users []*User) (int, error) {
	if len(users) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(&users).
		On("CONFLICT (username) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("userdb.SaveUsers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("userdb.SaveUsers: rows affected: %w", err)
	}
	return int(n), nil
}
