package challengedb

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

// NewRepository creates a new challenge repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// GetByID retrieves a challenge by id.
func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id int64) (*Challenge, error) {
	db = r.resolveDB(db)
	c := new(Challenge)
	err := db.NewSelect().
		Model(c).
		Where("c.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge by id: %w", err)
	}
	return c, nil
}

// List returns every challenge ordered by id.
func (r *Impl) List(ctx context.Context, db bun.IDB) ([]Challenge, error) {
	db = r.resolveDB(db)
	var out []Challenge
	if err := db.NewSelect().Model(&out).Order("c.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	return out, nil
}

// SeedDefaults inserts the built-in challenges and realigns the id sequence.
func (r *Impl) SeedDefaults(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	rows := make([]Challenge, len(DefaultChallenges))
	copy(rows, DefaultChallenges)

	res, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to seed challenges: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		"SELECT setval(pg_get_serial_sequence('challenges', 'id'), (SELECT COALESCE(MAX(id), 1) FROM challenges))",
	); err != nil {
		return 0, fmt.Errorf("failed to reset challenge id sequence: %w", err)
	}
	return int(n), nil
}
