package leaderboarddb

import (
	"context"
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

func (r *Impl) TopUsers(ctx context.Context, db bun.IDB, limit int) ([]Entry, error) {
	db = r.resolveDB(db)
	if limit <= 0 {
		limit = 50
	}
	var out []Entry
	err := db.NewSelect().
		TableExpr("users AS u").
		ColumnExpr("u.id, u.username, u.total_score").
		OrderExpr("u.total_score DESC, u.id ASC").
		Limit(limit).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("leaderboarddb.TopUsers: %w", err)
	}
	return out, nil
}

func (r *Impl) ChallengeBests(ctx context.Context, db bun.IDB) ([]ChallengeBest, error) {
	db = r.resolveDB(db)
	var out []ChallengeBest
	err := db.NewSelect().
		TableExpr("submissions AS s").
		Join("JOIN users AS u ON u.id = s.user_id").
		ColumnExpr("s.user_id, u.username, s.challenge_id").
		ColumnExpr("MAX(s.score) AS best_score, COUNT(*) AS attempts").
		GroupExpr("s.user_id, u.username, s.challenge_id").
		OrderExpr("u.username ASC, s.challenge_id ASC").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("leaderboarddb.ChallengeBests: %w", err)
	}
	return out, nil
}

const recalculateSQL = `
UPDATE users AS u
SET total_score = COALESCE(b.total, 0)
FROM users AS x
LEFT JOIN (
	SELECT user_id, ROUND(SUM(best), 2) AS total
	FROM (
		SELECT user_id, challenge_id, MAX(score) AS best
		FROM submissions
		GROUP BY user_id, challenge_id
	) per_challenge
	GROUP BY user_id
) AS b ON b.user_id = x.id
WHERE u.id = x.id`

func (r *Impl) RecalculateTotals(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	if tx, ok := db.(bun.Tx); ok {
		return recalculateTotals(ctx, tx)
	}
	var n int
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		n, err = recalculateTotals(ctx, tx)
		return err
	})
	return n, err
}

// recalculateTotals holds a SHARE lock on submissions so the sums cannot miss
// a ledger write that committed while the UPDATE waited on a user row.
func recalculateTotals(ctx context.Context, tx bun.Tx) (int, error) {
	if _, err := tx.ExecContext(ctx, "LOCK TABLE submissions IN SHARE MODE"); err != nil {
		return 0, fmt.Errorf("leaderboarddb.RecalculateTotals: lock submissions: %w", err)
	}
	res, err := tx.ExecContext(ctx, recalculateSQL)
	if err != nil {
		return 0, fmt.Errorf("leaderboarddb.RecalculateTotals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("leaderboarddb.RecalculateTotals: rows affected: %w", err)
	}
	return int(n), nil
}
