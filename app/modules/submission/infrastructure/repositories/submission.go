package submissiondb

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

const upsertCounterSQL = `
INSERT INTO submission_counts (user_id, challenge_id, attempts_used, created_at, updated_at)
VALUES (?, ?, 1, NOW(), NOW())
ON CONFLICT (user_id, challenge_id) DO UPDATE
SET attempts_used = submission_counts.attempts_used + 1, updated_at = NOW()
WHERE submission_counts.attempts_used < ?
RETURNING attempts_used`

func (r *Impl) RecordAttempt(ctx context.Context, db bun.IDB, in AttemptInput) (*AttemptRecord, error) {
	db = r.resolveDB(db)
	if tx, ok := db.(bun.Tx); ok {
		return recordAttempt(ctx, tx, in)
	}
	var rec *AttemptRecord
	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		rec, err = recordAttempt(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func recordAttempt(ctx context.Context, tx bun.Tx, in AttemptInput) (*AttemptRecord, error) {
	// Serializes attempts by the same user on the same challenge.
	lockKey := fmt.Sprintf("submission:%d:%d", in.UserID, in.ChallengeID)
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", lockKey); err != nil {
		return nil, fmt.Errorf("submissiondb.RecordAttempt: advisory lock: %w", err)
	}

	var prevBest float64
	err := tx.NewSelect().
		Model((*Submission)(nil)).
		ColumnExpr("COALESCE(MAX(s.score), 0)").
		Where("s.user_id = ?", in.UserID).
		Where("s.challenge_id = ?", in.ChallengeID).
		Scan(ctx, &prevBest)
	if err != nil {
		return nil, fmt.Errorf("submissiondb.RecordAttempt: previous best: %w", err)
	}

	sub := &Submission{
		UserID:            in.UserID,
		ChallengeID:       in.ChallengeID,
		GeneratedImageURL: in.GeneratedImageURL,
		UserPrompt:        in.Prompt,
		Score:             in.Score,
	}
	if _, err := tx.NewInsert().Model(sub).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("submissiondb.RecordAttempt: insert submission: %w", err)
	}

	var used int
	err = tx.NewRaw(upsertCounterSQL, in.UserID, in.ChallengeID, AttemptCap).Scan(ctx, &used)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptsExhausted
		}
		return nil, fmt.Errorf("submissiondb.RecordAttempt: upsert counter: %w", err)
	}

	rec := &AttemptRecord{
		SubmissionID:      sub.ID,
		AttemptsUsed:      used,
		AttemptsRemaining: Remaining(used),
		PreviousBest:      prevBest,
	}

	if in.Score > prevBest {
		// Relative increment keeps concurrent attempts on other challenges additive.
		err = tx.NewRaw(
			`UPDATE users SET total_score = total_score + (CAST(? AS NUMERIC(4,2)) - CAST(? AS NUMERIC(4,2)))
			WHERE id = ? RETURNING total_score`,
			in.Score, prevBest, in.UserID,
		).Scan(ctx, &rec.TotalScore)
		rec.NewPersonalBest = true
	} else {
		err = tx.NewRaw("SELECT total_score FROM users WHERE id = ?", in.UserID).Scan(ctx, &rec.TotalScore)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRowsAffected
		}
		return nil, fmt.Errorf("submissiondb.RecordAttempt: update total: %w", err)
	}
	return rec, nil
}

func (r *Impl) GetAttemptsUsed(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error) {
	db = r.resolveDB(db)
	counter := new(AttemptCounter)
	err := db.NewSelect().
		Model(counter).
		Column("sc.attempts_used").
		Where("sc.user_id = ?", userID).
		Where("sc.challenge_id = ?", challengeID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("submissiondb.GetAttemptsUsed: %w", err)
	}
	return counter.AttemptsUsed, nil
}

func (r *Impl) ListAttemptCounts(ctx context.Context, db bun.IDB, userID int64) ([]AttemptCounter, error) {
	db = r.resolveDB(db)
	var counters []AttemptCounter
	err := db.NewSelect().
		Model(&counters).
		Where("sc.user_id = ?", userID).
		Order("sc.challenge_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("submissiondb.ListAttemptCounts: %w", err)
	}
	return counters, nil
}

func (r *Impl) ListUserSubmissions(ctx context.Context, db bun.IDB, userID int64, limit int) ([]SubmissionView, error) {
	db = r.resolveDB(db)
	if limit <= 0 {
		limit = 100
	}
	var out []SubmissionView
	err := db.NewSelect().
		TableExpr("submissions AS s").
		ColumnExpr("s.id, s.challenge_id, s.generated_image_url, s.user_prompt, s.score, s.created_at").
		ColumnExpr("c.image_url AS original_image_url, c.prompt AS challenge_prompt").
		Join("LEFT JOIN challenges AS c ON c.id = s.challenge_id").
		Where("s.user_id = ?", userID).
		OrderExpr("s.created_at DESC, s.id DESC").
		Limit(limit).
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("submissiondb.ListUserSubmissions: %w", err)
	}
	return out, nil
}
