package submissionmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating submissions and submission_counts tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS submissions (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
					generated_image_url TEXT NOT NULL,
					user_prompt TEXT NOT NULL,
					score NUMERIC(4,2) NOT NULL CHECK (score >= 0 AND score <= 1),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_submissions_user_challenge ON submissions(user_id, challenge_id);
				CREATE INDEX IF NOT EXISTS idx_submissions_user_created ON submissions(user_id, created_at DESC);
			`); err != nil {
				return fmt.Errorf("failed to create submissions table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS submission_counts (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					challenge_id BIGINT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
					attempts_used INTEGER NOT NULL DEFAULT 0 CHECK (attempts_used >= 0 AND attempts_used <= 6),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS uniq_submission_counts_user_challenge
					ON submission_counts(user_id, challenge_id);
			`); err != nil {
				return fmt.Errorf("failed to create submission_counts table: %w", err)
			}

			fmt.Println("Submission tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping submission tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				DROP TABLE IF EXISTS submission_counts;
				DROP TABLE IF EXISTS submissions;
			`); err != nil {
				return fmt.Errorf("failed to drop submission tables: %w", err)
			}
			return nil
		})
	})
}
