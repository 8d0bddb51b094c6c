package gallerymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating gallery tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS generated_images (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					username TEXT NOT NULL,
					prompt TEXT NOT NULL,
					url TEXT NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE INDEX IF NOT EXISTS idx_generated_images_created_at ON generated_images (created_at DESC);`,
				`CREATE TABLE IF NOT EXISTS image_votes (
					id BIGSERIAL PRIMARY KEY,
					image_id BIGINT NOT NULL REFERENCES generated_images(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id),
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);`,
				`CREATE UNIQUE INDEX IF NOT EXISTS uniq_image_votes_image_user ON image_votes (image_id, user_id);`,
			}
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("failed to create gallery tables: %w", err)
				}
			}
			fmt.Println("Gallery tables created successfully!")
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping gallery tables...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS image_votes, generated_images CASCADE;`); err != nil {
			return fmt.Errorf("failed to drop gallery tables: %w", err)
		}
		return nil
	})
}
