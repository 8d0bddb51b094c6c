package challengemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating challenges table...")

		if _, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS challenges (
				id BIGSERIAL PRIMARY KEY,
				image_url TEXT NOT NULL,
				prompt TEXT NOT NULL,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`); err != nil {
			return fmt.Errorf("failed to create challenges table: %w", err)
		}

		fmt.Println("Challenges table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping challenges table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS challenges CASCADE;`); err != nil {
			return fmt.Errorf("failed to drop challenges table: %w", err)
		}
		return nil
	})
}
