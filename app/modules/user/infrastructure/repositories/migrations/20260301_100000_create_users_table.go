package usermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating users table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				username VARCHAR(32) NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				total_score NUMERIC(10,2) NOT NULL DEFAULT 0,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_users_total_score ON users(total_score DESC);
		`)
		if err != nil {
			return fmt.Errorf("failed to create users table: %w", err)
		}

		fmt.Println("Users table created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping users table...")

		if _, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS users CASCADE;`); err != nil {
			return fmt.Errorf("failed to drop users table: %w", err)
		}
		return nil
	})
}
