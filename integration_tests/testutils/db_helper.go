package testutils

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	challengemigrations "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories/migrations"
	gallerymigrations "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/repositories/migrations"
	submissionmigrations "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories/migrations"
	usermigrations "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories/migrations"
)

// runMigrationsWithConnStr runs River and every module migration.
func runMigrationsWithConnStr(db *bun.DB, pgConnStr string) error {
	ctx := context.Background()

	migrator := migrate.NewMigrator(db, usermigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize migration tables: %w", err)
	}

	if err := runRiverMigrations(ctx, pgConnStr); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}

	// Order matters due to foreign key constraints.
	orderedModules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"user", usermigrations.Migrations},
		{"challenge", challengemigrations.Migrations},
		{"submission", submissionmigrations.Migrations},
		{"gallery", gallerymigrations.Migrations},
	}

	for _, mod := range orderedModules {
		if err := runModuleMigrations(ctx, db, mod.migrations, mod.name); err != nil {
			return err
		}
	}
	log.Println("All migrations ran successfully")
	return nil
}

func runRiverMigrations(ctx context.Context, pgConnStr string) error {
	config, err := pgxpool.ParseConfig(pgConnStr)
	if err != nil {
		return fmt.Errorf("failed to parse DSN for River migrations: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}

	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}

func runModuleMigrations(ctx context.Context, db *bun.DB, migrations *migrate.Migrations, name string) error {
	migrator := migrate.NewMigrator(db, migrations)
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run %s migrations: %w", name, err)
	}
	if group.ID == 0 {
		log.Printf("No %s migrations to run", name)
	} else {
		log.Printf("Ran %s migrations group #%d", name, group.ID)
	}
	return nil
}

var appTables = []string{"image_votes", "generated_images", "submission_counts", "submissions", "challenges", "users"}

// CleanupDatabase truncates all tables in the database to ensure a clean state
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		if !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("failed to cleanup river jobs: %w", err)
		}
	}
	return nil
}
