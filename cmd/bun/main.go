package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	authservice "github.com/Black-And-White-Club/promptduel/app/modules/auth/application"
	authjwt "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/jwt"
	challengeservice "github.com/Black-And-White-Club/promptduel/app/modules/challenge/application"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	userdb "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/trace/noop"

	challengemigrations "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories/migrations"
	gallerymigrations "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/repositories/migrations"
	submissionmigrations "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories/migrations"
	usermigrations "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories/migrations"
)

// seatCount is the number of contest seats created by the seed command.
const seatCount = 200

type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	// Foreign keys require this order: users and challenges before submissions and gallery.
	migrators := []moduleMigrator{
		{"user", migrate.NewMigrator(db, usermigrations.Migrations)},
		{"challenge", migrate.NewMigrator(db, challengemigrations.Migrations)},
		{"submission", migrate.NewMigrator(db, submissionmigrations.Migrations)},
		{"gallery", migrate.NewMigrator(db, gallerymigrations.Migrations)},
	}

	cliApp := &cli.App{
		Name: "bun",
		Commands: []*cli.Command{
			newMultiModuleDBCommand(migrators, cfg.Postgres.DSN),
			newSeedCommand(cfg, db),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func findMigrator(migrators []moduleMigrator, name string) (*migrate.Migrator, bool) {
	for _, m := range migrators {
		if m.name == name {
			return m.migrator, true
		}
	}
	return nil, false
}

func newMultiModuleDBCommand(migrators []moduleMigrator, dsn string) *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						fmt.Printf("Initializing migrations for module: %s\n", m.name)
						if err := m.migrator.Init(c.Context); err != nil {
							return fmt.Errorf("init %s: %w", m.name, err)
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database, River queue tables included",
				Action: func(c *cli.Context) error {
					if err := migrateRiver(c.Context, dsn); err != nil {
						return err
					}
					for _, m := range migrators {
						fmt.Printf("Running migrations for module: %s\n", m.name)
						group, err := m.migrator.Migrate(c.Context)
						if err != nil {
							return fmt.Errorf("migrate %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", m.name)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module",
				Action: func(c *cli.Context) error {
					for i := len(migrators) - 1; i >= 0; i-- {
						m := migrators[i]
						fmt.Printf("Rolling back migrations for module: %s\n", m.name)
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return fmt.Errorf("rollback %s: %w", m.name, err)
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", m.name)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", m.name, group)
						}
					}
					return nil
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, ok := findMigrator(migrators, moduleName)
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for _, m := range migrators {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", m.name)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}

func migrateRiver(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
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
	fmt.Println("River queue migrations completed")
	return nil
}

func newSeedCommand(cfg *config.Config, db *bun.DB) *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "insert contest seats and the default challenges; safe to re-run",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "seats", Value: seatCount, Usage: "number of SEATnnn accounts"},
		},
		Action: func(c *cli.Context) error {
			logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
			tracer := noop.NewTracerProvider().Tracer("seed")

			auth := authservice.NewService(
				authjwt.NewProvider(cfg.JWT.Secret),
				userdb.NewRepository(db),
				authservice.Config{DefaultTTL: cfg.JWT.DefaultTTL},
				logger,
				tracer,
				db,
			)
			users, err := auth.SeedUsers(c.Context, c.Int("seats"))
			if err != nil {
				return fmt.Errorf("seed users: %w", err)
			}

			challenges := challengeservice.NewChallengeService(challengedb.NewRepository(db), db, logger, tracer)
			created, err := challenges.SeedChallenges(c.Context)
			if err != nil {
				return fmt.Errorf("seed challenges: %w", err)
			}

			fmt.Printf("Seeded %d users and %d challenges\n", users, created)
			return nil
		},
	}
}
