package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/Black-And-White-Club/promptduel/integration_tests/containers"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	DB            *bun.DB
	Config        *config.Config
	T             *testing.T
}

// NewTestEnvironment starts Postgres, runs every migration and returns a ready environment.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, pgConnStr, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	sqlDB, err := sql.Open("pgx", pgConnStr)
	if err != nil {
		pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to open sql DB connection: %w", err)
	}
	db := bun.NewDB(sqlDB, pgdialect.New())

	if err := runMigrationsWithConnStr(db, pgConnStr); err != nil {
		db.Close()
		pgContainer.Terminate(ctx)
		cancel()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cfg := config.Default()
	cfg.Postgres.DSN = pgConnStr

	return &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		DB:            db,
		Config:        cfg,
		T:             t,
	}, nil
}

// Reset truncates every application table.
func (env *TestEnvironment) Reset(ctx context.Context) error {
	return CleanupDatabase(ctx, env.DB)
}

// Cleanup closes the database and terminates the container.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		env.DB.Close()
	}
	if env.PgContainer != nil {
		env.PgContainer.Terminate(context.Background())
	}
	env.CancelContext()
}
