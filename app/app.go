package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/promptduel/app/modules/auth"
	"github.com/Black-And-White-Club/promptduel/app/modules/challenge"
	"github.com/Black-And-White-Club/promptduel/app/modules/gallery"
	"github.com/Black-And-White-Club/promptduel/app/modules/leaderboard"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring"
	"github.com/Black-And-White-Club/promptduel/app/modules/submission"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Module is the lifecycle every feature module exposes.
type Module interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
	Close() error
}

// Modules holds the wired feature modules.
type Modules struct {
	Auth        *auth.Module
	Challenge   *challenge.Module
	Scoring     *scoring.Module
	Submission  *submission.Module
	Leaderboard *leaderboard.Module
	Gallery     *gallery.Module
}

func (m Modules) all() []Module {
	return []Module{m.Auth, m.Challenge, m.Scoring, m.Submission, m.Leaderboard, m.Gallery}
}

type App struct {
	Cfg     *config.Config
	Obs     observability.Observability
	Router  chi.Router
	Modules Modules
	db      *bun.DB
	wg      sync.WaitGroup
	stop    context.CancelFunc
}

// NewApp connects the database and wires every module onto one router.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.New(cfg.Observability)

	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(observability.RequestIDMiddleware)
	router.Use(obs.Metrics.HTTPMiddleware)

	router.Handle("/metrics", obs.Metrics.Handler())
	router.Get("/healthz", healthHandler(db))

	app := &App{Cfg: cfg, Obs: obs, Router: router, db: db}
	if err := app.initializeModules(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) initializeModules(ctx context.Context) error {
	cfg, obs, db, router := app.Cfg, app.Obs, app.db, app.Router
	httpClient := &http.Client{Timeout: 2 * time.Minute}

	authModule, err := auth.NewModule(ctx, cfg, obs, router, db)
	if err != nil {
		return fmt.Errorf("failed to initialize auth module: %w", err)
	}
	challengeModule, err := challenge.NewModule(ctx, cfg, obs, router, db)
	if err != nil {
		return fmt.Errorf("failed to initialize challenge module: %w", err)
	}
	scoringModule, err := scoring.NewModule(ctx, cfg, obs, httpClient)
	if err != nil {
		return fmt.Errorf("failed to initialize scoring module: %w", err)
	}
	submissionModule, err := submission.NewModule(ctx, cfg, obs, scoringModule.Generator, scoringModule.Service, authModule.Service, router, db)
	if err != nil {
		return fmt.Errorf("failed to initialize submission module: %w", err)
	}
	leaderboardModule, err := leaderboard.NewModule(ctx, cfg, obs, authModule.Service, router, db)
	if err != nil {
		return fmt.Errorf("failed to initialize leaderboard module: %w", err)
	}
	galleryModule, err := gallery.NewModule(ctx, cfg, obs, scoringModule.Generator, authModule.Service, router, db)
	if err != nil {
		return fmt.Errorf("failed to initialize gallery module: %w", err)
	}

	app.Modules = Modules{
		Auth:        authModule,
		Challenge:   challengeModule,
		Scoring:     scoringModule,
		Submission:  submissionModule,
		Leaderboard: leaderboardModule,
		Gallery:     galleryModule,
	}
	obs.Logger.InfoContext(ctx, "All modules initialized")
	return nil
}

func healthHandler(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}
}

// DB returns the database handle.
func (app *App) DB() *bun.DB {
	return app.db
}

// Close stops every module, then the database.
func (app *App) Close() {
	logger := app.Obs.Logger
	if app.stop != nil {
		app.stop()
	}
	for _, m := range app.Modules.all() {
		if err := m.Close(); err != nil {
			logger.Error("Failed to close module", attr.Error(err))
		}
	}
	app.wg.Wait()
	if err := app.db.Close(); err != nil {
		logger.Error("Error closing database connection", attr.Error(err))
	}
}
