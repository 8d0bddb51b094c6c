package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	authhandlers "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/handlers"
	leaderboardservice "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/application"
	leaderboardhandlers "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/handlers"
	leaderboardqueue "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/queue"
	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the leaderboard module.
type Module struct {
	Service    *leaderboardservice.LeaderboardService
	Queue      leaderboardqueue.QueueService
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates the leaderboard module. The recalculation queue is only
// started when a Postgres DSN is configured; otherwise recalculation runs inline.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	auth authhandlers.Authenticator,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "Initializing leaderboard module")

	repo := leaderboarddb.NewRepository(db)
	service := leaderboardservice.NewLeaderboardService(repo, logger, tracer, db)

	m := &Module{Service: service, logger: logger}

	if cfg.Postgres.DSN != "" && db != nil {
		var metrics leaderboardqueue.Metrics = observability.NoOpMetrics{}
		if obs.Metrics != nil {
			metrics = obs.Metrics.Module("leaderboard_queue")
		}
		queue, err := leaderboardqueue.NewService(ctx, db, logger, cfg.Postgres.DSN, metrics, service)
		if err != nil {
			return nil, fmt.Errorf("failed to create leaderboard queue: %w", err)
		}
		service.UseScheduler(queue)
		m.Queue = queue
	}

	handlers := leaderboardhandlers.NewLeaderboardHandlers(service, logger, tracer)

	if httpRouter != nil {
		httpRouter.Route("/api/leaderboard", func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))

			r.Get("/", handlers.HandleLeaderboard)
			r.Get("/chart.png", handlers.HandleChart)
			r.Get("/export.xlsx", handlers.HandleExport)

			r.With(authhandlers.AuthMiddleware(auth)).Post("/recalculate", handlers.HandleRecalculate)
		})
	}

	return m, nil
}

// Run starts the queue and blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting leaderboard module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.Queue != nil {
		if err := m.Queue.Start(ctx); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start leaderboard queue", attr.Error(err))
		}
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Leaderboard module goroutine stopped")
}

// Close stops the queue and shuts down the module.
func (m *Module) Close() error {
	m.logger.Info("Stopping leaderboard module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.Queue != nil {
		return m.Queue.Stop(context.Background())
	}
	return nil
}
