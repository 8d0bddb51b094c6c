package challenge

import (
	"context"
	"log/slog"
	"sync"

	challengeservice "github.com/Black-And-White-Club/promptduel/app/modules/challenge/application"
	challengehandlers "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/handlers"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the challenge module.
type Module struct {
	Service    challengeservice.Service
	Repository challengedb.Repository
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates the challenge module and registers GET /api/challenges.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing challenge module")

	repo := challengedb.NewRepository(db)
	service := challengeservice.NewChallengeService(repo, db, logger, obs.Tracer)

	if httpRouter != nil {
		handlers := challengehandlers.NewChallengeHandlers(service, logger, obs.Tracer)
		httpRouter.Route("/api/challenges", func(r chi.Router) {
			r.Get("/", handlers.HandleList)
		})
	}

	return &Module{
		Service:    service,
		Repository: repo,
		logger:     logger,
	}, nil
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Challenge module goroutine stopped")
}

// Close shuts down the challenge module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
