package submission

import (
	"context"
	"log/slog"
	"sync"

	authhandlers "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/handlers"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	scoringservice "github.com/Black-And-White-Club/promptduel/app/modules/scoring/application"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	submissionservice "github.com/Black-And-White-Club/promptduel/app/modules/submission/application"
	submissionhandlers "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/handlers"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the submission module.
type Module struct {
	Service    submissionservice.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule wires the submission pipeline and registers /api/submissions.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	generator generation.Client,
	scorer scoringservice.Service,
	auth authhandlers.Authenticator,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing submission module")

	var metrics submissionservice.Metrics = observability.NoOpMetrics{}
	if obs.Metrics != nil {
		metrics = obs.Metrics.Module("submission")
	}

	service := submissionservice.NewSubmissionService(
		submissiondb.NewRepository(db),
		challengedb.NewRepository(db),
		generator,
		scorer,
		submissionservice.Config{MaxPromptLength: cfg.Scoring.MaxPromptLength},
		logger,
		metrics,
		obs.Tracer,
		db,
	)

	if httpRouter != nil {
		handlers := submissionhandlers.NewSubmissionHandlers(service, logger, obs.Tracer)
		submitLimiter := authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.SubmitRateLimit), cfg.HTTP.SubmitBurst)

		httpRouter.Route("/api/submissions", func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(authhandlers.AuthMiddleware(auth))

			r.With(authhandlers.RateLimitMiddleware(submitLimiter)).Post("/", handlers.HandleSubmit)
			r.Get("/counts", handlers.HandleCounts)
			r.Get("/mine", handlers.HandleMine)
		})
	}

	return &Module{Service: service, logger: logger}, nil
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
	m.logger.InfoContext(ctx, "Submission module goroutine stopped")
}

// Close shuts down the submission module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
