package gallery

import (
	"context"
	"log/slog"
	"sync"

	authhandlers "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/handlers"
	galleryservice "github.com/Black-And-White-Club/promptduel/app/modules/gallery/application"
	galleryhandlers "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/handlers"
	gallerydb "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"
)

// Module represents the free-play gallery.
type Module struct {
	Service    galleryservice.Service
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	generator generation.Client,
	auth authhandlers.Authenticator,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "Initializing gallery module")

	repo := gallerydb.NewRepository(db)
	service := galleryservice.NewGalleryService(repo, generator, cfg.Scoring.MaxPromptLength, logger, tracer, db)
	handlers := galleryhandlers.NewGalleryHandlers(service, logger, tracer)

	if httpRouter != nil {
		limiter := authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.SubmitRateLimit), cfg.HTTP.SubmitBurst)
		httpRouter.Route("/api/gallery", func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))

			r.Get("/", handlers.HandleList)
			r.With(authhandlers.OptionalAuthMiddleware(auth)).Get("/vote", handlers.HandleGetVote)

			r.Group(func(r chi.Router) {
				r.Use(authhandlers.AuthMiddleware(auth))
				r.With(authhandlers.RateLimitMiddleware(limiter)).Post("/generate", handlers.HandleGenerate)
				r.Post("/vote", handlers.HandleToggleVote)
			})
		})
	}

	return &Module{Service: service, logger: logger}, nil
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting gallery module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Gallery module goroutine stopped")
}

func (m *Module) Close() error {
	m.logger.Info("Stopping gallery module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
