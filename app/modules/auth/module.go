package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/promptduel/app/observability"
	authservice "github.com/Black-And-White-Club/promptduel/app/modules/auth/application"
	authhandlers "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/Black-And-White-Club/promptduel/app/modules/auth/infrastructure/jwt"
	userdb "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the auth module.
type Module struct {
	Service    authservice.Service
	handlers   *authhandlers.AuthHandlers
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule creates the auth module and registers /api/auth routes.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpRouter chi.Router,
	db *bun.DB,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer

	logger.InfoContext(ctx, "Initializing auth module")

	jwtProvider := authjwt.NewProvider(cfg.JWT.Secret)
	userRepo := userdb.NewRepository(db)

	service := authservice.NewService(
		jwtProvider,
		userRepo,
		authservice.Config{DefaultTTL: cfg.JWT.DefaultTTL},
		logger,
		tracer,
		db,
	)

	handlers := authhandlers.NewAuthHandlers(service, logger, tracer)

	if httpRouter != nil {
		limiter := authhandlers.NewIPRateLimiter(5, 10)
		httpRouter.Route("/api/auth", func(r chi.Router) {
			r.Use(authhandlers.CORSMiddleware(cfg.HTTP.AllowedOrigins))
			r.Use(authhandlers.RateLimitMiddleware(limiter))

			r.Post("/login", handlers.HandleLogin)

			r.Group(func(r chi.Router) {
				r.Use(authhandlers.AuthMiddleware(service))
				r.Get("/me", handlers.HandleMe)
			})
		})
	}

	return &Module{
		Service:  service,
		handlers: handlers,
		logger:   logger,
	}, nil
}

// Run blocks until ctx is done.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting auth module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	m.logger.InfoContext(ctx, "Auth module goroutine stopped")
}

// Close shuts down the auth module.
func (m *Module) Close() error {
	m.logger.Info("Stopping auth module")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	return nil
}
