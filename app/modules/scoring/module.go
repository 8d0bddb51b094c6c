package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	scoringservice "github.com/Black-And-White-Club/promptduel/app/modules/scoring/application"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedcache"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedding"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/imagefetch"
	"github.com/Black-And-White-Club/promptduel/app/observability"
	"github.com/Black-And-White-Club/promptduel/config"
)

// Module owns the scoring pipeline collaborators. They are built once and
// shared by every request.
type Module struct {
	Service   scoringservice.Service
	Generator generation.Client
	KeyPool   *generation.KeyPool

	redis      *embedcache.RedisStore
	cancelFunc context.CancelFunc
	logger     *slog.Logger
}

// NewModule builds the resolver, embedding client, cache, key pool and
// generation client from cfg. httpClient may be nil.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	httpClient *http.Client,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "Initializing scoring module")

	if httpClient == nil {
		httpClient = &http.Client{}
	}

	var metrics *observability.ModuleMetrics
	if obs.Metrics != nil {
		metrics = obs.Metrics.Module("scoring")
	}

	var (
		remote      embedcache.RemoteStore
		redisStore  *embedcache.RedisStore
		cacheMetric embedcache.Metrics
	)
	if metrics != nil {
		cacheMetric = metrics
	}
	if cfg.Embedding.RedisURL != "" {
		store, err := embedcache.NewRedisStore(ctx, cfg.Embedding.RedisURL, cfg.Embedding.RedisTTL)
		if err != nil {
			logger.WarnContext(ctx, "Embedding cache running without redis tier", attr.Error(err))
		} else {
			redisStore = store
			remote = store
		}
	}
	cache := embedcache.NewTiered(embedcache.NewMemoryCache(), remote, logger, cacheMetric)

	resolver := imagefetch.NewHTTPResolver(cfg.Assets.Root, cfg.Assets.FetchTimeout, httpClient)
	embedder := embedding.NewHTTPClient(cfg.Embedding.URL, cfg.Embedding.Dims, cfg.Embedding.Timeout, httpClient)

	keys, err := generation.NewKeyPool(cfg.Generation.APIKeys, cfg.Generation.KeyStrategy)
	if err != nil {
		if redisStore != nil {
			_ = redisStore.Close()
		}
		return nil, fmt.Errorf("failed to build generation key pool: %w", err)
	}

	generator, err := generation.NewHTTPClient(generation.Options{
		URL:          cfg.Generation.URL,
		PollURL:      cfg.Generation.PollURL,
		Model:        cfg.Generation.Model,
		Timeout:      cfg.Generation.Timeout,
		PollInterval: cfg.Generation.PollInterval,
		MaxPolls:     cfg.Generation.MaxPolls,
		Defaults: generation.Params{
			Width:         cfg.Generation.Width,
			Height:        cfg.Generation.Height,
			Steps:         cfg.Generation.Steps,
			GuidanceScale: cfg.Generation.GuidanceScale,
		},
	}, keys, httpClient)
	if err != nil {
		if redisStore != nil {
			_ = redisStore.Close()
		}
		return nil, fmt.Errorf("failed to build generation client: %w", err)
	}

	var serviceMetrics scoringservice.Metrics = observability.NoOpMetrics{}
	if metrics != nil {
		serviceMetrics = metrics
	}

	service := scoringservice.NewScoringService(
		resolver,
		embedder,
		cache,
		scoringservice.Config{
			FallbackScore:  cfg.Scoring.FallbackScore,
			RetryAttempts:  cfg.Scoring.RetryAttempts,
			BackoffBase:    cfg.Scoring.BackoffBase,
			AttemptTimeout: cfg.Scoring.AttemptTimeout,
			CacheKeyLen:    cfg.Embedding.CacheKeyLen,
		},
		logger,
		serviceMetrics,
		obs.Tracer,
	)

	logger.InfoContext(ctx, "Scoring module initialized",
		attr.Int("generation_keys", keys.Size()),
		attr.String("key_strategy", cfg.Generation.KeyStrategy),
		attr.Bool("redis_cache", redisStore != nil),
	)

	return &Module{
		Service:   service,
		Generator: generator,
		KeyPool:   keys,
		redis:     redisStore,
		logger:    logger,
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
	m.logger.InfoContext(ctx, "Scoring module goroutine stopped")
}

// Close releases the redis connection, if any.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.redis != nil {
		return m.redis.Close()
	}
	return nil
}
