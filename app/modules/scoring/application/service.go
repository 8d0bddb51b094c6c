package scoringservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedcache"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/embedding"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/imagefetch"
	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ScoringService implements the Service interface.
type ScoringService struct {
	resolver imagefetch.Resolver
	embedder embedding.Client
	cache    embedcache.Cache
	cfg      Config
	logger   *slog.Logger
	metrics  Metrics
	tracer   trace.Tracer

	// backOff builds the wait policy for one embedding call; replaced in tests.
	backOff func() backoff.BackOff
}

// NewScoringService creates a new ScoringService.
func NewScoringService(
	resolver imagefetch.Resolver,
	embedder embedding.Client,
	cache embedcache.Cache,
	cfg Config,
	logger *slog.Logger,
	metrics Metrics,
	tracer trace.Tracer,
) *ScoringService {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = embedcache.NewTiered(nil, nil, logger, nil)
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 20 * time.Second
	}
	s := &ScoringService{
		resolver: resolver,
		embedder: embedder,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
	s.backOff = s.embeddingBackOff
	return s
}

var _ Service = (*ScoringService)(nil)

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ScoringService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName)
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, time.Since(startTime))
		}
	}()

	s.logger.InfoContext(ctx, "Operation triggered", attr.String("operation", operationName))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				attr.String("identifier", identifier),
				attr.Error(err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName)
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Error(wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName)
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
			attr.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			attr.String("operation", operationName),
			attr.String("identifier", identifier),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName)
	}
	return result, nil
}
