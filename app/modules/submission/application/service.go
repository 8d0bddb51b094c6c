package submissionservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	scoringservice "github.com/Black-And-White-Club/promptduel/app/modules/scoring/application"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/cenkalti/backoff/v5"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultMaxPromptLength = 1000
	defaultLedgerAttempts  = 3
	defaultLedgerBackoff   = 200 * time.Millisecond
	defaultPipelineTimeout = 3 * time.Minute
	mySubmissionsLimit     = 100
)

// SubmissionService implements the Service interface.
type SubmissionService struct {
	ledger     submissiondb.Repository
	challenges challengedb.Repository
	generator  generation.Client
	scorer     scoringservice.Service
	cfg        Config
	logger     *slog.Logger
	metrics    Metrics
	tracer     trace.Tracer
	db         *bun.DB

	// backOff builds the wait policy for one ledger write; replaced in tests.
	backOff func() backoff.BackOff
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	ledger submissiondb.Repository,
	challenges challengedb.Repository,
	generator generation.Client,
	scorer scoringservice.Service,
	cfg Config,
	logger *slog.Logger,
	metrics Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *SubmissionService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxPromptLength <= 0 {
		cfg.MaxPromptLength = defaultMaxPromptLength
	}
	if cfg.LedgerAttempts <= 0 {
		cfg.LedgerAttempts = defaultLedgerAttempts
	}
	if cfg.LedgerBackoff <= 0 {
		cfg.LedgerBackoff = defaultLedgerBackoff
	}
	if cfg.PipelineTimeout <= 0 {
		cfg.PipelineTimeout = defaultPipelineTimeout
	}
	s := &SubmissionService{
		ledger:     ledger,
		challenges: challenges,
		generator:  generator,
		scorer:     scorer,
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		tracer:     tracer,
		db:         db,
	}
	s.backOff = func() backoff.BackOff { return &linearBackOff{step: s.cfg.LedgerBackoff} }
	return s
}

var _ Service = (*SubmissionService)(nil)

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) Reset() { b.n = 0 }

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func userIdentifier(userID, challengeID int64) string {
	return strconv.FormatInt(userID, 10) + "/" + strconv.FormatInt(challengeID, 10)
}

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *SubmissionService,
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

	s.logger.InfoContext(ctx, "Operation triggered",
		attr.ExtractCorrelationID(ctx),
		attr.String("operation", operationName),
	)

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

// runInTx runs fn inside a transaction, or with a nil db when the service has
// no database (tests).
func runInTx[S any, F any](
	s *SubmissionService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
