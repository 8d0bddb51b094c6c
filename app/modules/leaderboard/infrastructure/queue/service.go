package leaderboardqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"
)

const queueName = "leaderboard"

// Metrics is implemented by *observability.ModuleMetrics.
type Metrics interface {
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
}

// QueueService schedules leaderboard background jobs.
type QueueService interface {
	// EnqueueRecalculation schedules a RecalculateScoresJob and returns its id.
	// Requests for the same caller within a minute collapse into one job.
	EnqueueRecalculation(ctx context.Context, requestedBy int64) (int64, error)
	HealthCheck(ctx context.Context) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service runs the leaderboard queue on River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	db      *bun.DB
	metrics Metrics
}

// NewService connects a pgx pool for River and registers the workers.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, metrics Metrics, recalculator Recalculator) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_leaderboard_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_queue")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_queue")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_queue")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_queue")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRecalculateScoresWorker(recalculator, ctxLogger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: 1},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", attr.Error(err))
		metrics.RecordOperationFailure(ctx, "initialize_queue")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	metrics.RecordOperationSuccess(ctx, "initialize_queue")
	metrics.RecordOperationDuration(ctx, "initialize_queue", time.Since(start))

	ctxLogger.Info("Leaderboard queue service initialized")
	return &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		db:      bunDB,
		metrics: metrics,
	}, nil
}

// Start starts the River client.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", attr.Error(err))
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.Info("Leaderboard queue service started")
	return nil
}

// Stop waits for running jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", attr.Error(err))
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.logger.Info("Leaderboard queue service stopped")
	return nil
}

func (s *Service) EnqueueRecalculation(ctx context.Context, requestedBy int64) (int64, error) {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_recalculation")

	res, err := s.client.Insert(ctx, RecalculateScoresJob{RequestedBy: requestedBy}, &river.InsertOpts{
		Queue: queueName,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Minute,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to enqueue recalculation job", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_recalculation")
		return 0, fmt.Errorf("failed to enqueue recalculation job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_recalculation")
	s.metrics.RecordOperationDuration(ctx, "enqueue_recalculation", time.Since(start))

	s.logger.InfoContext(ctx, "Recalculation job enqueued",
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return res.Job.ID, nil
}

// HealthCheck verifies the River tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("river client is nil")
	}

	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Where("queue = ?", queueName).
		Scan(ctx, &count)
	if err != nil {
		s.logger.Error("Queue service health check failed", attr.Error(err))
		return fmt.Errorf("queue service health check failed: %w", err)
	}

	s.logger.Debug("Queue service health check passed", attr.Int("queued_jobs", count))
	return nil
}
