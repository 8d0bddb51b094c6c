package leaderboardservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// LeaderboardService implements the Service interface.
type LeaderboardService struct {
	repo      leaderboarddb.Repository
	scheduler Scheduler
	palette   ChartPalette
	logger    *slog.Logger
	tracer    trace.Tracer
	db        *bun.DB
}

func NewLeaderboardService(repo leaderboarddb.Repository, logger *slog.Logger, tracer trace.Tracer, db *bun.DB) *LeaderboardService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderboardService{
		repo:    repo,
		palette: DefaultPalette,
		logger:  logger,
		tracer:  tracer,
		db:      db,
	}
}

var _ Service = (*LeaderboardService)(nil)

// UseScheduler routes ScheduleRecalculation through a background queue.
func (s *LeaderboardService) UseScheduler(scheduler Scheduler) {
	s.scheduler = scheduler
}

func (s *LeaderboardService) start(ctx context.Context, name string) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *LeaderboardService) idb() bun.IDB {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *LeaderboardService) GetLeaderboard(ctx context.Context) ([]leaderboarddb.Entry, error) {
	ctx, span := s.start(ctx, "LeaderboardService.GetLeaderboard")
	defer span.End()

	entries, err := s.repo.TopUsers(ctx, s.idb(), TopLimit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("GetLeaderboard: %w", err)
	}
	return entries, nil
}

func (s *LeaderboardService) RenderChart(ctx context.Context) ([]byte, error) {
	entries, err := s.GetLeaderboard(ctx)
	if err != nil {
		return nil, err
	}
	return GenerateStandingsChart(entries, s.palette)
}

func (s *LeaderboardService) ExportXLSX(ctx context.Context) ([]byte, error) {
	ctx, span := s.start(ctx, "LeaderboardService.ExportXLSX")
	defer span.End()

	entries, err := s.repo.TopUsers(ctx, s.idb(), TopLimit)
	if err != nil {
		return nil, fmt.Errorf("ExportXLSX: %w", err)
	}
	bests, err := s.repo.ChallengeBests(ctx, s.idb())
	if err != nil {
		return nil, fmt.Errorf("ExportXLSX: %w", err)
	}
	return BuildWorkbook(entries, bests)
}

// RecalculateTotals rebuilds every total in one transaction.
func (s *LeaderboardService) RecalculateTotals(ctx context.Context) (int, error) {
	ctx, span := s.start(ctx, "LeaderboardService.RecalculateTotals")
	defer span.End()

	var n int
	recalc := func(ctx context.Context, db bun.IDB) error {
		var err error
		n, err = s.repo.RecalculateTotals(ctx, db)
		return err
	}

	var err error
	if s.db == nil {
		err = recalc(ctx, nil)
	} else {
		err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
			return recalc(ctx, tx)
		})
	}
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "Failed to recalculate totals", attr.Error(err))
		return 0, fmt.Errorf("RecalculateTotals: %w", err)
	}

	s.logger.InfoContext(ctx, "Recalculated user totals", attr.Int("users_updated", n))
	return n, nil
}

func (s *LeaderboardService) ScheduleRecalculation(ctx context.Context, requestedBy int64) (RecalculationTicket, error) {
	if s.scheduler == nil {
		n, err := s.RecalculateTotals(ctx)
		if err != nil {
			return RecalculationTicket{}, err
		}
		return RecalculationTicket{UsersUpdated: n}, nil
	}

	jobID, err := s.scheduler.EnqueueRecalculation(ctx, requestedBy)
	if err != nil {
		return RecalculationTicket{}, fmt.Errorf("ScheduleRecalculation: %w", err)
	}
	return RecalculationTicket{JobID: jobID, Queued: true}, nil
}
