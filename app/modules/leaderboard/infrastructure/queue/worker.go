package leaderboardqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/observability/attr"
	"github.com/riverqueue/river"
)

// Recalculator is the work a RecalculateScoresJob performs.
type Recalculator interface {
	RecalculateTotals(ctx context.Context) (int, error)
}

// RecalculateScoresWorker runs RecalculateScoresJob.
type RecalculateScoresWorker struct {
	river.WorkerDefaults[RecalculateScoresJob]

	recalculator Recalculator
	logger       *slog.Logger
}

func NewRecalculateScoresWorker(recalculator Recalculator, logger *slog.Logger) *RecalculateScoresWorker {
	return &RecalculateScoresWorker{recalculator: recalculator, logger: logger}
}

func (w *RecalculateScoresWorker) Timeout(*river.Job[RecalculateScoresJob]) time.Duration {
	return 5 * time.Minute
}

func (w *RecalculateScoresWorker) Work(ctx context.Context, job *river.Job[RecalculateScoresJob]) error {
	w.logger.InfoContext(ctx, "Recalculating user totals",
		attr.Int64("job_id", job.ID),
		attr.Int64("requested_by", job.Args.RequestedBy),
		attr.Int("attempt", job.Attempt),
	)

	n, err := w.recalculator.RecalculateTotals(ctx)
	if err != nil {
		return fmt.Errorf("recalculate totals: %w", err)
	}

	w.logger.InfoContext(ctx, "User totals recalculated",
		attr.Int64("job_id", job.ID),
		attr.Int("users_updated", n),
	)
	return nil
}
