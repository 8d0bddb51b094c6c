package leaderboardservice

import (
	"context"

	leaderboarddb "github.com/Black-And-White-Club/promptduel/app/modules/leaderboard/infrastructure/repositories"
)

// TopLimit is the size of the public standings.
const TopLimit = 50

// Service serves standings and rebuilds totals.
type Service interface {
	GetLeaderboard(ctx context.Context) ([]leaderboarddb.Entry, error)
	RenderChart(ctx context.Context) ([]byte, error)
	ExportXLSX(ctx context.Context) ([]byte, error)
	RecalculateTotals(ctx context.Context) (int, error)
	ScheduleRecalculation(ctx context.Context, requestedBy int64) (RecalculationTicket, error)
}

// Scheduler enqueues background recalculation.
type Scheduler interface {
	EnqueueRecalculation(ctx context.Context, requestedBy int64) (int64, error)
}

// RecalculationTicket reports how a recalculation request was handled.
// Without a scheduler the work runs inline and UsersUpdated is set.
type RecalculationTicket struct {
	JobID        int64 `json:"job_id,omitempty"`
	Queued       bool  `json:"queued"`
	UsersUpdated int   `json:"users_updated,omitempty"`
}
