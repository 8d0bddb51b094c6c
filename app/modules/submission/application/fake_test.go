package submissionservice

import (
	"context"
	"sync"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	scoringservice "github.com/Black-And-White-Club/promptduel/app/modules/scoring/application"
	scoringdomain "github.com/Black-And-White-Club/promptduel/app/modules/scoring/domain"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ledger
// ------------------------

type FakeLedger struct {
	trace []string

	RecordAttemptFunc       func(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error)
	GetAttemptsUsedFunc     func(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error)
	ListAttemptCountsFunc   func(ctx context.Context, db bun.IDB, userID int64) ([]submissiondb.AttemptCounter, error)
	ListUserSubmissionsFunc func(ctx context.Context, db bun.IDB, userID int64, limit int) ([]submissiondb.SubmissionView, error)
}

func (f *FakeLedger) Trace() []string { return f.trace }

func (f *FakeLedger) RecordAttempt(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
	f.trace = append(f.trace, "RecordAttempt")
	if f.RecordAttemptFunc != nil {
		return f.RecordAttemptFunc(ctx, db, in)
	}
	return &submissiondb.AttemptRecord{SubmissionID: 1, AttemptsUsed: 1, AttemptsRemaining: 5, TotalScore: in.Score, NewPersonalBest: true}, nil
}

func (f *FakeLedger) GetAttemptsUsed(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error) {
	f.trace = append(f.trace, "GetAttemptsUsed")
	if f.GetAttemptsUsedFunc != nil {
		return f.GetAttemptsUsedFunc(ctx, db, userID, challengeID)
	}
	return 0, nil
}

func (f *FakeLedger) ListAttemptCounts(ctx context.Context, db bun.IDB, userID int64) ([]submissiondb.AttemptCounter, error) {
	f.trace = append(f.trace, "ListAttemptCounts")
	if f.ListAttemptCountsFunc != nil {
		return f.ListAttemptCountsFunc(ctx, db, userID)
	}
	return nil, nil
}

func (f *FakeLedger) ListUserSubmissions(ctx context.Context, db bun.IDB, userID int64, limit int) ([]submissiondb.SubmissionView, error) {
	f.trace = append(f.trace, "ListUserSubmissions")
	if f.ListUserSubmissionsFunc != nil {
		return f.ListUserSubmissionsFunc(ctx, db, userID, limit)
	}
	return nil, nil
}

var _ submissiondb.Repository = (*FakeLedger)(nil)

// ------------------------
// Fake Challenge Repository
// ------------------------

type FakeChallengeRepo struct {
	GetByIDFunc func(ctx context.Context, db bun.IDB, id int64) (*challengedb.Challenge, error)
}

func (f *FakeChallengeRepo) GetByID(ctx context.Context, db bun.IDB, id int64) (*challengedb.Challenge, error) {
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	if id == 1 {
		return &challengedb.Challenge{ID: 1, ImageURL: "/images/1.png", Prompt: "a dog"}, nil
	}
	return nil, challengedb.ErrNotFound
}

func (f *FakeChallengeRepo) List(ctx context.Context, db bun.IDB) ([]challengedb.Challenge, error) {
	return nil, nil
}

func (f *FakeChallengeRepo) SeedDefaults(ctx context.Context, db bun.IDB) (int, error) {
	return 0, nil
}

var _ challengedb.Repository = (*FakeChallengeRepo)(nil)

// ------------------------
// Fake Generator
// ------------------------

type FakeGenerator struct {
	prompts []string

	GenerateFunc func(ctx context.Context, prompt string, params generation.Params) (string, error)
}

func (f *FakeGenerator) Generate(ctx context.Context, prompt string, params generation.Params) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.GenerateFunc != nil {
		return f.GenerateFunc(ctx, prompt, params)
	}
	return "https://provider/x.png", nil
}

var _ generation.Client = (*FakeGenerator)(nil)

// ------------------------
// Fake Scorer
// ------------------------

type FakeScorer struct {
	calls int

	ScoreFunc func(ctx context.Context, challenge scoringdomain.Challenge, url string) (results.OperationResult[scoringdomain.ScoreOutcome, error], error)
}

func (f *FakeScorer) ScoreSubmission(ctx context.Context, challenge scoringdomain.Challenge, url string) (results.OperationResult[scoringdomain.ScoreOutcome, error], error) {
	f.calls++
	if f.ScoreFunc != nil {
		return f.ScoreFunc(ctx, challenge, url)
	}
	return results.SuccessResult[scoringdomain.ScoreOutcome, error](scoringdomain.ScoreOutcome{Score: 0.99, RawSimilarity: 0.994}), nil
}

var _ scoringservice.Service = (*FakeScorer)(nil)

// ------------------------
// Fake Metrics
// ------------------------

type FakeMetrics struct {
	mu             sync.Mutex
	generations    []string
	ledgerFailures int
	failures       int
}

func (m *FakeMetrics) RecordOperationAttempt(ctx context.Context, operation string) {}
func (m *FakeMetrics) RecordOperationSuccess(ctx context.Context, operation string) {}
func (m *FakeMetrics) RecordOperationFailure(ctx context.Context, operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}
func (m *FakeMetrics) RecordOperationDuration(ctx context.Context, operation string, d time.Duration) {
}
func (m *FakeMetrics) RecordGeneration(ctx context.Context, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations = append(m.generations, status)
}
func (m *FakeMetrics) RecordLedgerFailure(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledgerFailures++
}

var _ Metrics = (*FakeMetrics)(nil)
