package submissionservice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Black-And-White-Club/frolf-bot-shared/utils/results"
	scoringdomain "github.com/Black-And-White-Club/promptduel/app/modules/scoring/domain"
	"github.com/Black-And-White-Club/promptduel/app/modules/scoring/infrastructure/generation"
	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

type testDeps struct {
	ledger  *FakeLedger
	gen     *FakeGenerator
	scorer  *FakeScorer
	metrics *FakeMetrics
	delays  []time.Duration
}

func newTestService(d *testDeps) *SubmissionService {
	s := NewSubmissionService(
		d.ledger,
		&FakeChallengeRepo{},
		d.gen,
		d.scorer,
		Config{MaxPromptLength: 50},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		d.metrics,
		noop.NewTracerProvider().Tracer("test"),
		nil,
	)
	policy := s.backOff
	s.backOff = func() backoff.BackOff {
		return &recordingBackOff{inner: policy(), delays: &d.delays}
	}
	return s
}

// recordingBackOff keeps the waits the ledger policy asks for and skips them.
type recordingBackOff struct {
	inner  backoff.BackOff
	delays *[]time.Duration
}

func (b *recordingBackOff) Reset() { b.inner.Reset() }

func (b *recordingBackOff) NextBackOff() time.Duration {
	*b.delays = append(*b.delays, b.inner.NextBackOff())
	return 0
}

func countTrace(trace []string, name string) int {
	n := 0
	for _, t := range trace {
		if t == name {
			n++
		}
	}
	return n
}

func TestSubmissionService_Submit(t *testing.T) {
	alice := User{ID: 7, Username: "SEAT007"}

	tests := []struct {
		name        string
		req         SubmitRequest
		setup       func(d *testDeps)
		wantErr     bool
		wantFailure FailureCode
		verify      func(t *testing.T, d *testDeps, resp *SubmitResponse)
	}{
		{
			name: "scores and records a first attempt",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "  a happy dog  ", User: alice},
			setup: func(d *testDeps) {
				d.ledger.RecordAttemptFunc = func(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
					assert.Equal(t, submissiondb.AttemptInput{
						UserID:            7,
						ChallengeID:       1,
						Prompt:            "a happy dog",
						GeneratedImageURL: "https://provider/x.png",
						Score:             0.99,
					}, in)
					return &submissiondb.AttemptRecord{SubmissionID: 42, AttemptsUsed: 1, AttemptsRemaining: 5, TotalScore: 0.99, NewPersonalBest: true}, nil
				}
			},
			verify: func(t *testing.T, d *testDeps, resp *SubmitResponse) {
				assert.Equal(t, &SubmitResponse{
					SubmissionID:      42,
					Score:             0.99,
					GeneratedImageURL: "https://provider/x.png",
					AttemptsUsed:      1,
					AttemptsRemaining: 5,
					CanSubmit:         true,
					TotalScore:        0.99,
					NewPersonalBest:   true,
				}, resp)
				assert.Equal(t, []string{"a happy dog"}, d.gen.prompts)
				assert.Equal(t, []string{"success"}, d.metrics.generations)
			},
		},
		{
			name:        "blank prompt",
			req:         SubmitRequest{ChallengeID: 1, UserPrompt: "   ", User: alice},
			wantFailure: CodeInvalidPrompt,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Empty(t, d.gen.prompts)
				assert.Empty(t, d.ledger.Trace())
			},
		},
		{
			name:        "prompt too long",
			req:         SubmitRequest{ChallengeID: 1, UserPrompt: strings.Repeat("x", 51), User: alice},
			wantFailure: CodeInvalidPrompt,
		},
		{
			name:        "unknown challenge",
			req:         SubmitRequest{ChallengeID: 99, UserPrompt: "a cat", User: alice},
			wantFailure: CodeChallengeNotFound,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Empty(t, d.gen.prompts)
			},
		},
		{
			name: "cap reached before generation",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.ledger.GetAttemptsUsedFunc = func(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error) {
					return submissiondb.AttemptCap, nil
				}
			},
			wantFailure: CodeNoAttemptsRemaining,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Empty(t, d.gen.prompts, "no provider call once the cap is reached")
				assert.Zero(t, countTrace(d.ledger.Trace(), "RecordAttempt"))
			},
		},
		{
			name: "provider failure consumes no attempt",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.gen.GenerateFunc = func(ctx context.Context, prompt string, params generation.Params) (string, error) {
					return "", &generation.GenerationProviderError{StatusCode: 500, Body: "boom"}
				}
			},
			wantFailure: CodeGenerationFailed,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Zero(t, d.scorer.calls)
				assert.Zero(t, countTrace(d.ledger.Trace(), "RecordAttempt"))
				assert.Equal(t, []string{"provider_error"}, d.metrics.generations)
			},
		},
		{
			name: "no image returned",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.gen.GenerateFunc = func(ctx context.Context, prompt string, params generation.Params) (string, error) {
					return "", &generation.NoImageReturnedError{}
				}
			},
			wantFailure: CodeGenerationFailed,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Equal(t, []string{"no_image"}, d.metrics.generations)
			},
		},
		{
			name: "fallback score is still recorded",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.scorer.ScoreFunc = func(ctx context.Context, c scoringdomain.Challenge, url string) (results.OperationResult[scoringdomain.ScoreOutcome, error], error) {
					return results.SuccessResult[scoringdomain.ScoreOutcome, error](scoringdomain.ScoreOutcome{
						Score:          0.10,
						FallbackUsed:   true,
						FallbackReason: scoringdomain.FallbackEmbedding,
					}), nil
				}
			},
			verify: func(t *testing.T, d *testDeps, resp *SubmitResponse) {
				assert.Equal(t, 0.10, resp.Score)
				assert.Equal(t, 1, countTrace(d.ledger.Trace(), "RecordAttempt"))
			},
		},
		{
			name: "concurrent attempt took the last slot",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.ledger.GetAttemptsUsedFunc = func(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error) {
					return 5, nil
				}
				d.ledger.RecordAttemptFunc = func(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
					return nil, submissiondb.ErrAttemptsExhausted
				}
			},
			wantFailure: CodeNoAttemptsRemaining,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Equal(t, 1, countTrace(d.ledger.Trace(), "RecordAttempt"), "exhaustion is not retried")
				assert.Empty(t, d.delays)
				assert.Zero(t, d.metrics.ledgerFailures)
			},
		},
		{
			name: "transient ledger failure is retried",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				calls := 0
				d.ledger.RecordAttemptFunc = func(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
					calls++
					if calls < 3 {
						return nil, errors.New("connection reset")
					}
					return &submissiondb.AttemptRecord{SubmissionID: 3, AttemptsUsed: 2, AttemptsRemaining: 4, TotalScore: 1.5}, nil
				}
			},
			verify: func(t *testing.T, d *testDeps, resp *SubmitResponse) {
				assert.EqualValues(t, 3, resp.SubmissionID)
				assert.Equal(t, 3, countTrace(d.ledger.Trace(), "RecordAttempt"))
				assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, d.delays)
			},
		},
		{
			name: "ledger failure after retries surfaces an error",
			req:  SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: alice},
			setup: func(d *testDeps) {
				d.ledger.RecordAttemptFunc = func(ctx context.Context, db bun.IDB, in submissiondb.AttemptInput) (*submissiondb.AttemptRecord, error) {
					return nil, errors.New("database is down")
				}
			},
			wantErr: true,
			verify: func(t *testing.T, d *testDeps, _ *SubmitResponse) {
				assert.Equal(t, 3, countTrace(d.ledger.Trace(), "RecordAttempt"))
				assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, d.delays)
				assert.Equal(t, 1, d.metrics.ledgerFailures)
				assert.Equal(t, 1, d.metrics.failures)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &testDeps{
				ledger:  &FakeLedger{},
				gen:     &FakeGenerator{},
				scorer:  &FakeScorer{},
				metrics: &FakeMetrics{},
			}
			if tt.setup != nil {
				tt.setup(d)
			}
			s := newTestService(d)

			result, err := s.Submit(context.Background(), tt.req)
			if tt.wantErr {
				require.Error(t, err)
				if tt.verify != nil {
					tt.verify(t, d, nil)
				}
				return
			}
			require.NoError(t, err)

			if tt.wantFailure != "" {
				require.True(t, result.IsFailure(), "expected failure result")
				assert.Equal(t, tt.wantFailure, (*result.Failure).Code)
				assert.NotEmpty(t, (*result.Failure).Reason)
				if tt.verify != nil {
					tt.verify(t, d, nil)
				}
				return
			}

			require.True(t, result.IsSuccess(), "expected success result")
			if tt.verify != nil {
				tt.verify(t, d, *result.Success)
			}
		})
	}
}

func TestSubmissionService_Submit_ClientGoneAfterGeneration(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &testDeps{
		ledger: &FakeLedger{},
		gen: &FakeGenerator{GenerateFunc: func(ctx context.Context, prompt string, params generation.Params) (string, error) {
			cancel()
			return "https://provider/x.png", nil
		}},
		scorer: &FakeScorer{ScoreFunc: func(ctx context.Context, c scoringdomain.Challenge, url string) (results.OperationResult[scoringdomain.ScoreOutcome, error], error) {
			if ctx.Err() != nil {
				return results.OperationResult[scoringdomain.ScoreOutcome, error]{}, ctx.Err()
			}
			return results.SuccessResult[scoringdomain.ScoreOutcome, error](scoringdomain.ScoreOutcome{Score: 0.5}), nil
		}},
		metrics: &FakeMetrics{},
	}
	s := newTestService(d)

	result, err := s.Submit(ctx, SubmitRequest{ChallengeID: 1, UserPrompt: "a cat", User: User{ID: 1}})
	require.NoError(t, err)
	require.True(t, result.IsSuccess())
	assert.Equal(t, 0.5, (*result.Success).Score)
	assert.Equal(t, 1, countTrace(d.ledger.Trace(), "RecordAttempt"))
}

func TestSubmissionService_AttemptCounts(t *testing.T) {
	ledger := &FakeLedger{
		GetAttemptsUsedFunc: func(ctx context.Context, db bun.IDB, userID, challengeID int64) (int, error) {
			if challengeID == 2 {
				return 4, nil
			}
			return 0, nil
		},
		ListAttemptCountsFunc: func(ctx context.Context, db bun.IDB, userID int64) ([]submissiondb.AttemptCounter, error) {
			return []submissiondb.AttemptCounter{
				{UserID: userID, ChallengeID: 1, AttemptsUsed: 6},
				{UserID: userID, ChallengeID: 2, AttemptsUsed: 4},
			}, nil
		},
	}
	s := newTestService(&testDeps{ledger: ledger, gen: &FakeGenerator{}, scorer: &FakeScorer{}, metrics: &FakeMetrics{}})

	one, err := s.GetAttemptCount(context.Background(), 7, 2)
	require.NoError(t, err)
	assert.Equal(t, AttemptCount{ChallengeID: 2, AttemptsUsed: 4, AttemptsRemaining: 2, CanSubmit: true}, one)

	fresh, err := s.GetAttemptCount(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, AttemptCount{ChallengeID: 5, AttemptsRemaining: 6, CanSubmit: true}, fresh)

	all, err := s.ListAttemptCounts(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []AttemptCount{
		{ChallengeID: 1, AttemptsUsed: 6, AttemptsRemaining: 0, CanSubmit: false},
		{ChallengeID: 2, AttemptsUsed: 4, AttemptsRemaining: 2, CanSubmit: true},
	}, all)
}

func TestSubmissionService_ListMySubmissions(t *testing.T) {
	var gotLimit int
	ledger := &FakeLedger{
		ListUserSubmissionsFunc: func(ctx context.Context, db bun.IDB, userID int64, limit int) ([]submissiondb.SubmissionView, error) {
			gotLimit = limit
			return nil, errors.New("timeout")
		},
	}
	s := newTestService(&testDeps{ledger: ledger, gen: &FakeGenerator{}, scorer: &FakeScorer{}, metrics: &FakeMetrics{}})

	_, err := s.ListMySubmissions(context.Background(), 7)
	require.Error(t, err)
	assert.Equal(t, 100, gotLimit)
}
