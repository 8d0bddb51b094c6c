package submissionintegrationtests

import (
	"errors"
	"sync"
	"testing"

	submissiondb "github.com/Black-And-White-Club/promptduel/app/modules/submission/infrastructure/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attempt(userID, challengeID int64, score float64) submissiondb.AttemptInput {
	return submissiondb.AttemptInput{
		UserID:            userID,
		ChallengeID:       challengeID,
		Prompt:            "a dragon over a castle",
		GeneratedImageURL: "https://provider/img.png",
		Score:             score,
	}
}

func TestRecordAttempt_PersonalBest(t *testing.T) {
	deps := SetupLedger(t, 1)
	user := deps.Users[0]

	scores := []float64{0.3, 0.7, 0.5}
	wantBest := []bool{true, true, false}
	for i, s := range scores {
		rec, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 1, s))
		require.NoError(t, err)
		assert.Equal(t, i+1, rec.AttemptsUsed)
		assert.Equal(t, submissiondb.AttemptCap-(i+1), rec.AttemptsRemaining)
		assert.Equal(t, wantBest[i], rec.NewPersonalBest, "attempt %d", i+1)
	}

	assert.InDelta(t, 0.7, totalScore(t, deps, user.ID), 1e-9)
}

func TestRecordAttempt_TotalsAddAcrossChallenges(t *testing.T) {
	deps := SetupLedger(t, 1)
	user := deps.Users[0]

	_, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 1, 0.42))
	require.NoError(t, err)
	rec, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 2, 0.35))
	require.NoError(t, err)

	assert.InDelta(t, 0.77, rec.TotalScore, 1e-9)
	assert.InDelta(t, 0.77, totalScore(t, deps, user.ID), 1e-9)
}

func TestRecordAttempt_CapIsEnforced(t *testing.T) {
	deps := SetupLedger(t, 1)
	user := deps.Users[0]

	for i := 0; i < submissiondb.AttemptCap; i++ {
		_, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 3, 0.1))
		require.NoError(t, err)
	}

	_, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 3, 0.99))
	assert.ErrorIs(t, err, submissiondb.ErrAttemptsExhausted)

	used, err := deps.Repo.GetAttemptsUsed(deps.Ctx, nil, user.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, submissiondb.AttemptCap, used)

	views, err := deps.Repo.ListUserSubmissions(deps.Ctx, nil, user.ID, 0)
	require.NoError(t, err)
	assert.Len(t, views, submissiondb.AttemptCap, "rejected attempt must leave no submission row")
	assert.InDelta(t, 0.1, totalScore(t, deps, user.ID), 1e-9)
}

func TestRecordAttempt_ConcurrentAttemptsNeverExceedCap(t *testing.T) {
	deps := SetupLedger(t, 1)
	user := deps.Users[0]

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		accepted  int
		exhausted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := deps.Repo.RecordAttempt(deps.Ctx, nil, attempt(user.ID, 4, float64(i)/100))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, submissiondb.ErrAttemptsExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, submissiondb.AttemptCap, accepted)
	assert.Equal(t, workers-submissiondb.AttemptCap, exhausted)

	counts, err := deps.Repo.ListAttemptCounts(deps.Ctx, nil, user.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, submissiondb.AttemptCap, counts[0].AttemptsUsed)
}

func TestRecordAttempt_ConcurrentChallengesKeepTotalsAdditive(t *testing.T) {
	deps := SetupLedger(t, 1)
	user := deps.Users[0]

	// Two attempts per challenge, all in flight at once.
	var (
		wg       sync.WaitGroup
		wantSum  float64
		attempts []submissiondb.AttemptInput
	)
	for c := int64(1); c <= 6; c++ {
		low := 0.10 + float64(c)/100
		high := 0.30 + float64(c)/100
		wantSum += high
		attempts = append(attempts, attempt(user.ID, c, low), attempt(user.ID, c, high))
	}

	errs := make(chan error, len(attempts))
	for _, in := range attempts {
		wg.Add(1)
		go func(in submissiondb.AttemptInput) {
			defer wg.Done()
			_, err := deps.Repo.RecordAttempt(deps.Ctx, nil, in)
			errs <- err
		}(in)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.InDelta(t, wantSum, totalScore(t, deps, user.ID), 1e-9)

	counts, err := deps.Repo.ListAttemptCounts(deps.Ctx, nil, user.ID)
	require.NoError(t, err)
	require.Len(t, counts, 6)
	for _, c := range counts {
		assert.Equal(t, 2, c.AttemptsUsed, "challenge %d", c.ChallengeID)
	}
}
