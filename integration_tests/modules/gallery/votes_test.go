package galleryintegrationtests

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	gallerydb "github.com/Black-And-White-Club/promptduel/app/modules/gallery/infrastructure/repositories"
	"github.com/Black-And-White-Club/promptduel/integration_tests/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if testEnv != nil {
		testEnv.Cleanup()
	}
	os.Exit(code)
}

func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()
	testEnvOnce.Do(func() {
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Gallery test environment initialization failed: %v", testEnvErr)
	}
	return testEnv
}

func TestGallery_ToggleVoteAndList(t *testing.T) {
	env := GetTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, env.Reset(ctx))
	gen := testutils.NewTestDataGenerator(3)
	users := gen.GenerateUsers(2)
	require.NoError(t, testutils.InsertUsers(ctx, env.DB, users))

	repo := gallerydb.NewRepository(env.DB)
	var images []*gallerydb.GeneratedImage
	for i := 0; i < 3; i++ {
		img := &gallerydb.GeneratedImage{
			UserID:    users[0].ID,
			Username:  users[0].Username,
			Prompt:    gen.GeneratePrompt(),
			URL:       "https://provider/free.png",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, repo.SaveImage(ctx, nil, img))
		images = append(images, img)
	}
	target := images[0].ID

	state, err := repo.ToggleVote(ctx, nil, target, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, gallerydb.VoteState{Votes: 1, Voted: true}, state)

	state, err = repo.ToggleVote(ctx, nil, target, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, gallerydb.VoteState{Votes: 2, Voted: true}, state)

	state, err = repo.ToggleVote(ctx, nil, target, users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, gallerydb.VoteState{Votes: 1, Voted: false}, state)

	state, err = repo.GetVoteState(ctx, nil, target, users[1].ID)
	require.NoError(t, err)
	assert.Equal(t, gallerydb.VoteState{Votes: 1, Voted: true}, state)

	state, err = repo.GetVoteState(ctx, nil, target, 0)
	require.NoError(t, err)
	assert.Equal(t, gallerydb.VoteState{Votes: 1, Voted: false}, state)

	_, err = repo.ToggleVote(ctx, nil, 99999, users[0].ID)
	assert.ErrorIs(t, err, gallerydb.ErrImageNotFound)

	page, err := repo.ListImages(ctx, nil, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, images[2].ID, page[0].ID, "newest first")

	page, err = repo.ListImages(ctx, nil, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, target, page[0].ID)
	assert.Equal(t, 1, page[0].VoteCount)
}
