package testutils

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/uptrace/bun"

	challengedb "github.com/Black-And-White-Club/promptduel/app/modules/challenge/infrastructure/repositories"
	userdb "github.com/Black-And-White-Club/promptduel/app/modules/user/infrastructure/repositories"
)

// TestDataGenerator provides methods to create test data for integration tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}
	return &TestDataGenerator{faker: gofakeit.New(uint64(s)), seed: s}
}

// GenerateUsers builds n users with unique usernames. Password hashes are
// placeholders; these accounts cannot log in.
func (g *TestDataGenerator) GenerateUsers(n int) []*userdb.User {
	users := make([]*userdb.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, &userdb.User{
			Username:     fmt.Sprintf("%s_%d", g.faker.Username(), i),
			PasswordHash: g.faker.LetterN(60),
		})
	}
	return users
}

// GeneratePrompt returns a short descriptive prompt.
func (g *TestDataGenerator) GeneratePrompt() string {
	return fmt.Sprintf("%s %s %s", g.faker.Adjective(), g.faker.Animal(), g.faker.Verb())
}

// InsertUsers stores the users and fills in their ids.
func InsertUsers(ctx context.Context, db bun.IDB, users []*userdb.User) error {
	if _, err := db.NewInsert().Model(&users).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert users: %w", err)
	}
	return nil
}

// InsertDefaultChallenges seeds the six contest challenges.
func InsertDefaultChallenges(ctx context.Context, db bun.IDB) error {
	if _, err := challengedb.NewRepository(db).SeedDefaults(ctx, db); err != nil {
		return fmt.Errorf("failed to seed challenges: %w", err)
	}
	return nil
}
