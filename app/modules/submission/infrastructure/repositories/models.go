package submissiondb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// AttemptCap is the number of scored attempts a user gets per challenge.
const AttemptCap = 6

// Submission is one accepted, scored attempt. Rows are append-only.
type Submission struct {
	bun.BaseModel     `bun:"table:submissions,alias:s"`
	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID            int64     `bun:"user_id,notnull" json:"user_id"`
	ChallengeID       int64     `bun:"challenge_id,notnull" json:"challenge_id"`
	GeneratedImageURL string    `bun:"generated_image_url,notnull" json:"generated_image_url"`
	UserPrompt        string    `bun:"user_prompt,notnull" json:"user_prompt"`
	Score             float64   `bun:"score,type:numeric(4,2),notnull" json:"score"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

var _ bun.BeforeAppendModelHook = (*Submission)(nil)

func (s *Submission) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); ok && s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	return nil
}

// AttemptCounter tracks attempts per (user, challenge). Created lazily on the
// first attempt and only ever incremented.
type AttemptCounter struct {
	bun.BaseModel `bun:"table:submission_counts,alias:sc"`
	ID            int64     `bun:"id,pk,autoincrement" json:"-"`
	UserID        int64     `bun:"user_id,notnull" json:"user_id"`
	ChallengeID   int64     `bun:"challenge_id,notnull" json:"challenge_id"`
	AttemptsUsed  int       `bun:"attempts_used,notnull,default:0" json:"attempts_used"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// SubmissionView is a submission joined with its challenge reference.
type SubmissionView struct {
	ID                int64     `bun:"id" json:"id"`
	ChallengeID       int64     `bun:"challenge_id" json:"challenge_id"`
	GeneratedImageURL string    `bun:"generated_image_url" json:"generated_image_url"`
	UserPrompt        string    `bun:"user_prompt" json:"user_prompt"`
	Score             float64   `bun:"score" json:"score"`
	CreatedAt         time.Time `bun:"created_at" json:"created_at"`
	OriginalImageURL  string    `bun:"original_image_url" json:"original_image_url"`
	ChallengePrompt   string    `bun:"challenge_prompt" json:"challenge_prompt"`
}

// AttemptInput is everything RecordAttempt persists.
type AttemptInput struct {
	UserID            int64
	ChallengeID       int64
	Prompt            string
	GeneratedImageURL string
	Score             float64
}

// AttemptRecord reports the ledger state after an attempt was recorded.
type AttemptRecord struct {
	SubmissionID      int64
	AttemptsUsed      int
	AttemptsRemaining int
	TotalScore        float64
	PreviousBest      float64
	NewPersonalBest   bool
}

// Remaining returns how many attempts are left after used.
func Remaining(used int) int {
	return max(0, AttemptCap-used)
}
