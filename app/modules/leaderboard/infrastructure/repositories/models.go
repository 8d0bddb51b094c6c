package leaderboarddb

// Entry is one row of the standings.
type Entry struct {
	ID         int64   `bun:"id" json:"id"`
	Username   string  `bun:"username" json:"username"`
	TotalScore float64 `bun:"total_score" json:"total_score"`
}

// ChallengeBest is a user's best score on one challenge.
type ChallengeBest struct {
	UserID      int64   `bun:"user_id" json:"user_id"`
	Username    string  `bun:"username" json:"username"`
	ChallengeID int64   `bun:"challenge_id" json:"challenge_id"`
	BestScore   float64 `bun:"best_score" json:"best_score"`
	Attempts    int     `bun:"attempts" json:"attempts"`
}
