package leaderboardqueue

// RecalculateScoresJob rebuilds every user's total from their submissions.
type RecalculateScoresJob struct {
	RequestedBy int64 `json:"requested_by"`
}

// Kind returns the job type identifier for River
func (RecalculateScoresJob) Kind() string { return "recalculate_scores" }
