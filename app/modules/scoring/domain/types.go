package scoringdomain

// Challenge is the read-only reference data a submission is scored against.
type Challenge struct {
	ID                    int64
	ReferenceImageLocator string
	ReferencePrompt       string
}

// FallbackReason explains why a submission was given the fallback score.
type FallbackReason string

const (
	FallbackNone           FallbackReason = ""
	FallbackReferenceFetch FallbackReason = "reference_fetch"
	FallbackGeneratedFetch FallbackReason = "generated_fetch"
	FallbackEmbedding      FallbackReason = "embedding"
)

// ScoreOutcome is the result of scoring one generated image.
type ScoreOutcome struct {
	// Score is in [0, 1] with two decimals.
	Score float64
	// RawSimilarity is the clamped cosine before flooring at zero. Zero when
	// the fallback was used.
	RawSimilarity  float64
	FallbackUsed   bool
	FallbackReason FallbackReason
	// CacheHits counts how many of the two embeddings came from the cache.
	CacheHits int
}
