package scoringdomain

import "math"

// CosineSimilarity returns dot(a,b) / (|a| * |b|) clamped to [-1, 1].
//
// Vectors of different length are not comparable: the result is 0 and ok is
// false so callers can report the dimension mismatch. A zero-norm vector also
// yields 0, with ok true.
func CosineSimilarity(a, b []float64) (sim float64, ok bool) {
	if len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, true
	}

	sim = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0, true
	}
	return clamp(sim, -1, 1), true
}

// ClampScore turns a raw similarity into a persisted score: negatives become
// 0, the result is capped at 1 and rounded to two decimals.
func ClampScore(sim float64) float64 {
	if math.IsNaN(sim) {
		return 0
	}
	return Round2(clamp(sim, 0, 1))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
