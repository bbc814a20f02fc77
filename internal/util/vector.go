package util

import "math"

// CosineSimilarity returns the normalized dot product of two vectors. Any
// shape problem (nil, empty, mismatched length) or a zero norm yields 0 so
// that ranking over stale or partial data never fails.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	denominator := math.Sqrt(normA) * math.Sqrt(normB)
	if denominator == 0 {
		return 0
	}
	return dot / denominator
}

// Round3 trims a score for storage and transport.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
