package domain

import "math"

// CosineSimilarity returns the cosine similarity between two vectors in
// [-1, 1]. It returns 0 when either vector has zero norm or the dimensions
// differ, so callers never divide by zero.
//
// The SQL-side ranking in the chunk repository computes the same score with
// pgvector's cosine-distance operator; this function is the reference for
// that contract and backs local scoring in tests.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
