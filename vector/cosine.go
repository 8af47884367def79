package vector

import "math"

// CosineSimilarity calculates the cosine similarity between two vectors.
// ok is false when the similarity is undefined: empty vectors, mismatched
// dimensions, or a zero-magnitude operand.
func CosineSimilarity(a, b []float32) (score float64, ok bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dotProduct, normA, normB float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dotProduct += va * vb
		normA += va * va
		normB += vb * vb
	}

	if normA == 0 || normB == 0 {
		return 0, false
	}

	return clamp(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))), true
}

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineWithNorms is CosineSimilarity for callers that cache magnitudes.
// Both norms must be non-zero and the vectors must have equal length.
func CosineWithNorms(a, b []float32, normA, normB float64) float64 {
	var dotProduct float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
	}
	return clamp(dotProduct / (normA * normB))
}

func clamp(s float64) float64 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
