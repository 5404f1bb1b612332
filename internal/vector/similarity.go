package vector

import "math"

// Cosine returns the cosine similarity of a and b in [-1, 1]. Vectors of
// different length are compared over their common prefix; a zero vector has
// similarity 0 with everything.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// SimilarityScore maps a cosine similarity onto the 0..100 relevance scale.
func SimilarityScore(sim float64) float64 {
	if math.IsNaN(sim) {
		return 0
	}
	s := ((sim + 1) / 2) * 100
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
