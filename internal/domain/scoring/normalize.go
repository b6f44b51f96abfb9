package scoring

import "math"

// Epsilon is the smallest norm Normalize divides by.
const Epsilon = 1e-9

// Norm returns the Euclidean norm of v.
func Norm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns v scaled to unit Euclidean norm. When the norm is below
// Epsilon the vector is returned unchanged.
func Normalize(v []float64) []float64 {
	n := Norm(v)
	if n < Epsilon {
		return v
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}
