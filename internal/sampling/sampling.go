// Package sampling holds the inverse-CDF draw shared by the sampler and the
// discrete emissions.
package sampling

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// CDF returns the cumulative sums of p.
func CDF(p []float64) []float64 {
	return floats.CumSum(make([]float64, len(p)), p)
}

// Index inverts a cumulative distribution at u in [0, 1). Rounding can leave
// the last cumulative value below u; the last index with positive mass is
// returned then, and 0 when no index has mass.
func Index(cdf []float64, u float64) int {
	for i, c := range cdf {
		if u < c {
			return i
		}
	}
	for i := len(cdf) - 1; i > 0; i-- {
		if cdf[i] > cdf[i-1] {
			return i
		}
	}
	return 0
}

// Draw picks an index of the distribution p using rng.
func Draw(p []float64, rng *rand.Rand) int {
	return Index(CDF(p), rng.Float64())
}
