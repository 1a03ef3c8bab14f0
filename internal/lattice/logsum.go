// Package lattice implements the log-domain dynamic programming passes of a
// hidden Markov model: forward, backward and Viterbi, together with the
// rank/beam state pruner they share.
//
// All lattices are T x N gonum matrices indexed by (frame, state). Nothing in
// this package retains state between calls.
package lattice

import (
	"math"

	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// LogSumExp returns log(sum(exp(x))) computed without overflow.
// An empty slice or one holding only -Inf yields -Inf.
func LogSumExp(x []float64) float64 {
	if len(x) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(x)
}

// RowLogSumExp reduces every row of m with LogSumExp.
func RowLogSumExp(m *mat.Dense) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = LogSumExp(m.RawRowView(i))
	}
	return out
}

// ClampZero forces every entry at or below domain.ZeroLogProb to -Inf.
func ClampZero(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j, v := range row {
			if v <= domain.ZeroLogProb {
				row[j] = math.Inf(-1)
			}
		}
	}
}

// SafeLog is math.Log with NaN results mapped to -Inf.
func SafeLog(p float64) float64 {
	v := math.Log(p)
	if math.IsNaN(v) {
		return math.Inf(-1)
	}
	return v
}

// LogVec returns the element-wise SafeLog of p.
func LogVec(p []float64) []float64 {
	out := make([]float64, len(p))
	for i, v := range p {
		out[i] = SafeLog(v)
	}
	return out
}

// LogMatrix returns the element-wise SafeLog of m.
func LogMatrix(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return SafeLog(v) }, m)
	return out
}

// ExpMatrix returns the element-wise exponential of m.
func ExpMatrix(m mat.Matrix) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, m)
	return out
}
