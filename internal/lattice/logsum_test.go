package lattice

import (
	"math"
	"testing"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestLogSumExp(t *testing.T) {
	negInf := math.Inf(-1)

	t.Run("Matches Direct Computation", func(t *testing.T) {
		x := []float64{math.Log(0.2), math.Log(0.3), math.Log(0.5)}
		assert.InDelta(t, 0.0, LogSumExp(x), 1e-12)
	})

	t.Run("Large Magnitudes Do Not Overflow", func(t *testing.T) {
		assert.InDelta(t, 1000+math.Log(2), LogSumExp([]float64{1000, 1000}), 1e-9)
		assert.InDelta(t, -1000+math.Log(2), LogSumExp([]float64{-1000, -1000}), 1e-9)
	})

	t.Run("All Negative Infinity", func(t *testing.T) {
		got := LogSumExp([]float64{negInf, negInf})
		assert.True(t, math.IsInf(got, -1), "got %v", got)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.True(t, math.IsInf(LogSumExp(nil), -1))
	})

	t.Run("Mixed Infinite And Finite", func(t *testing.T) {
		assert.InDelta(t, math.Log(0.5), LogSumExp([]float64{negInf, math.Log(0.5)}), 1e-12)
	})
}

func TestClampZero(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{domain.ZeroLogProb, -1, -2e200, 0})
	ClampZero(m)

	assert.True(t, math.IsInf(m.At(0, 0), -1))
	assert.Equal(t, -1.0, m.At(0, 1))
	assert.True(t, math.IsInf(m.At(1, 0), -1))
	assert.Equal(t, 0.0, m.At(1, 1))
}

func TestSafeLog(t *testing.T) {
	assert.True(t, math.IsInf(SafeLog(0), -1))
	assert.True(t, math.IsInf(SafeLog(-1), -1), "log of a negative value must not be NaN")
	assert.InDelta(t, math.Log(0.25), SafeLog(0.25), 1e-15)
}

func TestRowLogSumExp(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		math.Log(0.25), math.Log(0.75),
		math.Inf(-1), math.Inf(-1),
	})
	got := RowLogSumExp(m)

	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.True(t, math.IsInf(got[1], -1))
}
