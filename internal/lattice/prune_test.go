package lattice

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allStates(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func randomFrame(r *rand.Rand, n int, withZeros bool) []float64 {
	frame := make([]float64, n)
	for i := range frame {
		frame[i] = -50 * r.Float64()
		if withZeros && r.IntN(4) == 0 {
			frame[i] = math.Inf(-1)
		}
	}
	return frame
}

func TestActiveStates_DefaultsKeepEverything(t *testing.T) {
	frame := []float64{-1, math.Inf(-1), -300, 0, -2}

	got := ActiveStates(frame, 0, math.Inf(-1))

	assert.Equal(t, allStates(len(frame)), got)
}

func TestActiveStates_FullRankIsNoop(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 200; trial++ {
		n := 1 + r.IntN(40)
		frame := randomFrame(r, n, trial%2 == 0)

		exact := ActiveStates(frame, 0, math.Inf(-1))
		ranked := ActiveStates(frame, n, math.Inf(-1))

		require.Equal(t, exact, ranked, "trial %d, frame %v", trial, frame)
	}
}

func TestActiveStates_BeamPruning(t *testing.T) {
	frame := []float64{math.Log(0.7), math.Log(0.2), math.Log(0.1)}

	t.Run("Keeps States Within Beam", func(t *testing.T) {
		got := ActiveStates(frame, 0, math.Log(0.15))
		assert.Equal(t, []int{0, 1}, got)
	})

	t.Run("Zero Beam Keeps The Best State", func(t *testing.T) {
		got := ActiveStates(frame, 0, 0)
		assert.Equal(t, []int{0}, got)
	})

	t.Run("Wide Beam Keeps All", func(t *testing.T) {
		got := ActiveStates(frame, 0, -10)
		assert.Equal(t, []int{0, 1, 2}, got)
	})
}

func TestActiveStates_RankPruning(t *testing.T) {
	t.Run("Top One", func(t *testing.T) {
		frame := []float64{-3, -1, -7, -2}
		assert.Equal(t, []int{1}, ActiveStates(frame, 1, math.Inf(-1)))
	})

	t.Run("Keeps At Least Rank States", func(t *testing.T) {
		r := rand.New(rand.NewPCG(7, 11))
		for trial := 0; trial < 200; trial++ {
			n := 2 + r.IntN(30)
			rank := 1 + r.IntN(n)
			frame := randomFrame(r, n, false)

			got := ActiveStates(frame, rank, math.Inf(-1))

			require.GreaterOrEqual(t, len(got), rank, "trial %d", trial)
			// Every kept state must beat every dropped one.
			kept := map[int]bool{}
			lowestKept := math.Inf(1)
			for _, i := range got {
				kept[i] = true
				lowestKept = math.Min(lowestKept, frame[i])
			}
			for i, v := range frame {
				if !kept[i] {
					require.Less(t, v, lowestKept)
				}
			}
		}
	})

	t.Run("Rank Larger Than States", func(t *testing.T) {
		frame := []float64{-3, -1}
		assert.Equal(t, []int{0, 1}, ActiveStates(frame, 10, math.Inf(-1)))
	})

	t.Run("Ties Are All Kept", func(t *testing.T) {
		frame := []float64{-1, -1, -5}
		assert.Equal(t, []int{0, 1}, ActiveStates(frame, 1, math.Inf(-1)))
	})

	t.Run("All Zero Probability", func(t *testing.T) {
		frame := []float64{math.Inf(-1), math.Inf(-1)}
		assert.Equal(t, []int{0, 1}, ActiveStates(frame, 1, math.Inf(-1)))
	})
}

func TestActiveStates_StricterThresholdWins(t *testing.T) {
	frame := []float64{math.Log(0.5), math.Log(0.3), math.Log(0.15), math.Log(0.05)}

	// The beam alone keeps three states, the rank alone keeps one.
	assert.Equal(t, []int{0, 1, 2}, ActiveStates(frame, 0, math.Log(0.1)))
	assert.Equal(t, []int{0}, ActiveStates(frame, 1, math.Log(0.1)))
	// The beam is stricter than a rank of four.
	assert.Equal(t, []int{0, 1}, ActiveStates(frame, 4, math.Log(0.2)))
}

func TestPruning_IsExact(t *testing.T) {
	assert.True(t, Exact().IsExact())
	assert.False(t, Pruning{MaxRank: 2, BeamLogProb: math.Inf(-1)}.IsExact())
	assert.False(t, Pruning{BeamLogProb: -10}.IsExact())
}

func TestActiveStates_SpreadMassKeepsBest(t *testing.T) {
	// Fifty equal states: the log-sum sits log(50) above each of them.
	frame := make([]float64, 50)
	for i := range frame {
		frame[i] = math.Log(1.0 / 50)
	}
	frame[7] = math.Log(1.5 / 50)

	assert.Equal(t, []int{7}, ActiveStates(frame, 0, -1))
	assert.Equal(t, []int{7}, ActiveStates(frame, 2, -0.5))

	// Ties at the maximum all survive.
	flat := []float64{-3, -3, -3, -3}
	assert.Equal(t, []int{0, 1, 2, 3}, ActiveStates(flat, 0, -1))
}

func TestPruning_Active(t *testing.T) {
	frame := []float64{math.Inf(-1), -2, -1}

	assert.Equal(t, []int{0, 1, 2}, Exact().Active(frame))
	assert.Equal(t, []int{2}, Pruning{MaxRank: 1, BeamLogProb: math.Inf(-1)}.Active(frame))
}
