package lattice

import (
	"math"

	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/floats"
)

// Pruning configures approximate inference for the forward and Viterbi passes.
type Pruning struct {
	// MaxRank keeps roughly the MaxRank most probable states per frame.
	// Zero or negative disables rank pruning.
	MaxRank int
	// BeamLogProb discards states more than this log-margin below the frame's
	// total mass. -Inf disables beam pruning.
	BeamLogProb float64
}

// Active returns the states of frame that survive p.
func (p Pruning) Active(frame []float64) []int {
	if p.IsExact() {
		all := make([]int, len(frame))
		for i := range all {
			all[i] = i
		}
		return all
	}
	return ActiveStates(frame, p.MaxRank, p.BeamLogProb)
}

// Exact returns the configuration that disables every form of pruning.
func Exact() Pruning {
	return Pruning{BeamLogProb: math.Inf(-1)}
}

// IsExact reports whether p keeps every state.
func (p Pruning) IsExact() bool {
	return p.MaxRank <= 0 && math.IsInf(p.BeamLogProb, -1)
}

// binsPerState sizes the rank pruning histogram.
const binsPerState = 3

// ActiveStates returns, in ascending order, the indices of the states of frame
// that survive beam and rank pruning (HTK Book, ch. 13). The best scoring
// states always survive when the frame has any mass.
func ActiveStates(frame []float64, maxRank int, beamLogProb float64) []int {
	if len(frame) == 0 {
		return nil
	}
	threshold := math.Inf(-1)
	if !math.IsInf(beamLogProb, -1) {
		threshold = LogSumExp(frame) + beamLogProb
	}
	if maxRank > 0 {
		if rank, ok := rankThreshold(frame, maxRank); ok {
			// Only tighten the beam, never loosen it.
			threshold = math.Max(threshold, rank)
		}
	}
	// Spread mass puts the log-sum above every single state.
	if top := floats.Max(frame); !math.IsInf(top, -1) && threshold > top {
		threshold = top
	}

	active := make([]int, 0, len(frame))
	for i, v := range frame {
		if v >= threshold {
			active = append(active, i)
		}
	}
	return active
}

// rankThreshold approximates the maxRank-th highest value of frame with a
// histogram of 3N bins spanning [min-1, max], where min ignores numerically
// zero entries. It returns false when no bin accumulates enough states, in
// which case rank pruning must not restrict the frame.
func rankThreshold(frame []float64, maxRank int) (float64, bool) {
	n := len(frame)
	rank := min(maxRank, n)

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range frame {
		if v > domain.ZeroLogProb && v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if math.IsInf(lo, 1) {
		return 0, false
	}
	lo--

	bins := binsPerState * n
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	binOf := make([]int, n)
	for i, v := range frame {
		if !(v >= lo && v <= hi) {
			binOf[i] = -1
			continue
		}
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		binOf[i] = b
		counts[b]++
	}

	cum := 0
	for b := bins - 1; b >= 0; b-- {
		cum += counts[b]
		if cum < rank {
			continue
		}
		// The threshold is the lowest value binned at or above b, so that
		// the comparison in ActiveStates agrees exactly with the histogram.
		thr := math.Inf(1)
		for i, ib := range binOf {
			if ib >= b && frame[i] < thr {
				thr = frame[i]
			}
		}
		return thr, true
	}
	return 0, false
}
