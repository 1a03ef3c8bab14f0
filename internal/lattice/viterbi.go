package lattice

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Viterbi finds the most likely state sequence for the frame log-likelihoods.
//
// The returned score is the log-sum of the final Viterbi lattice row, matching
// the normalization of Forward, not the score of the single best path.
// Ties between predecessors, and between final states, go to the lowest index.
func (e *Engine) Viterbi(frame *mat.Dense, p Pruning) (float64, []int, Stats) {
	frames, states := frame.Dims()
	lattice := mat.NewDense(frames, states, nil)
	e.initial(lattice, frame)

	// traceback[n][j] is the best predecessor of state j at frame n.
	traceback := make([][]int, frames)
	traceback[0] = make([]int, states)

	var stats Stats
	for n := 1; n < frames; n++ {
		prev := lattice.RawRowView(n - 1)
		cur := lattice.RawRowView(n)
		obs := frame.RawRowView(n)
		back := make([]int, states)

		active := p.Active(prev)
		stats.Active += len(active)
		for j := 0; j < states; j++ {
			into := e.logTransT.RawRowView(j)
			best := math.Inf(-1)
			arg := 0
			if len(active) > 0 {
				arg = active[0]
			}
			for _, i := range active {
				if v := into[i] + prev[i]; v > best {
					best, arg = v, i
				}
			}
			cur[j] = best + obs[j]
			back[j] = arg
		}
		traceback[n] = back
	}
	ClampZero(lattice)

	last := lattice.RawRowView(frames - 1)
	path := make([]int, frames)
	s := floats.MaxIdx(last)
	for n := frames - 1; n >= 0; n-- {
		path[n] = s
		s = traceback[n][s]
	}

	return LogSumExp(last), path, stats
}
