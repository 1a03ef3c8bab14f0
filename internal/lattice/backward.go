package lattice

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Backward computes the backward lattice given the frame log-likelihoods and
// the forward lattice of the same sequence.
//
// Pruning follows the HTK convention: at frame n only the states whose
// fwd[n] + bwd[n] lies within BackwardBeamLogProb of the frame total take part
// in the sum. The caller's rank and beam settings are not used here.
func (e *Engine) Backward(frame, fwd *mat.Dense) (*mat.Dense, Stats) {
	frames, states := frame.Dims()
	// The zero value of the last row is log(1) for every state.
	bwd := mat.NewDense(frames, states, nil)

	var stats Stats
	joint := make([]float64, states)
	carry := make([]float64, states)
	terms := make([]float64, states)
	for n := frames - 1; n > 0; n-- {
		next := bwd.RawRowView(n)
		obs := frame.RawRowView(n)
		floats.AddTo(joint, next, fwd.RawRowView(n))

		active := ActiveStates(joint, 0, BackwardBeamLogProb)
		stats.Active += len(active)
		for k, j := range active {
			carry[k] = next[j] + obs[j]
		}

		cur := bwd.RawRowView(n - 1)
		buf := terms[:len(active)]
		for i := 0; i < states; i++ {
			from := e.logTrans.RawRowView(i)
			for k, j := range active {
				buf[k] = from[j] + carry[k]
			}
			cur[i] = LogSumExp(buf)
		}
	}
	ClampZero(bwd)

	return bwd, stats
}
