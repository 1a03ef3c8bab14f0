package lattice

import (
	"gonum.org/v1/gonum/mat"
)

// Forward computes the forward lattice for the T x N frame log-likelihood
// matrix and returns the total log-likelihood of the sequence.
//
//	fwd[0][j] = logStart[j] + frame[0][j]
//	fwd[n][j] = logsum_{i active at n-1}(logTrans[i][j] + fwd[n-1][i]) + frame[n][j]
func (e *Engine) Forward(frame *mat.Dense, p Pruning) (float64, *mat.Dense, Stats) {
	frames, states := frame.Dims()
	fwd := mat.NewDense(frames, states, nil)
	e.initial(fwd, frame)

	var stats Stats
	terms := make([]float64, states)
	for n := 1; n < frames; n++ {
		prev := fwd.RawRowView(n - 1)
		cur := fwd.RawRowView(n)
		obs := frame.RawRowView(n)

		active := p.Active(prev)
		stats.Active += len(active)
		buf := terms[:len(active)]
		for j := 0; j < states; j++ {
			into := e.logTransT.RawRowView(j)
			for k, i := range active {
				buf[k] = into[i] + prev[i]
			}
			cur[j] = LogSumExp(buf) + obs[j]
		}
	}
	ClampZero(fwd)

	return LogSumExp(fwd.RawRowView(frames - 1)), fwd, stats
}
