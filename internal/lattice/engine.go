package lattice

import (
	"gonum.org/v1/gonum/mat"
)

// BackwardBeamLogProb is the fixed beam used by the backward pass. States whose
// joint forward+backward score falls more than 50 nats below the frame total
// are skipped, independently of the caller's pruning settings.
const BackwardBeamLogProb = -50.0

// Engine runs the lattice recursions for one set of log-domain parameters.
// It only reads its inputs, so one Engine may serve concurrent passes.
type Engine struct {
	states    int
	logStart  []float64
	logTrans  *mat.Dense // row i: log P(next = j | current = i)
	logTransT *mat.Dense // row j: log P(next = j | current = i) for every i
}

// Stats reports how much work a pass did.
type Stats struct {
	// Active is the number of active source states summed over every frame
	// that went through the pruner.
	Active int
}

// NewEngine wraps log start probabilities and a log transition matrix.
// The caller must not mutate them while the engine is in use.
func NewEngine(logStart []float64, logTrans *mat.Dense) *Engine {
	return &Engine{
		states:    len(logStart),
		logStart:  logStart,
		logTrans:  logTrans,
		logTransT: mat.DenseCopyOf(logTrans.T()),
	}
}

// States returns the number of hidden states.
func (e *Engine) States() int {
	return e.states
}

// initial fills row 0 of dst with logStart + frame[0].
func (e *Engine) initial(dst, frame *mat.Dense) {
	row := dst.RawRowView(0)
	obs := frame.RawRowView(0)
	for j := range row {
		row[j] = e.logStart[j] + obs[j]
	}
}
