package ports

import (
	"context"

	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Trainer re-estimates the parameters of a model from data.
type Trainer interface {
	// EmissionType must equal the emission type of every model the trainer
	// is attached to.
	EmissionType() string

	// Train runs up to cfg.Iterations iterations and returns the total
	// log-likelihood observed at each iteration.
	Train(ctx context.Context, model TrainableModel, obs [][][]float64, cfg TrainConfig) ([]float64, error)
}

// TrainConfig carries the arguments of a training run.
type TrainConfig struct {
	Iterations  int
	Threshold   float64
	Params      domain.Params
	MaxRank     int
	BeamLogProb float64
	Options     map[string]any
}

// Lattices are the forward/backward outputs for one sequence.
type Lattices struct {
	LogProb     float64
	FrameLogLik *mat.Dense
	Forward     *mat.Dense
	Backward    *mat.Dense
	Posteriors  *mat.Dense
}

// TrainableModel is the view of a model a Trainer works on. The model is held
// exclusively for the duration of Train, so implementations must not call
// back into the locking methods of the owning model. ForwardBackward must be
// safe for concurrent use.
type TrainableModel interface {
	States() int
	Emission() Emission
	StartProb() []float64
	TransMat() *mat.Dense
	LogTransMat() *mat.Dense
	SetStartProb(p []float64) error
	SetTransMat(m mat.Matrix) error
	ForwardBackward(obs [][]float64, maxRank int, beamLogProb float64) (*Lattices, error)
}
