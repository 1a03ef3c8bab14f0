package ports

import (
	"math/rand/v2"

	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Emission is the per-state observation distribution of a model.
//
// An observation sequence is a slice of frames; each frame is a vector whose
// meaning is defined by the emission (a point in R^d, a symbol index, ...).
type Emission interface {
	// EmissionType is the fixed tag identifying the emission family.
	EmissionType() string

	// States returns the number of hidden states the emission is sized for.
	States() int

	// FrameLogLikelihood returns a len(obs) x States matrix holding
	// log p(obs[t] | state).
	FrameLogLikelihood(obs [][]float64) (*mat.Dense, error)

	// SampleFromState draws one observation conditioned on state.
	SampleFromState(state int, rng *rand.Rand) ([]float64, error)

	// InitializeParameters estimates emission parameters from data.
	// params selects which parameters may change; options are
	// emission-specific and loosely typed.
	InitializeParameters(obs [][][]float64, params domain.Params, options map[string]any) error

	// Parameters returns a serializable snapshot of the emission parameters
	// that the emission's factory accepts back.
	Parameters() (map[string]any, error)
}

// Restorer is implemented by emissions that can be rolled back to a snapshot
// previously returned by Parameters.
type Restorer interface {
	Emission

	// Restore replaces every parameter with the snapshot. The emission is
	// unchanged on error.
	Restore(params map[string]any) error
}

// Reestimator is implemented by emissions that support Baum-Welch updates.
type Reestimator interface {
	Emission

	// NewAccumulator returns empty sufficient statistics for one training
	// iteration.
	NewAccumulator() Accumulator
}

// Accumulator collects posterior-weighted sufficient statistics.
type Accumulator interface {
	// Add accumulates one sequence; posteriors is len(obs) x States.
	Add(obs [][]float64, posteriors *mat.Dense) error

	// Apply writes the re-estimated parameters selected by params back into
	// the emission that created the accumulator.
	Apply(params domain.Params) error
}
