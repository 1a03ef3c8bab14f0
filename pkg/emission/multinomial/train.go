package multinomial

import (
	"fmt"
	"math/rand/v2"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// InitOptions are the options understood by InitializeParameters.
type InitOptions struct {
	// Seed drives the jitter that breaks the symmetry between states.
	Seed uint64 `mapstructure:"seed"`
	// Jitter is the relative noise added to the empirical frequencies.
	Jitter float64 `mapstructure:"jitter"`
}

const defaultJitter = 0.1

// InitializeParameters implements ports.Emission. With the 'e' flag every
// state starts from the empirical symbol frequencies, perturbed per state.
func (e *Emission) InitializeParameters(obs [][][]float64, params domain.Params, options map[string]any) error {
	if !params.Has(domain.ParamEmission) {
		return nil
	}
	opts := InitOptions{Jitter: defaultJitter}
	if err := mapstructure.WeakDecode(options, &opts); err != nil {
		return fmt.Errorf("%w: multinomial init options: %v", domain.ErrInvalidParameter, err)
	}

	counts := make([]float64, e.symbols)
	floats.AddConst(1, counts)
	for _, seq := range obs {
		for t, frame := range seq {
			k, err := e.symbol(t, frame)
			if err != nil {
				return err
			}
			counts[k]++
		}
	}
	floats.Scale(1/floats.Sum(counts), counts)

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	prob := mat.NewDense(e.states, e.symbols, nil)
	for i := 0; i < e.states; i++ {
		row := prob.RawRowView(i)
		for k, c := range counts {
			row[k] = c * (1 + opts.Jitter*rng.Float64())
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	e.setProb(prob)
	return nil
}

// NewAccumulator implements ports.Reestimator.
func (e *Emission) NewAccumulator() ports.Accumulator {
	return &accumulator{
		e:      e,
		counts: mat.NewDense(e.states, e.symbols, nil),
	}
}

type accumulator struct {
	e      *Emission
	counts *mat.Dense
}

func (a *accumulator) Add(obs [][]float64, posteriors *mat.Dense) error {
	for t, frame := range obs {
		k, err := a.e.symbol(t, frame)
		if err != nil {
			return err
		}
		for i := 0; i < a.e.states; i++ {
			a.counts.Set(i, k, a.counts.At(i, k)+posteriors.At(t, i))
		}
	}
	return nil
}

// Apply re-estimates the emission matrix when params holds 'e'. States with
// no posterior mass keep their current distribution.
func (a *accumulator) Apply(params domain.Params) error {
	if !params.Has(domain.ParamEmission) {
		return nil
	}
	prob := mat.DenseCopyOf(a.e.prob)
	for i := 0; i < a.e.states; i++ {
		row := a.counts.RawRowView(i)
		sum := floats.Sum(row)
		if sum <= 0 {
			continue
		}
		next := make([]float64, len(row))
		floats.ScaleTo(next, 1/sum, row)
		prob.SetRow(i, next)
	}
	if err := validate(prob); err != nil {
		return err
	}
	a.e.setProb(prob)
	return nil
}
