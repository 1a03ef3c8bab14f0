// Package multinomial implements a discrete-symbol emission: every frame holds
// one symbol index in [0, symbols) and each state owns a categorical
// distribution over those symbols.
package multinomial

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aretw0/hmm/internal/lattice"
	"github.com/aretw0/hmm/internal/sampling"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Type is the registry tag of this emission.
const Type = "multinomial"

// Parameters is the serialized form of an Emission.
type Parameters struct {
	Symbols      int         `mapstructure:"symbols" json:"symbols" yaml:"symbols"`
	EmissionProb [][]float64 `mapstructure:"emission_prob" json:"emission_prob" yaml:"emission_prob"`
}

// Emission is a per-state categorical distribution over symbols.
type Emission struct {
	states  int
	symbols int
	prob    *mat.Dense // states x symbols, row-stochastic
	logProb *mat.Dense
}

type config struct {
	symbols int
	prob    [][]float64
}

// Option defines a functional option for configuring an Emission.
type Option func(*config)

// WithSymbols sets the alphabet size. Emission probabilities default to uniform.
func WithSymbols(k int) Option {
	return func(c *config) {
		c.symbols = k
	}
}

// WithEmissionProb sets the states x symbols emission matrix.
func WithEmissionProb(p [][]float64) Option {
	return func(c *config) {
		c.prob = p
	}
}

// New creates a multinomial emission for the given number of states.
func New(states int, opts ...Option) (*Emission, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	return build(states, Parameters{Symbols: cfg.symbols, EmissionProb: cfg.prob})
}

// FromParams builds an emission from a serialized parameter map.
func FromParams(states int, params map[string]any) (*Emission, error) {
	var p Parameters
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(params); err != nil {
		return nil, fmt.Errorf("%w: multinomial params: %v", domain.ErrInvalidParameter, err)
	}
	return build(states, p)
}

func build(states int, p Parameters) (*Emission, error) {
	if states < 1 {
		return nil, fmt.Errorf("%w: state count must be positive, got %d", domain.ErrShapeMismatch, states)
	}
	symbols := p.Symbols
	if symbols == 0 && len(p.EmissionProb) > 0 {
		symbols = len(p.EmissionProb[0])
	}
	if symbols < 1 {
		return nil, fmt.Errorf("%w: symbols must be positive, got %d", domain.ErrInvalidParameter, symbols)
	}

	e := &Emission{states: states, symbols: symbols}
	if p.EmissionProb == nil {
		e.setProb(uniform(states, symbols))
		return e, nil
	}
	prob, err := toMatrix(states, symbols, p.EmissionProb)
	if err != nil {
		return nil, err
	}
	if err := validate(prob); err != nil {
		return nil, err
	}
	e.setProb(prob)
	return e, nil
}

func toMatrix(states, symbols int, rows [][]float64) (*mat.Dense, error) {
	if len(rows) != states {
		return nil, fmt.Errorf("%w: emission_prob has %d rows, want %d", domain.ErrShapeMismatch, len(rows), states)
	}
	m := mat.NewDense(states, symbols, nil)
	var errs *multierror.Error
	for i, row := range rows {
		if len(row) != symbols {
			errs = multierror.Append(errs, fmt.Errorf("%w: emission_prob row %d has %d entries, want %d",
				domain.ErrShapeMismatch, i, len(row), symbols))
			continue
		}
		m.SetRow(i, row)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

// validate reports every row of prob that is not a distribution.
func validate(prob *mat.Dense) error {
	var errs *multierror.Error
	r, _ := prob.Dims()
	for i := 0; i < r; i++ {
		row := prob.RawRowView(i)
		if floats.Min(row) < 0 || floats.HasNaN(row) {
			errs = multierror.Append(errs, fmt.Errorf("%w: emission_prob row %d has a negative entry", domain.ErrInvalidDistribution, i))
			continue
		}
		if sum := floats.Sum(row); math.Abs(sum-1) > domain.DistributionTolerance {
			errs = multierror.Append(errs, fmt.Errorf("%w: emission_prob row %d sums to %v", domain.ErrInvalidDistribution, i, sum))
		}
	}
	return errs.ErrorOrNil()
}

func (e *Emission) setProb(prob *mat.Dense) {
	e.prob = prob
	e.logProb = lattice.LogMatrix(prob)
}

func uniform(states, symbols int) *mat.Dense {
	m := mat.NewDense(states, symbols, nil)
	for i := 0; i < states; i++ {
		for k := 0; k < symbols; k++ {
			m.Set(i, k, 1/float64(symbols))
		}
	}
	return m
}

// EmissionType implements ports.Emission.
func (e *Emission) EmissionType() string { return Type }

// States implements ports.Emission.
func (e *Emission) States() int { return e.states }

// Symbols returns the alphabet size.
func (e *Emission) Symbols() int { return e.symbols }

// EmissionProb returns a copy of the states x symbols emission matrix.
func (e *Emission) EmissionProb() *mat.Dense {
	return mat.DenseCopyOf(e.prob)
}

// symbol extracts the symbol index of one frame.
func (e *Emission) symbol(t int, frame []float64) (int, error) {
	if len(frame) != 1 {
		return 0, fmt.Errorf("%w: frame %d has %d values, want 1 symbol", domain.ErrShapeMismatch, t, len(frame))
	}
	v := frame[0]
	if v != math.Trunc(v) || v < 0 || v >= float64(e.symbols) {
		return 0, fmt.Errorf("%w: frame %d holds %v, not a symbol in [0, %d)", domain.ErrInvalidParameter, t, v, e.symbols)
	}
	return int(v), nil
}

// FrameLogLikelihood implements ports.Emission.
func (e *Emission) FrameLogLikelihood(obs [][]float64) (*mat.Dense, error) {
	out := mat.NewDense(len(obs), e.states, nil)
	for t, frame := range obs {
		k, err := e.symbol(t, frame)
		if err != nil {
			return nil, err
		}
		row := out.RawRowView(t)
		for i := range row {
			row[i] = e.logProb.At(i, k)
		}
	}
	return out, nil
}

// SampleFromState implements ports.Emission.
func (e *Emission) SampleFromState(state int, rng *rand.Rand) ([]float64, error) {
	if state < 0 || state >= e.states {
		return nil, fmt.Errorf("%w: state %d out of range [0, %d)", domain.ErrShapeMismatch, state, e.states)
	}
	return []float64{float64(sampling.Draw(e.prob.RawRowView(state), rng))}, nil
}

// Restore implements ports.Restorer.
func (e *Emission) Restore(params map[string]any) error {
	r, err := FromParams(e.states, params)
	if err != nil {
		return err
	}
	*e = *r
	return nil
}

// Parameters implements ports.Emission.
func (e *Emission) Parameters() (map[string]any, error) {
	p := Parameters{
		Symbols:      e.symbols,
		EmissionProb: make([][]float64, e.states),
	}
	for i := range p.EmissionProb {
		p.EmissionProb[i] = mat.Row(nil, i, e.prob)
	}
	out := make(map[string]any)
	if err := mapstructure.Decode(p, &out); err != nil {
		return nil, err
	}
	return out, nil
}
