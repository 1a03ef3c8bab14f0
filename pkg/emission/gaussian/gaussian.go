// Package gaussian implements a multivariate normal emission with spherical,
// diagonal, full or tied covariance matrices.
package gaussian

import (
	"fmt"
	"math/rand/v2"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Type is the registry tag of this emission.
const Type = "gaussian"

// DefaultMinCovar is the variance floor used when none is configured.
const DefaultMinCovar = 1e-3

// CovarianceType selects how covariance matrices are parameterized.
type CovarianceType string

const (
	// Spherical: one variance per state.
	Spherical CovarianceType = "spherical"
	// Diag: one variance per state and dimension.
	Diag CovarianceType = "diag"
	// Full: one D x D matrix per state.
	Full CovarianceType = "full"
	// Tied: one D x D matrix shared by every state.
	Tied CovarianceType = "tied"
)

// Parameters is the serialized form of an Emission. The shape of Covars
// depends on CovarianceType: N for spherical, N x D for diag, N x D x D for
// full and D x D for tied.
type Parameters struct {
	Dims           int         `mapstructure:"dims" json:"dims" yaml:"dims"`
	CovarianceType string      `mapstructure:"covariance_type" json:"covariance_type" yaml:"covariance_type"`
	Means          [][]float64 `mapstructure:"means" json:"means" yaml:"means"`
	Covars         any         `mapstructure:"covars" json:"covars" yaml:"covars"`
	MinCovar       float64     `mapstructure:"min_covar" json:"min_covar" yaml:"min_covar"`
}

// Emission is a Gaussian emission distribution.
type Emission struct {
	states   int
	dims     int
	covType  CovarianceType
	minCovar float64

	means  *mat.Dense      // states x dims
	covars []*mat.SymDense // per state; tied states share one matrix

	normals []*distmv.Normal
	chols   []*mat.TriDense
}

type config struct {
	covType  CovarianceType
	means    [][]float64
	covars   any
	minCovar float64
}

// Option defines a functional option for configuring an Emission.
type Option func(*config)

// WithCovarianceType selects the covariance parameterization (default: diag).
func WithCovarianceType(t CovarianceType) Option {
	return func(c *config) {
		c.covType = t
	}
}

// WithMeans sets the states x dims mean matrix (default: zeros).
func WithMeans(means [][]float64) Option {
	return func(c *config) {
		c.means = means
	}
}

// WithSphericalCovars sets one variance per state.
func WithSphericalCovars(v []float64) Option {
	return func(c *config) {
		c.covType, c.covars = Spherical, v
	}
}

// WithDiagCovars sets per-state diagonal variances.
func WithDiagCovars(v [][]float64) Option {
	return func(c *config) {
		c.covType, c.covars = Diag, v
	}
}

// WithFullCovars sets one covariance matrix per state.
func WithFullCovars(v [][][]float64) Option {
	return func(c *config) {
		c.covType, c.covars = Full, v
	}
}

// WithTiedCovars sets the covariance matrix shared by every state.
func WithTiedCovars(v [][]float64) Option {
	return func(c *config) {
		c.covType, c.covars = Tied, v
	}
}

// WithMinCovar sets the floor added to variances during estimation.
func WithMinCovar(v float64) Option {
	return func(c *config) {
		c.minCovar = v
	}
}

// New creates a Gaussian emission with states components in dims dimensions.
// Covariances default to the identity.
func New(states, dims int, opts ...Option) (*Emission, error) {
	cfg := config{covType: Diag}
	for _, opt := range opts {
		opt(&cfg)
	}
	return build(states, Parameters{
		Dims:           dims,
		CovarianceType: string(cfg.covType),
		Means:          cfg.means,
		Covars:         cfg.covars,
		MinCovar:       cfg.minCovar,
	})
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
		return nil, fmt.Errorf("%w: gaussian params: %v", domain.ErrInvalidParameter, err)
	}
	return build(states, p)
}

func build(states int, p Parameters) (*Emission, error) {
	if states < 1 {
		return nil, fmt.Errorf("%w: state count must be positive, got %d", domain.ErrShapeMismatch, states)
	}
	if p.Dims < 1 {
		return nil, fmt.Errorf("%w: dims must be positive, got %d", domain.ErrInvalidParameter, p.Dims)
	}
	covType := CovarianceType(p.CovarianceType)
	if covType == "" {
		covType = Diag
	}
	switch covType {
	case Spherical, Diag, Full, Tied:
	default:
		return nil, fmt.Errorf("%w: covariance type %q", domain.ErrUnsupportedVariant, p.CovarianceType)
	}

	e := &Emission{
		states:   states,
		dims:     p.Dims,
		covType:  covType,
		minCovar: p.MinCovar,
	}
	if e.minCovar == 0 {
		e.minCovar = DefaultMinCovar
	}
	if e.minCovar < 0 {
		return nil, fmt.Errorf("%w: min_covar must not be negative, got %v", domain.ErrInvalidParameter, e.minCovar)
	}

	means, err := toMeans(states, p.Dims, p.Means)
	if err != nil {
		return nil, err
	}
	covars, err := expandCovars(covType, states, p.Dims, p.Covars)
	if err != nil {
		return nil, err
	}
	if err := e.set(means, covars); err != nil {
		return nil, err
	}
	return e, nil
}

// set installs new parameters after checking that every covariance matrix is
// positive definite. The emission is unchanged on error.
func (e *Emission) set(means *mat.Dense, covars []*mat.SymDense) error {
	normals, chols, err := factorize(means, covars)
	if err != nil {
		return err
	}
	e.means, e.covars, e.normals, e.chols = means, covars, normals, chols
	return nil
}

// EmissionType implements ports.Emission.
func (e *Emission) EmissionType() string { return Type }

// States implements ports.Emission.
func (e *Emission) States() int { return e.states }

// Dims returns the dimensionality of an observation frame.
func (e *Emission) Dims() int { return e.dims }

// CovarianceType returns the covariance parameterization.
func (e *Emission) CovarianceType() CovarianceType { return e.covType }

// Means returns a copy of the states x dims mean matrix.
func (e *Emission) Means() *mat.Dense { return mat.DenseCopyOf(e.means) }

// Covariance returns a copy of the full covariance matrix of one state.
func (e *Emission) Covariance(state int) *mat.SymDense {
	c := mat.NewSymDense(e.dims, nil)
	c.CopySym(e.covars[state])
	return c
}

// FrameLogLikelihood implements ports.Emission.
func (e *Emission) FrameLogLikelihood(obs [][]float64) (*mat.Dense, error) {
	out := mat.NewDense(len(obs), e.states, nil)
	for t, frame := range obs {
		if len(frame) != e.dims {
			return nil, fmt.Errorf("%w: frame %d has %d values, want %d", domain.ErrShapeMismatch, t, len(frame), e.dims)
		}
		row := out.RawRowView(t)
		for i, n := range e.normals {
			row[i] = n.LogProb(frame)
		}
	}
	return out, nil
}

// SampleFromState implements ports.Emission: x = mean + L z with L the
// Cholesky factor of the state covariance and z standard normal.
func (e *Emission) SampleFromState(state int, rng *rand.Rand) ([]float64, error) {
	if state < 0 || state >= e.states {
		return nil, fmt.Errorf("%w: state %d out of range [0, %d)", domain.ErrShapeMismatch, state, e.states)
	}
	z := mat.NewVecDense(e.dims, nil)
	for d := 0; d < e.dims; d++ {
		z.SetVec(d, rng.NormFloat64())
	}
	x := mat.NewVecDense(e.dims, nil)
	x.MulVec(e.chols[state], z)
	x.AddVec(x, e.means.RowView(state))
	return x.RawVector().Data, nil
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
		Dims:           e.dims,
		CovarianceType: string(e.covType),
		Means:          rows(e.means),
		Covars:         e.compactCovars(),
		MinCovar:       e.minCovar,
	}
	out := make(map[string]any)
	if err := mapstructure.Decode(p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func rows(m mat.Matrix) [][]float64 {
	r, _ := m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = mat.Row(nil, i, m)
	}
	return out
}
