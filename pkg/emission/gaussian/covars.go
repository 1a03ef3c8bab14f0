package gaussian

import (
	"fmt"
	"math"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

const symmetryTolerance = 1e-9

func toMeans(states, dims int, means [][]float64) (*mat.Dense, error) {
	m := mat.NewDense(states, dims, nil)
	if means == nil {
		return m, nil
	}
	if len(means) != states {
		return nil, fmt.Errorf("%w: means has %d rows, want %d", domain.ErrShapeMismatch, len(means), states)
	}
	var errs *multierror.Error
	for i, row := range means {
		if len(row) != dims {
			errs = multierror.Append(errs, fmt.Errorf("%w: means row %d has %d entries, want %d",
				domain.ErrShapeMismatch, i, len(row), dims))
			continue
		}
		m.SetRow(i, row)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return m, nil
}

func identity(dims int) *mat.SymDense {
	s := mat.NewSymDense(dims, nil)
	for d := 0; d < dims; d++ {
		s.SetSym(d, d, 1)
	}
	return s
}

// expandCovars turns the compact covariance parameterization into one full
// matrix per state, reporting every faulty state at once.
func expandCovars(t CovarianceType, states, dims int, raw any) ([]*mat.SymDense, error) {
	out := make([]*mat.SymDense, states)
	if raw == nil {
		shared := identity(dims)
		for i := range out {
			if t == Tied {
				out[i] = shared
			} else {
				out[i] = identity(dims)
			}
		}
		return out, nil
	}

	var errs *multierror.Error
	switch t {
	case Spherical:
		var v []float64
		if err := mapstructure.WeakDecode(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: spherical covars: %v", domain.ErrInvalidParameter, err)
		}
		if len(v) != states {
			return nil, fmt.Errorf("%w: spherical covars has %d entries, want %d", domain.ErrShapeMismatch, len(v), states)
		}
		for i, s := range v {
			if !(s > 0) || math.IsInf(s, 1) {
				errs = multierror.Append(errs, fmt.Errorf("%w: state %d variance %v is not positive", domain.ErrInvalidParameter, i, s))
				continue
			}
			out[i] = scaledIdentity(dims, s)
		}

	case Diag:
		var v [][]float64
		if err := mapstructure.WeakDecode(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: diag covars: %v", domain.ErrInvalidParameter, err)
		}
		if len(v) != states {
			return nil, fmt.Errorf("%w: diag covars has %d rows, want %d", domain.ErrShapeMismatch, len(v), states)
		}
		for i, row := range v {
			if len(row) != dims {
				errs = multierror.Append(errs, fmt.Errorf("%w: diag covars row %d has %d entries, want %d",
					domain.ErrShapeMismatch, i, len(row), dims))
				continue
			}
			s := mat.NewSymDense(dims, nil)
			for d, x := range row {
				if !(x > 0) || math.IsInf(x, 1) {
					errs = multierror.Append(errs, fmt.Errorf("%w: state %d variance %d is %v", domain.ErrInvalidParameter, i, d, x))
				}
				s.SetSym(d, d, x)
			}
			out[i] = s
		}

	case Full:
		var v [][][]float64
		if err := mapstructure.WeakDecode(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: full covars: %v", domain.ErrInvalidParameter, err)
		}
		if len(v) != states {
			return nil, fmt.Errorf("%w: full covars has %d matrices, want %d", domain.ErrShapeMismatch, len(v), states)
		}
		for i, m := range v {
			s, err := symmetric(dims, m)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("state %d: %w", i, err))
				continue
			}
			out[i] = s
		}

	case Tied:
		var v [][]float64
		if err := mapstructure.WeakDecode(raw, &v); err != nil {
			return nil, fmt.Errorf("%w: tied covars: %v", domain.ErrInvalidParameter, err)
		}
		s, err := symmetric(dims, v)
		if err != nil {
			return nil, fmt.Errorf("tied covars: %w", err)
		}
		for i := range out {
			out[i] = s
		}
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

func scaledIdentity(dims int, v float64) *mat.SymDense {
	s := mat.NewSymDense(dims, nil)
	for d := 0; d < dims; d++ {
		s.SetSym(d, d, v)
	}
	return s
}

func symmetric(dims int, m [][]float64) (*mat.SymDense, error) {
	if len(m) != dims {
		return nil, fmt.Errorf("%w: covariance has %d rows, want %d", domain.ErrShapeMismatch, len(m), dims)
	}
	s := mat.NewSymDense(dims, nil)
	for r, row := range m {
		if len(row) != dims {
			return nil, fmt.Errorf("%w: covariance row %d has %d entries, want %d", domain.ErrShapeMismatch, r, len(row), dims)
		}
		for c := r; c < dims; c++ {
			if math.Abs(row[c]-m[c][r]) > symmetryTolerance*math.Max(1, math.Abs(row[c])) {
				return nil, fmt.Errorf("%w: covariance is not symmetric at (%d, %d)", domain.ErrInvalidParameter, r, c)
			}
			s.SetSym(r, c, row[c])
		}
	}
	return s, nil
}

// factorize builds the density and Cholesky factor of every state.
func factorize(means *mat.Dense, covars []*mat.SymDense) ([]*distmv.Normal, []*mat.TriDense, error) {
	normals := make([]*distmv.Normal, len(covars))
	chols := make([]*mat.TriDense, len(covars))
	var errs *multierror.Error
	for i, c := range covars {
		n, ok := distmv.NewNormal(mat.Row(nil, i, means), c, nil)
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("%w: state %d covariance is not positive definite", domain.ErrInvalidParameter, i))
			continue
		}
		var chol mat.Cholesky
		chol.Factorize(c)
		l := mat.NewTriDense(c.SymmetricDim(), mat.Lower, nil)
		chol.LTo(l)
		normals[i], chols[i] = n, l
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}
	return normals, chols, nil
}

// compactCovars returns the covariances in the serialized shape of the
// emission's covariance type.
func (e *Emission) compactCovars() any {
	switch e.covType {
	case Spherical:
		v := make([]float64, e.states)
		for i, c := range e.covars {
			v[i] = c.At(0, 0)
		}
		return v
	case Diag:
		v := make([][]float64, e.states)
		for i, c := range e.covars {
			v[i] = make([]float64, e.dims)
			for d := range v[i] {
				v[i][d] = c.At(d, d)
			}
		}
		return v
	case Full:
		v := make([][][]float64, e.states)
		for i, c := range e.covars {
			v[i] = rows(c)
		}
		return v
	default:
		return rows(e.covars[0])
	}
}

// project reduces a full covariance estimate to the emission's
// parameterization and adds the variance floor.
func (e *Emission) project(c *mat.SymDense) *mat.SymDense {
	out := mat.NewSymDense(e.dims, nil)
	switch e.covType {
	case Spherical:
		var tr float64
		for d := 0; d < e.dims; d++ {
			tr += c.At(d, d)
		}
		for d := 0; d < e.dims; d++ {
			out.SetSym(d, d, tr/float64(e.dims)+e.minCovar)
		}
	case Diag:
		for d := 0; d < e.dims; d++ {
			out.SetSym(d, d, c.At(d, d)+e.minCovar)
		}
	default:
		out.CopySym(c)
		for d := 0; d < e.dims; d++ {
			out.SetSym(d, d, out.At(d, d)+e.minCovar)
		}
	}
	return out
}
