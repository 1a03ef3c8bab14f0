package gaussian

import (
	"fmt"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// NewAccumulator implements ports.Reestimator.
func (e *Emission) NewAccumulator() ports.Accumulator {
	a := &accumulator{
		e:       e,
		weights: make([]float64, e.states),
		first:   mat.NewDense(e.states, e.dims, nil),
		second:  make([]*mat.SymDense, e.states),
	}
	for i := range a.second {
		a.second[i] = mat.NewSymDense(e.dims, nil)
	}
	return a
}

// accumulator collects posterior-weighted zeroth, first and second moments.
type accumulator struct {
	e       *Emission
	weights []float64
	first   *mat.Dense
	second  []*mat.SymDense
}

func (a *accumulator) Add(obs [][]float64, posteriors *mat.Dense) error {
	for t, frame := range obs {
		if len(frame) != a.e.dims {
			return fmt.Errorf("%w: frame %d has %d values, want %d", domain.ErrShapeMismatch, t, len(frame), a.e.dims)
		}
		x := mat.NewVecDense(a.e.dims, frame)
		for i := 0; i < a.e.states; i++ {
			w := posteriors.At(t, i)
			if w == 0 {
				continue
			}
			a.weights[i] += w
			row := a.first.RawRowView(i)
			for d, v := range frame {
				row[d] += w * v
			}
			a.second[i].SymRankOne(a.second[i], w, x)
		}
	}
	return nil
}

// Apply re-estimates means ('m') and covariances ('c'). States without
// posterior mass keep their parameters.
func (a *accumulator) Apply(params domain.Params) error {
	e := a.e
	updateMeans := params.Has(domain.ParamMeans)
	updateCovars := params.Has(domain.ParamCovars)
	if !updateMeans && !updateCovars {
		return nil
	}

	means := mat.DenseCopyOf(e.means)
	covars := make([]*mat.SymDense, e.states)
	copy(covars, e.covars)

	tied := mat.NewSymDense(e.dims, nil)
	var total float64

	for i, w := range a.weights {
		if w <= 0 {
			continue
		}
		xbar := mat.NewVecDense(e.dims, nil)
		xbar.ScaleVec(1/w, a.first.RowView(i))
		if updateMeans {
			means.SetRow(i, xbar.RawVector().Data)
		}
		if !updateCovars {
			continue
		}

		// E[(x-mu)(x-mu)^T] = S2/w - xbar mu^T - mu xbar^T + mu mu^T
		mu := mat.VecDenseCopyOf(means.RowView(i))
		cov := mat.NewSymDense(e.dims, nil)
		cov.ScaleSym(1/w, a.second[i])
		cov.RankTwo(cov, -1, xbar, mu)
		cov.SymRankOne(cov, 1, mu)

		if e.covType == Tied {
			tied.AddSym(tied, scaled(cov, w))
			total += w
			continue
		}
		covars[i] = e.project(cov)
	}

	if updateCovars && e.covType == Tied && total > 0 {
		tied.ScaleSym(1/total, tied)
		shared := e.project(tied)
		for i := range covars {
			covars[i] = shared
		}
	}

	return e.set(means, covars)
}

func scaled(s *mat.SymDense, f float64) *mat.SymDense {
	out := mat.NewSymDense(s.SymmetricDim(), nil)
	out.ScaleSym(f, s)
	return out
}
