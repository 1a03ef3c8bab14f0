package gaussian

import (
	"fmt"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// InitOptions are the options understood by InitializeParameters.
type InitOptions struct {
	// Iterations bounds the k-means refinement of the means.
	Iterations int `mapstructure:"iterations"`
	// Seed selects the initial k-means centroids.
	Seed uint64 `mapstructure:"seed"`
}

const defaultKMeansIterations = 20

// InitializeParameters implements ports.Emission.
//
// 'm' places the means at k-means centroids of all frames. 'c' sets every
// covariance from the covariance of the pooled data plus min_covar.
func (e *Emission) InitializeParameters(obs [][][]float64, params domain.Params, options map[string]any) error {
	if !params.Has(domain.ParamMeans) && !params.Has(domain.ParamCovars) {
		return nil
	}
	opts := InitOptions{Iterations: defaultKMeansIterations}
	if err := mapstructure.WeakDecode(options, &opts); err != nil {
		return fmt.Errorf("%w: gaussian init options: %v", domain.ErrInvalidParameter, err)
	}

	data, err := e.stack(obs)
	if err != nil {
		return err
	}
	frames, _ := data.Dims()

	means := mat.DenseCopyOf(e.means)
	if params.Has(domain.ParamMeans) {
		if frames < e.states {
			return fmt.Errorf("%w: k-means needs at least %d frames, got %d", domain.ErrInvalidParameter, e.states, frames)
		}
		means = kmeans(data, e.states, opts.Iterations, opts.Seed)
	}

	covars := e.covars
	if params.Has(domain.ParamCovars) {
		pooled := identity(e.dims)
		if frames > 1 {
			pooled = mat.NewSymDense(e.dims, nil)
			stat.CovarianceMatrix(pooled, data, nil)
		}
		shared := e.project(pooled)
		covars = make([]*mat.SymDense, e.states)
		for i := range covars {
			if e.covType == Tied {
				covars[i] = shared
				continue
			}
			covars[i] = mat.NewSymDense(e.dims, nil)
			covars[i].CopySym(shared)
		}
	}
	return e.set(means, covars)
}

// stack concatenates every frame of every sequence into one matrix.
func (e *Emission) stack(obs [][][]float64) (*mat.Dense, error) {
	var frames int
	for _, seq := range obs {
		frames += len(seq)
	}
	if frames == 0 {
		return nil, domain.ErrEmptySequence
	}
	data := mat.NewDense(frames, e.dims, nil)
	r := 0
	for k, seq := range obs {
		for t, frame := range seq {
			if len(frame) != e.dims {
				return nil, fmt.Errorf("%w: sequence %d frame %d has %d values, want %d",
					domain.ErrShapeMismatch, k, t, len(frame), e.dims)
			}
			data.SetRow(r, frame)
			r++
		}
	}
	return data, nil
}
