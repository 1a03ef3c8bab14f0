package hmm_test

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// tableEmission looks the per-state likelihood of a frame up by symbol and
// samples the state index itself.
type tableEmission struct {
	tag     string
	table   [][]float64 // symbol x state probability
	initErr error
}

func (e *tableEmission) EmissionType() string {
	if e.tag == "" {
		return "table"
	}
	return e.tag
}

func (e *tableEmission) States() int { return len(e.table[0]) }

func (e *tableEmission) FrameLogLikelihood(obs [][]float64) (*mat.Dense, error) {
	out := mat.NewDense(len(obs), e.States(), nil)
	for t, frame := range obs {
		k := int(frame[0])
		if k < 0 || k >= len(e.table) {
			return nil, fmt.Errorf("%w: symbol %d", domain.ErrInvalidParameter, k)
		}
		for j, p := range e.table[k] {
			out.Set(t, j, math.Log(p))
		}
	}
	return out, nil
}

func (e *tableEmission) SampleFromState(state int, _ *rand.Rand) ([]float64, error) {
	return []float64{float64(state)}, nil
}

func (e *tableEmission) InitializeParameters([][][]float64, domain.Params, map[string]any) error {
	return e.initErr
}

func (e *tableEmission) Parameters() (map[string]any, error) {
	return map[string]any{"table": e.table}, nil
}

// weatherModel is the two-state, three-frame reference model.
//
//	start = [.6 .4], A = [[.7 .3] [.4 .6]]
//	frame likelihoods: [.5 .5], [.9 .1], [.2 .8]
func weatherModel(opts ...hmm.Option) (*hmm.Model, error) {
	emission := &tableEmission{table: [][]float64{{0.5, 0.5}, {0.9, 0.1}, {0.2, 0.8}}}
	return hmm.New(2, emission, append([]hmm.Option{
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
	}, opts...)...)
}

var weatherObs = [][]float64{{0}, {1}, {2}}

// randomModel builds a fully connected model with random parameters.
func randomModel(states, symbols int, seed uint64) (*hmm.Model, error) {
	rng := rand.New(rand.NewPCG(seed, seed+7))
	table := make([][]float64, symbols)
	for k := range table {
		table[k] = make([]float64, states)
		for j := range table[k] {
			table[k][j] = 0.05 + rng.Float64()
		}
	}
	trans := mat.NewDense(states, states, nil)
	for i := 0; i < states; i++ {
		row := trans.RawRowView(i)
		var sum float64
		for j := range row {
			row[j] = 0.01 + rng.Float64()
			sum += row[j]
		}
		for j := range row {
			row[j] /= sum
		}
	}
	start := make([]float64, states)
	var sum float64
	for i := range start {
		start[i] = 0.01 + rng.Float64()
		sum += start[i]
	}
	for i := range start {
		start[i] /= sum
	}
	return hmm.New(states, &tableEmission{table: table},
		hmm.WithStartProb(start),
		hmm.WithTransMat(trans),
		hmm.WithSeed(seed),
	)
}

func randomSymbols(n, symbols int, seed uint64) [][]float64 {
	rng := rand.New(rand.NewPCG(seed, seed+3))
	obs := make([][]float64, n)
	for t := range obs {
		obs[t] = []float64{float64(rng.IntN(symbols))}
	}
	return obs
}
