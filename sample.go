package hmm

import (
	"fmt"
	"time"

	"github.com/aretw0/hmm/internal/lattice"
	"github.com/aretw0/hmm/internal/sampling"
	"github.com/aretw0/hmm/pkg/domain"
)

// Sample draws n observations and the hidden states that produced them.
//
// The first state is drawn from the start distribution and each next state
// from the transition row of the current one. Samples are reproducible for a
// model built with WithSeed and called sequentially.
func (m *Model) Sample(n int) ([][]float64, []int, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: sample count must not be negative, got %d", domain.ErrInvalidParameter, n)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	began := time.Now()
	startCDF := sampling.CDF(m.startProb())
	trans := m.transMat()
	transCDF := make([][]float64, m.states)
	for i := range transCDF {
		transCDF[i] = sampling.CDF(trans.RawRowView(i))
	}

	obs := make([][]float64, 0, n)
	states := make([]int, 0, n)
	cdf := startCDF
	for t := 0; t < n; t++ {
		s := sampling.Index(cdf, m.rng.Float64())
		x, err := m.emission.SampleFromState(s, m.rng)
		if err != nil {
			return nil, nil, fmt.Errorf("sample from state %d: %w", s, err)
		}
		obs = append(obs, x)
		states = append(states, s)
		cdf = transCDF[s]
	}

	m.observe(domain.OpSample, n, lattice.Stats{}, 0, began)
	return obs, states, nil
}
