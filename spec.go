package hmm

import (
	"fmt"

	"github.com/aretw0/hmm/pkg/domain"
	"gonum.org/v1/gonum/mat"
)

// Spec returns a serializable snapshot of the model parameters.
func (m *Model) Spec() (*domain.ModelSpec, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	params, err := m.emission.Parameters()
	if err != nil {
		return nil, fmt.Errorf("%s emission parameters: %w", m.emission.EmissionType(), err)
	}

	trans := m.transMat()
	rows := make([][]float64, m.states)
	for i := range rows {
		rows[i] = mat.Row(nil, i, trans)
	}

	return &domain.ModelSpec{
		Emission:  m.emission.EmissionType(),
		States:    m.states,
		StartProb: m.startProb(),
		TransMat:  rows,
		Labels:    m.Labels(),
		Params:    params,
	}, nil
}
