package hmm

import (
	"fmt"
	"math"

	"github.com/aretw0/hmm/internal/lattice"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// States returns the number of hidden states.
func (m *Model) States() int {
	return m.states
}

// EmissionType returns the tag of the model's emission family.
func (m *Model) EmissionType() string {
	return m.emission.EmissionType()
}

// Emission returns the emission collaborator.
func (m *Model) Emission() ports.Emission {
	return m.emission
}

// Labels returns a copy of the per-state labels.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Trainer returns the training collaborator.
func (m *Model) Trainer() ports.Trainer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trainer
}

// StartProb returns the initial state distribution.
func (m *Model) StartProb() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.startProb()
}

// LogStartProb returns a copy of the log initial state distribution.
func (m *Model) LogStartProb() []float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]float64(nil), m.logStartProb...)
}

// TransMat returns the transition matrix; entry (i, j) is P(next=j | cur=i).
func (m *Model) TransMat() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.transMat()
}

// LogTransMat returns a copy of the log transition matrix.
func (m *Model) LogTransMat() *mat.Dense {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return mat.DenseCopyOf(m.logTransMat)
}

// SetStartProb replaces the initial state distribution.
// It fails with domain.ErrShapeMismatch or domain.ErrInvalidDistribution and
// leaves the model unchanged on error.
func (m *Model) SetStartProb(p []float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStartProb(p)
}

// SetTransMat replaces the transition matrix. Each row must sum to one.
func (m *Model) SetTransMat(t mat.Matrix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setTransMat(t)
}

// SetTrainer replaces the training collaborator after checking that it
// handles the model's emission type.
func (m *Model) SetTrainer(t ports.Trainer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkTrainer(t); err != nil {
		return err
	}
	m.trainer = t
	return nil
}

func (m *Model) startProb() []float64 {
	p := make([]float64, m.states)
	for i, v := range m.logStartProb {
		p[i] = math.Exp(v)
	}
	return p
}

func (m *Model) transMat() *mat.Dense {
	return lattice.ExpMatrix(m.logTransMat)
}

func (m *Model) setStartProb(p []float64) error {
	if len(p) != m.states {
		return fmt.Errorf("%w: startprob must have length %d, got %d", domain.ErrShapeMismatch, m.states, len(p))
	}
	if err := checkDistribution(p); err != nil {
		return fmt.Errorf("startprob: %w", err)
	}
	m.logStartProb = lattice.LogVec(p)
	return nil
}

func (m *Model) setTransMat(t mat.Matrix) error {
	r, c := t.Dims()
	if r != m.states || c != m.states {
		return fmt.Errorf("%w: transmat must be %dx%d, got %dx%d", domain.ErrShapeMismatch, m.states, m.states, r, c)
	}
	for i := 0; i < r; i++ {
		if err := checkDistribution(mat.Row(nil, i, t)); err != nil {
			return fmt.Errorf("transmat row %d: %w", i, err)
		}
	}
	m.logTransMat = lattice.LogMatrix(t)
	return nil
}

// checkDistribution verifies that p is a probability vector.
func checkDistribution(p []float64) error {
	for i, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1+domain.DistributionTolerance {
			return fmt.Errorf("%w: entry %d is %v", domain.ErrInvalidDistribution, i, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > domain.DistributionTolerance {
		return fmt.Errorf("%w: sums to %v", domain.ErrInvalidDistribution, sum)
	}
	return nil
}
