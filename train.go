package hmm

import (
	"context"
	"fmt"

	"github.com/aretw0/hmm/internal/lattice"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Initialize resets the parameters selected by params from data.
//
// 's' and 't' reset the start distribution and transition matrix to uniform;
// the remaining flags and options are forwarded to the emission collaborator.
// The model is left unchanged on error.
func (m *Model) Initialize(obs [][][]float64, params domain.Params, options map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := m.checkpoint()
	if err := m.emission.InitializeParameters(obs, params, options); err != nil {
		m.rollback(cp)
		return fmt.Errorf("initialize %s emission: %w", m.emission.EmissionType(), err)
	}
	if params.Has(domain.ParamStartProb) {
		if err := m.setStartProb(uniform(m.states)); err != nil {
			return err
		}
	}
	if params.Has(domain.ParamTransMat) {
		if err := m.setTransMat(uniformMatrix(m.states)); err != nil {
			return err
		}
	}

	m.logger.Info("model initialized", "params", string(params), "sequences", len(obs))
	return nil
}

// Train delegates to the trainer collaborator and returns the log-likelihood
// history it reports. The model is locked exclusively for the whole run.
//
// On error, including cancellation, every parameter is put back as it was
// before the run. Emissions that do not implement ports.Restorer keep the
// updates of completed iterations.
func (m *Model) Train(ctx context.Context, obs [][][]float64, cfg ports.TrainConfig) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := m.checkpoint()
	history, err := m.trainer.Train(ctx, &trainView{m: m}, obs, cfg)
	if err != nil {
		m.rollback(cp)
		return nil, err
	}
	if m.hooks.OnTrainIteration != nil {
		for i, lp := range history {
			m.hooks.OnTrainIteration(&domain.TrainEvent{
				Emission:  m.emission.EmissionType(),
				Iteration: i,
				LogProb:   lp,
			})
		}
	}
	return history, nil
}

// checkpoint holds the parameters a failed update puts back. The setters
// replace the log-domain slices rather than writing into them, so keeping the
// references is enough.
type checkpoint struct {
	logStartProb []float64
	logTransMat  *mat.Dense
	emission     map[string]any
}

func (m *Model) checkpoint() checkpoint {
	cp := checkpoint{logStartProb: m.logStartProb, logTransMat: m.logTransMat}
	if _, ok := m.emission.(ports.Restorer); ok {
		params, err := m.emission.Parameters()
		if err != nil {
			m.logger.Warn("emission snapshot failed", "emission", m.emission.EmissionType(), "err", err)
		}
		cp.emission = params
	}
	return cp
}

func (m *Model) rollback(cp checkpoint) {
	m.logStartProb, m.logTransMat = cp.logStartProb, cp.logTransMat
	r, ok := m.emission.(ports.Restorer)
	if !ok || cp.emission == nil {
		return
	}
	if err := r.Restore(cp.emission); err != nil {
		m.logger.Warn("emission restore failed", "emission", m.emission.EmissionType(), "err", err)
	}
}

// trainView exposes the model to a trainer while the write lock is held.
type trainView struct {
	m *Model
}

func (v *trainView) States() int              { return v.m.states }
func (v *trainView) Emission() ports.Emission { return v.m.emission }
func (v *trainView) StartProb() []float64     { return v.m.startProb() }
func (v *trainView) TransMat() *mat.Dense     { return v.m.transMat() }
func (v *trainView) LogTransMat() *mat.Dense  { return mat.DenseCopyOf(v.m.logTransMat) }

func (v *trainView) SetStartProb(p []float64) error { return v.m.setStartProb(p) }
func (v *trainView) SetTransMat(t mat.Matrix) error { return v.m.setTransMat(t) }

func (v *trainView) ForwardBackward(obs [][]float64, maxRank int, beamLogProb float64) (*ports.Lattices, error) {
	lat, _, err := v.m.forwardBackward(obs, lattice.Pruning{MaxRank: maxRank, BeamLogProb: beamLogProb})
	return lat, err
}
