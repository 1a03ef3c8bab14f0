package hmm

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/hmm/internal/lattice"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// InferenceOption tunes the approximation used by an inference call.
type InferenceOption func(*lattice.Pruning)

// WithMaxRank keeps at most roughly k source states per frame, chosen by a
// histogram of their scores. Values of zero or below, or at least the state
// count, disable rank pruning.
func WithMaxRank(k int) InferenceOption {
	return func(p *lattice.Pruning) {
		p.MaxRank = k
	}
}

// WithBeamLogProb drops source states scoring more than |beam| nats below the
// frame total. math.Inf(-1) disables beam pruning.
func WithBeamLogProb(beam float64) InferenceOption {
	return func(p *lattice.Pruning) {
		p.BeamLogProb = beam
	}
}

func pruning(opts []InferenceOption) lattice.Pruning {
	p := lattice.Exact()
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Likelihood returns log P(obs | model) computed by the forward pass.
func (m *Model) Likelihood(obs [][]float64, opts ...InferenceOption) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	began := time.Now()
	frame, err := m.frameLogLikelihood(obs)
	if err != nil {
		return 0, err
	}
	logProb, _, stats := m.engine().Forward(frame, pruning(opts))
	m.observe(domain.OpLikelihood, len(obs), stats, logProb, began)
	return logProb, nil
}

// Posteriors returns log P(obs | model) and the per-frame state posteriors.
// Each row of the returned matrix sums to one unless the sequence is
// impossible under the model, in which case its rows are zero.
func (m *Model) Posteriors(obs [][]float64, opts ...InferenceOption) (float64, *mat.Dense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	began := time.Now()
	lat, stats, err := m.forwardBackward(obs, pruning(opts))
	if err != nil {
		return 0, nil, err
	}
	m.observe(domain.OpPosteriors, len(obs), stats, lat.LogProb, began)
	return lat.LogProb, lat.Posteriors, nil
}

// Decode returns the Viterbi path and the score reported for it.
//
// The score is the log-sum-exp of the final Viterbi row, which is an upper
// bound on the log-probability of the returned path.
func (m *Model) Decode(obs [][]float64, opts ...InferenceOption) (float64, []int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	began := time.Now()
	frame, err := m.frameLogLikelihood(obs)
	if err != nil {
		return 0, nil, err
	}
	logProb, path, stats := m.engine().Viterbi(frame, pruning(opts))
	m.observe(domain.OpDecode, len(obs), stats, logProb, began)
	return logProb, path, nil
}

// ForwardBackward exposes the raw lattices of one sequence.
func (m *Model) ForwardBackward(obs [][]float64, opts ...InferenceOption) (*ports.Lattices, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lat, _, err := m.forwardBackward(obs, pruning(opts))
	return lat, err
}

func (m *Model) forwardBackward(obs [][]float64, p lattice.Pruning) (*ports.Lattices, lattice.Stats, error) {
	frame, err := m.frameLogLikelihood(obs)
	if err != nil {
		return nil, lattice.Stats{}, err
	}
	eng := m.engine()
	logProb, fwd, stats := eng.Forward(frame, p)
	bwd, _ := eng.Backward(frame, fwd)
	return &ports.Lattices{
		LogProb:     logProb,
		FrameLogLik: frame,
		Forward:     fwd,
		Backward:    bwd,
		Posteriors:  posteriors(fwd, bwd),
	}, stats, nil
}

// posteriors normalizes fwd+bwd per frame.
func posteriors(fwd, bwd *mat.Dense) *mat.Dense {
	r, c := fwd.Dims()
	post := mat.NewDense(r, c, nil)
	post.Add(fwd, bwd)
	for t, norm := range lattice.RowLogSumExp(post) {
		row := post.RawRowView(t)
		for j, v := range row {
			if math.IsInf(norm, -1) {
				row[j] = 0
				continue
			}
			row[j] = math.Exp(v - norm)
		}
	}
	return post
}

func (m *Model) frameLogLikelihood(obs [][]float64) (*mat.Dense, error) {
	if len(obs) == 0 {
		return nil, domain.ErrEmptySequence
	}
	frame, err := m.emission.FrameLogLikelihood(obs)
	if err != nil {
		return nil, fmt.Errorf("%s emission: %w", m.emission.EmissionType(), err)
	}
	if r, c := frame.Dims(); r != len(obs) || c != m.states {
		return nil, fmt.Errorf("%w: emission returned %dx%d frame log-likelihood for %d frames and %d states",
			domain.ErrShapeMismatch, r, c, len(obs), m.states)
	}
	return frame, nil
}

func (m *Model) engine() *lattice.Engine {
	return lattice.NewEngine(m.logStartProb, m.logTransMat)
}

func (m *Model) observe(op string, frames int, stats lattice.Stats, logProb float64, began time.Time) {
	ev := &domain.InferenceEvent{
		Operation: op,
		Emission:  m.emission.EmissionType(),
		Frames:    frames,
		States:    m.states,
		Active:    stats.Active,
		LogProb:   logProb,
		Duration:  time.Since(began),
	}
	m.logger.Debug("inference completed",
		"op", op,
		"frames", frames,
		"log_prob", logProb,
		"active_ratio", ev.ActiveRatio(),
		"duration", ev.Duration,
	)
	if m.hooks.OnInference != nil {
		m.hooks.OnInference(ev)
	}
}
