package hmm

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/aretw0/hmm/pkg/train"
	"gonum.org/v1/gonum/mat"
)

// Model is a hidden Markov model with a pluggable emission distribution.
//
// The start distribution and transition matrix are stored in the log domain
// and are only changed through validating setters. Inference methods take a
// read lock for their whole duration, so any number of them may run
// concurrently; Initialize, Train and the setters take the write lock.
type Model struct {
	mu sync.RWMutex

	states       int
	logStartProb []float64
	logTransMat  *mat.Dense
	labels       []string
	emission     ports.Emission
	trainer      ports.Trainer

	hooks  domain.Hooks
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

type config struct {
	startProb []float64
	transMat  mat.Matrix
	labels    []string
	trainer   ports.Trainer
	hooks     domain.Hooks
	logger    *slog.Logger
	rng       *rand.Rand
}

// Option defines a functional option for configuring a Model.
type Option func(*config)

// WithStartProb sets the initial state distribution (default: uniform).
func WithStartProb(p []float64) Option {
	return func(c *config) {
		c.startProb = p
	}
}

// WithTransMat sets the row-stochastic transition matrix (default: uniform).
func WithTransMat(m mat.Matrix) Option {
	return func(c *config) {
		c.transMat = m
	}
}

// WithLabels annotates each state. Labels have no effect on inference.
func WithLabels(labels ...string) Option {
	return func(c *config) {
		c.labels = labels
	}
}

// WithTrainer injects the training collaborator. It must declare the same
// emission type as the model. By default a Baum-Welch trainer is used.
func WithTrainer(t ports.Trainer) Option {
	return func(c *config) {
		c.trainer = t
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.Hooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the model.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithSeed makes sampling deterministic.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// New builds a model with the given number of states around an emission.
// Every parameter is validated before the model is returned.
func New(states int, emission ports.Emission, opts ...Option) (*Model, error) {
	if states < 1 {
		return nil, fmt.Errorf("%w: state count must be positive, got %d", domain.ErrShapeMismatch, states)
	}
	if emission == nil {
		return nil, errors.New("emission is required")
	}
	if emission.States() != states {
		return nil, fmt.Errorf("%w: emission has %d states, model has %d", domain.ErrShapeMismatch, emission.States(), states)
	}

	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}

	m := &Model{
		states:   states,
		emission: emission,
		hooks:    cfg.hooks,
		logger:   cfg.logger.With("emission", emission.EmissionType(), "states", states),
		rng:      cfg.rng,
	}

	start := cfg.startProb
	if start == nil {
		start = uniform(states)
	}
	if err := m.setStartProb(start); err != nil {
		return nil, err
	}

	trans := cfg.transMat
	if trans == nil {
		trans = uniformMatrix(states)
	}
	if err := m.setTransMat(trans); err != nil {
		return nil, err
	}

	switch {
	case cfg.labels == nil:
		m.labels = make([]string, states)
	case len(cfg.labels) != states:
		return nil, fmt.Errorf("%w: %d labels for %d states", domain.ErrShapeMismatch, len(cfg.labels), states)
	default:
		m.labels = append([]string(nil), cfg.labels...)
	}

	trainer := cfg.trainer
	if trainer == nil {
		trainer = train.NewBaumWelch(emission.EmissionType(), train.WithLogger(cfg.logger))
	}
	if err := m.checkTrainer(trainer); err != nil {
		return nil, err
	}
	m.trainer = trainer

	if m.rng == nil {
		m.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return m, nil
}

func (m *Model) checkTrainer(t ports.Trainer) error {
	if t == nil {
		return errors.New("trainer is required")
	}
	if t.EmissionType() != m.emission.EmissionType() {
		return fmt.Errorf("%w: trainer handles %q emissions, model uses %q",
			domain.ErrIncompatibleCollaborator, t.EmissionType(), m.emission.EmissionType())
	}
	return nil
}

func uniform(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}

func uniformMatrix(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		copy(m.RawRowView(i), uniform(n))
	}
	return m
}
