// Package registry maps emission tags to constructors so that models can be
// rebuilt from their serialized specs.
package registry

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/emission/gaussian"
	"github.com/aretw0/hmm/pkg/emission/multinomial"
	"github.com/aretw0/hmm/pkg/ports"
	"gonum.org/v1/gonum/mat"
)

// Constructor builds an emission for the given state count from its
// serialized parameters.
type Constructor func(states int, params map[string]any) (ports.Emission, error)

// Registry manages the available emission variants.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Builtin returns a registry holding every emission shipped with this module.
func Builtin() *Registry {
	r := NewRegistry()
	r.Register(gaussian.Type, func(states int, params map[string]any) (ports.Emission, error) {
		return gaussian.FromParams(states, params)
	})
	r.Register(multinomial.Type, func(states int, params map[string]any) (ports.Emission, error) {
		return multinomial.FromParams(states, params)
	})
	return r
}

// Register adds an emission constructor to the registry.
// If a constructor with the same tag exists, it is overwritten.
func (r *Registry) Register(tag string, fn Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[tag] = fn
}

// Tags returns the registered emission tags in sorted order.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.constructors))
	for tag := range r.constructors {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Emission looks up a constructor by tag and runs it.
// Returns domain.ErrUnsupportedVariant if the tag is unknown.
func (r *Registry) Emission(tag string, states int, params map[string]any) (ports.Emission, error) {
	r.mu.RLock()
	fn, ok := r.constructors[tag]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: emission %q", domain.ErrUnsupportedVariant, tag)
	}
	return fn(states, params)
}

// Build reconstructs a model from its spec. opts are applied after the
// parameters taken from the spec.
func (r *Registry) Build(spec *domain.ModelSpec, opts ...hmm.Option) (*hmm.Model, error) {
	emission, err := r.Emission(spec.Emission, spec.States, spec.Params)
	if err != nil {
		return nil, err
	}

	var modelOpts []hmm.Option
	if spec.StartProb != nil {
		modelOpts = append(modelOpts, hmm.WithStartProb(spec.StartProb))
	}
	if spec.TransMat != nil {
		trans, err := denseOf(spec.States, spec.TransMat)
		if err != nil {
			return nil, err
		}
		modelOpts = append(modelOpts, hmm.WithTransMat(trans))
	}
	if spec.Labels != nil {
		modelOpts = append(modelOpts, hmm.WithLabels(spec.Labels...))
	}
	return hmm.New(spec.States, emission, append(modelOpts, opts...)...)
}

func denseOf(states int, rows [][]float64) (*mat.Dense, error) {
	if len(rows) != states {
		return nil, fmt.Errorf("%w: transmat has %d rows, want %d", domain.ErrShapeMismatch, len(rows), states)
	}
	m := mat.NewDense(states, states, nil)
	for i, row := range rows {
		if len(row) != states {
			return nil, fmt.Errorf("%w: transmat row %d has %d entries, want %d", domain.ErrShapeMismatch, i, len(row), states)
		}
		m.SetRow(i, row)
	}
	return m, nil
}
