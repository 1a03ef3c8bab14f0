package registry

import (
	"testing"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	called := false
	r.Register("custom", func(states int, params map[string]any) (ports.Emission, error) {
		called = true
		return nil, nil
	})

	_, err := r.Emission("custom", 2, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []string{"custom"}, r.Tags())
}

func TestRegistry_UnknownTag(t *testing.T) {
	_, err := Builtin().Emission("poisson", 2, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedVariant)
}

func TestBuiltin_Tags(t *testing.T) {
	assert.Equal(t, []string{"gaussian", "multinomial"}, Builtin().Tags())
}

func TestBuild_RoundTrip(t *testing.T) {
	spec := &domain.ModelSpec{
		Emission:  "multinomial",
		States:    2,
		StartProb: []float64{0.6, 0.4},
		TransMat:  [][]float64{{0.7, 0.3}, {0.4, 0.6}},
		Labels:    []string{"rainy", "sunny"},
		Params: map[string]any{
			"symbols":       2,
			"emission_prob": [][]float64{{0.5, 0.5}, {0.9, 0.1}},
		},
	}

	model, err := Builtin().Build(spec)
	require.NoError(t, err)

	got, err := model.Spec()
	require.NoError(t, err)
	assert.Equal(t, spec.Emission, got.Emission)
	assert.Equal(t, spec.Labels, got.Labels)
	assert.InDeltaSlice(t, spec.StartProb, got.StartProb, 1e-12)
	for i := range spec.TransMat {
		assert.InDeltaSlice(t, spec.TransMat[i], got.TransMat[i], 1e-12)
	}

	again, err := Builtin().Build(got)
	require.NoError(t, err)
	lp1, err := model.Likelihood([][]float64{{0}, {1}, {0}})
	require.NoError(t, err)
	lp2, err := again.Likelihood([][]float64{{0}, {1}, {0}})
	require.NoError(t, err)
	assert.InDelta(t, lp1, lp2, 1e-12)
}

func TestBuild_Gaussian(t *testing.T) {
	spec := &domain.ModelSpec{
		Emission: "gaussian",
		States:   2,
		Params: map[string]any{
			"dims":            1,
			"covariance_type": "spherical",
			"means":           []any{[]any{0.0}, []any{5.0}},
			"covars":          []any{1.0, 2.0},
		},
	}
	model, err := Builtin().Build(spec)
	require.NoError(t, err)
	assert.Equal(t, "gaussian", model.EmissionType())
}

func TestBuild_RaggedTransMat(t *testing.T) {
	spec := &domain.ModelSpec{
		Emission: "multinomial",
		States:   2,
		TransMat: [][]float64{{1}, {0.5, 0.5}},
		Params:   map[string]any{"symbols": 2},
	}
	_, err := Builtin().Build(spec)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestBuild_StateCountMismatch(t *testing.T) {
	spec := &domain.ModelSpec{
		Emission:  "multinomial",
		States:    3,
		StartProb: []float64{0.5, 0.5},
		Params:    map[string]any{"symbols": 2},
	}
	_, err := Builtin().Build(spec)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}
