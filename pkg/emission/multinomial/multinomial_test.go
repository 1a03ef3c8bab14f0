package multinomial

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNew_Defaults(t *testing.T) {
	e, err := New(2, WithSymbols(4))
	require.NoError(t, err)
	assert.Equal(t, Type, e.EmissionType())
	assert.Equal(t, 2, e.States())
	assert.Equal(t, 4, e.Symbols())
	assert.InDelta(t, 0.25, e.EmissionProb().At(1, 3), 1e-12)

	_, err = New(2)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestNew_ValidationAggregates(t *testing.T) {
	_, err := New(3, WithEmissionProb([][]float64{
		{0.5, 0.5},
		{0.9, 0.9},
		{-0.5, 1.5},
	}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidDistribution)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "row 2")

	_, err = New(2, WithEmissionProb([][]float64{{1}}))
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)

	_, err = New(2, WithEmissionProb([][]float64{{1, 0}, {1}}))
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestFrameLogLikelihood(t *testing.T) {
	e, err := New(2, WithEmissionProb([][]float64{{0.25, 0.75}, {1, 0}}))
	require.NoError(t, err)

	frame, err := e.FrameLogLikelihood([][]float64{{1}, {0}})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.75), frame.At(0, 0), 1e-12)
	assert.True(t, math.IsInf(frame.At(0, 1), -1))
	assert.InDelta(t, 0, frame.At(1, 1), 1e-12)

	_, err = e.FrameLogLikelihood([][]float64{{2}})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	_, err = e.FrameLogLikelihood([][]float64{{0.5}})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	_, err = e.FrameLogLikelihood([][]float64{{0, 1}})
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestSampleFromState(t *testing.T) {
	e, err := New(2, WithEmissionProb([][]float64{{0, 1, 0}, {0.5, 0, 0.5}}))
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))

	for i := 0; i < 100; i++ {
		x, err := e.SampleFromState(0, rng)
		require.NoError(t, err)
		assert.Equal(t, []float64{1}, x)

		x, err = e.SampleFromState(1, rng)
		require.NoError(t, err)
		assert.NotEqual(t, []float64{1}, x)
	}

	_, err = e.SampleFromState(2, rng)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestParameters_RoundTrip(t *testing.T) {
	e, err := New(2, WithEmissionProb([][]float64{{0.25, 0.75}, {0.5, 0.5}}))
	require.NoError(t, err)

	params, err := e.Parameters()
	require.NoError(t, err)
	assert.Equal(t, 2, params["symbols"])

	again, err := FromParams(2, params)
	require.NoError(t, err)
	assert.True(t, mat.Equal(e.EmissionProb(), again.EmissionProb()))

	_, err = FromParams(2, map[string]any{"symbols": 2, "unknown": true})
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestFromParams_WeakTypes(t *testing.T) {
	e, err := FromParams(1, map[string]any{
		"symbols":       2.0,
		"emission_prob": []any{[]any{0.4, 0.6}},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, e.EmissionProb().At(0, 1), 1e-12)
}

func TestInitializeParameters(t *testing.T) {
	e, err := New(3, WithSymbols(2))
	require.NoError(t, err)
	obs := [][][]float64{{{0}, {0}, {0}, {1}}}

	require.NoError(t, e.InitializeParameters(obs, "e", map[string]any{"seed": 3}))
	prob := e.EmissionProb()
	for i := 0; i < 3; i++ {
		row := prob.RawRowView(i)
		assert.InDelta(t, 1, floats.Sum(row), 1e-12)
		assert.Greater(t, row[0], row[1])
	}
	assert.NotEqual(t, prob.RawRowView(0), prob.RawRowView(1), "jitter must break symmetry")

	before := e.EmissionProb()
	require.NoError(t, e.InitializeParameters(obs, "st", nil))
	assert.True(t, mat.Equal(before, e.EmissionProb()))
}

func TestAccumulator(t *testing.T) {
	e, err := New(2, WithSymbols(2))
	require.NoError(t, err)
	acc := e.NewAccumulator()

	post := mat.NewDense(3, 2, []float64{
		1, 0,
		1, 0,
		0.5, 0.5,
	})
	require.NoError(t, acc.Add([][]float64{{0}, {1}, {1}}, post))
	require.NoError(t, acc.Apply("e"))

	prob := e.EmissionProb()
	assert.InDeltaSlice(t, []float64{1.0 / 2.5, 1.5 / 2.5}, prob.RawRowView(0), 1e-12)
	assert.InDeltaSlice(t, []float64{0, 1}, prob.RawRowView(1), 1e-12)
}

func TestRestore(t *testing.T) {
	e, err := New(2, WithEmissionProb([][]float64{{0.25, 0.75}, {0.5, 0.5}}))
	require.NoError(t, err)
	snapshot, err := e.Parameters()
	require.NoError(t, err)
	want := e.EmissionProb()

	e.setProb(uniform(2, 2))
	require.NoError(t, e.Restore(snapshot))
	assert.True(t, mat.Equal(want, e.EmissionProb()))

	assert.ErrorIs(t, e.Restore(map[string]any{"symbols": 2, "emission_prob": [][]float64{{2, -1}, {1, 0}}}), domain.ErrInvalidDistribution)
	assert.True(t, mat.Equal(want, e.EmissionProb()), "failed restore keeps the emission")
}
