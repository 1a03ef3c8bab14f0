package hmm_test

import (
	"testing"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSample_Length(t *testing.T) {
	model, err := weatherModel(hmm.WithSeed(1))
	require.NoError(t, err)

	obs, states, err := model.Sample(25)
	require.NoError(t, err)
	assert.Len(t, obs, 25)
	assert.Len(t, states, 25)
	for i, s := range states {
		assert.Contains(t, []int{0, 1}, s)
		assert.Equal(t, []float64{float64(s)}, obs[i])
	}

	obs, states, err = model.Sample(0)
	require.NoError(t, err)
	assert.Empty(t, obs)
	assert.Empty(t, states)

	_, _, err = model.Sample(-1)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestSample_StartFrequencies(t *testing.T) {
	model, err := weatherModel(hmm.WithSeed(42))
	require.NoError(t, err)

	const draws = 20000
	var first int
	for i := 0; i < draws; i++ {
		_, states, err := model.Sample(1)
		require.NoError(t, err)
		if states[0] == 0 {
			first++
		}
	}
	assert.InDelta(t, 0.6, float64(first)/draws, 0.02)
}

func TestSample_FollowsTransitions(t *testing.T) {
	model, err := weatherModel(hmm.WithSeed(5))
	require.NoError(t, err)
	require.NoError(t, model.SetStartProb([]float64{0, 1}))
	require.NoError(t, model.SetTransMat(mat.NewDense(2, 2, []float64{0, 1, 1, 0})))

	_, states, err := model.Sample(6)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0, 1, 0}, states)
}

func TestSample_Deterministic(t *testing.T) {
	a, err := weatherModel(hmm.WithSeed(7))
	require.NoError(t, err)
	b, err := weatherModel(hmm.WithSeed(7))
	require.NoError(t, err)

	_, sa, err := a.Sample(50)
	require.NoError(t, err)
	_, sb, err := b.Sample(50)
	require.NoError(t, err)
	assert.Equal(t, sa, sb)
}
