package hmm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/emission/gaussian"
	"github.com/aretw0/hmm/pkg/emission/multinomial"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleSequences(t *testing.T, model *hmm.Model, count, length int) [][][]float64 {
	t.Helper()
	out := make([][][]float64, count)
	for i := range out {
		obs, _, err := model.Sample(length)
		require.NoError(t, err)
		out[i] = obs
	}
	return out
}

func TestTrain_MultinomialImprovesLikelihood(t *testing.T) {
	truthEmission, err := multinomial.New(2, multinomial.WithEmissionProb([][]float64{
		{0.8, 0.15, 0.05},
		{0.1, 0.3, 0.6},
	}))
	require.NoError(t, err)
	truth, err := hmm.New(2, truthEmission,
		hmm.WithStartProb([]float64{0.7, 0.3}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.9, 0.1, 0.2, 0.8})),
		hmm.WithSeed(3),
	)
	require.NoError(t, err)
	data := sampleSequences(t, truth, 8, 60)

	emission, err := multinomial.New(2, multinomial.WithSymbols(3))
	require.NoError(t, err)
	model, err := hmm.New(2, emission, hmm.WithSeed(4))
	require.NoError(t, err)
	require.NoError(t, model.Initialize(data, "ste", map[string]any{"seed": 9}))

	history, err := model.Train(context.Background(), data, ports.TrainConfig{Iterations: 25, Threshold: 1e-6})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 2)
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i], history[i-1]-1e-6, "iteration %d decreased", i)
	}
	assert.Greater(t, history[len(history)-1], history[0])
}

func TestTrain_GaussianRecoversMeans(t *testing.T) {
	truthEmission, err := gaussian.New(2, 1,
		gaussian.WithMeans([][]float64{{-4}, {4}}),
		gaussian.WithSphericalCovars([]float64{0.5, 0.5}),
	)
	require.NoError(t, err)
	truth, err := hmm.New(2, truthEmission,
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.8, 0.2, 0.2, 0.8})),
		hmm.WithSeed(11),
	)
	require.NoError(t, err)
	data := sampleSequences(t, truth, 4, 100)

	emission, err := gaussian.New(2, 1, gaussian.WithCovarianceType(gaussian.Spherical))
	require.NoError(t, err)
	model, err := hmm.New(2, emission)
	require.NoError(t, err)
	require.NoError(t, model.Initialize(data, "stmc", map[string]any{"seed": 1}))

	_, err = model.Train(context.Background(), data, ports.TrainConfig{Iterations: 15, Threshold: 1e-4})
	require.NoError(t, err)

	means := emission.Means()
	lo, hi := means.At(0, 0), means.At(1, 0)
	if lo > hi {
		lo, hi = hi, lo
	}
	assert.InDelta(t, -4, lo, 0.5)
	assert.InDelta(t, 4, hi, 0.5)
}

func TestTrain_RespectsCancellation(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = model.Train(ctx, [][][]float64{weatherObs}, ports.TrainConfig{Iterations: 5})
	assert.ErrorIs(t, err, context.Canceled)
}

// divergingTrainer applies one update to every parameter and then fails.
type divergingTrainer struct{}

func (divergingTrainer) EmissionType() string { return multinomial.Type }

func (divergingTrainer) Train(_ context.Context, m ports.TrainableModel, obs [][][]float64, _ ports.TrainConfig) ([]float64, error) {
	if err := m.SetStartProb([]float64{0.1, 0.9}); err != nil {
		return nil, err
	}
	if err := m.SetTransMat(mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.5})); err != nil {
		return nil, err
	}
	acc := m.Emission().(ports.Reestimator).NewAccumulator()
	post := mat.NewDense(len(obs[0]), 2, nil)
	for t := range obs[0] {
		post.Set(t, 1, 1)
	}
	if err := acc.Add(obs[0], post); err != nil {
		return nil, err
	}
	if err := acc.Apply(domain.Params("e")); err != nil {
		return nil, err
	}
	return nil, errors.New("diverged")
}

func TestTrain_FailureRestoresParameters(t *testing.T) {
	emission, err := multinomial.New(2, multinomial.WithEmissionProb([][]float64{
		{0.8, 0.2},
		{0.3, 0.7},
	}))
	require.NoError(t, err)
	want := mat.DenseCopyOf(emission.EmissionProb())
	model, err := hmm.New(2, emission,
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
		hmm.WithTrainer(divergingTrainer{}),
	)
	require.NoError(t, err)

	_, err = model.Train(context.Background(), [][][]float64{{{0}, {0}, {0}}}, ports.TrainConfig{})
	require.EqualError(t, err, "diverged")

	assert.InDeltaSlice(t, []float64{0.6, 0.4}, model.StartProb(), 1e-12)
	assert.InDelta(t, 0.7, model.TransMat().At(0, 0), 1e-12)
	assert.True(t, mat.EqualApprox(want, emission.EmissionProb(), 1e-12))
}
