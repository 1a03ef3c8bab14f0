package hmm_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

type stubTrainer struct{ tag string }

func (s stubTrainer) EmissionType() string { return s.tag }

func (s stubTrainer) Train(context.Context, ports.TrainableModel, [][][]float64, ports.TrainConfig) ([]float64, error) {
	return []float64{-3, -2}, nil
}

func TestNew_Defaults(t *testing.T) {
	emission := &tableEmission{table: [][]float64{{0.2, 0.3, 0.5}}}
	model, err := hmm.New(3, emission)
	require.NoError(t, err)

	assert.Equal(t, 3, model.States())
	assert.Equal(t, "table", model.EmissionType())
	assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, model.StartProb(), 1e-12)
	trans := model.TransMat()
	for i := 0; i < 3; i++ {
		assert.InDeltaSlice(t, []float64{1.0 / 3, 1.0 / 3, 1.0 / 3}, trans.RawRowView(i), 1e-12)
	}
	assert.Equal(t, "table", model.Trainer().EmissionType())
	assert.Equal(t, []string{"", "", ""}, model.Labels())
}

func TestNew_StartProbLengthMismatch(t *testing.T) {
	emission := &tableEmission{table: [][]float64{{0.2, 0.3, 0.5}}}
	_, err := hmm.New(3, emission, hmm.WithStartProb([]float64{0.5, 0.5}))
	assert.ErrorIs(t, err, domain.ErrShapeMismatch)
}

func TestNew_Validation(t *testing.T) {
	emission := &tableEmission{table: [][]float64{{0.5, 0.5}}}

	_, err := hmm.New(0, emission)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch, "non-positive state count")

	_, err = hmm.New(3, emission)
	assert.ErrorIs(t, err, domain.ErrShapeMismatch, "emission sized for another state count")

	_, err = hmm.New(2, emission, hmm.WithLabels("only-one"))
	assert.ErrorIs(t, err, domain.ErrShapeMismatch, "label count")

	_, err = hmm.New(2, emission, hmm.WithTransMat(mat.NewDense(2, 3, nil)))
	assert.ErrorIs(t, err, domain.ErrShapeMismatch, "transmat shape")

	_, err = hmm.New(2, emission, hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.5, 0.5, 0.9, 0.2})))
	assert.ErrorIs(t, err, domain.ErrInvalidDistribution, "transmat row sum")

	_, err = hmm.New(2, emission, hmm.WithTrainer(stubTrainer{tag: "gaussian"}))
	assert.ErrorIs(t, err, domain.ErrIncompatibleCollaborator)
}

func TestSetStartProb_Tolerance(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)
	eps := domain.DistributionTolerance

	require.NoError(t, model.SetStartProb([]float64{0.5, 0.5 + eps/2}))
	require.NoError(t, model.SetStartProb([]float64{0.5, 0.5 - eps/2}))

	err = model.SetStartProb([]float64{0.5, 0.5 + 10*eps})
	assert.ErrorIs(t, err, domain.ErrInvalidDistribution)
}

func TestSetStartProb_RejectsAndKeepsState(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	cases := map[string][]float64{
		"negative": {-0.1, 1.1},
		"nan":      {math.NaN(), 1},
		"sum":      {0.2, 0.2},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			err := model.SetStartProb(p)
			assert.ErrorIs(t, err, domain.ErrInvalidDistribution)
			assert.InDeltaSlice(t, []float64{0.6, 0.4}, model.StartProb(), 1e-12)
		})
	}

	assert.ErrorIs(t, model.SetStartProb([]float64{1}), domain.ErrShapeMismatch)
}

func TestSetStartProb_ZeroMapsToNegInf(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	require.NoError(t, model.SetStartProb([]float64{1, 0}))
	assert.True(t, math.IsInf(model.LogStartProb()[1], -1))
}

func TestSetTransMat(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	require.NoError(t, model.SetTransMat(mat.NewDense(2, 2, []float64{1, 0, 0, 1})))
	logTrans := model.LogTransMat()
	assert.Equal(t, 0.0, logTrans.At(0, 0))
	assert.True(t, math.IsInf(logTrans.At(0, 1), -1))

	err = model.SetTransMat(mat.NewDense(2, 2, []float64{0.5, 0.5, 0.5, 0.6}))
	assert.ErrorIs(t, err, domain.ErrInvalidDistribution)
	assert.Equal(t, 1.0, model.TransMat().At(1, 1), "rejected matrix must not be applied")
}

func TestSetTrainer(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	assert.ErrorIs(t, model.SetTrainer(stubTrainer{tag: "gaussian"}), domain.ErrIncompatibleCollaborator)
	require.NoError(t, model.SetTrainer(stubTrainer{tag: "table"}))

	var events []*domain.TrainEvent
	model, err = weatherModel(
		hmm.WithTrainer(stubTrainer{tag: "table"}),
		hmm.WithHooks(domain.Hooks{OnTrainIteration: func(e *domain.TrainEvent) { events = append(events, e) }}),
	)
	require.NoError(t, err)
	history, err := model.Train(context.Background(), [][][]float64{weatherObs}, ports.TrainConfig{})
	require.NoError(t, err)
	assert.Equal(t, []float64{-3, -2}, history)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[1].Iteration)
	assert.Equal(t, -2.0, events[1].LogProb)
}

func TestSpec(t *testing.T) {
	model, err := weatherModel(hmm.WithLabels("rainy", "sunny"))
	require.NoError(t, err)

	spec, err := model.Spec()
	require.NoError(t, err)
	assert.Equal(t, "table", spec.Emission)
	assert.Equal(t, 2, spec.States)
	assert.Equal(t, []string{"rainy", "sunny"}, spec.Labels)
	assert.InDeltaSlice(t, []float64{0.6, 0.4}, spec.StartProb, 1e-12)
	assert.InDeltaSlice(t, []float64{0.4, 0.6}, spec.TransMat[1], 1e-12)
	assert.Contains(t, spec.Params, "table")
}

func TestInitialize_ResetsToUniform(t *testing.T) {
	model, err := weatherModel()
	require.NoError(t, err)

	require.NoError(t, model.Initialize([][][]float64{weatherObs}, "s", nil))
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, model.StartProb(), 1e-12)
	assert.InDelta(t, 0.7, model.TransMat().At(0, 0), 1e-12, "transmat untouched without 't'")

	require.NoError(t, model.Initialize(nil, "t", nil))
	assert.InDelta(t, 0.5, model.TransMat().At(0, 0), 1e-12)
}

func TestInitialize_EmissionFailureKeepsModel(t *testing.T) {
	emission := &tableEmission{
		table:   [][]float64{{0.5, 0.5}, {0.9, 0.1}, {0.2, 0.8}},
		initErr: errors.New("boom"),
	}
	model, err := hmm.New(2, emission,
		hmm.WithStartProb([]float64{0.6, 0.4}),
		hmm.WithTransMat(mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6})),
	)
	require.NoError(t, err)

	err = model.Initialize(nil, "stm", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	assert.InDeltaSlice(t, []float64{0.6, 0.4}, model.StartProb(), 1e-12)
	assert.InDelta(t, 0.7, model.TransMat().At(0, 0), 1e-12)
	assert.InDelta(t, 0.4, model.TransMat().At(1, 0), 1e-12)
}
