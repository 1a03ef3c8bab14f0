package observability

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	hooks := m.Hooks()

	hooks.OnInference(&domain.InferenceEvent{
		Operation: domain.OpLikelihood, Emission: "gaussian", Frames: 3, States: 2, Active: 2, Duration: time.Millisecond,
	})
	hooks.OnInference(&domain.InferenceEvent{Operation: domain.OpLikelihood, Emission: "gaussian", Frames: 1, States: 2})
	hooks.OnInference(&domain.InferenceEvent{Operation: domain.OpSample, Emission: "multinomial", Frames: 5, States: 2})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inferences.WithLabelValues(domain.OpLikelihood, "gaussian")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inferences.WithLabelValues(domain.OpSample, "multinomial")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.activeRatio))

	hooks.OnTrainIteration(&domain.TrainEvent{Emission: "gaussian", Iteration: 0, LogProb: -12})
	hooks.OnTrainIteration(&domain.TrainEvent{Emission: "gaussian", Iteration: 1, LogProb: -10})
	assert.Equal(t, 2.0, testutil.ToFloat64(m.trainIters.WithLabelValues("gaussian")))
	assert.Equal(t, -10.0, testutil.ToFloat64(m.trainLogProb.WithLabelValues("gaussian")))
}

func TestMetrics_Handler(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Hooks().OnInference(&domain.InferenceEvent{Operation: domain.OpDecode, Emission: "gaussian", Frames: 2, States: 2})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hmm_inference_total{emission="gaussian",operation="decode"} 1`)
}

func TestCombine(t *testing.T) {
	var first, second int
	combined := Combine(
		domain.Hooks{OnInference: func(*domain.InferenceEvent) { first++ }},
		domain.Hooks{},
		domain.Hooks{
			OnInference:      func(*domain.InferenceEvent) { second++ },
			OnTrainIteration: func(*domain.TrainEvent) { second += 10 },
		},
	)

	combined.OnInference(&domain.InferenceEvent{})
	combined.OnTrainIteration(&domain.TrainEvent{})

	assert.Equal(t, 1, first)
	assert.Equal(t, 11, second)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := LogHooks(slog.New(slog.NewTextHandler(&buf, nil)))

	hooks.OnInference(&domain.InferenceEvent{Operation: domain.OpPosteriors, Emission: "gaussian"})
	hooks.OnTrainIteration(&domain.TrainEvent{Emission: "gaussian", Iteration: 3})

	assert.Contains(t, buf.String(), "op=posteriors")
	assert.Contains(t, buf.String(), "iteration=3")
}
