package observability

import (
	"net/http"

	"github.com/aretw0/hmm/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors fed by model hooks.
type Metrics struct {
	inferences   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	activeRatio  *prometheus.HistogramVec
	trainIters   *prometheus.CounterVec
	trainLogProb *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		inferences: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hmm_inference_total",
				Help: "Total number of inference calls",
			},
			[]string{"operation", "emission"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hmm_inference_duration_seconds",
				Help: "Duration of inference calls",
			},
			[]string{"operation"},
		),
		activeRatio: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hmm_active_state_ratio",
				Help:    "Mean fraction of states kept by the pruner per frame",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"operation"},
		),
		trainIters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hmm_train_iterations_total",
				Help: "Total number of training iterations",
			},
			[]string{"emission"},
		),
		trainLogProb: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hmm_train_log_likelihood",
				Help: "Total log-likelihood of the last training iteration",
			},
			[]string{"emission"},
		),
		gatherer: reg,
	}
	for _, c := range []prometheus.Collector{m.inferences, m.duration, m.activeRatio, m.trainIters, m.trainLogProb} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the hooks recording into m.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnInference: func(e *domain.InferenceEvent) {
			m.inferences.WithLabelValues(e.Operation, e.Emission).Inc()
			m.duration.WithLabelValues(e.Operation).Observe(e.Duration.Seconds())
			if e.Operation != domain.OpSample {
				m.activeRatio.WithLabelValues(e.Operation).Observe(e.ActiveRatio())
			}
		},
		OnTrainIteration: func(e *domain.TrainEvent) {
			m.trainIters.WithLabelValues(e.Emission).Inc()
			m.trainLogProb.WithLabelValues(e.Emission).Set(e.LogProb)
		},
	}
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
