package observability

import (
	"log/slog"

	"github.com/aretw0/hmm/pkg/domain"
)

// LogHooks returns hooks that log every event at info level.
func LogHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnInference: func(e *domain.InferenceEvent) {
			logger.Info("inference",
				"op", e.Operation,
				"emission", e.Emission,
				"frames", e.Frames,
				"log_prob", e.LogProb,
				"active_ratio", e.ActiveRatio(),
				"duration", e.Duration,
			)
		},
		OnTrainIteration: func(e *domain.TrainEvent) {
			logger.Info("train_iteration",
				"emission", e.Emission,
				"iteration", e.Iteration,
				"log_prob", e.LogProb,
			)
		},
	}
}

// Combine fans every event out to each of the given hooks in order.
func Combine(hooks ...domain.Hooks) domain.Hooks {
	return domain.Hooks{
		OnInference: func(e *domain.InferenceEvent) {
			for _, h := range hooks {
				if h.OnInference != nil {
					h.OnInference(e)
				}
			}
		},
		OnTrainIteration: func(e *domain.TrainEvent) {
			for _, h := range hooks {
				if h.OnTrainIteration != nil {
					h.OnTrainIteration(e)
				}
			}
		},
	}
}
