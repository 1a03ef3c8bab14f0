package domain

import "time"

// InferenceEvent describes one completed inference call.
type InferenceEvent struct {
	Operation string        `json:"operation"`
	Emission  string        `json:"emission"`
	Frames    int           `json:"frames"`
	States    int           `json:"states"`
	Active    int           `json:"active"` // active states summed over all pruned frames
	LogProb   float64       `json:"log_prob"`
	Duration  time.Duration `json:"duration"`
}

// ActiveRatio is the mean fraction of states kept by the pruner per frame.
// It is 1 when nothing was pruned or the sequence had a single frame.
func (e *InferenceEvent) ActiveRatio() float64 {
	pruned := e.Frames - 1
	if pruned <= 0 || e.States == 0 {
		return 1
	}
	return float64(e.Active) / float64(pruned*e.States)
}

// TrainEvent describes one training iteration.
type TrainEvent struct {
	Emission  string  `json:"emission"`
	Iteration int     `json:"iteration"`
	LogProb   float64 `json:"log_prob"`
}

// Hooks defines callbacks for engine observability.
// Nil callbacks are skipped.
type Hooks struct {
	OnInference      func(*InferenceEvent)
	OnTrainIteration func(*TrainEvent)
}
