package http

import (
	"context"
	"math"
	"net/http"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/aretw0/hmm/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// InferenceRequest is the body of the likelihood, posteriors and decode routes.
type InferenceRequest struct {
	Obs         [][]float64 `json:"obs"`
	MaxRank     int         `json:"max_rank,omitempty"`
	BeamLogProb *float64    `json:"beam_log_prob,omitempty"`
}

func (req *InferenceRequest) options() []hmm.InferenceOption {
	opts := []hmm.InferenceOption{hmm.WithMaxRank(req.MaxRank)}
	if req.BeamLogProb != nil {
		opts = append(opts, hmm.WithBeamLogProb(*req.BeamLogProb))
	}
	return opts
}

// LikelihoodResponse is returned by POST /models/{name}/likelihood.
type LikelihoodResponse struct {
	LogProb LogProb `json:"log_prob"`
}

// PosteriorsResponse is returned by POST /models/{name}/posteriors.
type PosteriorsResponse struct {
	LogProb    LogProb     `json:"log_prob"`
	Posteriors [][]float64 `json:"posteriors"`
}

// DecodeResponse is returned by POST /models/{name}/decode.
type DecodeResponse struct {
	LogProb LogProb  `json:"log_prob"`
	Path    []int    `json:"path"`
	Labels  []string `json:"labels,omitempty"`
}

// SampleRequest is the body of POST /models/{name}/sample.
type SampleRequest struct {
	N    int     `json:"n"`
	Seed *uint64 `json:"seed,omitempty"`
}

// SampleResponse is returned by POST /models/{name}/sample.
type SampleResponse struct {
	Obs    [][]float64 `json:"obs"`
	States []int       `json:"states"`
}

// TrainRequest is the body of POST /models/{name}/train.
type TrainRequest struct {
	Sequences  [][][]float64  `json:"sequences"`
	Iterations int            `json:"iterations,omitempty"`
	Threshold  float64        `json:"threshold,omitempty"`
	Params     string         `json:"params,omitempty"`
	Init       string         `json:"init,omitempty"`
	Options    map[string]any `json:"options,omitempty"`
}

// TrainResponse is returned by POST /models/{name}/train.
type TrainResponse struct {
	History []LogProb `json:"history"`
}

func (s *Server) inference(w http.ResponseWriter, r *http.Request, run func(*hmm.Model, *InferenceRequest) (any, error)) {
	var req InferenceRequest
	if !s.decode(w, r, &req) {
		return
	}
	model, err := s.Catalog.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := run(model, &req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, resp)
}

// Likelihood handles POST /models/{name}/likelihood.
func (s *Server) Likelihood(w http.ResponseWriter, r *http.Request) {
	s.inference(w, r, func(m *hmm.Model, req *InferenceRequest) (any, error) {
		lp, err := m.Likelihood(req.Obs, req.options()...)
		if err != nil {
			return nil, err
		}
		return LikelihoodResponse{LogProb: LogProb(lp)}, nil
	})
}

// Posteriors handles POST /models/{name}/posteriors.
func (s *Server) Posteriors(w http.ResponseWriter, r *http.Request) {
	s.inference(w, r, func(m *hmm.Model, req *InferenceRequest) (any, error) {
		lp, post, err := m.Posteriors(req.Obs, req.options()...)
		if err != nil {
			return nil, err
		}
		frames, _ := post.Dims()
		rows := make([][]float64, frames)
		for t := range rows {
			rows[t] = post.RawRowView(t)
		}
		return PosteriorsResponse{LogProb: LogProb(lp), Posteriors: rows}, nil
	})
}

// Decode handles POST /models/{name}/decode.
func (s *Server) Decode(w http.ResponseWriter, r *http.Request) {
	s.inference(w, r, func(m *hmm.Model, req *InferenceRequest) (any, error) {
		lp, path, err := m.Decode(req.Obs, req.options()...)
		if err != nil {
			return nil, err
		}
		resp := DecodeResponse{LogProb: LogProb(lp), Path: path}
		if labels := m.Labels(); hasLabels(labels) {
			resp.Labels = make([]string, len(path))
			for i, st := range path {
				resp.Labels[i] = labels[st]
			}
		}
		return resp, nil
	})
}

func hasLabels(labels []string) bool {
	for _, l := range labels {
		if l != "" {
			return true
		}
	}
	return false
}

// Sample handles POST /models/{name}/sample.
func (s *Server) Sample(w http.ResponseWriter, r *http.Request) {
	var req SampleRequest
	if !s.decode(w, r, &req) {
		return
	}
	var opts []hmm.Option
	if req.Seed != nil {
		opts = append(opts, hmm.WithSeed(*req.Seed))
	}
	model, err := s.Catalog.Get(r.Context(), chi.URLParam(r, "name"), opts...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	obs, states, err := model.Sample(req.N)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, SampleResponse{Obs: obs, States: states})
}

// Train handles POST /models/{name}/train. The trained model replaces the
// stored one.
func (s *Server) Train(w http.ResponseWriter, r *http.Request) {
	var req TrainRequest
	if !s.decode(w, r, &req) {
		return
	}
	cfg := ports.TrainConfig{
		Iterations:  req.Iterations,
		Threshold:   req.Threshold,
		Params:      domain.Params(req.Params),
		BeamLogProb: math.Inf(-1),
		Options:     req.Options,
	}

	var history []float64
	err := s.Catalog.Update(r.Context(), chi.URLParam(r, "name"), func(ctx context.Context, m *hmm.Model) error {
		if req.Init != "" {
			if err := m.Initialize(req.Sequences, domain.Params(req.Init), req.Options); err != nil {
				return err
			}
		}
		var err error
		history, err = m.Train(ctx, req.Sequences, cfg)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, TrainResponse{History: logProbs(history)})
}
