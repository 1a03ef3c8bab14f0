// Package http exposes a model catalog over a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/catalog"
	"github.com/aretw0/hmm/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 32 << 20

// Server serves inference and training requests against a catalog.
type Server struct {
	Catalog *catalog.Catalog

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics mounts a Prometheus handler at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the catalog.
func NewHandler(c *catalog.Catalog, opts ...Option) http.Handler {
	s := &Server{
		Catalog: c,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/health", s.Health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	r.Route("/models", func(r chi.Router) {
		r.Get("/", s.ListModels)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.GetModel)
			r.Put("/", s.PutModel)
			r.Delete("/", s.DeleteModel)
			r.Post("/likelihood", s.Likelihood)
			r.Post("/posteriors", s.Posteriors)
			r.Post("/decode", s.Decode)
			r.Post("/sample", s.Sample)
			r.Post("/train", s.Train)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LogProb is a log-probability that encodes -Inf and NaN as JSON null.
type LogProb float64

// MarshalJSON implements json.Marshaler.
func (p LogProb) MarshalJSON() ([]byte, error) {
	f := float64(p)
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

func logProbs(v []float64) []LogProb {
	out := make([]LogProb, len(v))
	for i, f := range v {
		out[i] = LogProb(f)
	}
	return out
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

// fail maps domain errors to HTTP status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("Request rejected", "path", r.URL.Path, "error", err)
	}
	s.respond(w, status, map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrShapeMismatch),
		errors.Is(err, domain.ErrInvalidDistribution),
		errors.Is(err, domain.ErrInvalidParameter),
		errors.Is(err, domain.ErrEmptySequence),
		errors.Is(err, domain.ErrUnsupportedVariant),
		errors.Is(err, domain.ErrIncompatibleCollaborator):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// Health handles GET /health.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok", "version": hmm.Version})
}

// ListModels handles GET /models.
func (s *Server) ListModels(w http.ResponseWriter, r *http.Request) {
	names, err := s.Catalog.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, map[string][]string{"models": names})
}

// GetModel handles GET /models/{name}.
func (s *Server) GetModel(w http.ResponseWriter, r *http.Request) {
	spec, err := s.Catalog.Spec(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, spec)
}

// PutModel handles PUT /models/{name}.
func (s *Server) PutModel(w http.ResponseWriter, r *http.Request) {
	var spec domain.ModelSpec
	if !s.decode(w, r, &spec) {
		return
	}
	if err := s.Catalog.PutSpec(r.Context(), chi.URLParam(r, "name"), &spec); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteModel handles DELETE /models/{name}.
func (s *Server) DeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
