// Package mcp exposes a model catalog as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/aretw0/hmm"
	"github.com/aretw0/hmm/internal/logging"
	"github.com/aretw0/hmm/pkg/catalog"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// LikelihoodResponse is the structured result of the likelihood tool.
// LogProb is nil when the sequence is impossible under the model.
type LikelihoodResponse struct {
	Model   string   `json:"model" jsonschema_description:"Name of the evaluated model"`
	LogProb *float64 `json:"log_prob" jsonschema_description:"Total log-probability of the sequence"`
}

// DecodeResponse is the structured result of the decode tool.
type DecodeResponse struct {
	Model   string   `json:"model" jsonschema_description:"Name of the evaluated model"`
	LogProb *float64 `json:"log_prob" jsonschema_description:"Log-probability of the best path"`
	Path    []int    `json:"path" jsonschema_description:"Most likely state per frame"`
	Labels  []string `json:"labels,omitempty" jsonschema_description:"State labels along the path"`
}

// SampleResponse is the structured result of the sample tool.
type SampleResponse struct {
	Obs    [][]float64 `json:"obs" jsonschema_description:"Generated observation frames"`
	States []int       `json:"states" jsonschema_description:"Hidden state behind each frame"`
}

// Server exposes a model catalog as MCP tools.
type Server struct {
	catalog   *catalog.Catalog
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(c *catalog.Catalog, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		catalog:   c,
		logger:    logger,
		mcpServer: server.NewMCPServer("hmm-mcp", hmm.Version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx
// is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_models",
		mcp.WithDescription("List the names of the stored models."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := s.catalog.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(names)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("likelihood",
		mcp.WithDescription("Compute the log-probability of an observation sequence."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithString("obs", mcp.Required(), mcp.Description("JSON array of frames, each an array of numbers")),
		mcp.WithNumber("max_rank", mcp.Description("Keep at most this many states per frame (optional)")),
		mcp.WithOutputSchema[LikelihoodResponse](),
	), mcp.NewStructuredToolHandler(s.handleLikelihood))

	s.mcpServer.AddTool(mcp.NewTool("decode",
		mcp.WithDescription("Find the most likely hidden state path for an observation sequence."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithString("obs", mcp.Required(), mcp.Description("JSON array of frames, each an array of numbers")),
		mcp.WithNumber("max_rank", mcp.Description("Keep at most this many states per frame (optional)")),
		mcp.WithOutputSchema[DecodeResponse](),
	), mcp.NewStructuredToolHandler(s.handleDecode))

	s.mcpServer.AddTool(mcp.NewTool("sample",
		mcp.WithDescription("Generate observations and hidden states from a model."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Number of frames")),
		mcp.WithNumber("seed", mcp.Description("Random seed (optional)")),
		mcp.WithOutputSchema[SampleResponse](),
	), mcp.NewStructuredToolHandler(s.handleSample))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate("hmm://models/{name}", "Model Definition",
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		name, err := modelFromURI(request.Params.URI)
		if err != nil {
			return nil, err
		}
		spec, err := s.catalog.Spec(ctx, name)
		if err != nil {
			return nil, err
		}
		jsonBytes, _ := json.Marshal(spec)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func modelFromURI(uri string) (string, error) {
	const prefix = "hmm://models/"
	if len(uri) <= len(prefix) || uri[:len(prefix)] != prefix {
		return "", fmt.Errorf("unknown resource %q", uri)
	}
	return uri[len(prefix):], nil
}

type target struct {
	model string
	obs   [][]float64
	opts  []hmm.InferenceOption
}

func parseTarget(args map[string]interface{}) (target, error) {
	var t target
	t.model, _ = args["model"].(string)
	if t.model == "" {
		return t, errors.New("model is required")
	}
	obsStr, _ := args["obs"].(string)
	if err := json.Unmarshal([]byte(obsStr), &t.obs); err != nil {
		return t, fmt.Errorf("obs is not a JSON array of frames: %w", err)
	}
	if rank, ok := args["max_rank"].(float64); ok {
		t.opts = append(t.opts, hmm.WithMaxRank(int(rank)))
	}
	return t, nil
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func (s *Server) handleLikelihood(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (LikelihoodResponse, error) {
	t, err := parseTarget(args)
	if err != nil {
		return LikelihoodResponse{}, err
	}
	model, err := s.catalog.Get(ctx, t.model)
	if err != nil {
		return LikelihoodResponse{}, err
	}
	lp, err := model.Likelihood(t.obs, t.opts...)
	if err != nil {
		return LikelihoodResponse{}, fmt.Errorf("likelihood failed: %w", err)
	}
	return LikelihoodResponse{Model: t.model, LogProb: finite(lp)}, nil
}

func (s *Server) handleDecode(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (DecodeResponse, error) {
	t, err := parseTarget(args)
	if err != nil {
		return DecodeResponse{}, err
	}
	model, err := s.catalog.Get(ctx, t.model)
	if err != nil {
		return DecodeResponse{}, err
	}
	lp, path, err := model.Decode(t.obs, t.opts...)
	if err != nil {
		return DecodeResponse{}, fmt.Errorf("decode failed: %w", err)
	}
	resp := DecodeResponse{Model: t.model, LogProb: finite(lp), Path: path}
	labels := model.Labels()
	for _, st := range path {
		if labels[st] == "" {
			resp.Labels = nil
			break
		}
		resp.Labels = append(resp.Labels, labels[st])
	}
	return resp, nil
}

func (s *Server) handleSample(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (SampleResponse, error) {
	name, _ := args["model"].(string)
	n, _ := args["n"].(float64)

	var opts []hmm.Option
	if seed, ok := args["seed"].(float64); ok {
		opts = append(opts, hmm.WithSeed(uint64(seed)))
	}
	model, err := s.catalog.Get(ctx, name, opts...)
	if err != nil {
		return SampleResponse{}, err
	}
	obs, states, err := model.Sample(int(n))
	if err != nil {
		s.logger.Warn("MCP Sample: rejected", "model", name, "error", err)
		return SampleResponse{}, fmt.Errorf("sample failed: %w", err)
	}
	return SampleResponse{Obs: obs, States: states}, nil
}
