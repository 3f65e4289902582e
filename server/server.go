// Package server exposes the jobtalk pipeline over HTTP: chat, match
// analysis, and upload extraction endpoints.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/jobtalk/jobtalk/analyzer"
	"github.com/jobtalk/jobtalk/answer"
	"github.com/jobtalk/jobtalk/config"
	"github.com/jobtalk/jobtalk/embedding"
	"github.com/jobtalk/jobtalk/errors"
	"github.com/jobtalk/jobtalk/extract"
	"github.com/jobtalk/jobtalk/llm"
	"github.com/jobtalk/jobtalk/logging"
	"github.com/jobtalk/jobtalk/retrieval"
	"github.com/jobtalk/jobtalk/vectorstore"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 10 << 20 // 10 MiB

// Server wires the pipeline components behind HTTP handlers.
type Server struct {
	cfg       *config.Config
	log       *logging.Logger
	retriever *retrieval.Orchestrator
	composer  *answer.Composer
	analyzer  *analyzer.Analyzer
	extractor *extract.Client
}

// New assembles a server from explicit components. Tests use this to inject
// mocks; production wiring goes through FromConfig.
func New(cfg *config.Config, log *logging.Logger, store vectorstore.Store, embedder embedding.Embedder, provider llm.Provider) *Server {
	return &Server{
		cfg:       cfg,
		log:       log.WithComponent("server"),
		retriever: retrieval.NewOrchestrator(store, embedder, log, cfg.TopK),
		composer:  answer.NewComposer(provider, log),
		analyzer:  analyzer.New(provider, log),
		extractor: extract.NewClient(cfg.PDFParseURL),
	}
}

// FromConfig builds the production server: Pinecone-backed store when a key
// is configured, in-memory store otherwise, and the configured generation
// provider (nil selects the degraded/fallback paths).
func FromConfig(cfg *config.Config, log *logging.Logger) (*Server, error) {
	var store vectorstore.Store
	if cfg.Pinecone.APIKey != "" {
		pc, err := vectorstore.NewPineconeStore(vectorstore.PineconeConfig{
			APIKey: cfg.Pinecone.APIKey,
			Index:  cfg.Pinecone.Index,
			Cloud:  cfg.Pinecone.Cloud,
			Region: cfg.Pinecone.Region,
		})
		if err != nil {
			return nil, err
		}
		store = pc
	} else {
		log.Warn("pinecone key not configured; using in-memory vector store", nil)
		store = vectorstore.NewMemoryStore()
	}

	var provider llm.Provider
	if name, apiKey := cfg.GenerationProvider(); name != "" {
		p, err := llm.NewProvider(llm.ProviderConfig{
			Provider:  name,
			Model:     cfg.GenerationModel(),
			APIKey:    apiKey,
			MaxTokens: 1024,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	} else {
		log.Warn("no generation key configured; chat and analysis run in fallback mode", nil)
	}

	return New(cfg, log, store, embedding.FromConfig(cfg), provider), nil
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", requireMethod(http.MethodPost, s.handleChat))
	mux.HandleFunc("/api/analyze", requireMethod(http.MethodPost, s.handleAnalyze))
	mux.HandleFunc("/api/upload", requireMethod(http.MethodPost, s.handleUpload))
	mux.HandleFunc("/api/jd", requireMethod(http.MethodPost, s.handleJD))
	mux.HandleFunc("/api/parse-pdf", requireMethod(http.MethodPost, s.handleParsePDF))
	mux.HandleFunc("/healthz", requireMethod(http.MethodGet, s.handleHealth))
	return mux
}

// requireMethod restricts a handler to one HTTP method (GET also admits
// HEAD), answering 405 with an Allow header otherwise. It stands in for the
// method-qualified ServeMux patterns of Go 1.22+, which the Go 1.21
// toolchain building this module treats as literal paths.
func requireMethod(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// errorResponse is the error body shape for all endpoints.
type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// writeError maps a pipeline error onto an HTTP status and logs it.
func (s *Server) writeError(w http.ResponseWriter, route string, err error) {
	status := errors.HTTPStatus(err)
	s.log.HTTPError(route, status, err)

	body := errorResponse{Error: err.Error()}
	if pipeErr := errors.AsPipelineError(err); pipeErr != nil {
		body.Error = string(pipeErr.Code())
		body.Detail = err.Error()
	}
	s.writeJSON(w, status, body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
