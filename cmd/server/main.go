package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lychee-technology/sift"
	"github.com/lychee-technology/sift/internal"
)

// Server exposes the query pipeline and row store over HTTP.
type Server struct {
	cfg      *sift.Config
	pipeline *internal.Pipeline
	ai       *internal.AIClient
	store    *internal.RowStore
	mux      *http.ServeMux
}

// NewServer creates a new Server instance.
func NewServer(cfg *sift.Config, pipeline *internal.Pipeline, ai *internal.AIClient, store *internal.RowStore) *Server {
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		ai:       ai,
		store:    store,
		mux:      http.NewServeMux(),
	}
}

// RegisterRoutes registers all API routes.
func (s *Server) RegisterRoutes() {
	s.mux.HandleFunc("/api/v1/search", s.handleSearch)
	s.mux.HandleFunc("/api/v1/preview", s.handlePreview)
	s.mux.HandleFunc("/api/v1/rows/", s.handleRows)
	s.mux.HandleFunc("/healthz", s.handleHealth)
}

// Start starts the HTTP server on the given port.
func (s *Server) Start(port string) error {
	zap.S().Infow("starting server", "port", port)
	return http.ListenAndServe(":"+port, s.mux)
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	cfg := sift.DefaultConfig()
	cfg.AI.BaseURL = getEnv("AI_BASE_URL", "")
	cfg.AI.APIKey = getEnv("AI_API_KEY", "")
	cfg.AI.Model = getEnv("AI_MODEL", cfg.AI.Model)
	cfg.AI.Timeout = time.Duration(getEnvInt("AI_TIMEOUT_MS", int(cfg.AI.Timeout/time.Millisecond))) * time.Millisecond
	cfg.Cache.MaxEntries = getEnvInt("CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Query.MaxSamples = getEnvInt("SCHEMA_MAX_SAMPLES", cfg.Query.MaxSamples)
	cfg.Query.SynonymsFile = getEnv("SYNONYMS_FILE", "")

	if err := cfg.Validate(); err != nil {
		sugar.Fatalf("invalid configuration: %v", err)
	}

	translator := internal.NewTranslator()
	if cfg.Query.SynonymsFile != "" {
		if err := translator.LoadOverrides(cfg.Query.SynonymsFile); err != nil {
			sugar.Fatalf("failed to load synonym overrides: %v", err)
		}
		sugar.Infow("loaded synonym overrides", "file", cfg.Query.SynonymsFile)
	}

	ai := internal.NewAIClient(cfg.AI)
	if ai == nil {
		sugar.Infow("no AI_BASE_URL configured, AI tier disabled")
	}

	cache := internal.NewQueryCache(cfg.Cache.MaxEntries)
	pipeline := internal.NewPipeline(cfg, translator, ai, cache)
	store := internal.NewRowStore()

	server := NewServer(cfg, pipeline, ai, store)
	server.RegisterRoutes()

	port := getEnv("PORT", "8080")
	if err := server.Start(port); err != nil {
		sugar.Fatalf("server error: %v", err)
	}
}
