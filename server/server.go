// Package server exposes the similarity engine over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hubenschmidt/go-wordcrack/similar"
)

// Config configures a new Server instance.
type Config struct {
	Engine *similar.Engine

	// DefaultTopK applies when a request omits top_k.
	DefaultTopK int
	// MaxTopK caps top_k; larger requests are clamped.
	MaxTopK int

	Logger *slog.Logger
}

// Server is an HTTP server for word similarity lookups.
type Server struct {
	engine      *similar.Engine
	defaultTopK int
	maxTopK     int
	logger      *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("server: engine is required")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = similar.DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 100
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:      cfg.Engine,
		defaultTopK: cfg.DefaultTopK,
		maxTopK:     cfg.MaxTopK,
		logger:      logger,
	}, nil
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/words/similar", s.handleSimilarQuery)
	mux.HandleFunc("POST /api/words/similar_db", s.handleSimilarBody)

	return s.logRequests(corsMiddleware(mux))
}
