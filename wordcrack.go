// Package wordcrack wires the vocabulary similarity core together.
//
// Example usage:
//
//	cfg, _ := config.Load("wordcrack.yaml")
//	app, err := wordcrack.Open(ctx, cfg, logger)
//	if err != nil { ... }
//	defer app.Close()
//
//	neighbours, err := app.Engine.Similar(ctx, "apple", 5)
package wordcrack

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hubenschmidt/go-wordcrack/config"
	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/ingest"
	"github.com/hubenschmidt/go-wordcrack/llm"
	"github.com/hubenschmidt/go-wordcrack/retry"
	"github.com/hubenschmidt/go-wordcrack/similar"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// Version is set at build time with -ldflags "-X github.com/hubenschmidt/go-wordcrack.Version=...".
var Version = "dev"

// Core type aliases
type (
	WordEntry      = core.WordEntry
	WordID         = core.WordID
	NeighborResult = core.NeighborResult
)

// App holds the long-lived components of one process.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Backend vector.Backend
	Engine  *similar.Engine
}

// RetryPolicy builds the retry policy shared by the embedding client and
// the storage connection.
func RetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Embedding.MaxAttempts,
		Backoff:     retry.Constant(cfg.Embedding.Backoff),
	}
}

// Open connects to the configured backend, retrying while it is
// unavailable, and builds the similarity engine.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	connect := RetryPolicy(cfg)
	connect.Backoff = retry.Exponential(cfg.Embedding.Backoff, 30*time.Second)
	backend, err := vector.OpenWithRetry(ctx, cfg.DatabaseURL, cfg.Embedding.Dimension, connect, logger)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", vector.Redact(cfg.DatabaseURL), err)
	}
	if pg, ok := backend.(*vector.PgVectorStore); ok {
		pg.SetCandidates(cfg.Similarity.Candidates)
	}

	engine, err := similar.New(backend, similar.Config{
		Strategy: cfg.Similarity.Strategy,
		UseCache: cfg.Similarity.UseCache,
		Logger:   logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}

	logger.Info("store opened",
		"dsn", vector.Redact(cfg.DatabaseURL),
		"backend", fmt.Sprintf("%T", backend),
		"strategy", engine.Strategy(),
	)
	return &App{Config: cfg, Logger: logger, Backend: backend, Engine: engine}, nil
}

// Embedder builds the configured provider wrapped with retries and batching.
func (a *App) Embedder() (llm.Embedder, error) {
	emb := a.Config.Embedding
	provider, err := llm.NewEmbedder(llm.UnifiedConfig{
		OpenAIKey:     emb.OpenAIKey,
		OpenAIBaseURL: emb.OpenAIBaseURL,
		OllamaURL:     emb.OllamaURL,
		Model:         emb.Model,
		Dimension:     emb.Dimension,
	}, llm.WithTimeout(emb.Timeout))
	if err != nil {
		return nil, err
	}
	retrying := llm.NewRetrying(provider, RetryPolicy(a.Config), a.Logger)
	return llm.NewBatched(retrying, emb.BatchSize), nil
}

// Pipeline builds an ingestion pipeline over the app's backend.
func (a *App) Pipeline() (*ingest.Pipeline, error) {
	embedder, err := a.Embedder()
	if err != nil {
		return nil, err
	}
	return ingest.New(a.Backend, a.Backend, embedder, ingest.Config{
		BatchSize: a.Config.Embedding.BatchSize,
		Logger:    a.Logger,
	}), nil
}

// NeighborCache returns the backend's precomputed neighbour table, if any.
func (a *App) NeighborCache() (vector.NeighborCache, bool) {
	c, ok := a.Backend.(vector.NeighborCache)
	return c, ok
}

func (a *App) Close() error {
	return a.Backend.Close()
}
