// Package similar finds the nearest vocabulary neighbours of a word by cosine
// similarity over its stored embedding.
//
// Three strategies are available: BruteForce scans every stored vector,
// Indexed delegates to a backend's native nearest-neighbour query, and Cached
// serves precomputed lists written by Precompute. Engine wraps a strategy with
// the interactive error policy: lookups that fail on storage degrade to an
// empty result.
package similar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

const DefaultTopK = 5

const (
	StrategyAuto  = "auto"
	StrategyBrute = "brute"
	StrategyIndex = "index"
)

// Strategy ranks neighbours and reports every failure to the caller.
type Strategy interface {
	SimilarStrict(ctx context.Context, word string, topK int) ([]core.NeighborResult, error)
	Name() string
}

type Config struct {
	Strategy string
	// UseCache serves precomputed neighbour lists first when the backend
	// has them.
	UseCache bool
	Logger   *slog.Logger
}

type Engine struct {
	strategy Strategy
	logger   *slog.Logger
}

// New selects a strategy for backend. "auto" uses the native index when the
// backend implements vector.Index and brute force otherwise.
func New(backend vector.Backend, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var s Strategy
	idx, hasIndex := backend.(vector.Index)
	switch cfg.Strategy {
	case "", StrategyAuto:
		if hasIndex {
			s = NewIndexed(backend, backend, idx, logger)
		} else {
			s = NewBruteForce(backend, backend, logger)
		}
	case StrategyBrute:
		s = NewBruteForce(backend, backend, logger)
	case StrategyIndex:
		if !hasIndex {
			return nil, fmt.Errorf("backend %T has no native index: %w", backend, core.ErrInvalidConfig)
		}
		s = NewIndexed(backend, backend, idx, logger)
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q: %w", cfg.Strategy, core.ErrInvalidConfig)
	}

	if cfg.UseCache {
		if cache, ok := backend.(vector.NeighborCache); ok {
			s = NewCached(backend, cache, s)
		}
	}
	return NewEngine(s, logger), nil
}

func NewEngine(s Strategy, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{strategy: s, logger: logger}
}

func (e *Engine) Strategy() string {
	return e.strategy.Name()
}

// Similar returns up to topK neighbours of word. Unknown words and storage
// failures yield an empty list; only an invalid topK is an error.
func (e *Engine) Similar(ctx context.Context, word string, topK int) ([]core.NeighborResult, error) {
	res, err := e.strategy.SimilarStrict(ctx, word, topK)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, core.ErrInvalidArgument) {
		return nil, err
	}
	e.logger.Warn("similarity lookup failed, returning no neighbours",
		"word", word,
		"strategy", e.strategy.Name(),
		"error", err,
	)
	return []core.NeighborResult{}, nil
}

// SimilarStrict is Similar without the degradation.
func (e *Engine) SimilarStrict(ctx context.Context, word string, topK int) ([]core.NeighborResult, error) {
	return e.strategy.SimilarStrict(ctx, word, topK)
}

// query is a resolved lookup target.
type query struct {
	word   core.WordEntry
	vector []float32
	norm   float64
}

// resolve maps word to its entry and vector. ok is false when the word or its
// embedding does not exist.
func resolve(ctx context.Context, vocab vector.Vocabulary, store vector.Store, word string) (q query, ok bool, err error) {
	word = strings.TrimSpace(word)
	if word == "" {
		return q, false, nil
	}

	w, err := vocab.Lookup(ctx, word)
	if errors.Is(err, core.ErrNotFound) {
		return q, false, nil
	}
	if err != nil {
		return q, false, core.NewOpError("lookup", word, err)
	}

	vec, err := store.Get(ctx, w.ID)
	if errors.Is(err, core.ErrNotFound) {
		return q, false, nil
	}
	if err != nil {
		return q, false, core.NewOpError("get embedding", word, err)
	}

	n := vector.Norm(vec)
	if n == 0 {
		return q, false, core.NewOpError("get embedding", word, core.ErrMalformedVector)
	}
	return query{word: w, vector: vec, norm: n}, true, nil
}

func checkTopK(topK int) error {
	if topK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d: %w", topK, core.ErrInvalidArgument)
	}
	return nil
}

func isSelf(self, other core.WordEntry) bool {
	return other.ID == self.ID || other.Headword == self.Headword
}
