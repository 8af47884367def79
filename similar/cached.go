package similar

import (
	"context"
	"errors"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// Cached serves neighbour lists written by Precompute and falls back to
// another strategy when a list is missing or too short for topK.
type Cached struct {
	vocab    vector.Vocabulary
	cache    vector.NeighborCache
	fallback Strategy
}

func NewCached(vocab vector.Vocabulary, cache vector.NeighborCache, fallback Strategy) *Cached {
	return &Cached{vocab: vocab, cache: cache, fallback: fallback}
}

func (c *Cached) Name() string {
	if c.fallback == nil {
		return "cache"
	}
	return "cache+" + c.fallback.Name()
}

func (c *Cached) SimilarStrict(ctx context.Context, word string, topK int) ([]core.NeighborResult, error) {
	if err := checkTopK(topK); err != nil {
		return nil, err
	}
	word = strings.TrimSpace(word)
	if word == "" {
		return []core.NeighborResult{}, nil
	}

	w, err := c.vocab.Lookup(ctx, word)
	if errors.Is(err, core.ErrNotFound) {
		return []core.NeighborResult{}, nil
	}
	if err != nil {
		return nil, core.NewOpError("lookup", word, err)
	}

	ns, err := c.cache.Neighbors(ctx, w.ID)
	switch {
	case err == nil && len(ns) >= topK:
		return ns[:topK], nil
	case err != nil && !errors.Is(err, core.ErrNotFound):
		return nil, core.NewOpError("read neighbour cache", word, err)
	case c.fallback != nil:
		return c.fallback.SimilarStrict(ctx, word, topK)
	case err != nil:
		return []core.NeighborResult{}, nil
	}
	return ns, nil
}
