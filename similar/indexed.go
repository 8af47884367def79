package similar

import (
	"context"
	"log/slog"
	"math"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// maxIndexWidening bounds how often Indexed re-queries with a larger k when
// self-matches crowd out real neighbours.
const maxIndexWidening = 4

// Indexed asks the backend's native index for candidates. Index scores can
// be approximate, so near-ties may order differently than BruteForce.
type Indexed struct {
	vocab  vector.Vocabulary
	store  vector.Store
	index  vector.Index
	logger *slog.Logger
}

func NewIndexed(vocab vector.Vocabulary, store vector.Store, index vector.Index, logger *slog.Logger) *Indexed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexed{vocab: vocab, store: store, index: index, logger: logger}
}

func (x *Indexed) Name() string { return StrategyIndex }

func (x *Indexed) SimilarStrict(ctx context.Context, word string, topK int) ([]core.NeighborResult, error) {
	if err := checkTopK(topK); err != nil {
		return nil, err
	}
	q, ok, err := resolve(ctx, x.vocab, x.store, word)
	if err != nil || !ok {
		return []core.NeighborResult{}, err
	}

	// room for the query's own row
	k := min(topK, math.MaxInt-1) + 1
	var kept []vector.Match
	for i := 0; ; i++ {
		matches, err := x.index.Nearest(ctx, q.vector, k)
		if err != nil {
			return nil, core.NewOpError("index query", word, err)
		}
		kept = kept[:0]
		for _, m := range matches {
			if !isSelf(q.word, m.Word) {
				kept = append(kept, m)
			}
		}
		// the index ran out of rows, or we have enough
		if len(matches) < k || len(kept) >= topK || i == maxIndexWidening || k > math.MaxInt/2 {
			break
		}
		k *= 2
	}

	return rank(kept, topK), nil
}
