package similar

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// Score returns the cosine similarity of two stored words. Score(a, b)
// equals Score(b, a). A word without an embedding yields core.ErrNotFound.
func Score(ctx context.Context, vocab vector.Vocabulary, store vector.Store, a, b string) (float64, error) {
	qa, ok, err := resolve(ctx, vocab, store, a)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, core.NewOpError("score", a, core.ErrNotFound)
	}
	qb, ok, err := resolve(ctx, vocab, store, b)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, core.NewOpError("score", b, core.ErrNotFound)
	}

	s, ok := vector.CosineSimilarity(qa.vector, qb.vector)
	if !ok {
		return 0, core.NewOpError("score", a, fmt.Errorf("%w: dimensions %d and %d",
			core.ErrMalformedVector, len(qa.vector), len(qb.vector)))
	}
	return s, nil
}
