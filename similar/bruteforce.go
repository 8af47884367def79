package similar

import (
	"context"
	"log/slog"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// BruteForce scores the query against every stored vector.
type BruteForce struct {
	vocab  vector.Vocabulary
	store  vector.Store
	logger *slog.Logger
}

func NewBruteForce(vocab vector.Vocabulary, store vector.Store, logger *slog.Logger) *BruteForce {
	if logger == nil {
		logger = slog.Default()
	}
	return &BruteForce{vocab: vocab, store: store, logger: logger}
}

func (b *BruteForce) Name() string { return StrategyBrute }

func (b *BruteForce) SimilarStrict(ctx context.Context, word string, topK int) ([]core.NeighborResult, error) {
	if err := checkTopK(topK); err != nil {
		return nil, err
	}
	q, ok, err := resolve(ctx, b.vocab, b.store, word)
	if err != nil || !ok {
		return []core.NeighborResult{}, err
	}

	records, err := b.store.All(ctx)
	if err != nil {
		return nil, core.NewOpError("scan embeddings", word, err)
	}

	matches := make([]vector.Match, 0, len(records))
	skipped := 0
	for _, rec := range records {
		if isSelf(q.word, rec.Word) {
			continue
		}
		if rec.Err != nil || len(rec.Vector) != len(q.vector) {
			skipped++
			continue
		}
		n := vector.Norm(rec.Vector)
		if n == 0 {
			skipped++
			continue
		}
		matches = append(matches, vector.Match{
			Word:  rec.Word,
			Score: vector.CosineWithNorms(q.vector, rec.Vector, q.norm, n),
		})
	}
	if skipped > 0 {
		b.logger.Warn("skipped unusable embeddings", "word", word, "skipped", skipped)
	}

	return rank(matches, topK), nil
}
