package similar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/monitor"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

type PrecomputeConfig struct {
	TopK int
	// Dimension is the expected vector length. When 0 the most common
	// length among stored vectors is used.
	Dimension int
	// ProgressEvery is how many words pass between progress reports.
	ProgressEvery int
	OnProgress    func(monitor.Progress)
	Logger        *slog.Logger
	Now           func() time.Time
}

type PrecomputeResult struct {
	Words    int
	Skipped  int
	Duration time.Duration
}

type row struct {
	word core.WordEntry
	vec  []float32
	norm float64
}

// Precompute writes the topK neighbours of every embedded word to cache.
// Vectors and their norms are loaded once; each word is then ranked against
// all others.
func Precompute(ctx context.Context, store vector.Store, cache vector.NeighborCache, cfg PrecomputeConfig) (PrecomputeResult, error) {
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if err := checkTopK(cfg.TopK); err != nil {
		return PrecomputeResult{}, err
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 50
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	records, err := store.All(ctx)
	if err != nil {
		return PrecomputeResult{}, fmt.Errorf("load embeddings: %w", err)
	}

	var res PrecomputeResult
	rows := make([]row, 0, len(records))
	dim := cfg.Dimension
	if dim == 0 {
		dim = commonLength(records)
	}
	for _, rec := range records {
		if rec.Err != nil {
			logger.Warn("skipping malformed embedding", "word", rec.Word.Headword, "error", rec.Err)
			res.Skipped++
			continue
		}
		n := vector.Norm(rec.Vector)
		if len(rec.Vector) != dim || n == 0 {
			res.Skipped++
			continue
		}
		rows = append(rows, row{word: rec.Word, vec: rec.Vector, norm: n})
	}

	tracker := monitor.NewTracker(len(rows), cfg.Now)
	matches := make([]vector.Match, 0, len(rows))
	for i, base := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		matches = matches[:0]
		for j, other := range rows {
			if j == i || isSelf(base.word, other.word) {
				continue
			}
			matches = append(matches, vector.Match{
				Word:  other.word,
				Score: vector.CosineWithNorms(base.vec, other.vec, base.norm, other.norm),
			})
		}

		if err := cache.ReplaceNeighbors(ctx, base.word.ID, rank(matches, cfg.TopK)); err != nil {
			return res, core.NewOpError("write neighbours", base.word.Headword, err)
		}
		res.Words++

		p := tracker.Advance(1)
		if res.Words%cfg.ProgressEvery == 0 || res.Words == len(rows) {
			logger.Info("neighbour precompute progress", "progress", p.String())
			if cfg.OnProgress != nil {
				cfg.OnProgress(p)
			}
		}
	}

	res.Duration = tracker.Snapshot().Elapsed
	return res, nil
}

// commonLength returns the most frequent vector length among decodable
// records, preferring the shorter length on a tie.
func commonLength(records []vector.Record) int {
	counts := make(map[int]int)
	best := 0
	for _, rec := range records {
		if rec.Err != nil {
			continue
		}
		l := len(rec.Vector)
		counts[l]++
		if counts[l] > counts[best] || (counts[l] == counts[best] && l < best) {
			best = l
		}
	}
	return best
}
