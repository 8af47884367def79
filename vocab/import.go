package vocab

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

type ImportResult struct {
	Words   int
	Vectors int
}

// Import writes rows into backend: every entry, then the vectors that came
// with them in chunks of batchSize.
func Import(ctx context.Context, backend vector.Backend, rows []Row, batchSize int) (ImportResult, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	var res ImportResult

	words := make([]core.WordEntry, len(rows))
	var embs []core.Embedding
	for i, r := range rows {
		words[i] = r.Word
		if r.Vector != nil {
			embs = append(embs, core.Embedding{OwnerID: r.Word.ID, Vector: r.Vector})
		}
	}

	if err := backend.PutWords(ctx, words); err != nil {
		return res, fmt.Errorf("import words: %w", err)
	}
	res.Words = len(words)

	for start := 0; start < len(embs); start += batchSize {
		chunk := embs[start:min(start+batchSize, len(embs))]
		if err := backend.PutBatch(ctx, chunk); err != nil {
			return res, fmt.Errorf("import vectors: %w", err)
		}
		res.Vectors += len(chunk)
	}
	return res, nil
}

// Export reads every entry and, when withVectors is set, its stored vector.
// Rows whose vector cannot be decoded are exported without one.
func Export(ctx context.Context, backend vector.Backend, withVectors bool) ([]Row, error) {
	words, err := backend.Words(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(words))
	byID := make(map[core.WordID]int, len(words))
	for i, w := range words {
		rows[i] = Row{Word: w}
		byID[w.ID] = i
	}
	if !withVectors {
		return rows, nil
	}

	records, err := backend.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if i, ok := byID[rec.Word.ID]; ok && rec.Err == nil {
			rows[i].Vector = rec.Vector
		}
	}
	return rows, nil
}
