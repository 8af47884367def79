package llm

import (
	"context"
	"fmt"

	"github.com/hubenschmidt/go-wordcrack/core"
)

const DefaultBatchSize = 100

// Batched splits inputs into chunks of at most size texts and checks that
// every chunk comes back complete and with the expected dimension.
type Batched struct {
	next Embedder
	size int
}

var _ Embedder = (*Batched)(nil)

func NewBatched(next Embedder, size int) *Batched {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Batched{next: next, size: size}
}

func (b *Batched) Dimension() int {
	return b.next.Dimension()
}

func (b *Batched) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	dim := b.next.Dimension()

	for start := 0; start < len(texts); start += b.size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+b.size, len(texts))

		vecs, err := b.next.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(vecs) != end-start {
			return nil, fmt.Errorf("embed batch [%d:%d]: got %d vectors: %w",
				start, end, len(vecs), core.ErrMalformedVector)
		}
		for i, v := range vecs {
			if dim == 0 {
				dim = len(v)
			}
			if len(v) != dim {
				return nil, fmt.Errorf("embedding for %q has dimension %d, want %d: %w",
					texts[start+i], len(v), dim, core.ErrMalformedVector)
			}
		}
		out = append(out, vecs...)
	}
	return out, nil
}
