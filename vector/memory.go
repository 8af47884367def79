package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/vec/search"

	"github.com/hubenschmidt/go-wordcrack/core"
)

// MemoryStore is an in-memory backend for development and testing. It also
// implements Index, scoring in float32 like a native vector index would.
type MemoryStore struct {
	mu        sync.RWMutex
	dim       int
	words     map[core.WordID]core.WordEntry
	vecs      map[core.WordID][]float32
	neighbors map[core.WordID][]core.NeighborResult
}

// NewMemoryStore creates a new in-memory store. A dimension of 0 accepts
// vectors of any length.
func NewMemoryStore(dimension int) *MemoryStore {
	return &MemoryStore{
		dim:       dimension,
		words:     make(map[core.WordID]core.WordEntry),
		vecs:      make(map[core.WordID][]float32),
		neighbors: make(map[core.WordID][]core.NeighborResult),
	}
}

func (s *MemoryStore) PutWords(ctx context.Context, words []core.WordEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range words {
		s.words[w.ID] = w
	}
	return nil
}

func (s *MemoryStore) Words(ctx context.Context) ([]core.WordEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.WordEntry, 0, len(s.words))
	for _, w := range s.words {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Lookup(ctx context.Context, headword string) (core.WordEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  core.WordEntry
		found bool
	)
	for _, w := range s.words {
		if w.Headword == headword && (!found || w.ID < best.ID) {
			best, found = w, true
		}
	}
	if !found {
		return core.WordEntry{}, core.ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) Put(ctx context.Context, id core.WordID, vec []float32) error {
	return s.PutBatch(ctx, []core.Embedding{{OwnerID: id, Vector: vec}})
}

// PutBatch validates every vector before storing any of them.
func (s *MemoryStore) PutBatch(ctx context.Context, embs []core.Embedding) error {
	for _, e := range embs {
		if err := Validate(e.Vector, s.dim); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embs {
		s.vecs[e.OwnerID] = append([]float32(nil), e.Vector...)
	}
	return nil
}

// PutRaw stores vec without validation. Tests use it to plant corrupt rows.
func (s *MemoryStore) PutRaw(id core.WordID, vec []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vecs[id] = vec
}

func (s *MemoryStore) Has(ctx context.Context, id core.WordID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vecs[id]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, id core.WordID) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vec, ok := s.vecs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]float32(nil), vec...), nil
}

func (s *MemoryStore) All(ctx context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, len(s.vecs))
	for id, vec := range s.vecs {
		w, ok := s.words[id]
		if !ok {
			continue
		}
		rec := Record{Word: w, Vector: vec}
		if err := Validate(vec, s.dim); err != nil {
			rec.Vector, rec.Err = nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Word.ID < records[j].Word.ID })
	return records, nil
}

// Nearest ranks every valid vector against query using float32 cosine
// distance.
func (s *MemoryStore) Nearest(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := Validate(query, s.dim); err != nil {
		return nil, err
	}
	q := search.Float32s(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.vecs))
	for id, vec := range s.vecs {
		w, ok := s.words[id]
		if !ok || len(vec) != len(query) {
			continue
		}
		if Validate(vec, s.dim) != nil {
			continue
		}
		dist := q.CosineDistance(vec)
		matches = append(matches, Match{Word: w, Score: clamp(1 - float64(dist))})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Word.ID < matches[j].Word.ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) ReplaceNeighbors(ctx context.Context, id core.WordID, neighbors []core.NeighborResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.neighbors[id] = append([]core.NeighborResult(nil), neighbors...)
	return nil
}

func (s *MemoryStore) Neighbors(ctx context.Context, id core.WordID) ([]core.NeighborResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.neighbors[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return append([]core.NeighborResult(nil), ns...), nil
}

// Close is a no-op for in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Count returns the number of stored embeddings.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vecs)
}

var (
	_ Backend       = (*MemoryStore)(nil)
	_ Index         = (*MemoryStore)(nil)
	_ NeighborCache = (*MemoryStore)(nil)
)
