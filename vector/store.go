// Package vector provides durable embedding storage and nearest-neighbour
// lookup over the vocabulary.
//
// Every backend stores two things side by side: the vocabulary records
// (Vocabulary) and at most one embedding per record (Store). Backends that can
// rank vectors natively also implement Index; backends that can hold the
// precomputed neighbour table implement NeighborCache.
package vector

import (
	"context"

	"github.com/hubenschmidt/go-wordcrack/core"
)

// Record is one row of a full scan: the vocabulary entry and its vector.
// Err is set (and Vector is nil) when the stored vector could not be decoded;
// the scan itself still succeeds.
type Record struct {
	Word   core.WordEntry
	Vector []float32
	Err    error
}

// Match is a scored candidate returned by an Index.
type Match struct {
	Word  core.WordEntry `json:"word"`
	Score float64        `json:"score"` // cosine similarity (-1..1)
}

// Store maps vocabulary IDs to embedding vectors.
type Store interface {
	// Put stores vec for id, replacing any existing vector.
	Put(ctx context.Context, id core.WordID, vec []float32) error

	// PutBatch stores all embeddings as one unit: either every row becomes
	// visible or none does.
	PutBatch(ctx context.Context, embs []core.Embedding) error

	// Has reports whether id already has an embedding.
	Has(ctx context.Context, id core.WordID) (bool, error)

	// Get returns the vector for id, or core.ErrNotFound.
	Get(ctx context.Context, id core.WordID) ([]float32, error)

	// All returns every embedded vocabulary entry ordered by ID.
	All(ctx context.Context) ([]Record, error)

	// Close releases resources.
	Close() error
}

// Vocabulary is the word list the embeddings belong to.
type Vocabulary interface {
	// PutWords inserts or replaces vocabulary entries in bulk.
	PutWords(ctx context.Context, words []core.WordEntry) error

	// Words returns all entries ordered by ID.
	Words(ctx context.Context) ([]core.WordEntry, error)

	// Lookup resolves a headword to its entry. When several entries share a
	// headword the one with the lowest ID wins. Returns core.ErrNotFound.
	Lookup(ctx context.Context, headword string) (core.WordEntry, error)
}

// Index is implemented by backends with a native nearest-neighbour query.
// Scores may be approximate, so ordering of near-ties can differ from an
// exact scan.
type Index interface {
	Nearest(ctx context.Context, query []float32, k int) ([]Match, error)
}

// NeighborCache holds precomputed neighbour lists.
type NeighborCache interface {
	// ReplaceNeighbors overwrites the cached list for id.
	ReplaceNeighbors(ctx context.Context, id core.WordID, neighbors []core.NeighborResult) error

	// Neighbors returns the cached list for id, or core.ErrNotFound.
	Neighbors(ctx context.Context, id core.WordID) ([]core.NeighborResult, error)
}

// Backend is what the factory returns: a vocabulary plus its embeddings.
type Backend interface {
	Store
	Vocabulary
}
