// Package core holds the vocabulary types and error taxonomy shared by every
// other package.
package core

// WordID identifies a vocabulary entry. IDs are assigned by the vocabulary
// import and are stable across runs; ingestion walks them in ascending order.
type WordID int64

// WordEntry is a single vocabulary record. It is reference data and is never
// mutated by the similarity core.
type WordEntry struct {
	ID           WordID `json:"id"`
	Headword     string `json:"word"`
	PartOfSpeech string `json:"part_of_speech"`
	Translation  string `json:"translation"`
	Level        string `json:"level"`
}

// Embedding pairs a vocabulary entry with its vector.
type Embedding struct {
	OwnerID WordID    `json:"owner_id"`
	Vector  []float32 `json:"vector"`
}

// NeighborResult is one ranked neighbour returned to callers. Never persisted
// except through the precomputed neighbour cache.
type NeighborResult struct {
	Word         string  `json:"word"`
	Translation  string  `json:"translation"`
	PartOfSpeech string  `json:"part_of_speech"`
	Level        string  `json:"level"`
	Score        float64 `json:"score"`
}

// NeighborOf builds a NeighborResult from an entry and its score.
func NeighborOf(w WordEntry, score float64) NeighborResult {
	return NeighborResult{
		Word:         w.Headword,
		Translation:  w.Translation,
		PartOfSpeech: w.PartOfSpeech,
		Level:        w.Level,
		Score:        score,
	}
}
