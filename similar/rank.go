package similar

import (
	"sort"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// rank orders matches by score descending, then headword ascending, then ID,
// and returns the first topK as results.
func rank(matches []vector.Match, topK int) []core.NeighborResult {
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Word.Headword != b.Word.Headword {
			return a.Word.Headword < b.Word.Headword
		}
		return a.Word.ID < b.Word.ID
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	out := make([]core.NeighborResult, len(matches))
	for i, m := range matches {
		out[i] = core.NeighborOf(m.Word, m.Score)
	}
	return out
}
