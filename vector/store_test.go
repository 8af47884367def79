package vector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/retry"
)

var testWords = []core.WordEntry{
	{ID: 1, Headword: "apple", PartOfSpeech: "n.", Translation: "蘋果", Level: "1"},
	{ID: 2, Headword: "banana", PartOfSpeech: "n.", Translation: "香蕉", Level: "1"},
	{ID: 3, Headword: "run", PartOfSpeech: "v.", Translation: "跑", Level: "2"},
	{ID: 4, Headword: "apple", PartOfSpeech: "n.", Translation: "蘋果樹", Level: "3"},
}

// backends returns one fresh instance of every backend that runs without
// external services.
func backends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()

	sq, err := NewSQLiteStore(ctx, ":memory:", 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	bg, err := NewBadgerStore(BadgerOptions{InMemory: true, Dimension: 2})
	if err != nil {
		t.Fatalf("NewBadgerStore failed: %v", err)
	}

	out := map[string]Backend{
		"memory": NewMemoryStore(2),
		"sqlite": sq,
		"badger": bg,
	}
	if dsn := os.Getenv("WORDCRACK_TEST_PG"); dsn != "" {
		pg, err := NewPgVectorStore(ctx, dsn, 2)
		if err != nil {
			t.Fatalf("NewPgVectorStore failed: %v", err)
		}
		out["postgres"] = pg
	}
	for _, b := range out {
		b := b
		t.Cleanup(func() { b.Close() })
	}
	return out
}

func TestBackends_Contract(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := b.PutWords(ctx, testWords); err != nil {
				t.Fatalf("PutWords failed: %v", err)
			}

			words, err := b.Words(ctx)
			if err != nil {
				t.Fatalf("Words failed: %v", err)
			}
			if len(words) != len(testWords) {
				t.Fatalf("Words returned %d entries, want %d", len(words), len(testWords))
			}
			for i := range words {
				if words[i] != testWords[i] {
					t.Fatalf("Words[%d] = %+v, want %+v", i, words[i], testWords[i])
				}
			}

			w, err := b.Lookup(ctx, "apple")
			if err != nil || w.ID != 1 {
				t.Fatalf("Lookup(apple) = %+v, %v; want id 1", w, err)
			}
			if _, err := b.Lookup(ctx, "pear"); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("Lookup(pear) err = %v, want ErrNotFound", err)
			}

			if ok, err := b.Has(ctx, 1); err != nil || ok {
				t.Fatalf("Has(1) before put = %v, %v", ok, err)
			}
			if _, err := b.Get(ctx, 1); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("Get(1) before put err = %v, want ErrNotFound", err)
			}

			if err := b.Put(ctx, 1, []float32{1, 0}); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			// overwrite must not error and must replace
			if err := b.Put(ctx, 1, []float32{0.5, 0.5}); err != nil {
				t.Fatalf("Put overwrite failed: %v", err)
			}
			vec, err := b.Get(ctx, 1)
			if err != nil || vec[0] != 0.5 || vec[1] != 0.5 {
				t.Fatalf("Get(1) = %v, %v; want [0.5 0.5]", vec, err)
			}

			err = b.PutBatch(ctx, []core.Embedding{
				{OwnerID: 2, Vector: []float32{0, 1}},
				{OwnerID: 3, Vector: []float32{1, 1}},
			})
			if err != nil {
				t.Fatalf("PutBatch failed: %v", err)
			}

			recs, err := b.All(ctx)
			if err != nil {
				t.Fatalf("All failed: %v", err)
			}
			if len(recs) != 3 {
				t.Fatalf("All returned %d records, want 3", len(recs))
			}
			for i, want := range []core.WordID{1, 2, 3} {
				if recs[i].Word.ID != want || recs[i].Err != nil {
					t.Fatalf("All[%d] = %+v, want id %d", i, recs[i], want)
				}
			}
		})
	}
}

func TestBackends_RejectInvalidVectors(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := b.PutWords(ctx, testWords); err != nil {
				t.Fatalf("PutWords failed: %v", err)
			}
			if err := b.Put(ctx, 1, []float32{0, 0}); !errors.Is(err, core.ErrMalformedVector) {
				t.Fatalf("Put(zero) err = %v, want ErrMalformedVector", err)
			}
			err := b.PutBatch(ctx, []core.Embedding{
				{OwnerID: 2, Vector: []float32{1, 0}},
				{OwnerID: 3, Vector: []float32{1, 0, 0}},
			})
			if !errors.Is(err, core.ErrMalformedVector) {
				t.Fatalf("PutBatch(bad dim) err = %v, want ErrMalformedVector", err)
			}
			// the valid half of the rejected batch must not be visible
			if ok, _ := b.Has(ctx, 2); ok {
				t.Fatal("partial batch was committed")
			}
		})
	}
}

func TestBackends_NeighborCache(t *testing.T) {
	for name, b := range backends(t) {
		cache, ok := b.(NeighborCache)
		if !ok {
			continue
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := cache.Neighbors(ctx, 1); !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("Neighbors before replace err = %v, want ErrNotFound", err)
			}
			first := []core.NeighborResult{{Word: "banana", Score: 0.9}, {Word: "run", Score: 0.1}}
			if err := cache.ReplaceNeighbors(ctx, 1, first); err != nil {
				t.Fatalf("ReplaceNeighbors failed: %v", err)
			}
			second := []core.NeighborResult{{Word: "run", Translation: "跑", Score: 0.5}}
			if err := cache.ReplaceNeighbors(ctx, 1, second); err != nil {
				t.Fatalf("ReplaceNeighbors failed: %v", err)
			}
			got, err := cache.Neighbors(ctx, 1)
			if err != nil {
				t.Fatalf("Neighbors failed: %v", err)
			}
			if len(got) != 1 || got[0] != second[0] {
				t.Fatalf("Neighbors = %+v, want %+v", got, second)
			}
		})
	}
}

func TestSQLiteStore_MalformedRowIsReportedNotFatal(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, ":memory:", 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	if err := s.PutWords(ctx, testWords[:3]); err != nil {
		t.Fatalf("PutWords failed: %v", err)
	}
	if err := s.PutBatch(ctx, []core.Embedding{
		{OwnerID: 1, Vector: []float32{1, 0}},
		{OwnerID: 3, Vector: []float32{0, 1}},
	}); err != nil {
		t.Fatalf("PutBatch failed: %v", err)
	}
	// three float32s where two are expected
	if _, err := s.db.Exec(`INSERT INTO word_embeddings (word_id, embedding) VALUES (2, ?)`,
		EncodeVector([]float32{1, 2, 3})); err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	recs, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("All returned %d records, want 3", len(recs))
	}
	if !errors.Is(recs[1].Err, core.ErrMalformedVector) || recs[1].Vector != nil {
		t.Fatalf("record 2 = %+v, want ErrMalformedVector", recs[1])
	}
	if recs[0].Err != nil || recs[2].Err != nil {
		t.Fatalf("valid records reported errors: %v, %v", recs[0].Err, recs[2].Err)
	}
}

func TestSQLiteStore_ConcurrentReadersDuringWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "words.db")
	s, err := NewSQLiteStore(ctx, path, 2)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	words := make([]core.WordEntry, 50)
	for i := range words {
		words[i] = core.WordEntry{ID: core.WordID(i + 1), Headword: string(rune('a'+i%26)) + "x"}
	}
	if err := s.PutWords(ctx, words); err != nil {
		t.Fatalf("PutWords failed: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range words {
			if err := s.Put(ctx, words[i].ID, []float32{1, float32(i)}); err != nil {
				errs <- err
				return
			}
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				if _, err := s.All(ctx); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent access failed: %v", err)
	}
}

func TestOpen_DSN(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		dsn  string
		want string
	}{
		{"memory://", "*vector.MemoryStore"},
		{"badger://:memory:", "*vector.BadgerStore"},
		{":memory:", "*vector.SQLiteStore"},
		{filepath.Join(t.TempDir(), "sub", "w.db"), "*vector.SQLiteStore"},
	}
	for _, tt := range tests {
		b, err := Open(ctx, tt.dsn, 2, nil)
		if err != nil {
			t.Fatalf("Open(%q) failed: %v", tt.dsn, err)
		}
		if got := fmt.Sprintf("%T", b); got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.dsn, got, tt.want)
		}
		b.Close()
	}
}

func TestOpenWithRetry_GivesUpOnStorageUnavailable(t *testing.T) {
	ctx := context.Background()
	sleeps := 0
	policy := retry.Policy{
		MaxAttempts: 3,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			sleeps++
			return nil
		},
	}
	// a regular file where a directory is needed makes MkdirAll fail
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenWithRetry(ctx, filepath.Join(blocker, "db", "w.db"), 2, policy, nil)
	if !errors.Is(err, core.ErrStorageUnavailable) {
		t.Fatalf("OpenWithRetry err = %v, want ErrStorageUnavailable", err)
	}
	if sleeps != 2 {
		t.Fatalf("slept %d times, want 2", sleeps)
	}
}

func TestRedact(t *testing.T) {
	if got := Redact("postgres://user:secret@db:5432/words"); got != "postgres://user:xxxxx@db:5432/words" {
		t.Fatalf("Redact = %q", got)
	}
	if got := Redact("data/wordcrack.db"); got != "data/wordcrack.db" {
		t.Fatalf("Redact = %q", got)
	}
}

func TestMemoryStore_Nearest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	if err := s.PutWords(ctx, testWords[:3]); err != nil {
		t.Fatal(err)
	}
	s.PutBatch(ctx, []core.Embedding{
		{OwnerID: 1, Vector: []float32{1, 0}},
		{OwnerID: 2, Vector: []float32{0.8, 0.6}},
		{OwnerID: 3, Vector: []float32{0, 1}},
	})
	s.PutRaw(4, []float32{1, 0}) // no vocabulary entry

	got, err := s.Nearest(ctx, []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Nearest returned %d matches, want 2", len(got))
	}
	if got[0].Word.ID != 1 || got[1].Word.ID != 2 {
		t.Fatalf("Nearest order = %d, %d; want 1, 2", got[0].Word.ID, got[1].Word.ID)
	}
	if d := got[1].Score - 0.8; d > 1e-5 || d < -1e-5 {
		t.Fatalf("score = %v, want 0.8", got[1].Score)
	}

	if got, _ := s.Nearest(ctx, []float32{0, 0}, 2); len(got) != 0 {
		t.Fatalf("zero query returned %d matches", len(got))
	}
}

func TestMemoryStore_NearestSkipsNonFiniteRows(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(2)
	if err := s.PutWords(ctx, testWords[:3]); err != nil {
		t.Fatal(err)
	}
	s.Put(ctx, 1, []float32{1, 0})
	s.PutRaw(2, []float32{float32(math.NaN()), 1})
	s.PutRaw(3, []float32{float32(math.Inf(1)), 0})

	got, err := s.Nearest(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Nearest failed: %v", err)
	}
	if len(got) != 1 || got[0].Word.ID != 1 {
		t.Fatalf("Nearest = %+v, want only word 1", got)
	}
	if math.IsNaN(got[0].Score) {
		t.Fatalf("score is NaN")
	}
}
