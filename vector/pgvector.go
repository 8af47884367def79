package vector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/hubenschmidt/go-wordcrack/core"
)

// DefaultCandidates is the HNSW search breadth used when none is configured.
const DefaultCandidates = 200

// maxEfSearch is the largest hnsw.ef_search pgvector accepts.
const maxEfSearch = 1000

// PgVectorStore is a PostgreSQL-based store using pgvector. It implements
// Index through an HNSW cosine index, so neighbour scores come from the
// database and may differ from an exact scan in the last digits.
type PgVectorStore struct {
	db         *sql.DB
	dimension  int
	candidates int
}

// NewPgVectorStore creates a new pgvector-based store.
// The dimension parameter specifies the embedding dimension (e.g., 1536 for OpenAI).
func NewPgVectorStore(ctx context.Context, dsn string, dimension int) (*PgVectorStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: pgvector needs a fixed dimension", core.ErrInvalidConfig)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", storageErr(err))
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", storageErr(err))
	}

	store := &PgVectorStore{db: db, dimension: dimension, candidates: DefaultCandidates}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// SetCandidates sets hnsw.ef_search for Nearest queries.
func (s *PgVectorStore) SetCandidates(n int) {
	if n > 0 {
		s.candidates = n
	}
}

func (s *PgVectorStore) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS words (
			id BIGINT PRIMARY KEY,
			word TEXT NOT NULL,
			part_of_speech TEXT NOT NULL DEFAULT '',
			translation TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_words_word ON words (word)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS word_embeddings (
			word_id BIGINT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, s.dimension),
		`CREATE INDEX IF NOT EXISTS idx_word_embeddings_hnsw ON word_embeddings USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS similar_words (
			word_id BIGINT NOT NULL,
			rank INT NOT NULL,
			similar_word TEXT NOT NULL,
			translation TEXT NOT NULL DEFAULT '',
			part_of_speech TEXT NOT NULL DEFAULT '',
			level TEXT NOT NULL DEFAULT '',
			score DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (word_id, rank)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", storageErr(err))
		}
	}

	return nil
}

func (s *PgVectorStore) PutWords(ctx context.Context, words []core.WordEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range words {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO words (id, word, part_of_speech, translation, level)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				word = EXCLUDED.word,
				part_of_speech = EXCLUDED.part_of_speech,
				translation = EXCLUDED.translation,
				level = EXCLUDED.level`,
			int64(w.ID), w.Headword, w.PartOfSpeech, w.Translation, w.Level,
		)
		if err != nil {
			return fmt.Errorf("upsert word: %w", storageErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storageErr(err))
	}
	return nil
}

func (s *PgVectorStore) Words(ctx context.Context) ([]core.WordEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, word, part_of_speech, translation, level
		FROM words ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", storageErr(err))
	}
	defer rows.Close()

	var words []core.WordEntry
	for rows.Next() {
		var w core.WordEntry
		if err := rows.Scan(&w.ID, &w.Headword, &w.PartOfSpeech, &w.Translation, &w.Level); err != nil {
			return nil, fmt.Errorf("scan word: %w", storageErr(err))
		}
		words = append(words, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return words, nil
}

func (s *PgVectorStore) Lookup(ctx context.Context, headword string) (core.WordEntry, error) {
	var w core.WordEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, word, part_of_speech, translation, level
		FROM words WHERE word = $1 ORDER BY id LIMIT 1`, headword).Scan(
		&w.ID, &w.Headword, &w.PartOfSpeech, &w.Translation, &w.Level,
	)
	if err == sql.ErrNoRows {
		return w, core.ErrNotFound
	}
	if err != nil {
		return w, fmt.Errorf("query word: %w", storageErr(err))
	}
	return w, nil
}

func (s *PgVectorStore) Put(ctx context.Context, id core.WordID, vec []float32) error {
	return s.PutBatch(ctx, []core.Embedding{{OwnerID: id, Vector: vec}})
}

// PutBatch upserts all embeddings in one transaction.
func (s *PgVectorStore) PutBatch(ctx context.Context, embs []core.Embedding) error {
	if len(embs) == 0 {
		return nil
	}
	for _, e := range embs {
		if err := Validate(e.Vector, s.dimension); err != nil {
			return fmt.Errorf("word %d: %w", e.OwnerID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range embs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO word_embeddings (word_id, embedding)
			VALUES ($1, $2::vector)
			ON CONFLICT (word_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
			int64(e.OwnerID), FormatPgVector(e.Vector),
		)
		if err != nil {
			return fmt.Errorf("upsert embedding: %w", storageErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storageErr(err))
	}
	return nil
}

func (s *PgVectorStore) Has(ctx context.Context, id core.WordID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM word_embeddings WHERE word_id = $1)`, int64(id)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query embedding: %w", storageErr(err))
	}
	return exists, nil
}

func (s *PgVectorStore) Get(ctx context.Context, id core.WordID) ([]float32, error) {
	var literal string
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding::text FROM word_embeddings WHERE word_id = $1`, int64(id)).Scan(&literal)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", storageErr(err))
	}
	return s.decode(literal)
}

func (s *PgVectorStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.word, w.part_of_speech, w.translation, w.level, e.embedding::text
		FROM words w
		JOIN word_embeddings e ON w.id = e.word_id
		ORDER BY w.id`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", storageErr(err))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var literal string
		if err := rows.Scan(&rec.Word.ID, &rec.Word.Headword, &rec.Word.PartOfSpeech,
			&rec.Word.Translation, &rec.Word.Level, &literal); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", storageErr(err))
		}
		rec.Vector, rec.Err = s.decode(literal)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

// Nearest asks the HNSW index for the k closest vectors by cosine distance.
func (s *PgVectorStore) Nearest(ctx context.Context, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := Validate(query, s.dimension); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	// SET does not take bind parameters; candidates is an int we own.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", min(max(s.candidates, k), maxEfSearch))); err != nil {
		return nil, fmt.Errorf("set ef_search: %w", storageErr(err))
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT w.id, w.word, w.part_of_speech, w.translation, w.level,
			1 - (e.embedding <=> $1::vector) AS score
		FROM word_embeddings e
		JOIN words w ON w.id = e.word_id
		ORDER BY e.embedding <=> $1::vector
		LIMIT $2`, FormatPgVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("query: %w", storageErr(err))
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Word.ID, &m.Word.Headword, &m.Word.PartOfSpeech,
			&m.Word.Translation, &m.Word.Level, &m.Score); err != nil {
			return nil, fmt.Errorf("scan row: %w", storageErr(err))
		}
		m.Score = clamp(m.Score)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return matches, nil
}

func (s *PgVectorStore) ReplaceNeighbors(ctx context.Context, id core.WordID, neighbors []core.NeighborResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM similar_words WHERE word_id = $1`, int64(id)); err != nil {
		return fmt.Errorf("clear neighbors: %w", storageErr(err))
	}
	for rank, n := range neighbors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO similar_words (word_id, rank, similar_word, translation, part_of_speech, level, score)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			int64(id), rank, n.Word, n.Translation, n.PartOfSpeech, n.Level, n.Score,
		)
		if err != nil {
			return fmt.Errorf("insert neighbor: %w", storageErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storageErr(err))
	}
	return nil
}

func (s *PgVectorStore) Neighbors(ctx context.Context, id core.WordID) ([]core.NeighborResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT similar_word, translation, part_of_speech, level, score
		FROM similar_words WHERE word_id = $1 ORDER BY rank`, int64(id))
	if err != nil {
		return nil, fmt.Errorf("query neighbors: %w", storageErr(err))
	}
	defer rows.Close()

	var out []core.NeighborResult
	for rows.Next() {
		var n core.NeighborResult
		if err := rows.Scan(&n.Word, &n.Translation, &n.PartOfSpeech, &n.Level, &n.Score); err != nil {
			return nil, fmt.Errorf("scan neighbor: %w", storageErr(err))
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	if len(out) == 0 {
		return nil, core.ErrNotFound
	}
	return out, nil
}

// Close closes the database connection.
func (s *PgVectorStore) Close() error {
	return s.db.Close()
}

func (s *PgVectorStore) decode(literal string) ([]float32, error) {
	vec, err := ParsePgVector(literal)
	if err != nil {
		return nil, err
	}
	if err := Validate(vec, s.dimension); err != nil {
		return nil, err
	}
	return vec, nil
}

var (
	_ Backend       = (*PgVectorStore)(nil)
	_ Index         = (*PgVectorStore)(nil)
	_ NeighborCache = (*PgVectorStore)(nil)
)
