package vector

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/vector/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps vectors as float32 blobs in SQLite and ranks them in Go.
type SQLiteStore struct {
	db  *sql.DB
	dim int
}

// NewSQLiteStore opens (creating if needed) the SQLite database at path.
// ":memory:" gives a private in-memory database.
func NewSQLiteStore(ctx context.Context, path string, dimension int) (*SQLiteStore, error) {
	if path == "" {
		path = "data/wordcrack.db"
	}

	memory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !memory {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", core.Unavailable(core.ErrStorageUnavailable, err))
			}
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path, memory))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", core.Unavailable(core.ErrStorageUnavailable, err))
	}
	if memory {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", core.Unavailable(core.ErrStorageUnavailable, err))
	}

	if err := runSQLiteMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, dim: dimension}, nil
}

// sqliteDSN enables WAL and a busy timeout on file databases so readers are
// not blocked by the ingestion writer.
func sqliteDSN(path string, memory bool) string {
	if memory || strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func runSQLiteMigrations(ctx context.Context, db *sql.DB) error {
	data, err := migrations.SQLite.ReadFile("sqlite/001_init.sql")
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(data)); err != nil {
		return fmt.Errorf("exec migration: %w", storageErr(err))
	}
	return nil
}

func storageErr(err error) error {
	return core.Unavailable(core.ErrStorageUnavailable, err)
}

// Vocabulary implementation

func (s *SQLiteStore) PutWords(ctx context.Context, words []core.WordEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO words (id, word, part_of_speech, translation, level)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", storageErr(err))
	}
	defer stmt.Close()

	for _, w := range words {
		if _, err := stmt.ExecContext(ctx, int64(w.ID), w.Headword, w.PartOfSpeech, w.Translation, w.Level); err != nil {
			return fmt.Errorf("insert word: %w", storageErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storageErr(err))
	}
	return nil
}

func (s *SQLiteStore) Words(ctx context.Context) ([]core.WordEntry, error) {
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

func (s *SQLiteStore) Lookup(ctx context.Context, headword string) (core.WordEntry, error) {
	var w core.WordEntry
	err := s.db.QueryRowContext(ctx, `
		SELECT id, word, part_of_speech, translation, level
		FROM words WHERE word = ? ORDER BY id LIMIT 1`, headword).Scan(
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

// Store implementation

func (s *SQLiteStore) Put(ctx context.Context, id core.WordID, vec []float32) error {
	return s.PutBatch(ctx, []core.Embedding{{OwnerID: id, Vector: vec}})
}

func (s *SQLiteStore) PutBatch(ctx context.Context, embs []core.Embedding) error {
	if len(embs) == 0 {
		return nil
	}
	for _, e := range embs {
		if err := Validate(e.Vector, s.dim); err != nil {
			return fmt.Errorf("word %d: %w", e.OwnerID, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO word_embeddings (word_id, embedding) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", storageErr(err))
	}
	defer stmt.Close()

	for _, e := range embs {
		if _, err := stmt.ExecContext(ctx, int64(e.OwnerID), EncodeVector(e.Vector)); err != nil {
			return fmt.Errorf("upsert embedding: %w", storageErr(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", storageErr(err))
	}
	return nil
}

func (s *SQLiteStore) Has(ctx context.Context, id core.WordID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM word_embeddings WHERE word_id = ?`, int64(id)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query embedding: %w", storageErr(err))
	}
	return true, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id core.WordID) ([]float32, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM word_embeddings WHERE word_id = ?`, int64(id)).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", storageErr(err))
	}
	return decodeStored(blob, s.dim)
}

func (s *SQLiteStore) All(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.word, w.part_of_speech, w.translation, w.level, e.embedding
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
		var blob []byte
		if err := rows.Scan(&rec.Word.ID, &rec.Word.Headword, &rec.Word.PartOfSpeech,
			&rec.Word.Translation, &rec.Word.Level, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", storageErr(err))
		}
		rec.Vector, rec.Err = decodeStored(blob, s.dim)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(err)
	}
	return records, nil
}

// NeighborCache implementation

func (s *SQLiteStore) ReplaceNeighbors(ctx context.Context, id core.WordID, neighbors []core.NeighborResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", storageErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM similar_words WHERE word_id = ?`, int64(id)); err != nil {
		return fmt.Errorf("clear neighbors: %w", storageErr(err))
	}
	for rank, n := range neighbors {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO similar_words (word_id, rank, similar_word, translation, part_of_speech, level, score)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
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

func (s *SQLiteStore) Neighbors(ctx context.Context, id core.WordID) ([]core.NeighborResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT similar_word, translation, part_of_speech, level, score
		FROM similar_words WHERE word_id = ? ORDER BY rank`, int64(id))
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ Backend       = (*SQLiteStore)(nil)
	_ NeighborCache = (*SQLiteStore)(nil)
)
