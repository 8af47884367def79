package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hubenschmidt/go-wordcrack/core"
)

// Key layout. IDs are zero-padded so lexicographic key order is ID order.
//
//	w:<id>              msgpack word record
//	h:<headword>\x00<id> empty, headword index
//	e:<id>              float32 blob
//	n:<id>              msgpack neighbour list
const (
	prefixWord     = "w:"
	prefixHeadword = "h:"
	prefixVector   = "e:"
	prefixNeighbor = "n:"
)

type badgerWord struct {
	ID           int64  `msgpack:"id"`
	Headword     string `msgpack:"word"`
	PartOfSpeech string `msgpack:"pos"`
	Translation  string `msgpack:"tr"`
	Level        string `msgpack:"lvl"`
}

type badgerNeighbor struct {
	Word         string  `msgpack:"word"`
	Translation  string  `msgpack:"tr"`
	PartOfSpeech string  `msgpack:"pos"`
	Level        string  `msgpack:"lvl"`
	Score        float64 `msgpack:"score"`
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless InMemory.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Dimension is the expected vector length; 0 accepts any.
	Dimension int

	// Logger receives badger's internal log lines. Defaults to slog.Default().
	Logger *slog.Logger
}

// BadgerStore is a key-value backend on BadgerDB v4. It has no native index;
// similarity over it is computed by brute force.
type BadgerStore struct {
	db  *badger.DB
	dim int
}

// NewBadgerStore opens a BadgerDB-backed store.
func NewBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, fmt.Errorf("%w: badger dir is required for on-disk mode", core.ErrInvalidConfig)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", storageErr(err))
	}
	return &BadgerStore{db: db, dim: opts.Dimension}, nil
}

func idKey(prefix string, id core.WordID) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, int64(id)))
}

func headwordKey(headword string, id core.WordID) []byte {
	return []byte(fmt.Sprintf("%s%s\x00%020d", prefixHeadword, headword, int64(id)))
}

func (s *BadgerStore) PutWords(ctx context.Context, words []core.WordEntry) error {
	for _, w := range words {
		if w.ID < 0 {
			return fmt.Errorf("%w: negative word id %d", core.ErrInvalidArgument, w.ID)
		}
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, w := range words {
		val, err := msgpack.Marshal(badgerWord{
			ID:           int64(w.ID),
			Headword:     w.Headword,
			PartOfSpeech: w.PartOfSpeech,
			Translation:  w.Translation,
			Level:        w.Level,
		})
		if err != nil {
			return fmt.Errorf("marshal word: %w", err)
		}
		if err := wb.Set(idKey(prefixWord, w.ID), val); err != nil {
			return fmt.Errorf("set word: %w", storageErr(err))
		}
		if err := wb.Set(headwordKey(w.Headword, w.ID), nil); err != nil {
			return fmt.Errorf("set headword: %w", storageErr(err))
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush words: %w", storageErr(err))
	}
	return nil
}

func (s *BadgerStore) Words(ctx context.Context) ([]core.WordEntry, error) {
	var words []core.WordEntry
	err := s.scan(ctx, prefixWord, func(_ []byte, val []byte) error {
		w, err := decodeBadgerWord(val)
		if err != nil {
			return err
		}
		words = append(words, w)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return words, nil
}

func (s *BadgerStore) Lookup(ctx context.Context, headword string) (core.WordEntry, error) {
	prefix := prefixHeadword + headword + "\x00"
	var found core.WordEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false, Prefix: []byte(prefix)})
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			key := string(it.Item().Key())
			w, err := s.wordTxn(txn, strings.TrimPrefix(key, prefix))
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			// index entries can outlive a renamed word
			if w.Headword == headword {
				found = w
				return nil
			}
		}
		return core.ErrNotFound
	})
	if err != nil {
		return core.WordEntry{}, err
	}
	return found, nil
}

func (s *BadgerStore) wordTxn(txn *badger.Txn, paddedID string) (core.WordEntry, error) {
	item, err := txn.Get([]byte(prefixWord + paddedID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.WordEntry{}, core.ErrNotFound
	}
	if err != nil {
		return core.WordEntry{}, storageErr(err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return core.WordEntry{}, storageErr(err)
	}
	return decodeBadgerWord(val)
}

func decodeBadgerWord(val []byte) (core.WordEntry, error) {
	var bw badgerWord
	if err := msgpack.Unmarshal(val, &bw); err != nil {
		return core.WordEntry{}, fmt.Errorf("unmarshal word: %w", err)
	}
	return core.WordEntry{
		ID:           core.WordID(bw.ID),
		Headword:     bw.Headword,
		PartOfSpeech: bw.PartOfSpeech,
		Translation:  bw.Translation,
		Level:        bw.Level,
	}, nil
}

func (s *BadgerStore) Put(ctx context.Context, id core.WordID, vec []float32) error {
	return s.PutBatch(ctx, []core.Embedding{{OwnerID: id, Vector: vec}})
}

// PutBatch writes all embeddings in a single transaction.
func (s *BadgerStore) PutBatch(ctx context.Context, embs []core.Embedding) error {
	for _, e := range embs {
		if err := Validate(e.Vector, s.dim); err != nil {
			return fmt.Errorf("word %d: %w", e.OwnerID, err)
		}
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, e := range embs {
			if err := txn.Set(idKey(prefixVector, e.OwnerID), EncodeVector(e.Vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put embeddings: %w", storageErr(err))
	}
	return nil
}

func (s *BadgerStore) Has(ctx context.Context, id core.WordID) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(idKey(prefixVector, id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get embedding: %w", storageErr(err))
	}
	return true, nil
}

func (s *BadgerStore) Get(ctx context.Context, id core.WordID) ([]float32, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(prefixVector, id))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", storageErr(err))
	}
	return decodeStored(blob, s.dim)
}

// All walks the embedding keys in ID order and joins each with its word.
func (s *BadgerStore) All(ctx context.Context) ([]Record, error) {
	var records []Record
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(prefixVector)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: prefix})
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			paddedID := strings.TrimPrefix(string(item.Key()), prefixVector)
			w, err := s.wordTxn(txn, paddedID)
			if errors.Is(err, core.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			blob, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			rec := Record{Word: w}
			rec.Vector, rec.Err = decodeStored(blob, s.dim)
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", storageErr(err))
	}
	return records, nil
}

func (s *BadgerStore) ReplaceNeighbors(ctx context.Context, id core.WordID, neighbors []core.NeighborResult) error {
	list := make([]badgerNeighbor, len(neighbors))
	for i, n := range neighbors {
		list[i] = badgerNeighbor(n)
	}
	val, err := msgpack.Marshal(list)
	if err != nil {
		return fmt.Errorf("marshal neighbors: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(idKey(prefixNeighbor, id), val)
	})
	if err != nil {
		return fmt.Errorf("put neighbors: %w", storageErr(err))
	}
	return nil
}

func (s *BadgerStore) Neighbors(ctx context.Context, id core.WordID) ([]core.NeighborResult, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(idKey(prefixNeighbor, id))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get neighbors: %w", storageErr(err))
	}

	var list []badgerNeighbor
	if err := msgpack.Unmarshal(val, &list); err != nil {
		return nil, fmt.Errorf("unmarshal neighbors: %w", err)
	}
	if len(list) == 0 {
		return nil, core.ErrNotFound
	}
	out := make([]core.NeighborResult, len(list))
	for i, n := range list {
		out[i] = core.NeighborResult(n)
	}
	return out, nil
}

func (s *BadgerStore) scan(ctx context.Context, prefix string, fn func(key, val []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		p := []byte(prefix)
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100, Prefix: p})
		defer it.Close()

		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan %s: %w", prefix, storageErr(err))
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// badgerLogger routes badger's printf-style logging into slog. Badger is
// chatty at info level, so info lines are demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(format string, args ...interface{}) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Warningf(format string, args ...interface{}) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Infof(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Debugf(format string, args ...interface{}) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var (
	_ Backend       = (*BadgerStore)(nil)
	_ NeighborCache = (*BadgerStore)(nil)
)
