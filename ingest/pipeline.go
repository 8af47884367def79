// Package ingest embeds every vocabulary entry that has no stored vector yet.
//
// A run is idempotent: entries already in the store are skipped, each batch
// is committed as one unit, and a failed run can simply be started again.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/llm"
	"github.com/hubenschmidt/go-wordcrack/monitor"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

// TextFunc chooses the text sent to the embedding service for an entry.
type TextFunc func(core.WordEntry) string

// Headword embeds the bare headword.
func Headword(w core.WordEntry) string { return w.Headword }

type Config struct {
	BatchSize int
	Text      TextFunc
	Logger    *slog.Logger
	Collector monitor.MetricsCollector
	Now       func() time.Time
}

type Pipeline struct {
	vocab    vector.Vocabulary
	store    vector.Store
	embedder llm.Embedder
	cfg      Config
	logger   *slog.Logger
}

type Result struct {
	RunID    string             `json:"run_id"`
	Pending  int                `json:"pending"`
	Embedded int                `json:"embedded"`
	Batches  int                `json:"batches"`
	Duration time.Duration      `json:"duration"`
	Metrics  monitor.RunMetrics `json:"metrics"`
}

func New(vocab vector.Vocabulary, store vector.Store, embedder llm.Embedder, cfg Config) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = llm.DefaultBatchSize
	}
	if cfg.Text == nil {
		cfg.Text = Headword
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{vocab: vocab, store: store, embedder: embedder, cfg: cfg, logger: logger}
}

// Pending lists entries without an embedding, in ID order.
func (p *Pipeline) Pending(ctx context.Context) ([]core.WordEntry, error) {
	words, err := p.vocab.Words(ctx)
	if err != nil {
		return nil, fmt.Errorf("list words: %w", err)
	}
	pending := make([]core.WordEntry, 0, len(words))
	for _, w := range words {
		ok, err := p.store.Has(ctx, w.ID)
		if err != nil {
			return nil, core.NewOpError("has embedding", w.Headword, err)
		}
		if !ok {
			pending = append(pending, w)
		}
	}
	return pending, nil
}

// Run embeds all pending entries batch by batch. onProgress, if set, is called
// after every committed batch. A generator or storage failure stops the run;
// batches committed before it stay committed.
func (p *Pipeline) Run(ctx context.Context, onProgress func(monitor.Progress)) (res Result, err error) {
	res.RunID = uuid.NewString()
	logger := p.logger.With("run_id", res.RunID)

	collector := p.cfg.Collector
	if collector == nil {
		collector = monitor.NewInMemoryCollector(res.RunID)
	}

	defer func() {
		res.Metrics = collector.Flush()
	}()

	pending, err := p.Pending(ctx)
	if err != nil {
		return res, err
	}
	res.Pending = len(pending)
	if len(pending) == 0 {
		logger.Info("nothing to embed")
		return res, nil
	}

	logger.Info("ingestion started", "pending", len(pending), "batch_size", p.cfg.BatchSize)
	tracker := monitor.NewTracker(len(pending), p.cfg.Now)

	for start, idx := 0, 0; start < len(pending); start, idx = start+p.cfg.BatchSize, idx+1 {
		if err := ctx.Err(); err != nil {
			logger.Warn("ingestion cancelled", "embedded", res.Embedded, "pending", len(pending))
			res.Duration = tracker.Snapshot().Elapsed
			return res, err
		}

		batch := pending[start:min(start+p.cfg.BatchSize, len(pending))]
		begin := p.cfg.Now()
		err := p.runBatch(ctx, batch)
		collector.Record(batchMetrics(idx, len(batch), p.cfg.Now().Sub(begin), err))
		if err != nil {
			logger.Error("ingestion aborted",
				"batch", idx,
				"first_word", batch[0].Headword,
				"embedded", res.Embedded,
				"error", err,
			)
			res.Duration = tracker.Snapshot().Elapsed
			return res, fmt.Errorf("batch %d: %w", idx, err)
		}

		res.Embedded += len(batch)
		res.Batches++
		progress := tracker.Advance(len(batch))
		logger.Info("batch committed", "batch", idx, "size", len(batch), "progress", progress.String())
		if onProgress != nil {
			onProgress(progress)
		}
	}

	res.Duration = tracker.Snapshot().Elapsed
	logger.Info("ingestion finished", "embedded", res.Embedded, "duration", res.Duration)
	return res, nil
}

func (p *Pipeline) runBatch(ctx context.Context, batch []core.WordEntry) error {
	texts := make([]string, len(batch))
	for i, w := range batch {
		texts[i] = p.cfg.Text(w)
	}

	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vecs) != len(batch) {
		return fmt.Errorf("got %d vectors for %d words: %w", len(vecs), len(batch), core.ErrMalformedVector)
	}

	embs := make([]core.Embedding, len(batch))
	for i, w := range batch {
		embs[i] = core.Embedding{OwnerID: w.ID, Vector: vecs[i]}
	}
	if err := p.store.PutBatch(ctx, embs); err != nil {
		return fmt.Errorf("store batch: %w", err)
	}
	return nil
}

func batchMetrics(idx, size int, d time.Duration, err error) monitor.BatchMetrics {
	m := monitor.BatchMetrics{Index: idx, Size: size, Duration: d, Success: err == nil}
	if err != nil {
		m.Error = err.Error()
	}
	return m
}
