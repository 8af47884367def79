package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/retry"
)

// Open creates a backend based on the DSN.
//   - Empty DSN: SQLite at data/wordcrack.db
//   - postgres:// or postgresql://: PostgreSQL with pgvector
//   - badger://<dir> or badger://:memory:: BadgerDB
//   - memory://: in-process MemoryStore
//   - Anything else: SQLite at the specified path
func Open(ctx context.Context, dsn string, dimension int, logger *slog.Logger) (Backend, error) {
	switch {
	case dsn == "":
		return NewSQLiteStore(ctx, "data/wordcrack.db", dimension)

	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		s, err := NewPgVectorStore(ctx, dsn, dimension)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return s, nil

	case strings.HasPrefix(dsn, "badger://"):
		dir := strings.TrimPrefix(dsn, "badger://")
		s, err := NewBadgerStore(BadgerOptions{
			Dir:       dir,
			InMemory:  dir == ":memory:",
			Dimension: dimension,
			Logger:    logger,
		})
		if err != nil {
			return nil, fmt.Errorf("badger: %w", err)
		}
		return s, nil

	case strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(dimension), nil
	}

	return NewSQLiteStore(ctx, dsn, dimension)
}

// OpenWithRetry retries Open while the failure is ErrStorageUnavailable.
// It is meant for process startup only; operations on an open backend are
// never retried here.
func OpenWithRetry(ctx context.Context, dsn string, dimension int, policy retry.Policy, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	policy.Retryable = func(err error) bool { return errors.Is(err, core.ErrStorageUnavailable) }
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.Warn("storage connect failed, retrying", "attempt", attempt, "wait", wait, "error", err)
	}

	var backend Backend
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		b, err := Open(ctx, dsn, dimension, logger)
		if err != nil {
			return err
		}
		backend = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return backend, nil
}

// Redact hides the password in a DSN for logging.
func Redact(dsn string) string {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, hasPass := strings.Cut(creds, ":")
	if !hasPass {
		return dsn
	}
	return scheme + "://" + user + ":xxxxx@" + host
}
