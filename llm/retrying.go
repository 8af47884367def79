package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/retry"
)

// Retrying retries transient failures of the wrapped Embedder. Whatever
// error finally escapes matches core.ErrGeneratorUnavailable, except
// context.Canceled when the caller gave up.
type Retrying struct {
	next   Embedder
	policy retry.Policy
	logger *slog.Logger
}

var _ Embedder = (*Retrying)(nil)

func NewRetrying(next Embedder, policy retry.Policy, logger *slog.Logger) *Retrying {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Retrying{next: next, policy: policy, logger: logger}
	r.policy.Retryable = IsTransient
	r.policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		r.logger.Warn("embedding request failed, retrying",
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"wait", wait,
			"error", err,
		)
	}
	return r
}

func (r *Retrying) Dimension() int {
	return r.next.Dimension()
}

func (r *Retrying) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	attempts, err := r.policy.Do(ctx, func(ctx context.Context) error {
		out, err := r.next.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		vecs = out
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("embed %d texts (%d attempts): %w",
			len(texts), attempts, core.Unavailable(core.ErrGeneratorUnavailable, err))
	}
	return vecs, nil
}

// IsTransient reports whether err is worth retrying: network failures,
// timeouts, rate limiting and server-side errors.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return retryableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
