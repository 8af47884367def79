package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/llm"
	"github.com/hubenschmidt/go-wordcrack/retry"
)

// fakeEmbeddingResponse builds a minimal OpenAI-compatible embedding
// response. Items are returned in reverse order to check index handling.
func fakeEmbeddingResponse(dim int, texts []string) []byte {
	type embItem struct {
		Object    string    `json:"object"`
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}
	data := make([]embItem, 0, len(texts))
	for i := len(texts) - 1; i >= 0; i-- {
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = float64(i+1) * 0.01 * float64(j+1)
		}
		data = append(data, embItem{Object: "embedding", Index: i, Embedding: vec})
	}
	b, _ := json.Marshal(map[string]any{
		"object": "list",
		"model":  "test-model",
		"data":   data,
		"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	})
	return b
}

func newOpenAIServer(t *testing.T, dim int, status *atomic.Int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if code := int(status.Load()); code != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			fmt.Fprintf(w, `{"error":{"message":"status %d","type":"test"}}`, code)
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(fakeEmbeddingResponse(dim, req.Input))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	var status, calls atomic.Int32
	srv := newOpenAIServer(t, 4, &status, &calls)

	e := llm.NewOpenAIEmbedder("test-key", llm.WithBaseURL(srv.URL), llm.WithDimension(4))
	if e.Dimension() != 4 {
		t.Fatalf("Dimension() = %d, want 4", e.Dimension())
	}

	vecs, err := e.EmbedBatch(context.Background(), []string{"apple", "banana", "run"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("len(vecs) = %d, want 3", len(vecs))
	}
	for i, v := range vecs {
		want := float32(float64(i+1) * 0.01)
		if len(v) != 4 || v[0] != want {
			t.Fatalf("vecs[%d] = %v, want first component %v", i, v, want)
		}
	}
}

func TestRetrying_TransientThenSuccess(t *testing.T) {
	var status, calls atomic.Int32
	srv := newOpenAIServer(t, 2, &status, &calls)
	status.Store(http.StatusTooManyRequests)

	var waits []time.Duration
	policy := retry.Policy{
		MaxAttempts: 3,
		Backoff:     retry.Constant(2 * time.Second),
		Sleep: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			if len(waits) == 2 {
				status.Store(0)
			}
			return nil
		},
	}
	e := llm.NewRetrying(llm.NewOpenAIEmbedder("k", llm.WithBaseURL(srv.URL), llm.WithDimension(2)), policy, nil)

	vecs, err := e.EmbedBatch(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 1 {
		t.Fatalf("len(vecs) = %d", len(vecs))
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
	if len(waits) != 2 || waits[0] != 2*time.Second {
		t.Fatalf("waits = %v, want two 2s waits", waits)
	}
}

func TestRetrying_Exhausted(t *testing.T) {
	var status, calls atomic.Int32
	srv := newOpenAIServer(t, 2, &status, &calls)
	status.Store(http.StatusServiceUnavailable)

	policy := retry.Policy{MaxAttempts: 3, Sleep: noSleep}
	e := llm.NewRetrying(llm.NewOpenAIEmbedder("k", llm.WithBaseURL(srv.URL)), policy, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, core.ErrGeneratorUnavailable) {
		t.Fatalf("err = %v, want ErrGeneratorUnavailable", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("server saw %d calls, want 3", calls.Load())
	}
}

func TestRetrying_ClientErrorNotRetried(t *testing.T) {
	var status, calls atomic.Int32
	srv := newOpenAIServer(t, 2, &status, &calls)
	status.Store(http.StatusUnauthorized)

	policy := retry.Policy{MaxAttempts: 3, Sleep: noSleep}
	e := llm.NewRetrying(llm.NewOpenAIEmbedder("k", llm.WithBaseURL(srv.URL)), policy, nil)

	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	if !errors.Is(err, core.ErrGeneratorUnavailable) {
		t.Fatalf("err = %v, want ErrGeneratorUnavailable", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("server saw %d calls, want 1", calls.Load())
	}
}

func TestRetrying_CanceledIsNotGeneratorFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	policy := retry.Policy{MaxAttempts: 3, Sleep: noSleep}
	e := llm.NewRetrying(llm.NewOpenAIEmbedder("k", llm.WithBaseURL(srv.URL)), policy, nil)

	_, err := e.EmbedBatch(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if errors.Is(err, core.ErrGeneratorUnavailable) {
		t.Fatalf("err = %v, should not report the generator as unavailable", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("server saw %d calls, want 1", calls.Load())
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), true},
		{"429", &llm.StatusError{StatusCode: 429}, true},
		{"502", &llm.StatusError{StatusCode: 502}, true},
		{"400", &llm.StatusError{StatusCode: 400}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llm.IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model != "nomic-embed-text" {
			http.Error(w, "unknown model "+req.Model, http.StatusNotFound)
			return
		}
		embs := make([][]float64, len(req.Input))
		for i := range embs {
			embs[i] = []float64{float64(i), 1}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": embs})
	}))
	defer srv.Close()

	e, err := llm.NewEmbedder(llm.UnifiedConfig{OllamaURL: srv.URL + "/v1", Model: "ollama/nomic-embed-text"})
	if err != nil {
		t.Fatalf("NewEmbedder: %v", err)
	}
	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 1 {
		t.Fatalf("vecs = %v", vecs)
	}

	bad := llm.NewOllamaEmbedder(srv.URL, "missing")
	_, err = bad.EmbedBatch(context.Background(), []string{"a"})
	var se *llm.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want StatusError 404", err)
	}
}

func TestNewEmbedder_MissingKey(t *testing.T) {
	if _, err := llm.NewEmbedder(llm.UnifiedConfig{}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
	if _, err := llm.NewEmbedder(llm.UnifiedConfig{Model: "ollama/x"}); !errors.Is(err, core.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

type stubEmbedder struct {
	dim    int
	sizes  []int
	broken bool
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.sizes = append(s.sizes, len(texts))
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
		out[i][0] = float32(len(texts[i]))
	}
	if s.broken {
		out[len(out)-1] = []float32{1}
	}
	return out, nil
}

func TestBatched(t *testing.T) {
	stub := &stubEmbedder{dim: 3}
	b := llm.NewBatched(stub, 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := b.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if fmt.Sprint(stub.sizes) != "[2 2 1]" {
		t.Fatalf("batch sizes = %v, want [2 2 1]", stub.sizes)
	}
	for i, v := range vecs {
		if int(v[0]) != len(texts[i]) {
			t.Fatalf("vecs[%d] out of order: %v", i, v)
		}
	}

	_, err = llm.NewBatched(&stubEmbedder{dim: 3, broken: true}, 2).EmbedBatch(context.Background(), texts)
	if !errors.Is(err, core.ErrMalformedVector) {
		t.Fatalf("err = %v, want ErrMalformedVector", err)
	}
}
