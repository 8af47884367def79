package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hubenschmidt/go-wordcrack/core"
	"github.com/hubenschmidt/go-wordcrack/similar"
	"github.com/hubenschmidt/go-wordcrack/vector"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	store := vector.NewMemoryStore(2)
	store.PutWords(ctx, []core.WordEntry{
		{ID: 1, Headword: "apple", PartOfSpeech: "n.", Translation: "蘋果", Level: "1"},
		{ID: 2, Headword: "pear", PartOfSpeech: "n.", Translation: "梨", Level: "2"},
		{ID: 3, Headword: "run", PartOfSpeech: "v.", Translation: "跑", Level: "1"},
	})
	store.Put(ctx, 1, []float32{1, 0})
	store.Put(ctx, 2, []float32{0.9, 0.1})
	store.Put(ctx, 3, []float32{0, 1})

	engine, err := similar.New(store, similar.Config{Strategy: similar.StrategyBrute})
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{Engine: engine, DefaultTopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	return srv.Handler()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) []core.NeighborResult {
	t.Helper()
	var out []core.NeighborResult
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandleSimilarQuery(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/words/similar?word=apple&top_k=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	got := decode(t, rec)
	if len(got) != 2 || got[0].Word != "pear" || got[0].Translation != "梨" || got[1].Word != "run" {
		t.Fatalf("results = %+v", got)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}

func TestHandleSimilarBody(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/words/similar_db", strings.NewReader(`{"word":" apple "}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode(t, rec); len(got) != 1 || got[0].Word != "pear" {
		t.Fatalf("results = %+v", got)
	}
}

func TestHandleSimilar_UnknownWordIsEmptyArray(t *testing.T) {
	h := newTestServer(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/words/similar?word=zzz", nil))
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
	}
}

func TestHandleSimilar_BadRequests(t *testing.T) {
	h := newTestServer(t)
	tests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/words/similar?word=apple&top_k=x", nil),
		httptest.NewRequest(http.MethodGet, "/api/words/similar?word=apple&top_k=0", nil),
		httptest.NewRequest(http.MethodPost, "/api/words/similar_db", strings.NewReader(`{"word":"apple","top_k":-1}`)),
		httptest.NewRequest(http.MethodPost, "/api/words/similar_db", strings.NewReader(`not json`)),
	}
	for _, req := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s %s: status = %d, want 400", req.Method, req.URL, rec.Code)
		}
	}
}

func TestHandleHealth(t *testing.T) {
	h := newTestServer(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Strategy != "brute" {
		t.Fatalf("health = %+v", resp)
	}
}
