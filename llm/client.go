// Package llm talks to embedding services.
//
// Every provider implements Embedder. Retrying adds the bounded retry policy
// and Batched splits long inputs into request-sized chunks; the usual stack is
//
//	llm.NewBatched(llm.NewRetrying(provider, retry.Default(), logger), 100)
package llm

import (
	"context"
	"net/http"
	"time"
)

// Embedder turns texts into fixed-dimension vectors, one per input, in
// input order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

type ClientConfig struct {
	Model      string
	Dimension  int
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Model:     DefaultOpenAIModel,
		Dimension: DefaultOpenAIDimension,
		Timeout:   60 * time.Second,
	}
}

// Option configures an embedder.
type Option func(*ClientConfig)

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(c *ClientConfig) { c.Model = model }
}

// WithDimension sets the output vector dimensionality.
func WithDimension(dim int) Option {
	return func(c *ClientConfig) { c.Dimension = dim }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(c *ClientConfig) { c.BaseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ClientConfig) { c.HTTPClient = client }
}

// WithTimeout bounds a single HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *ClientConfig) { c.Timeout = d }
}

func (c ClientConfig) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
