package index

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Embedder turns text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LlamafileEmbedder calls the local model server's native /embedding
// endpoint. This is the same server that handles completions, just a
// different route.
type LlamafileEmbedder struct {
	client *resty.Client
}

func NewLlamafileEmbedder(baseURL string, timeout time.Duration) *LlamafileEmbedder {
	return &LlamafileEmbedder{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
	}
}

type embedRequest struct {
	Content string `json:"content"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (e *LlamafileEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var out embedResponse

	res, err := e.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(embedRequest{Content: text}).
		SetResult(&out).
		Post("/embedding")
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("embedding request returned status %d", res.StatusCode())
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response contained no vector")
	}

	return out.Embedding, nil
}
