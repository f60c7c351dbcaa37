// Package openai provides an implementation of core.Embedder using the
// OpenAI Embeddings API. It maps batches of texts onto the SDK's array
// input form and returns vectors in the input order.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/memoweave/memoweave/core"
)

// Options configure the OpenAI embedder.
type Options struct {
	Model      string
	Dimensions int
}

// Embedder wraps the OpenAI Embeddings API behind the generic core.Embedder interface.
type Embedder struct {
	client *openai.Client
	opts   Options
}

var _ core.Embedder = (*Embedder)(nil)

// New creates a new OpenAI embedder using the official client
func New(optFns ...func(o *Options)) *Embedder {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new OpenAI embedder from an existing client
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Embedder {
	opts := Options{
		Model:      openai.EmbeddingModelTextEmbedding3Small,
		Dimensions: 1536,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Embedder{client: client, opts: opts}
}

// Embed requests embeddings for texts in a single API call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: e.opts.Model,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// Dimensions returns the configured embedding size.
func (e *Embedder) Dimensions() int { return e.opts.Dimensions }
