// Package mock provides a deterministic, dependency-free embedder for tests
// and local development. Vectors are built from hashed word tokens, so texts
// sharing words land near each other under cosine similarity, a cheap
// stand-in for semantic closeness.
package mock

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/memoweave/memoweave/internal/util"
)

// Embedder generates deterministic bag-of-words hash embeddings.
type Embedder struct {
	dimensions int
}

// New creates a mock embedder with 384 dimensions (matching the shape of
// small sentence-transformer models).
func New() *Embedder {
	return &Embedder{dimensions: 384}
}

// Embed converts each text into a normalized sum of per-token hash vectors.
// Identical texts always produce identical vectors.
func (m *Embedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.embedOne(text)
	}
	return out, nil
}

// Dimensions returns the embedding size.
func (m *Embedder) Dimensions() int { return m.dimensions }

func (m *Embedder) embedOne(text string) []float32 {
	vec := make([]float32, m.dimensions)
	tokens := util.Tokens(text)
	if len(tokens) == 0 {
		vec[0] = 1
		return vec
	}
	for _, tok := range tokens {
		h := fnv.New64a()
		h.Write([]byte(tok))
		seed := h.Sum64()
		for d := 0; d < m.dimensions; d++ {
			// LCG keeps the per-token vector deterministic
			seed = seed*6364136223846793005 + 1442695040888963407
			vec[d] += float32(int64(seed)) / float32(math.MaxInt64)
		}
	}
	return normalize(vec)
}

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	n := float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= n
	}
	return vec
}
