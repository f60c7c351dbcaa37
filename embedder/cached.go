package embedder

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/memoweave/memoweave/core"
)

// CachedOptions configures the caching decorator.
type CachedOptions struct {
	// TTL bounds how long a vector stays cached. Zero means no expiry.
	TTL time.Duration

	// MaxEntries caps the number of cached vectors.
	MaxEntries int64
}

// Cached wraps an Embedder with an in-process vector cache keyed by the
// exact input text. Provider calls are only made for cache misses.
type Cached struct {
	inner core.Embedder
	cache *ristretto.Cache
	opts  CachedOptions
}

var _ core.Embedder = (*Cached)(nil)

// NewCached creates a caching decorator around inner.
func NewCached(inner core.Embedder, optFns ...func(o *CachedOptions)) (*Cached, error) {
	opts := CachedOptions{
		TTL:        24 * time.Hour,
		MaxEntries: 10_000,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: opts.MaxEntries * 10,
		MaxCost:     opts.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &Cached{inner: inner, cache: cache, opts: opts}, nil
}

// Embed returns cached vectors where available, batching the remaining
// texts into a single call to the wrapped embedder.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			if vec, ok := v.([]float32); ok {
				out[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) > 0 {
		vecs, err := c.inner.Embed(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, vec := range vecs {
			out[missingIdx[j]] = vec
			if c.opts.TTL > 0 {
				c.cache.SetWithTTL(missing[j], vec, 1, c.opts.TTL)
			} else {
				c.cache.Set(missing[j], vec, 1)
			}
		}
		c.cache.Wait()
	}

	return out, nil
}

// Dimensions reports the wrapped embedder's vector size.
func (c *Cached) Dimensions() int { return c.inner.Dimensions() }

// Close releases the cache's resources.
func (c *Cached) Close() {
	c.cache.Close()
}
