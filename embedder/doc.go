// Package embedder contains concrete Embedder implementations and the
// caching decorator. The embedder contract resides in the core package;
// depend on core.Embedder in your code and select an implementation
// (OpenAI-backed, or the deterministic mock for tests and local runs) at
// wiring time.
//
// Embeddings are cacheable by exact input text; wrap any implementation
// with NewCached to absorb repeated embedding of unchanged memories.
package embedder
