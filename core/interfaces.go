package core

import (
	"context"
	"time"
)

// Embedder converts text into vectors usable with cosine similarity.
// Implementations: embedder/openai (production), embedder/mock (tests).
// Results are cacheable by exact input text; wrap with embedder.NewCached
// to avoid redundant backend calls.
type Embedder interface {
	// Embed converts a batch of texts into embedding vectors, one per input,
	// in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed embedding vector size for this model.
	Dimensions() int
}

// PIIResult is the outcome of PII detection over an utterance. Matches carry
// masked labels only ("email", "phone"); raw matched text is never exposed.
type PIIResult struct {
	HasPII  bool
	Matches []string
}

// PIIDetector is the boundary predicate gating the evaluation pipeline.
// A positive detection aborts the whole utterance before extraction.
type PIIDetector interface {
	Detect(text string) PIIResult
}

// Extractor produces raw fact candidates from an utterance. Extraction
// internals (patterns, LLM prompting) are implementation concerns; the
// pipeline only relies on this contract.
type Extractor interface {
	Extract(ctx context.Context, utterance, personContext string) ([]Candidate, error)
}

// MetricsEvent is a single observability record. Every save / ask / reject /
// retrieve / consolidate / summarize / error appends one event to the sink.
type MetricsEvent struct {
	Type      string         `json:"type"`
	UserID    string         `json:"user_id"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewMetricsEvent builds an event stamped with the current UTC time.
func NewMetricsEvent(eventType, userID string, fields map[string]any) MetricsEvent {
	return MetricsEvent{Type: eventType, UserID: userID, Timestamp: time.Now().UTC(), Fields: fields}
}

// MetricsSink receives pipeline events. Implementations must be safe for
// concurrent use. Sink failures are swallowed by callers: observability must
// never affect primary flow.
type MetricsSink interface {
	Emit(event MetricsEvent)
}

// NopSink discards all events. Useful for tests or when metrics are disabled.
type NopSink struct{}

// Emit discards the event.
func (NopSink) Emit(MetricsEvent) {}
