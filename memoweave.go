// Package memoweave provides a high-level façade over the long-term memory
// pipeline (evaluation, storage, retrieval, consolidation, summarization &
// adaptive learning). Most applications interact with this package by:
//  1. Creating a Memoweave via New() (optionally overriding the defaults)
//  2. Feeding utterances through Evaluate and approving suggestions
//  3. Injecting retrieved context into prompts via RetrieveForPrompt
//
// The façade delegates orchestration to manager.Manager while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing: a file store in the working directory, the deterministic
// pattern extractor and mock embedder, and a no-op metrics sink. Production
// deployments typically supply the OpenAI embedder, the Anthropic extractor,
// and a file metrics sink.
package memoweave

import (
	"context"
	"fmt"
	"io"

	"github.com/memoweave/memoweave/adaptive"
	"github.com/memoweave/memoweave/consolidate"
	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/embedder/mock"
	"github.com/memoweave/memoweave/extract"
	"github.com/memoweave/memoweave/logging"
	"github.com/memoweave/memoweave/manager"
	"github.com/memoweave/memoweave/metrics"
	"github.com/memoweave/memoweave/pii"
	"github.com/memoweave/memoweave/policy"
	"github.com/memoweave/memoweave/retrieve"
	"github.com/memoweave/memoweave/score"
	"github.com/memoweave/memoweave/store"
	"github.com/memoweave/memoweave/summarize"
)

// Options configures the Memoweave instance.
type Options struct {
	// StorePath is the JSON document backing all memories.
	StorePath string

	// Collaborators (defaults to local implementations if not provided)
	Embedder  core.Embedder
	Extractor core.Extractor
	Detector  core.PIIDetector

	// Metrics sink (defaults to NopSink if nil)
	Metrics core.MetricsSink

	// Logger (defaults to slog JSON if nil)
	Logger *logging.MemoryLogger

	// DisableAdaptive turns off per-user feedback learning.
	DisableAdaptive bool
}

// Memoweave is the high-level façade aggregating the pipeline components.
type Memoweave struct {
	opts       Options
	store      *store.FileStore
	manager    *manager.Manager
	retriever  *retrieve.Retriever
	summarizer *summarize.Summarizer
	learner    *adaptive.Learner
}

// New creates a new Memoweave instance with optional overrides. Any unset
// collaborator is initialized with a local implementation.
func New(optFns ...func(o *Options)) (*Memoweave, error) {
	opts := Options{
		StorePath: "memories.json",
		Embedder:  mock.New(),
		Extractor: extract.NewPatternExtractor(),
		Detector:  pii.NewRegexDetector(),
		Metrics:   core.NopSink{},
		Logger:    logging.NewLogger(logging.DefaultLoggerConfig()),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	st, err := store.NewFileStore(opts.StorePath, func(o *store.Options) {
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var learner *adaptive.Learner
	if !opts.DisableAdaptive {
		learner = adaptive.New()
	}

	mgr := manager.New(st, policy.New(), score.New(), consolidate.New(), learner,
		opts.Detector, opts.Extractor, func(o *manager.Options) {
			o.Metrics = opts.Metrics
			o.Logger = opts.Logger
		})

	return &Memoweave{
		opts:    opts,
		store:   st,
		manager: mgr,
		retriever: retrieve.New(st, opts.Embedder, func(o *retrieve.Options) {
			o.Metrics = opts.Metrics
			o.Logger = opts.Logger
		}),
		summarizer: summarize.New(st, func(o *summarize.Options) {
			o.Metrics = opts.Metrics
			o.Logger = opts.Logger
		}),
		learner: learner,
	}, nil
}

// Close releases the store's resources.
func (m *Memoweave) Close() { m.store.Close() }

// Evaluate runs the utterance through the pipeline, auto-saving worthy facts
// and returning suggestions for the ask band.
func (m *Memoweave) Evaluate(ctx context.Context, userID, utterance string) (*manager.EvaluationResult, error) {
	return m.manager.EvaluateAndMaybeStore(ctx, userID, utterance)
}

// ApproveSuggestion persists a previously returned suggestion by id.
func (m *Memoweave) ApproveSuggestion(ctx context.Context, userID, suggestionID string) (*core.MemoryItem, error) {
	suggestion, ok := m.manager.PendingSuggestion(userID, suggestionID)
	if !ok {
		return nil, &core.ValidationError{Field: "suggestion_id", Reason: "unknown suggestion"}
	}
	return m.manager.SaveSuggestion(ctx, userID, suggestion)
}

// RejectSuggestion drops a pending suggestion and records the feedback.
func (m *Memoweave) RejectSuggestion(userID, suggestionID string) error {
	return m.manager.RejectSuggestion(userID, suggestionID)
}

// Suggestions lists the user's pending suggestions, newest first.
func (m *Memoweave) Suggestions(userID string) []core.PendingSuggestion {
	return m.manager.PendingSuggestions(userID)
}

// List returns the user's active memories, newest first.
func (m *Memoweave) List(userID string) ([]*core.MemoryItem, error) {
	return m.store.ListByUser(userID)
}

// Remove deletes one memory by id.
func (m *Memoweave) Remove(userID, id string) error {
	return m.store.Remove(userID, id)
}

// FindRelevant ranks the user's memories against a query.
func (m *Memoweave) FindRelevant(ctx context.Context, userID, query string, limit int) ([]core.RankedResult, error) {
	return m.retriever.FindRelevant(ctx, userID, query, limit)
}

// RetrieveForPrompt renders the most relevant memories as a prompt context
// block.
func (m *Memoweave) RetrieveForPrompt(ctx context.Context, userID, query string, limit int) (*retrieve.RetrievalResult, error) {
	return m.retriever.RetrieveForPrompt(ctx, userID, query, limit)
}

// Summarize compacts the user's old memories into summary items.
func (m *Memoweave) Summarize(ctx context.Context, userID string) (*summarize.Report, error) {
	return m.summarizer.Summarize(ctx, userID)
}

// ExpireSweep removes items whose TTL has elapsed and returns the count.
func (m *Memoweave) ExpireSweep() (int, error) {
	n, err := m.store.ExpireSweep()
	if err == nil && n > 0 {
		m.opts.Metrics.Emit(core.NewMetricsEvent(metrics.EventSweep, "", map[string]any{"removed": n}))
	}
	return n, err
}

// Export writes the full store document to w.
func (m *Memoweave) Export(w io.Writer) error {
	return m.store.Export(w)
}

// Import merges a previously exported document, newer entries winning.
func (m *Memoweave) Import(r io.Reader) (int, error) {
	return m.store.Import(r)
}

// Learner exposes the adaptive learning state, or nil when disabled.
func (m *Memoweave) Learner() *adaptive.Learner { return m.learner }
