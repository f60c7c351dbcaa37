// Package retrieve ranks stored memories against a free-text query and
// renders them as prompt context. Ranking blends embedding cosine
// similarity with an exponential recency decay; the vector side is backed
// by an in-memory chromem-go collection per user that is rebuilt from the
// store on every call, so the index never drifts from the document file.
package retrieve

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/logging"
	"github.com/memoweave/memoweave/metrics"
	"github.com/memoweave/memoweave/store"
)

// Options configures ranking weights and the recency half-life.
type Options struct {
	// SimilarityWeight and RecencyWeight blend the two ranking components.
	SimilarityWeight float64
	RecencyWeight    float64

	// RecencyScaleDays controls the decay: recency = exp(-ageDays/scale).
	RecencyScaleDays float64

	Metrics core.MetricsSink
	Logger  *logging.MemoryLogger
	Clock   func() time.Time
}

// RetrievalResult is what RetrieveForPrompt returns: the rendered context
// block plus the ranked items behind it.
type RetrievalResult struct {
	Context  string              `json:"context"`
	Relevant []core.RankedResult `json:"relevant"`
}

// Retriever answers relevance queries over a user's stored memories.
type Retriever struct {
	store    *store.FileStore
	embedder core.Embedder
	opts     Options

	mu          sync.Mutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
}

// New creates a retriever over the given store and embedder.
func New(st *store.FileStore, emb core.Embedder, optFns ...func(o *Options)) *Retriever {
	opts := Options{
		SimilarityWeight: 0.7,
		RecencyWeight:    0.3,
		RecencyScaleDays: 90,
		Metrics:          core.NopSink{},
		Logger:           logging.NewLogger(logging.DefaultLoggerConfig()),
		Clock:            time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Retriever{
		store:       st,
		embedder:    emb,
		opts:        opts,
		db:          chromem.NewDB(),
		collections: map[string]*chromem.Collection{},
	}
}

// FindRelevant returns up to limit active memories ranked by blended
// similarity and recency, highest score first. Ties break on item ID so
// the ordering is stable across runs.
func (r *Retriever) FindRelevant(ctx context.Context, userID, query string, limit int) ([]core.RankedResult, error) {
	if limit <= 0 {
		return nil, nil
	}

	start := r.opts.Clock()
	log := r.opts.Logger.WithComponent("retriever").WithUser(userID)

	items, err := r.store.ListByUser(userID)
	if err != nil {
		log.LogRetrieval(userID, 0, r.opts.Clock().Sub(start), err)
		return nil, fmt.Errorf("list memories: %w", err)
	}
	if len(items) == 0 {
		log.LogRetrieval(userID, 0, r.opts.Clock().Sub(start), nil)
		return nil, nil
	}

	sims, err := r.similarities(ctx, userID, query, items)
	if err != nil {
		log.LogRetrieval(userID, 0, r.opts.Clock().Sub(start), err)
		return nil, err
	}

	now := r.opts.Clock()
	results := make([]core.RankedResult, 0, len(items))
	for _, item := range items {
		sim := sims[item.ID]
		rec := r.recency(now, item.UpdatedAt)
		results = append(results, core.RankedResult{
			Item:       item,
			Similarity: sim,
			Recency:    rec,
			Score:      r.opts.SimilarityWeight*sim + r.opts.RecencyWeight*rec,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Item.ID < results[j].Item.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	elapsed := r.opts.Clock().Sub(start)
	log.LogRetrieval(userID, len(results), elapsed, nil)
	r.opts.Metrics.Emit(core.NewMetricsEvent(metrics.EventRetrieve, userID, map[string]any{
		"results":    len(results),
		"latency_ms": float64(elapsed.Milliseconds()),
	}))
	return results, nil
}

// RetrieveForPrompt ranks memories for the query and renders them into a
// type-grouped context block suitable for prepending to a model prompt.
func (r *Retriever) RetrieveForPrompt(ctx context.Context, userID, query string, limit int) (*RetrievalResult, error) {
	relevant, err := r.FindRelevant(ctx, userID, query, limit)
	if err != nil {
		return nil, err
	}
	return &RetrievalResult{
		Context:  renderContext(relevant),
		Relevant: relevant,
	}, nil
}

// memoryText is the indexed representation of an item. It matches the
// "key: value" line format the context renderer emits.
func memoryText(item *core.MemoryItem) string {
	return item.Key + ": " + item.Value
}

// similarities rebuilds the user's vector collection from the active items
// and queries it with the embedded query, returning cosine similarity per
// item ID. Items the query cannot reach default to 0.
func (r *Retriever) similarities(ctx context.Context, userID string, query string, items []*core.MemoryItem) (map[string]float64, error) {
	texts := make([]string, 0, len(items)+1)
	texts = append(texts, query)
	for _, item := range items {
		texts = append(texts, memoryText(item))
	}

	vecs, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	col, err := r.resetCollection(userID)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		doc := chromem.Document{
			ID:        item.ID,
			Content:   memoryText(item),
			Embedding: vecs[i+1],
			Metadata:  map[string]string{"type": string(item.Type)},
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("index memory: %w", err)
		}
	}

	hits, err := col.QueryEmbedding(ctx, vecs[0], len(items), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	sims := make(map[string]float64, len(hits))
	for _, hit := range hits {
		sims[hit.ID] = float64(hit.Similarity)
	}
	return sims, nil
}

// resetCollection drops and recreates the per-user collection so removed
// or expired items vanish from the index.
func (r *Retriever) resetCollection(userID string) (*chromem.Collection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := "user_" + userID
	if _, ok := r.collections[userID]; ok {
		if err := r.db.DeleteCollection(name); err != nil {
			return nil, fmt.Errorf("reset collection: %w", err)
		}
	}
	col, err := r.db.CreateCollection(name, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	r.collections[userID] = col
	return col, nil
}

func (r *Retriever) recency(now, updatedAt time.Time) float64 {
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	rec := math.Exp(-ageDays / r.opts.RecencyScaleDays)
	if rec > 1 {
		rec = 1
	}
	if rec < 0 {
		rec = 0
	}
	return rec
}

var typeHeadings = map[core.FactType]string{
	core.FactProfile:     "Profil",
	core.FactPreference:  "Vorlieben",
	core.FactContact:     "Kontakte",
	core.FactWorkContext: "Arbeitskontext",
	core.FactTaskHint:    "Aufgaben",
}

// renderContext groups results by fact type and renders a compact block of
// "key: value" lines under a heading per type. Groups keep the ranked
// order inside them.
func renderContext(results []core.RankedResult) string {
	if len(results) == 0 {
		return ""
	}

	order := []core.FactType{core.FactProfile, core.FactPreference, core.FactContact, core.FactWorkContext, core.FactTaskHint}
	grouped := map[core.FactType][]*core.MemoryItem{}
	for _, res := range results {
		grouped[res.Item.Type] = append(grouped[res.Item.Type], res.Item)
	}

	var b strings.Builder
	b.WriteString("Bekannte Informationen über den Nutzer:\n")
	for _, t := range order {
		items := grouped[t]
		if len(items) == 0 {
			continue
		}
		b.WriteString("\n" + typeHeadings[t] + ":\n")
		for _, item := range items {
			if item.Person != "" {
				fmt.Fprintf(&b, "- %s (%s): %s\n", item.Key, item.Person, item.Value)
			} else {
				fmt.Fprintf(&b, "- %s: %s\n", item.Key, item.Value)
			}
		}
	}
	return b.String()
}
