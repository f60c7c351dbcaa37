// Package summarize compacts old memories. Groups of related facts that
// have aged past a threshold are collapsed into a single synthetic summary
// item; the originals are removed. Summaries are tagged with a source
// marker so they are never summarized again.
package summarize

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
	"github.com/memoweave/memoweave/logging"
	"github.com/memoweave/memoweave/metrics"
	"github.com/memoweave/memoweave/store"
)

// SourceSummarizer marks synthetic items produced by this package.
const SourceSummarizer = "summarizer"

// Options configure clustering and pacing.
type Options struct {
	// MinClusterSize is the smallest group of related facts worth
	// compacting.
	MinClusterSize int

	// MinAge excludes recent facts from summarization.
	MinAge time.Duration

	// PaceDelay is the delay inserted between cluster writes to avoid
	// overloading downstream backends.
	PaceDelay time.Duration

	Metrics core.MetricsSink
	Logger  *logging.MemoryLogger
	Clock   func() time.Time
}

// Report describes one summarization run.
type Report struct {
	Clusters int `json:"clusters"`
	Archived int `json:"archived"`
	Created  int `json:"created"`
}

// Store is the slice of the persistence layer the summarizer needs.
// *store.FileStore satisfies it.
type Store interface {
	ListByUser(userID string) ([]*core.MemoryItem, error)
	Upsert(userID string, input store.UpsertInput) (*core.MemoryItem, error)
	Remove(userID, id string) error
}

var _ Store = (*store.FileStore)(nil)

// Summarizer compacts a user's old memories in place.
type Summarizer struct {
	store Store
	pacer *core.Pacer
	opts  Options
}

// New creates a summarizer over the given store.
func New(st Store, optFns ...func(o *Options)) *Summarizer {
	opts := Options{
		MinClusterSize: 3,
		MinAge:         30 * 24 * time.Hour,
		PaceDelay:      200 * time.Millisecond,
		Metrics:        core.NopSink{},
		Logger:         logging.NewLogger(logging.DefaultLoggerConfig()),
		Clock:          time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Summarizer{
		store: st,
		pacer: core.NewPacer(opts.PaceDelay),
		opts:  opts,
	}
}

// Summarize collapses every eligible cluster of the user's memories into a
// synthetic summary item and removes the originals. Clusters are processed
// in a stable order with a pacing delay between them.
func (s *Summarizer) Summarize(ctx context.Context, userID string) (*Report, error) {
	start := s.opts.Clock()
	log := s.opts.Logger.WithComponent("summarizer").WithUser(userID)

	items, err := s.store.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	clusters := s.clusters(items)
	report := &Report{}

	for _, cluster := range clusters {
		if err := s.pacer.Wait(ctx); err != nil {
			return report, err
		}
		if err := s.compact(userID, cluster); err != nil {
			return report, err
		}
		report.Clusters++
		report.Archived += len(cluster)
		report.Created++
	}

	log.LogSummarization(userID, report.Clusters, report.Archived, s.opts.Clock().Sub(start))
	if report.Clusters > 0 {
		s.opts.Metrics.Emit(core.NewMetricsEvent(metrics.EventSummarize, userID, map[string]any{
			"clusters": report.Clusters,
			"archived": report.Archived,
		}))
	}
	return report, nil
}

// clusters groups eligible items by (type, person, base key-word) and
// returns only groups large enough to compact, in a stable key order.
func (s *Summarizer) clusters(items []*core.MemoryItem) [][]*core.MemoryItem {
	cutoff := s.opts.Clock().Add(-s.opts.MinAge)

	grouped := map[string][]*core.MemoryItem{}
	for _, item := range items {
		if item.Source == SourceSummarizer {
			continue
		}
		if item.UpdatedAt.After(cutoff) {
			continue
		}
		key := clusterKey(item)
		grouped[key] = append(grouped[key], item)
	}

	keys := make([]string, 0, len(grouped))
	for key, group := range grouped {
		if len(group) >= s.opts.MinClusterSize {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([][]*core.MemoryItem, 0, len(keys))
	for _, key := range keys {
		group := grouped[key]
		sort.Slice(group, func(i, j int) bool {
			return group[i].UpdatedAt.Before(group[j].UpdatedAt)
		})
		out = append(out, group)
	}
	return out
}

// clusterKey derives the grouping slot: fact type, person, and the first
// word of the normalized key ("lieblingsfarbe rot" and "lieblingsfarbe"
// land in the same cluster).
func clusterKey(item *core.MemoryItem) string {
	base := util.Normalize(item.Key)
	if tokens := util.Tokens(item.Key); len(tokens) > 0 {
		base = tokens[0]
	}
	return string(item.Type) + "|" + util.Normalize(item.Person) + "|" + base
}

// compact replaces a cluster with one synthetic item. The summary keeps
// the newest item's key and person and is written before any original is
// removed, so a failed write never costs the cluster's history. The
// summary shares the newest item's dedup slot, so the upsert converts that
// item in place; the remaining originals are then deleted.
func (s *Summarizer) compact(userID string, cluster []*core.MemoryItem) error {
	newest := cluster[len(cluster)-1]

	value := summaryValue(cluster)
	conf := summaryConfidence(cluster)

	ids := make([]string, len(cluster))
	for i, item := range cluster {
		ids[i] = item.ID
	}

	summary, err := s.store.Upsert(userID, store.UpsertInput{
		Person:     newest.Person,
		Type:       newest.Type,
		Key:        newest.Key,
		Value:      value,
		Confidence: conf,
		Source:     SourceSummarizer,
		Tags:       unionTags(cluster),
		Metadata: map[string]string{
			"source":     SourceSummarizer,
			"source_ids": strings.Join(ids, ","),
		},
	})
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	for _, item := range cluster {
		if item.ID == summary.ID {
			continue
		}
		if err := s.store.Remove(userID, item.ID); err != nil {
			return fmt.Errorf("remove original: %w", err)
		}
	}

	s.opts.Logger.WithComponent("summarizer").LogConsolidation(userID, newest.Key, "summarize", conf-newest.Confidence)
	return nil
}

// summaryValue renders the compacted text. When every value agrees the
// fact was confirmed repeatedly; otherwise the newest value wins and the
// history length is noted.
func summaryValue(cluster []*core.MemoryItem) string {
	newest := cluster[len(cluster)-1]

	identical := true
	for _, item := range cluster {
		if util.Normalize(item.Value) != util.Normalize(newest.Value) {
			identical = false
			break
		}
	}

	if identical {
		return fmt.Sprintf("%s (confirmed %dx)", newest.Value, len(cluster))
	}
	return fmt.Sprintf("%s (updated from %d entries)", newest.Value, len(cluster))
}

func summaryConfidence(cluster []*core.MemoryItem) float64 {
	var sum float64
	for _, item := range cluster {
		sum += item.Confidence
	}
	conf := sum/float64(len(cluster)) + 0.1
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

func unionTags(cluster []*core.MemoryItem) []string {
	seen := map[string]bool{}
	var out []string
	for _, item := range cluster {
		for _, tag := range item.Tags {
			if !seen[tag] {
				seen[tag] = true
				out = append(out, tag)
			}
		}
	}
	sort.Strings(out)
	return out
}
