package summarize

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/store"
)

func newClockedStore(t *testing.T, clock *time.Time) *store.FileStore {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "memories.json"), func(o *store.Options) {
		o.Clock = func() time.Time { return *clock }
		o.CacheTTL = 0
	})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	return st
}

func TestSummarizeCompactsOldCluster(t *testing.T) {
	now := time.Now()
	clock := now.Add(-60 * 24 * time.Hour)
	st := newClockedStore(t, &clock)

	for _, key := range []string{"projekt deadline", "projekt budget", "projekt status"} {
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactWorkContext, Key: key, Value: "läuft", Confidence: 0.7,
		})
		require.NoError(t, err)
	}
	clock = now

	s := New(st, func(o *Options) {
		o.PaceDelay = 0
		o.Clock = func() time.Time { return now }
	})

	report, err := s.Summarize(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, 1, report.Clusters)
	assert.Equal(t, 3, report.Archived)
	assert.Equal(t, 1, report.Created)

	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	summary := items[0]
	assert.Equal(t, SourceSummarizer, summary.Source)
	assert.Contains(t, summary.Value, "confirmed 3x")
	assert.InDelta(t, 0.8, summary.Confidence, 0.001, "avg 0.7 plus 0.1 bonus")
	assert.NotEmpty(t, summary.Metadata["source_ids"])
}

func TestSummarizeDivergingValuesKeepNewest(t *testing.T) {
	now := time.Now()
	clock := now.Add(-90 * 24 * time.Hour)
	st := newClockedStore(t, &clock)

	for i, val := range []string{"planung", "umsetzung", "abschluss"} {
		clock = now.Add(time.Duration(-90+i) * 24 * time.Hour)
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactWorkContext, Key: "projekt phase " + val, Value: val, Confidence: 0.6,
		})
		require.NoError(t, err)
	}
	clock = now

	s := New(st, func(o *Options) {
		o.PaceDelay = 0
		o.Clock = func() time.Time { return now }
	})

	_, err := s.Summarize(context.Background(), "u1")
	require.NoError(t, err)

	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0].Value, "abschluss (updated from 3 entries)")
}

func TestSummarizeSkipsRecentAndSmallClusters(t *testing.T) {
	now := time.Now()
	clock := now
	st := newClockedStore(t, &clock)

	// Recent cluster, large enough but too young.
	for _, key := range []string{"hobby sport", "hobby musik", "hobby lesen"} {
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactPreference, Key: key, Value: "aktiv", Confidence: 0.7,
		})
		require.NoError(t, err)
	}

	// Old but too small.
	clock = now.Add(-60 * 24 * time.Hour)
	for _, key := range []string{"reise ziel", "reise budget"} {
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactProfile, Key: key, Value: "offen", Confidence: 0.7,
		})
		require.NoError(t, err)
	}
	clock = now

	s := New(st, func(o *Options) {
		o.PaceDelay = 0
		o.Clock = func() time.Time { return now }
	})

	report, err := s.Summarize(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, report.Clusters)

	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

// failingUpsertStore rejects summary writes while passing everything else
// through to the real store.
type failingUpsertStore struct {
	*store.FileStore
}

func (f *failingUpsertStore) Upsert(userID string, input store.UpsertInput) (*core.MemoryItem, error) {
	if input.Source == SourceSummarizer {
		return nil, core.NewStorageError("save", "memories.json", errors.New("disk full"))
	}
	return f.FileStore.Upsert(userID, input)
}

func TestSummarizeKeepsOriginalsWhenSummaryWriteFails(t *testing.T) {
	now := time.Now()
	clock := now.Add(-60 * 24 * time.Hour)
	st := newClockedStore(t, &clock)

	for _, key := range []string{"projekt deadline", "projekt budget", "projekt status"} {
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactWorkContext, Key: key, Value: "läuft", Confidence: 0.7,
		})
		require.NoError(t, err)
	}
	clock = now

	s := New(&failingUpsertStore{FileStore: st}, func(o *Options) {
		o.PaceDelay = 0
		o.Clock = func() time.Time { return now }
	})

	_, err := s.Summarize(context.Background(), "u1")
	require.Error(t, err)

	// The cluster must survive intact when the summary cannot be persisted.
	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.NotEqual(t, SourceSummarizer, item.Source)
	}
}

func TestSummarizeNeverResummarizes(t *testing.T) {
	now := time.Now()
	clock := now.Add(-120 * 24 * time.Hour)
	st := newClockedStore(t, &clock)

	for _, key := range []string{"projekt a", "projekt b", "projekt c"} {
		_, err := st.Upsert("u1", store.UpsertInput{
			Type: core.FactWorkContext, Key: key, Value: "fertig", Confidence: 0.7,
		})
		require.NoError(t, err)
	}

	clock = now.Add(-60 * 24 * time.Hour)
	s := New(st, func(o *Options) {
		o.PaceDelay = 0
		o.Clock = func() time.Time { return clock }
	})
	_, err := s.Summarize(context.Background(), "u1")
	require.NoError(t, err)

	// A second run much later must leave the summary untouched even though
	// it is now old enough and alone in its cluster slot.
	clock = now
	s2 := New(st, func(o *Options) {
		o.PaceDelay = 0
		o.MinClusterSize = 1
		o.Clock = func() time.Time { return now }
	})
	report, err := s2.Summarize(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, report.Clusters)
}
