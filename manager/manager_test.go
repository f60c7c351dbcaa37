package manager

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoweave/memoweave/adaptive"
	"github.com/memoweave/memoweave/consolidate"
	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/extract"
	"github.com/memoweave/memoweave/pii"
	"github.com/memoweave/memoweave/policy"
	"github.com/memoweave/memoweave/score"
	"github.com/memoweave/memoweave/store"
)

type stubExtractor struct {
	candidates []core.Candidate
	err        error
}

func (s *stubExtractor) Extract(context.Context, string, string) ([]core.Candidate, error) {
	return s.candidates, s.err
}

type recordingSink struct {
	events []core.MetricsEvent
}

func (r *recordingSink) Emit(event core.MetricsEvent) { r.events = append(r.events, event) }

func newTestManager(t *testing.T, extractor core.Extractor, optFns ...func(o *Options)) (*Manager, *store.FileStore) {
	t.Helper()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "memories.json"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	m := New(st, policy.New(), score.New(), consolidate.New(), nil, pii.NewRegexDetector(), extractor, optFns...)
	return m, st
}

func TestEvaluateAutoSavesFavoriteColor(t *testing.T) {
	m, st := newTestManager(t, extract.NewPatternExtractor())

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "Meine Lieblingsfarbe ist blau")
	require.NoError(t, err)

	require.Len(t, result.Saved, 1)
	assert.Contains(t, result.Saved[0].Value, "blau")
	assert.Equal(t, core.FactPreference, result.Saved[0].Type)
	assert.Empty(t, result.Rejected)

	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, string(core.VolatilitySemiStable), items[0].Metadata["volatility"])
}

func TestEvaluatePIIAbortsWholeUtterance(t *testing.T) {
	called := false
	extractor := &stubExtractor{}
	m, st := newTestManager(t, extractorFunc(func(ctx context.Context, utterance, person string) ([]core.Candidate, error) {
		called = true
		return extractor.candidates, nil
	}))

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "Meine IBAN ist DE89370400440532013000")
	require.NoError(t, err)

	assert.Equal(t, []string{RejectedPII}, result.Rejected)
	assert.Empty(t, result.Saved)
	assert.Empty(t, result.Suggestions)
	assert.False(t, called, "extraction must not run on a PII hit")
	assert.Zero(t, st.Count())
}

type extractorFunc func(ctx context.Context, utterance, person string) ([]core.Candidate, error)

func (f extractorFunc) Extract(ctx context.Context, utterance, person string) ([]core.Candidate, error) {
	return f(ctx, utterance, person)
}

func TestEvaluateHighRiskCandidateRejected(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactProfile, Key: "diagnose", Value: "Pollenallergie festgestellt", Confidence: 0.9},
	}})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "beim Arzt gewesen")
	require.NoError(t, err)

	assert.Equal(t, []string{"high_risk:diagnose"}, result.Rejected)
	assert.Zero(t, st.Count())
}

func TestEvaluateLowScoreRejected(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactTaskHint, Key: "aufgabe", Value: "ok", Confidence: 0.2},
	}})

	// An identical fact already exists, so the candidate has no novelty
	// and its vague filler value drags the score under the ask band.
	_, err := st.Upsert("u1", store.UpsertInput{
		Type: core.FactTaskHint, Key: "aufgabe", Value: "ok", Confidence: 0.2,
	})
	require.NoError(t, err)

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "ok")
	require.NoError(t, err)

	assert.Empty(t, result.Saved)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, []string{"low_score:aufgabe"}, result.Rejected)
}

func TestEvaluateTaskHintBecomesSuggestion(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactTaskHint, Key: "aufgabe", Value: "Steuererklärung vor Samstag abgeben", Confidence: 0.9},
	}})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "todo")
	require.NoError(t, err)

	assert.Empty(t, result.Saved, "task hints below the override threshold never auto-save")
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "u1", result.Suggestions[0].UserID)
	assert.NotEmpty(t, result.Suggestions[0].ID)
	assert.Zero(t, st.Count(), "suggestions are never persisted")
}

func TestEvaluateTaskHintOverrideOnVeryHighScore(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactTaskHint, Key: "routine", Value: "immer montags Bericht an Anna senden", Confidence: 0.95},
	}})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "routine")
	require.NoError(t, err)

	require.Len(t, result.Saved, 1)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, "P30D", result.Saved[0].TTL, "overridden task hints keep their expiry")

	items, err := st.ListByUser("u1")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestEvaluateExtractorErrorBecomesEvaluationError(t *testing.T) {
	m, _ := newTestManager(t, &stubExtractor{err: errors.New("model unavailable")})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "Meine Lieblingsfarbe ist blau")
	require.NoError(t, err, "pipeline errors never propagate")
	assert.Equal(t, []string{RejectedEvaluationError}, result.Rejected)
}

func TestEvaluateConflictOnStaticValueChange(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactPreference, Key: "lieblingsfarbe", Value: "rot", Confidence: 0.85},
	}})

	_, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "rot")
	require.NoError(t, err)

	// Same confidence, different value: the consolidator must flag the
	// contradiction instead of silently treating it as novel.
	m2 := New(st, policy.New(), score.New(), consolidate.New(), nil, pii.NewRegexDetector(),
		&stubExtractor{candidates: []core.Candidate{
			{Type: core.FactPreference, Key: "lieblingsfarbe", Value: "blau", Confidence: 0.85},
		}})

	result, err := m2.EvaluateAndMaybeStore(context.Background(), "u1", "blau")
	require.NoError(t, err)

	require.NotEmpty(t, result.Consolidations)
	assert.Equal(t, core.ActionConflict, result.Consolidations[0].Action)
}

func TestSaveSuggestionOwnershipEnforced(t *testing.T) {
	m, st := newTestManager(t, &stubExtractor{candidates: []core.Candidate{
		{Type: core.FactTaskHint, Key: "aufgabe", Value: "Zahnarzttermin vereinbaren für März", Confidence: 0.9},
	}})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "todo")
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	suggestion := result.Suggestions[0]

	_, err = m.SaveSuggestion(context.Background(), "intruder", suggestion)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrOwnershipMismatch))
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Zero(t, st.Count())

	item, err := m.SaveSuggestion(context.Background(), "u1", suggestion)
	require.NoError(t, err)
	assert.Equal(t, "u1", item.UserID)
	assert.Equal(t, "P30D", item.TTL, "task hints expire by default")
	assert.Equal(t, 1, st.Count())

	_, ok := m.PendingSuggestion("u1", suggestion.ID)
	assert.False(t, ok, "approved suggestions leave the pending set")
}

func TestRejectSuggestionFeedsLearner(t *testing.T) {
	learner := adaptive.New()
	st, err := store.NewFileStore(filepath.Join(t.TempDir(), "memories.json"))
	require.NoError(t, err)
	t.Cleanup(st.Close)

	m := New(st, policy.New(), score.New(), consolidate.New(), learner, pii.NewRegexDetector(),
		&stubExtractor{candidates: []core.Candidate{
			{Type: core.FactTaskHint, Key: "aufgabe", Value: "Unterlagen für Montag sortieren", Confidence: 0.9},
		}})

	result, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "todo")
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)

	require.NoError(t, m.RejectSuggestion("u1", result.Suggestions[0].ID))
	require.NotNil(t, learner.Profile("u1"), "rejection creates the feedback profile")

	err = m.RejectSuggestion("u1", "unknown")
	assert.Error(t, err)
}

func TestEvaluateEmitsMetrics(t *testing.T) {
	sink := &recordingSink{}
	m, _ := newTestManager(t, extract.NewPatternExtractor(), func(o *Options) {
		o.Metrics = sink
	})

	_, err := m.EvaluateAndMaybeStore(context.Background(), "u1", "Meine Lieblingsfarbe ist blau")
	require.NoError(t, err)

	require.NotEmpty(t, sink.events)
	assert.Equal(t, "save", sink.events[len(sink.events)-1].Type)
	for _, ev := range sink.events {
		assert.NotContains(t, ev.Fields, "value", "raw fact values never reach the metrics stream")
	}
}

func TestPendingSuggestionsSorted(t *testing.T) {
	m, _ := newTestManager(t, &stubExtractor{})

	now := time.Now()
	for i, key := range []string{"a", "b", "c"} {
		m.pending[key] = core.PendingSuggestion{
			ID:        key,
			UserID:    "u1",
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
	}
	m.pending["other"] = core.PendingSuggestion{ID: "other", UserID: "u2", CreatedAt: now}

	list := m.PendingSuggestions("u1")
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "a", list[2].ID)
}
