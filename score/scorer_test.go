package score

import (
	"testing"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNoveltyEmptyPool(t *testing.T) {
	s := New()
	c := testutil.NewCandidateBuilder().Build()
	assert.Equal(t, 1.0, s.Novelty(c, nil))
}

func TestNoveltySameSlotIdenticalValue(t *testing.T) {
	s := New()
	c := testutil.NewCandidateBuilder().Value("blau").Build()
	existing := []*core.MemoryItem{testutil.NewItemBuilder("u1").Value("blau").BuildPtr()}
	assert.Equal(t, 0.0, s.Novelty(c, existing))
}

func TestNoveltyIgnoresOtherSlots(t *testing.T) {
	s := New()
	c := testutil.NewCandidateBuilder().Key("lieblingsfarbe").Value("blau").Build()
	existing := []*core.MemoryItem{testutil.NewItemBuilder("u1").Key("lieblingsessen").Value("blau").BuildPtr()}
	assert.Equal(t, 1.0, s.Novelty(c, existing))
}

func TestScoreMonotonicInConfidence(t *testing.T) {
	s := New()
	prev := -1.0
	for _, conf := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		c := testutil.NewCandidateBuilder().Confidence(conf).Build()
		got := s.Score(c, nil)
		assert.Greater(t, got, prev, "score must rise with confidence (conf=%v)", conf)
		prev = got
	}
}

func TestScoreFavoriteColorAutoSaves(t *testing.T) {
	s := New()
	c := core.Candidate{
		Type:       core.FactPreference,
		Key:        "lieblingsfarbe",
		Value:      "blau",
		Confidence: 0.9,
	}
	got := s.Score(c, nil)
	assert.GreaterOrEqual(t, got, 0.75, "expected auto-save band, got %v", got)
	assert.Equal(t, ActionAuto, s.RecommendedAction(got))
}

func TestScoreFillerValueRejected(t *testing.T) {
	s := New()
	c := core.Candidate{Type: core.FactPreference, Key: "antwort", Value: "ok", Confidence: 0.5}
	got := s.Score(c, nil)
	assert.Less(t, got, 0.75, "filler values must not auto-save, got %v", got)
}

func TestScoreQuestionPenalized(t *testing.T) {
	s := New()
	plain := core.Candidate{Type: core.FactPreference, Key: "lieblingsfarbe", Value: "blau", Confidence: 0.8}
	question := core.Candidate{Type: core.FactPreference, Key: "lieblingsfarbe", Value: "blau?", Confidence: 0.8}
	assert.Greater(t, s.Score(plain, nil), s.Score(question, nil))
}

func TestScoreEphemeralPenalized(t *testing.T) {
	s := New()
	stable := core.Candidate{Type: core.FactTaskHint, Key: "aufgabe", Value: "bericht schreiben", Confidence: 0.8}
	dated := core.Candidate{Type: core.FactTaskHint, Key: "aufgabe", Value: "bericht bis 15.03. schreiben", Confidence: 0.8}
	assert.Greater(t, s.Score(stable, nil), s.Score(dated, nil))
}

func TestScoreStabilityKeywordPriority(t *testing.T) {
	s := New()
	// "immer" (stable class) must win over "oft" when both are present
	both := core.Candidate{Type: core.FactWorkContext, Key: "arbeitsweg", Value: "immer und oft mit dem Rad", Confidence: 0.5}
	habitual := core.Candidate{Type: core.FactWorkContext, Key: "arbeitsweg", Value: "oft mit dem Rad", Confidence: 0.5}
	assert.Greater(t, s.Score(both, nil), s.Score(habitual, nil))
}

func TestScoreClamped(t *testing.T) {
	s := New()
	c := core.Candidate{Type: core.FactProfile, Key: "name", Value: "Alexander Birkenfeld", Confidence: 1.0}
	got := s.Score(c, nil)
	assert.LessOrEqual(t, got, 1.0)
	assert.GreaterOrEqual(t, got, 0.0)
}

func TestRecommendedActionBands(t *testing.T) {
	s := New()
	assert.Equal(t, ActionAuto, s.RecommendedAction(0.75))
	assert.Equal(t, ActionAsk, s.RecommendedAction(0.6))
	assert.Equal(t, ActionAsk, s.RecommendedAction(0.5))
	assert.Equal(t, ActionReject, s.RecommendedAction(0.49))
}

func TestThresholdsConfigurable(t *testing.T) {
	s := New(func(o *Options) {
		o.AutoThreshold = 0.9
		o.AskThreshold = 0.8
	})
	assert.Equal(t, ActionReject, s.RecommendedAction(0.75))
	assert.Equal(t, ActionAsk, s.RecommendedAction(0.85))
	assert.Equal(t, ActionAuto, s.RecommendedAction(0.95))
}
