package adaptive

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedback(action FeedbackAction, cand core.EnhancedCandidate) Feedback {
	return Feedback{UserID: "u1", Action: action, Candidate: cand, Timestamp: time.Now()}
}

func TestProfileCreatedLazily(t *testing.T) {
	l := New()
	assert.Nil(t, l.Profile("u1"))

	l.RecordFeedback(feedback(FeedbackAccepted, testutil.NewCandidateBuilder().BuildEnhanced()))
	p := l.Profile("u1")
	require.NotNil(t, p)
	assert.Equal(t, 1, p.FeedbackCount)
}

func TestFeedbackNudgesTypePreference(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Category("colors").BuildEnhanced()

	l.RecordFeedback(feedback(FeedbackAccepted, cand))
	p := l.Profile("u1")
	assert.InDelta(t, 0.6, p.PreferredTypes[core.FactPreference], 1e-9)
	assert.InDelta(t, 0.6, p.CategoryPreferences["colors"], 1e-9)

	l.RecordFeedback(feedback(FeedbackRejected, cand))
	l.RecordFeedback(feedback(FeedbackRejected, cand))
	p = l.Profile("u1")
	assert.InDelta(t, 0.4, p.PreferredTypes[core.FactPreference], 1e-9)
}

func TestPreferenceClamped(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().BuildEnhanced()
	for i := 0; i < 10; i++ {
		l.RecordFeedback(feedback(FeedbackAccepted, cand))
	}
	assert.LessOrEqual(t, l.Profile("u1").PreferredTypes[core.FactPreference], 1.0)
}

func TestPatternListCapped(t *testing.T) {
	l := New()
	for i := 0; i < 60; i++ {
		cand := testutil.NewCandidateBuilder().Key(fmt.Sprintf("key%d", i)).BuildEnhanced()
		l.RecordFeedback(feedback(FeedbackAccepted, cand))
	}
	p := l.Profile("u1")
	assert.Len(t, p.AcceptedPatterns, 50)
	// FIFO eviction: oldest gone, newest present
	assert.NotContains(t, p.AcceptedPatterns, "key0 blau")
	assert.Contains(t, p.AcceptedPatterns, "key59 blau")
}

func TestThresholdDriftsOnContradiction(t *testing.T) {
	l := New()
	// accepting a candidate below the threshold lowers it
	low := testutil.NewCandidateBuilder().Confidence(0.3).BuildEnhanced()
	l.RecordFeedback(feedback(FeedbackAccepted, low))
	assert.InDelta(t, 0.58, l.ConfidenceThreshold("u1"), 1e-9)

	// rejecting a candidate above the threshold raises it
	high := testutil.NewCandidateBuilder().Confidence(0.9).BuildEnhanced()
	l.RecordFeedback(feedback(FeedbackRejected, high))
	assert.InDelta(t, 0.6, l.ConfidenceThreshold("u1"), 1e-9)
}

func TestThresholdBounds(t *testing.T) {
	l := New()
	low := testutil.NewCandidateBuilder().Confidence(0.1).BuildEnhanced()
	for i := 0; i < 50; i++ {
		l.RecordFeedback(feedback(FeedbackAccepted, low))
	}
	assert.GreaterOrEqual(t, l.ConfidenceThreshold("u1"), 0.4)

	high := testutil.NewCandidateBuilder().Confidence(0.99).BuildEnhanced()
	for i := 0; i < 50; i++ {
		l.RecordFeedback(feedback(FeedbackRejected, high))
	}
	assert.LessOrEqual(t, l.ConfidenceThreshold("u1"), 0.95)
}

func TestAdaptiveScoreNeutralWithoutProfile(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Confidence(0.8).Importance(0.5).BuildEnhanced()
	assert.InDelta(t, 0.8*0.5*0.75*0.75, l.AdaptiveScore("unknown", cand), 1e-9)
}

func TestAdaptiveScoreRisesWithAcceptance(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Key("arbeitsbeginn").Value("9 uhr").Importance(0.6).BuildEnhanced()
	before := l.AdaptiveScore("u1", cand)
	l.RecordFeedback(feedback(FeedbackAccepted, cand))
	after := l.AdaptiveScore("u1", cand)
	assert.Greater(t, after, before)
}

func TestRejectedPatternTakesPrecedence(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Key("lieblingsfarbe").Value("blau").Importance(0.8).BuildEnhanced()
	// record both verdicts on the identical pattern
	l.RecordFeedback(feedback(FeedbackAccepted, cand))
	l.RecordFeedback(feedback(FeedbackRejected, cand))

	// type preference is back to neutral after +0.1 -0.1, so any drop below
	// the accepted-boosted score must come from the x0.3 rejection dampener
	score := l.AdaptiveScore("u1", cand)
	neutral := cand.Confidence * cand.Importance * 0.75 * 0.75
	assert.Less(t, score, neutral)
}

func TestPredictRequiresHistory(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().BuildEnhanced()
	assert.Equal(t, PredictUncertain, l.PredictUserAction("u1", cand))

	l.RecordFeedback(feedback(FeedbackAccepted, cand))
	assert.Equal(t, PredictUncertain, l.PredictUserAction("u1", cand), "below minimum history")
}

func TestPredictAcceptsWithConsistentHistory(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Key("lieblingsfarbe").Value("blau").BuildEnhanced()
	for i := 0; i < 6; i++ {
		l.RecordFeedback(feedback(FeedbackAccepted, cand))
	}
	assert.Equal(t, PredictAccept, l.PredictUserAction("u1", cand))
}

func TestPredictUncertainWithoutSimilarPrecedent(t *testing.T) {
	l := New()
	other := testutil.NewCandidateBuilder().Key("arbeitgeber").Value("Siemens AG München").BuildEnhanced()
	for i := 0; i < 6; i++ {
		l.RecordFeedback(feedback(FeedbackAccepted, other))
	}
	novel := testutil.NewCandidateBuilder().Key("lieblingsfarbe").Value("blau").BuildEnhanced()
	assert.Equal(t, PredictUncertain, l.PredictUserAction("u1", novel))
}

func TestPredictRejectsWithConsistentRejection(t *testing.T) {
	l := New()
	cand := testutil.NewCandidateBuilder().Key("wetter").Value("heute sonnig").BuildEnhanced()
	for i := 0; i < 6; i++ {
		l.RecordFeedback(feedback(FeedbackRejected, cand))
	}
	assert.Equal(t, PredictReject, l.PredictUserAction("u1", cand))
}

func TestPruneInactive(t *testing.T) {
	now := time.Now()
	l := New(func(o *Options) {
		o.Clock = func() time.Time { return now }
	})
	l.RecordFeedback(feedback(FeedbackAccepted, testutil.NewCandidateBuilder().BuildEnhanced()))

	assert.Zero(t, l.PruneInactive(30*24*time.Hour))

	now = now.Add(90 * 24 * time.Hour)
	assert.Equal(t, 1, l.PruneInactive(30*24*time.Hour))
	assert.Nil(t, l.Profile("u1"))
}

func TestExportImportRoundTrip(t *testing.T) {
	l := New()
	l.RecordFeedback(feedback(FeedbackAccepted, testutil.NewCandidateBuilder().Category("colors").BuildEnhanced()))

	var buf bytes.Buffer
	require.NoError(t, l.ExportProfiles(&buf))

	restored := New()
	require.NoError(t, restored.ImportProfiles(&buf))
	p := restored.Profile("u1")
	require.NotNil(t, p)
	assert.InDelta(t, 0.6, p.PreferredTypes[core.FactPreference], 1e-9)
	assert.Len(t, p.AcceptedPatterns, 1)
}

func TestImportProfilesNull(t *testing.T) {
	l := New()
	require.NoError(t, l.ImportProfiles(strings.NewReader("null")))

	// Feedback after an empty import must still create profiles.
	l.RecordFeedback(feedback(FeedbackAccepted, testutil.NewCandidateBuilder().BuildEnhanced()))
	require.NotNil(t, l.Profile("u1"))

	require.Error(t, l.ImportProfiles(strings.NewReader("{broken")))
}
