// Package adaptive maintains per-user feedback models that reweight
// worthiness scores and thresholds over time. The Learner is an explicit
// service object with an export/import/prune lifecycle rather than
// process-wide mutable state; profiles live in memory and survive restarts
// only via ExportProfiles / ImportProfiles.
package adaptive

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
)

// FeedbackAction is the user's verdict on a suggested or saved fact.
type FeedbackAction string

const (
	// FeedbackAccepted marks a candidate the user confirmed.
	FeedbackAccepted FeedbackAction = "accepted"
	// FeedbackRejected marks a candidate the user declined.
	FeedbackRejected FeedbackAction = "rejected"
)

// Prediction is the outcome of PredictUserAction.
type Prediction string

const (
	// PredictAccept forecasts the user would accept the candidate.
	PredictAccept Prediction = "accept"
	// PredictReject forecasts the user would reject the candidate.
	PredictReject Prediction = "reject"
	// PredictUncertain means history is too thin or too mixed to call.
	PredictUncertain Prediction = "uncertain"
)

// Feedback is one recorded user verdict.
type Feedback struct {
	UserID    string                 `json:"user_id"`
	Action    FeedbackAction         `json:"action"`
	Candidate core.EnhancedCandidate `json:"candidate"`
	Context   string                 `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// UserPreferenceProfile is the adaptive learning state for one user.
// Pattern lists are capped; the oldest entry is evicted first.
type UserPreferenceProfile struct {
	PreferredTypes      map[core.FactType]float64 `json:"preferred_types"`
	CategoryPreferences map[string]float64        `json:"category_preferences"`
	AcceptedPatterns    []string                  `json:"accepted_patterns"`
	RejectedPatterns    []string                  `json:"rejected_patterns"`
	ConfidenceThreshold float64                   `json:"confidence_threshold"`
	FeedbackCount       int                       `json:"feedback_count"`
	LastUpdated         time.Time                 `json:"last_updated"`

	history []Feedback
}

// Options configure a Learner. Nudge sizes and caps follow the reference
// tuning; they are configuration, not invariants.
type Options struct {
	PatternCap        int
	PreferenceNudge   float64
	ThresholdNudge    float64
	InitialThreshold  float64
	MinThreshold      float64
	MaxThreshold      float64
	SimilarityGate    float64 // pattern match gate for score adjustment
	PredictGate       float64 // similarity gate for prediction neighbors
	PredictMinHistory int
	PredictAgreement  float64
	Clock             func() time.Time
}

// Learner holds the per-user profiles. Safe for concurrent use.
type Learner struct {
	mu       sync.RWMutex
	profiles map[string]*UserPreferenceProfile
	opts     Options
}

// New creates a Learner with optional overrides.
func New(optFns ...func(o *Options)) *Learner {
	opts := Options{
		PatternCap:        50,
		PreferenceNudge:   0.1,
		ThresholdNudge:    0.02,
		InitialThreshold:  0.6,
		MinThreshold:      0.4,
		MaxThreshold:      0.95,
		SimilarityGate:    0.7,
		PredictGate:       0.6,
		PredictMinHistory: 5,
		PredictAgreement:  0.7,
		Clock:             time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Learner{profiles: map[string]*UserPreferenceProfile{}, opts: opts}
}

// profile returns the user's profile, creating it lazily on first use.
// Callers must hold l.mu.
func (l *Learner) profile(userID string) *UserPreferenceProfile {
	p, ok := l.profiles[userID]
	if !ok {
		p = &UserPreferenceProfile{
			PreferredTypes:      map[core.FactType]float64{},
			CategoryPreferences: map[string]float64{},
			ConfidenceThreshold: l.opts.InitialThreshold,
			LastUpdated:         l.opts.Clock().UTC(),
		}
		l.profiles[userID] = p
	}
	return p
}

// RecordFeedback folds one user verdict into the profile: type and category
// preferences are nudged, the normalized "key value" text joins the
// accepted/rejected pattern list, and the confidence threshold drifts when
// the verdict contradicts it (accepting below it, rejecting above it).
func (l *Learner) RecordFeedback(fb Feedback) {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = l.opts.Clock().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.profile(fb.UserID)
	nudge := l.opts.PreferenceNudge
	if fb.Action == FeedbackRejected {
		nudge = -nudge
	}

	// preferences start neutral (0.5) on first touch, then drift
	typePref, ok := p.PreferredTypes[fb.Candidate.Type]
	if !ok {
		typePref = 0.5
	}
	p.PreferredTypes[fb.Candidate.Type] = util.Clamp(typePref+nudge, 0, 1)
	if fb.Candidate.Category != "" {
		catPref, ok := p.CategoryPreferences[fb.Candidate.Category]
		if !ok {
			catPref = 0.5
		}
		p.CategoryPreferences[fb.Candidate.Category] = util.Clamp(catPref+nudge, 0, 1)
	}

	pattern := util.Normalize(fb.Candidate.Key + " " + fb.Candidate.Value)
	if fb.Action == FeedbackAccepted {
		p.AcceptedPatterns = appendCapped(p.AcceptedPatterns, pattern, l.opts.PatternCap)
		if fb.Candidate.Confidence < p.ConfidenceThreshold {
			p.ConfidenceThreshold = util.Clamp(p.ConfidenceThreshold-l.opts.ThresholdNudge, l.opts.MinThreshold, l.opts.MaxThreshold)
		}
	} else {
		p.RejectedPatterns = appendCapped(p.RejectedPatterns, pattern, l.opts.PatternCap)
		if fb.Candidate.Confidence > p.ConfidenceThreshold {
			p.ConfidenceThreshold = util.Clamp(p.ConfidenceThreshold+l.opts.ThresholdNudge, l.opts.MinThreshold, l.opts.MaxThreshold)
		}
	}

	p.FeedbackCount++
	p.LastUpdated = fb.Timestamp
	p.history = append(p.history, fb)
}

// AdaptiveScore reweights a candidate by the user's learned preferences.
// Rejected-pattern similarity dampens hard (x0.3) and takes precedence over
// accepted-pattern similarity (x1.5). Users without a profile get the
// neutral weighting (both preference factors at 0.5).
func (l *Learner) AdaptiveScore(userID string, cand core.EnhancedCandidate) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	base := util.Clamp(cand.Confidence, 0, 1) * util.Clamp(cand.Importance, 0, 1)
	p, ok := l.profiles[userID]
	if !ok {
		return util.Clamp(base*0.75*0.75, 0, 1)
	}

	typePref := 0.5
	if v, have := p.PreferredTypes[cand.Type]; have {
		typePref = v
	}
	catPref := 0.5
	if v, have := p.CategoryPreferences[cand.Category]; have {
		catPref = v
	}

	score := base * (0.5 + typePref*0.5) * (0.5 + catPref*0.5)

	text := util.Normalize(cand.Key + " " + cand.Value)
	if matchesPatterns(text, p.RejectedPatterns, l.opts.SimilarityGate) {
		score *= 0.3
	} else if matchesPatterns(text, p.AcceptedPatterns, l.opts.SimilarityGate) {
		score *= 1.5
	}
	return util.Clamp(score, 0, 1)
}

// ConfidenceThreshold returns the user's learned threshold, or the initial
// default for unknown users.
func (l *Learner) ConfidenceThreshold(userID string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if p, ok := l.profiles[userID]; ok {
		return p.ConfidenceThreshold
	}
	return l.opts.InitialThreshold
}

// PredictUserAction forecasts the user's verdict on a candidate from
// similar historical feedback. It requires enough history and at least one
// similar precedent; mixed signals yield PredictUncertain.
func (l *Learner) PredictUserAction(userID string, cand core.EnhancedCandidate) Prediction {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.profiles[userID]
	if !ok || len(p.history) < l.opts.PredictMinHistory {
		return PredictUncertain
	}

	text := util.Normalize(cand.Key + " " + cand.Value)
	accepted, rejected := 0, 0
	for _, fb := range p.history {
		past := util.Normalize(fb.Candidate.Key + " " + fb.Candidate.Value)
		if util.TrigramSimilarity(text, past) <= l.opts.PredictGate {
			continue
		}
		if fb.Action == FeedbackAccepted {
			accepted++
		} else {
			rejected++
		}
	}

	total := accepted + rejected
	if total == 0 {
		return PredictUncertain
	}
	if float64(accepted)/float64(total) > l.opts.PredictAgreement {
		return PredictAccept
	}
	if float64(rejected)/float64(total) > l.opts.PredictAgreement {
		return PredictReject
	}
	return PredictUncertain
}

// Profile returns a copy of the user's profile, or nil when none exists.
func (l *Learner) Profile(userID string) *UserPreferenceProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.profiles[userID]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// PruneInactive removes profiles untouched for longer than maxAge and
// returns the number removed.
func (l *Learner) PruneInactive(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.opts.Clock().Add(-maxAge)
	removed := 0
	for userID, p := range l.profiles {
		if p.LastUpdated.Before(cutoff) {
			delete(l.profiles, userID)
			removed++
		}
	}
	return removed
}

// ExportProfiles writes all profiles as JSON.
func (l *Learner) ExportProfiles(w io.Writer) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l.profiles)
}

// ImportProfiles replaces the profile set from exported JSON.
func (l *Learner) ImportProfiles(r io.Reader) error {
	var in map[string]*UserPreferenceProfile
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return core.NewValidationError("profiles", "malformed profile export", err)
	}
	if in == nil {
		// A JSON "null" decodes cleanly into a nil map.
		in = map[string]*UserPreferenceProfile{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles = in
	return nil
}

func appendCapped(list []string, entry string, limit int) []string {
	list = append(list, entry)
	if len(list) > limit {
		list = list[len(list)-limit:]
	}
	return list
}

func matchesPatterns(text string, patterns []string, gate float64) bool {
	for _, p := range patterns {
		if util.TrigramSimilarity(text, p) > gate {
			return true
		}
	}
	return false
}
