// Package score implements the worthiness heuristic that grades fact
// candidates before persistence. The score is a fixed-weight sum of
// specificity, stability, novelty, extraction confidence and two penalty
// factors, clamped to [0,1]. Weights and decision thresholds are
// configuration, not invariants; the defaults are hand-tuned.
package score

import (
	"regexp"
	"strings"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
)

// Action is the recommended routing for a scored candidate.
type Action string

const (
	// ActionAuto recommends persisting without asking.
	ActionAuto Action = "auto"
	// ActionAsk recommends surfacing a suggestion for explicit consent.
	ActionAsk Action = "ask"
	// ActionReject recommends dropping the candidate.
	ActionReject Action = "reject"
)

// Weights holds the factor weights of the worthiness sum.
type Weights struct {
	Specificity   float64
	Stability     float64
	Novelty       float64
	Confidence    float64
	Interrogative float64
	Ephemeral     float64
}

// DefaultWeights is the reference weighting (sums to 1.0).
var DefaultWeights = Weights{
	Specificity:   0.25,
	Stability:     0.25,
	Novelty:       0.25,
	Confidence:    0.15,
	Interrogative: 0.05,
	Ephemeral:     0.05,
}

// Options configure a Scorer.
type Options struct {
	Weights Weights
	// AutoThreshold routes scores at or above it to auto-save.
	AutoThreshold float64
	// AskThreshold routes scores at or above it (below auto) to suggestions.
	AskThreshold float64
}

// Scorer grades fact candidates. Safe for concurrent use; all state is
// read-only after construction.
type Scorer struct {
	opts Options
}

// New creates a Scorer with optional overrides.
func New(optFns ...func(o *Options)) *Scorer {
	opts := Options{Weights: DefaultWeights, AutoThreshold: 0.75, AskThreshold: 0.5}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scorer{opts: opts}
}

var (
	fillerWords = map[string]struct{}{
		"yes": {}, "no": {}, "ok": {}, "okay": {}, "good": {}, "nice": {}, "fine": {},
		"ja": {}, "nein": {}, "gut": {}, "schön": {}, "vielleicht": {}, "maybe": {},
	}

	stableWords = map[string]struct{}{
		"always": {}, "immer": {}, "is": {}, "ist": {}, "named": {}, "heißt": {}, "heisst": {},
		"favorite": {}, "favourite": {}, "lieblings": {},
	}

	habitualWords = map[string]struct{}{
		"usually": {}, "often": {}, "meistens": {}, "oft": {}, "normalerweise": {}, "gewöhnlich": {},
	}

	transientWords = map[string]struct{}{
		"today": {}, "now": {}, "soon": {}, "tonight": {},
		"heute": {}, "jetzt": {}, "bald": {}, "gleich": {}, "gerade": {},
	}

	interrogativeWords = map[string]struct{}{
		"who": {}, "what": {}, "when": {}, "where": {}, "why": {}, "how": {},
		"wer": {}, "was": {}, "wann": {}, "wo": {}, "warum": {}, "wie": {}, "welche": {}, "welcher": {},
	}

	emailLikeRe  = regexp.MustCompile(`\S+@\S+\.\S+|\b[a-z0-9-]+\.(com|org|net|de|io|dev)\b`)
	dateTimeRe   = regexp.MustCompile(`\b\d{1,2}[:.]\d{2}\b|\b\d{1,2}\.\d{1,2}\.(\d{2,4})?\b|\b\d{4}-\d{2}-\d{2}\b`)
	relativeTime = []string{"heute", "morgen", "übermorgen", "nächste woche", "nächsten", "today", "tomorrow", "tonight", "next week", "in an hour"}
)

// Score computes the worthiness of a candidate against the user's existing
// memories, clamped to [0,1]. Scores depend only on data, never call order.
func (s *Scorer) Score(c core.Candidate, existing []*core.MemoryItem) float64 {
	w := s.opts.Weights
	total := w.Specificity*s.specificity(c.Value) +
		w.Stability*s.stability(c) +
		w.Novelty*s.Novelty(c, existing) +
		w.Confidence*util.Clamp(c.Confidence, 0, 1) +
		w.Interrogative*interrogativeFactor(c) +
		w.Ephemeral*ephemeralFactor(c.Value)
	return util.Clamp(total, 0, 1)
}

// RecommendedAction maps a score onto the auto / ask / reject bands.
func (s *Scorer) RecommendedAction(score float64) Action {
	switch {
	case score >= s.opts.AutoThreshold:
		return ActionAuto
	case score >= s.opts.AskThreshold:
		return ActionAsk
	default:
		return ActionReject
	}
}

// AutoThreshold exposes the configured auto-save boundary.
func (s *Scorer) AutoThreshold() float64 { return s.opts.AutoThreshold }

// AskThreshold exposes the configured suggestion boundary.
func (s *Scorer) AskThreshold() float64 { return s.opts.AskThreshold }

// specificity rewards values in a useful length band and concrete tokens,
// and punishes filler answers.
func (s *Scorer) specificity(value string) float64 {
	trimmed := strings.TrimSpace(value)
	n := len([]rune(trimmed))

	var base float64
	switch {
	case n < 2:
		base = 0.2
	case n <= 40:
		base = 1.0
	case n <= 100:
		// linear decay 1.0 -> 0.4 over (40,100]
		base = 1.0 - 0.6*float64(n-40)/60.0
	default:
		base = 0.4
	}

	if _, ok := fillerWords[util.Normalize(trimmed)]; ok {
		base *= 0.3
	}
	if util.HasProperNoun(trimmed) {
		base *= 1.2
	}
	if util.HasDigits(trimmed) || emailLikeRe.MatchString(strings.ToLower(trimmed)) {
		base *= 1.1
	}
	return util.Clamp(base, 0, 1)
}

// stability estimates how durable the stated fact is. The first matching
// keyword category wins, in stable > habitual > transient priority order.
func (s *Scorer) stability(c core.Candidate) float64 {
	base := 0.5
	tokens := util.Tokens(c.Key + " " + c.Value)
	switch {
	case matchesAny(tokens, stableWords):
		base += 0.3
	case matchesAny(tokens, habitualWords):
		base += 0.2
	case matchesAny(tokens, transientWords):
		base -= 0.4
	}

	switch c.Type {
	case core.FactProfile:
		base += 0.2
	case core.FactPreference:
		base += 0.1
	case core.FactTaskHint:
		base -= 0.1
	case core.FactContact, core.FactWorkContext:
		// neutral
	}
	return util.Clamp(base, 0, 1)
}

// Novelty is 1.0 when no existing item occupies the candidate's fact slot;
// otherwise 1 minus the strongest trigram similarity to the stored values of
// that slot.
func (s *Scorer) Novelty(c core.Candidate, existing []*core.MemoryItem) float64 {
	slot := core.DedupKey("", c.Type, c.Key, c.Person)
	maxSim := -1.0
	for _, item := range existing {
		if core.DedupKey("", item.Type, item.Key, item.Person) != slot {
			continue
		}
		if sim := util.TrigramSimilarity(c.Value, item.Value); sim > maxSim {
			maxSim = sim
		}
	}
	if maxSim < 0 {
		return 1.0
	}
	return util.Clamp(1.0-maxSim, 0, 1)
}

// interrogativeFactor yields 0.2 for question-like candidates, else 1.0.
// Questions are almost never facts worth remembering.
func interrogativeFactor(c core.Candidate) float64 {
	text := c.Key + " " + c.Value
	if strings.Contains(text, "?") {
		return 0.2
	}
	if matchesAny(util.Tokens(text), interrogativeWords) {
		return 0.2
	}
	return 1.0
}

// ephemeralFactor yields 0.3 when the value pins itself to an absolute or
// relative point in time, else 1.0.
func ephemeralFactor(value string) float64 {
	lower := strings.ToLower(value)
	if dateTimeRe.MatchString(lower) {
		return 0.3
	}
	for _, marker := range relativeTime {
		if strings.Contains(lower, marker) {
			return 0.3
		}
	}
	return 1.0
}

func matchesAny(tokens []string, set map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			return true
		}
		// prefix compounds like "lieblingsfarbe"
		if _, ok := set["lieblings"]; ok && strings.HasPrefix(tok, "lieblings") {
			return true
		}
	}
	return false
}
