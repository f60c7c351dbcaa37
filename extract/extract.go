// Package extract provides candidate extractors. The PatternExtractor in
// this package matches German and English statement patterns without any
// model call, which makes it suitable for tests and offline use; the
// anthropic subpackage provides the Claude-backed extractor.
package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/memoweave/memoweave/core"
)

// pattern binds a compiled regexp to the fact slot it fills. The first
// capture group is the value.
type pattern struct {
	re         *regexp.Regexp
	factType   core.FactType
	key        string
	confidence float64
}

// PatternExtractor extracts fact candidates via curated regex patterns.
type PatternExtractor struct {
	patterns []pattern
}

var _ core.Extractor = (*PatternExtractor)(nil)

// NewPatternExtractor creates an extractor with the built-in German and
// English patterns.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{patterns: defaultPatterns()}
}

func defaultPatterns() []pattern {
	mk := func(expr string, t core.FactType, key string, conf float64) pattern {
		return pattern{re: regexp.MustCompile(expr), factType: t, key: key, confidence: conf}
	}
	return []pattern{
		// Profile
		mk(`(?i)\bich heiße\s+([\p{L}\- ]{2,40})`, core.FactProfile, "name", 0.9),
		mk(`(?i)\bmein name ist\s+([\p{L}\- ]{2,40})`, core.FactProfile, "name", 0.9),
		mk(`(?i)\bmy name is\s+([\p{L}\- ]{2,40})`, core.FactProfile, "name", 0.9),
		mk(`(?i)\bich wohne in\s+([\p{L}\- ]{2,40})`, core.FactProfile, "wohnort", 0.85),
		mk(`(?i)\bi live in\s+([\p{L}\- ]{2,40})`, core.FactProfile, "wohnort", 0.85),
		mk(`(?i)\bich bin\s+(\d{1,3})\s+jahre alt\b`, core.FactProfile, "alter", 0.85),

		// Preferences
		mk(`(?i)\bmeine lieblingsfarbe ist\s+([\p{L}\- ]{2,30})`, core.FactPreference, "lieblingsfarbe", 0.85),
		mk(`(?i)\bmy favorite color is\s+([\p{L}\- ]{2,30})`, core.FactPreference, "lieblingsfarbe", 0.85),
		mk(`(?i)\bmein lieblingsessen ist\s+([\p{L}\- ]{2,40})`, core.FactPreference, "lieblingsessen", 0.8),
		mk(`(?i)\bich mag\s+([\p{L}\- ]{2,40})\s+(?:sehr|gern|gerne)\b`, core.FactPreference, "vorliebe", 0.65),
		mk(`(?i)\bi really like\s+([\p{L}\- ]{2,40})`, core.FactPreference, "vorliebe", 0.65),

		// Work context
		mk(`(?i)\bich arbeite bei\s+([\p{L}\d\- ]{2,40})`, core.FactWorkContext, "arbeitgeber", 0.85),
		mk(`(?i)\bi work at\s+([\p{L}\d\- ]{2,40})`, core.FactWorkContext, "arbeitgeber", 0.85),
		mk(`(?i)\bich arbeite als\s+([\p{L}\- ]{2,40})`, core.FactWorkContext, "beruf", 0.8),
		mk(`(?i)\bi work as an?\s+([\p{L}\- ]{2,40})`, core.FactWorkContext, "beruf", 0.8),

		// Contact
		mk(`(?i)\bmeine e-?mail(?:-adresse)? ist\s+(\S+@\S+)`, core.FactContact, "email", 0.9),
		mk(`(?i)\bmy e-?mail is\s+(\S+@\S+)`, core.FactContact, "email", 0.9),

		// Task hints
		mk(`(?i)\bich muss (?:noch\s+)?([\p{L}\d\- ]{3,60})\b`, core.FactTaskHint, "aufgabe", 0.5),
		mk(`(?i)\bi need to\s+([\p{L}\d\- ]{3,60})\b`, core.FactTaskHint, "aufgabe", 0.5),
	}
}

// Extract returns all pattern matches as candidates. The personContext is
// attached as the candidate's person when the utterance talks about someone
// other than the speaker.
func (p *PatternExtractor) Extract(_ context.Context, utterance, personContext string) ([]core.Candidate, error) {
	var out []core.Candidate
	seen := map[string]bool{}
	for _, pat := range p.patterns {
		m := pat.re.FindStringSubmatch(utterance)
		if m == nil {
			continue
		}
		value := trimValue(m[1])
		if value == "" {
			continue
		}
		c := core.Candidate{
			Type:       pat.factType,
			Key:        pat.key,
			Value:      value,
			Confidence: pat.confidence,
		}
		if personContext != "" && !aboutSpeaker(utterance) {
			c.Person = personContext
		}
		slot := pat.key + "|" + value
		if seen[slot] {
			continue
		}
		seen[slot] = true
		out = append(out, c)
	}
	return out, nil
}

// trimValue cuts a captured value at the first clause boundary so greedy
// character classes do not swallow the rest of the sentence.
func trimValue(raw string) string {
	value := raw
	for _, sep := range []string{" und ", " and ", " aber ", " but ", ",", ".", ";"} {
		if idx := strings.Index(strings.ToLower(value), sep); idx >= 0 {
			value = value[:idx]
		}
	}
	return strings.TrimSpace(value)
}

// aboutSpeaker reports whether the utterance uses first-person phrasing.
func aboutSpeaker(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, marker := range []string{"ich ", "mein", "my ", "i "} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
