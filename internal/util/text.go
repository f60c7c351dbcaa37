// Package util contains text normalization and similarity helpers shared by
// the scoring, consolidation and adaptive learning packages. This lives in
// internal to avoid committing to public API stability prematurely.
package util

import (
	"math"
	"strings"
	"unicode"
)

// Normalize lowercases, trims and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Tokens splits a string into normalized word tokens.
func Tokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// trigrams returns the padded 3-gram set of a normalized string. Padding
// with leading/trailing spaces keeps word boundaries significant.
func trigrams(s string) map[string]struct{} {
	s = "  " + Normalize(s) + "  "
	set := make(map[string]struct{}, len(s))
	runes := []rune(s)
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// TrigramSimilarity computes the Jaccard index over padded character
// trigrams of both strings. Returns 1.0 for identical normalized strings
// and 0.0 when nothing overlaps.
func TrigramSimilarity(a, b string) float64 {
	if Normalize(a) == Normalize(b) {
		return 1.0
	}
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0.0
	}
	intersection := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// HasDigits reports whether s contains at least one decimal digit.
func HasDigits(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// HasProperNoun reports whether s contains a capitalized token that is not
// the first word, or a mid-word capital. A cheap proper-noun heuristic.
func HasProperNoun(s string) bool {
	fields := strings.Fields(s)
	for i, f := range fields {
		r := []rune(f)
		if len(r) == 0 {
			continue
		}
		if unicode.IsUpper(r[0]) && len(r) > 1 && !allUpper(r) {
			if i > 0 {
				return true
			}
			// first word counts only when the rest of the string shows it is
			// not mere sentence capitalization (single-word values)
			if len(fields) == 1 {
				return true
			}
		}
	}
	return false
}

func allUpper(r []rune) bool {
	for _, c := range r {
		if unicode.IsLetter(c) && !unicode.IsUpper(c) {
			return false
		}
	}
	return true
}

// ContainsAny reports whether the normalized s contains any of the needles.
func ContainsAny(s string, needles []string) bool {
	n := Normalize(s)
	for _, needle := range needles {
		if strings.Contains(n, needle) {
			return true
		}
	}
	return false
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
