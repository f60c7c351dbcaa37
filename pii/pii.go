// Package pii contains concrete PIIDetector implementations. The detector
// contract resides in the core package; depend on core.PIIDetector in your
// code and select an implementation at wiring time.
//
// Detection results carry masked match labels only ("email", "phone");
// the raw matched text never leaves this package.
package pii

import (
	"regexp"

	"github.com/memoweave/memoweave/core"
)

type pattern struct {
	label string
	re    *regexp.Regexp
}

// RegexDetector flags common PII shapes: email addresses, phone numbers,
// IBANs and card-like digit runs. It errs on the side of detection; the
// pipeline treats any hit as a hard stop.
type RegexDetector struct {
	patterns []pattern
}

// NewRegexDetector creates a detector with the built-in pattern set.
func NewRegexDetector() *RegexDetector {
	return &RegexDetector{patterns: []pattern{
		{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
		{"phone", regexp.MustCompile(`(\+|00)\d{1,3}[\s\-/]?\d{2,4}([\s\-/]?\d{2,4}){2,4}|\b0\d{2,4}[\s\-/]\d{4,8}\b`)},
		{"iban", regexp.MustCompile(`\b[A-Z]{2}\d{2}[\sA-Z0-9]{11,30}\b`)},
		{"card", regexp.MustCompile(`\b\d{4}[\s\-]?\d{4}[\s\-]?\d{4}[\s\-]?\d{4}\b`)},
	}}
}

// Detect reports whether text contains PII. Matches name the pattern that
// fired, never the matched text itself.
func (d *RegexDetector) Detect(text string) core.PIIResult {
	var result core.PIIResult
	for _, p := range d.patterns {
		if p.re.MatchString(text) {
			result.HasPII = true
			result.Matches = append(result.Matches, p.label)
		}
	}
	return result
}
