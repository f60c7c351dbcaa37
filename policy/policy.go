// Package policy holds the static rules of the memory pipeline: risk
// classification of utterances, auto-save eligibility per fact type and
// default expiry per fact type. The keyword tables are injectable so the
// German/English defaults can be swapped for other locales without touching
// the pipeline.
package policy

import (
	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
)

// RiskTerms groups the keyword tables driving risk classification.
type RiskTerms struct {
	// High risk regardless of fact type: PII-adjacent, health, financial
	// secrets, political opinions.
	High []string
	// Medium risk: ambiguous or identity-adjacent content.
	Medium []string
}

// DefaultRiskTerms covers German and English assistant conversations.
func DefaultRiskTerms() RiskTerms {
	return RiskTerms{
		High: []string{
			// PII-adjacent
			"passwort", "password", "pin", "geheimnummer", "sozialversicherung", "social security",
			"ausweisnummer", "passport number", "steuernummer", "tax id",
			// health
			"krankheit", "diagnose", "medikament", "therapie", "illness", "diagnosis", "medication", "therapy",
			"depression", "allergie", "allergy",
			// financial secrets
			"iban", "kontonummer", "account number", "kreditkarte", "credit card", "gehalt", "salary",
			// political opinion
			"wähle", "wählen", "partei", "politisch", "vote for", "political", "election",
		},
		Medium: []string{
			"religion", "konfession", "glaube", "faith",
			"adresse", "address", "wohnort",
			"geburtstag", "birthday", "geboren", "born",
			"alter", "age",
		},
	}
}

// Policy evaluates static rules. The zero value is not usable; construct via New.
type Policy struct {
	terms RiskTerms
}

// Options configure a Policy.
type Options struct {
	Terms RiskTerms
}

// New creates a Policy with optional overrides.
func New(optFns ...func(o *Options)) *Policy {
	opts := Options{Terms: DefaultRiskTerms()}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Policy{terms: opts.Terms}
}

// ClassifyRisk flags utterances containing sensitive content as high risk
// regardless of fact type, and identity-adjacent content as medium. Contact
// facts are at least medium by nature (they are about other people).
func (p *Policy) ClassifyRisk(text string, factType core.FactType) core.RiskLevel {
	if util.ContainsAny(text, p.terms.High) {
		return core.RiskHigh
	}
	if util.ContainsAny(text, p.terms.Medium) {
		return core.RiskMedium
	}
	if factType == core.FactContact {
		return core.RiskMedium
	}
	return core.RiskLow
}

// CanAutoSave permits auto-save for stable fact types. Task hints are
// inherently ephemeral and go through the suggestion path; the manager
// overrides this only when the combined score clears its ephemeral
// override threshold.
func (p *Policy) CanAutoSave(factType core.FactType) bool {
	switch factType {
	case core.FactPreference, core.FactProfile, core.FactContact, core.FactWorkContext:
		return true
	case core.FactTaskHint:
		return false
	default:
		return false
	}
}

// DefaultTTL returns the ISO-8601 default expiry per fact type. An empty
// string means permanent.
func (p *Policy) DefaultTTL(factType core.FactType) string {
	switch factType {
	case core.FactTaskHint:
		return "P30D"
	case core.FactPreference, core.FactProfile, core.FactContact, core.FactWorkContext:
		return ""
	default:
		return ""
	}
}
