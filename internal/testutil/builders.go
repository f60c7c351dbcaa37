package testutil

import (
	"time"

	"github.com/memoweave/memoweave/core"
)

// CandidateBuilder provides a fluent helper for constructing candidates in tests.
// Example:
//
//	c := NewCandidateBuilder().Type(core.FactPreference).Key("lieblingsfarbe").Value("blau").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type CandidateBuilder struct {
	person     string
	factType   core.FactType
	key        string
	value      string
	confidence float64
	category   string
	importance float64
	volatility core.Volatility
	priority   core.Priority
	tags       []string
}

// NewCandidateBuilder creates a builder with preference defaults.
func NewCandidateBuilder() *CandidateBuilder {
	return &CandidateBuilder{
		factType:   core.FactPreference,
		key:        "lieblingsfarbe",
		value:      "blau",
		confidence: 0.8,
		importance: 0.5,
		volatility: core.VolatilitySemiStable,
		priority:   core.PriorityMedium,
	}
}

// Person sets the subject of the fact (chainable).
func (b *CandidateBuilder) Person(p string) *CandidateBuilder { b.person = p; return b }

// Type sets the fact type (chainable).
func (b *CandidateBuilder) Type(t core.FactType) *CandidateBuilder { b.factType = t; return b }

// Key sets the fact key (chainable).
func (b *CandidateBuilder) Key(k string) *CandidateBuilder { b.key = k; return b }

// Value sets the fact value (chainable).
func (b *CandidateBuilder) Value(v string) *CandidateBuilder { b.value = v; return b }

// Confidence sets the extraction confidence (chainable).
func (b *CandidateBuilder) Confidence(c float64) *CandidateBuilder { b.confidence = c; return b }

// Category sets the adaptive learning category (chainable).
func (b *CandidateBuilder) Category(c string) *CandidateBuilder { b.category = c; return b }

// Importance sets the importance estimate (chainable).
func (b *CandidateBuilder) Importance(i float64) *CandidateBuilder { b.importance = i; return b }

// Volatility sets the volatility class (chainable).
func (b *CandidateBuilder) Volatility(v core.Volatility) *CandidateBuilder {
	b.volatility = v
	return b
}

// Priority sets the priority (chainable).
func (b *CandidateBuilder) Priority(p core.Priority) *CandidateBuilder { b.priority = p; return b }

// Tags sets free-form tags (chainable).
func (b *CandidateBuilder) Tags(tags ...string) *CandidateBuilder { b.tags = tags; return b }

// Build produces the plain Candidate.
func (b *CandidateBuilder) Build() core.Candidate {
	return core.Candidate{
		Person:     b.person,
		Type:       b.factType,
		Key:        b.key,
		Value:      b.value,
		Confidence: b.confidence,
	}
}

// BuildEnhanced produces the EnhancedCandidate variant.
func (b *CandidateBuilder) BuildEnhanced() core.EnhancedCandidate {
	return core.EnhancedCandidate{
		Candidate:  b.Build(),
		Category:   b.category,
		Importance: b.importance,
		Volatility: b.volatility,
		Priority:   b.priority,
		Tags:       b.tags,
	}
}

// ItemBuilder constructs persisted memory items for tests.
type ItemBuilder struct {
	item core.MemoryItem
}

// NewItemBuilder creates a builder with a fresh id and current timestamps.
func NewItemBuilder(userID string) *ItemBuilder {
	now := time.Now().UTC()
	return &ItemBuilder{item: core.MemoryItem{
		ID:         core.NewItemID(),
		UserID:     userID,
		Type:       core.FactPreference,
		Key:        "lieblingsfarbe",
		Value:      "blau",
		Confidence: 0.8,
		CreatedAt:  now,
		UpdatedAt:  now,
	}}
}

// Person sets the subject (chainable).
func (b *ItemBuilder) Person(p string) *ItemBuilder { b.item.Person = p; return b }

// Type sets the fact type (chainable).
func (b *ItemBuilder) Type(t core.FactType) *ItemBuilder { b.item.Type = t; return b }

// Key sets the fact key (chainable).
func (b *ItemBuilder) Key(k string) *ItemBuilder { b.item.Key = k; return b }

// Value sets the fact value (chainable).
func (b *ItemBuilder) Value(v string) *ItemBuilder { b.item.Value = v; return b }

// Confidence sets the confidence (chainable).
func (b *ItemBuilder) Confidence(c float64) *ItemBuilder { b.item.Confidence = c; return b }

// TTL sets the ISO-8601 duration (chainable).
func (b *ItemBuilder) TTL(ttl string) *ItemBuilder { b.item.TTL = ttl; return b }

// Source sets the origin marker (chainable).
func (b *ItemBuilder) Source(s string) *ItemBuilder { b.item.Source = s; return b }

// Age backdates both timestamps by the given duration (chainable).
func (b *ItemBuilder) Age(d time.Duration) *ItemBuilder {
	b.item.CreatedAt = b.item.CreatedAt.Add(-d)
	b.item.UpdatedAt = b.item.UpdatedAt.Add(-d)
	return b
}

// Build returns a copy of the constructed item.
func (b *ItemBuilder) Build() core.MemoryItem { return b.item }

// BuildPtr returns a pointer to a copy of the constructed item.
func (b *ItemBuilder) BuildPtr() *core.MemoryItem {
	item := b.item
	return &item
}
