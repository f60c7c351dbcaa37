package core

import (
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// MemoryItem is a persisted fact owned by a user. At most one active
// (non-expired) item may exist per dedup key (UserID, Type, Key, Person);
// the store enforces this via upsert semantics.
//
// TTL is an ISO-8601 duration string ("P30D"); empty means permanent.
// Source is set by the summarizer for synthetic items so they are never
// re-summarized.
type MemoryItem struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Person     string            `json:"person,omitempty"`
	Type       FactType          `json:"type"`
	Key        string            `json:"key"`
	Value      string            `json:"value"`
	Confidence float64           `json:"confidence"`
	TTL        string            `json:"ttl,omitempty"`
	Source     string            `json:"source,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// DedupKey returns the tuple identifying "the same fact slot" over time.
// Key comparison is case-insensitive and whitespace-trimmed.
func (m *MemoryItem) DedupKey() string {
	return DedupKey(m.UserID, m.Type, m.Key, m.Person)
}

// DedupKey builds the canonical dedup tuple for a fact slot.
func DedupKey(userID string, factType FactType, key, person string) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	return fmt.Sprintf("%s|%s|%s|%s", userID, factType, norm(key), norm(person))
}

// Candidate is an extracted, unpersisted fact proposal. Candidates are
// created and destroyed within a single evaluation call; they never reach
// the store as-is.
type Candidate struct {
	Person     string   `json:"person,omitempty"`
	Type       FactType `json:"type"`
	Key        string   `json:"key"`
	Value      string   `json:"value"`
	Confidence float64  `json:"confidence"`
}

// EnhancedCandidate augments a Candidate with the richer attributes the
// extended pipeline uses for adaptive scoring and consolidation.
type EnhancedCandidate struct {
	Candidate
	Category      string     `json:"category,omitempty"`
	Importance    float64    `json:"importance"`
	Volatility    Volatility `json:"volatility,omitempty"`
	Priority      Priority   `json:"priority,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Relationships []string   `json:"relationships,omitempty"`
}

// Enhance lifts a plain Candidate into an EnhancedCandidate with neutral
// defaults for the extended attributes.
func Enhance(c Candidate) EnhancedCandidate {
	return EnhancedCandidate{
		Candidate:  c,
		Importance: 0.5,
		Volatility: VolatilitySemiStable,
		Priority:   PriorityMedium,
	}
}

// PendingSuggestion is a candidate that scored in the "ask" band. It is a
// distinct type from MemoryItem on purpose: a suggestion has never been
// persisted, and only an explicit consent call that re-validates ownership
// may commit it.
type PendingSuggestion struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Candidate EnhancedCandidate `json:"candidate"`
	Score     float64           `json:"score"`
	CreatedAt time.Time         `json:"created_at"`
}

// ConsolidationResult describes how a new candidate reconciles against the
// existing pool.
type ConsolidationResult struct {
	Action           ConsolidationAction `json:"action"`
	Primary          *MemoryItem         `json:"primary,omitempty"`
	Related          []*MemoryItem       `json:"related,omitempty"`
	ConflictReason   string              `json:"conflict_reason,omitempty"`
	ConfidenceChange float64             `json:"confidence_change,omitempty"`
}

// RankedResult is a retrieved memory with its ranking components.
type RankedResult struct {
	Item       *MemoryItem `json:"item"`
	Similarity float64     `json:"similarity"`
	Recency    float64     `json:"recency"`
	Score      float64     `json:"score"`
}

// NewID generates a new unique identifier for events and suggestions.
func NewID() string { return uuid.NewString() }

// NewItemID generates a lexicographically sortable identifier for persisted
// memory items. ULIDs sort by creation time, which keeps store listings and
// JSON diffs stable.
func NewItemID() string { return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String() }
