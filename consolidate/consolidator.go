// Package consolidate reconciles new fact candidates against a user's
// existing memory pool: equivalent facts merge, fresher facts update stale
// ones, and contradictory facts surface as conflicts instead of silently
// overwriting. It also provides pool cleanup, collapsing near-duplicate
// items and dropping weak singletons.
package consolidate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
)

// Options configure a Consolidator. Thresholds are hand-tuned constants kept
// as configuration pending calibration.
type Options struct {
	// SimilarThreshold marks items as reconciliation candidates.
	SimilarThreshold float64
	// CleanupThreshold groups items during pool cleanup.
	CleanupThreshold float64
	// UpdateMargin is the confidence lead a candidate needs to override a
	// conflicting value.
	UpdateMargin float64
	Synonyms     SynonymTable
}

// Consolidator implements the merge / update / conflict / add_new decision
// ladder. Safe for concurrent use; all state is read-only after construction.
type Consolidator struct {
	opts Options
}

// New creates a Consolidator with optional overrides.
func New(optFns ...func(o *Options)) *Consolidator {
	opts := Options{
		SimilarThreshold: 0.7,
		CleanupThreshold: 0.8,
		UpdateMargin:     0.2,
		Synonyms:         DefaultSynonyms(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Consolidator{opts: opts}
}

// Similarity scores how strongly a candidate and an existing item talk about
// the same fact: person and type agreement plus key and value text overlap.
// Keys from the same synonym group count as fully equivalent.
func (c *Consolidator) Similarity(cand core.EnhancedCandidate, item *core.MemoryItem) float64 {
	score := 0.0
	if util.Normalize(cand.Person) == util.Normalize(item.Person) {
		score += 0.3
	}
	if cand.Type == item.Type {
		score += 0.2
	}
	score += 0.3 * c.keySimilarity(cand.Key, item.Key)
	score += 0.2 * util.TrigramSimilarity(cand.Value, item.Value)
	return score
}

func (c *Consolidator) keySimilarity(a, b string) float64 {
	if c.opts.Synonyms.SameGroup(a, b) {
		return 1.0
	}
	return util.TrigramSimilarity(a, b)
}

// Consolidate decides how the candidate reconciles against the pool.
// Decision order: exact-slot merge, exact-slot update/conflict, synonym-group
// merge, semantic contradiction, add_new.
func (c *Consolidator) Consolidate(cand core.EnhancedCandidate, pool []*core.MemoryItem) core.ConsolidationResult {
	slot := core.DedupKey("", cand.Type, cand.Key, cand.Person)

	// 1 + 2: exact dedup-key match
	for _, item := range pool {
		if core.DedupKey("", item.Type, item.Key, item.Person) != slot {
			continue
		}
		if util.Normalize(item.Value) == util.Normalize(cand.Value) {
			boost := math.Min(0.1, (1.0-item.Confidence)*0.5)
			return core.ConsolidationResult{
				Action:           core.ActionMerge,
				Primary:          item,
				ConfidenceChange: boost,
			}
		}
		vol := itemVolatility(item, cand.Volatility)
		if (vol == core.VolatilityDynamic || vol == core.VolatilitySemiStable) &&
			cand.Confidence > item.Confidence+0.1 {
			return core.ConsolidationResult{
				Action:           core.ActionUpdate,
				Primary:          item,
				ConfidenceChange: cand.Confidence - item.Confidence,
			}
		}
		return core.ConsolidationResult{
			Action:         core.ActionConflict,
			Primary:        item,
			ConflictReason: "static information conflict",
		}
	}

	similar := c.similarItems(cand, pool)

	// 3: same semantic group, no exact slot
	if best := c.bestSynonymMatch(cand, similar); best != nil {
		return core.ConsolidationResult{
			Action:  core.ActionMerge,
			Primary: best,
			Related: similar,
		}
	}

	// 4: semantically same but contradictory
	if contradictor := strongestContradictor(cand, similar); contradictor != nil {
		if cand.Confidence > contradictor.Confidence+c.opts.UpdateMargin {
			return core.ConsolidationResult{
				Action:           core.ActionUpdate,
				Primary:          contradictor,
				ConfidenceChange: cand.Confidence - contradictor.Confidence,
			}
		}
		return core.ConsolidationResult{
			Action:         core.ActionConflict,
			Primary:        contradictor,
			ConflictReason: "contradictory values for equivalent fact",
		}
	}

	// 5: genuinely new
	return core.ConsolidationResult{Action: core.ActionAddNew}
}

func (c *Consolidator) similarItems(cand core.EnhancedCandidate, pool []*core.MemoryItem) []*core.MemoryItem {
	var out []*core.MemoryItem
	for _, item := range pool {
		if c.Similarity(cand, item) >= c.opts.SimilarThreshold {
			out = append(out, item)
		}
	}
	return out
}

func (c *Consolidator) bestSynonymMatch(cand core.EnhancedCandidate, similar []*core.MemoryItem) *core.MemoryItem {
	var best *core.MemoryItem
	bestScore := -1.0
	for _, item := range similar {
		if !c.opts.Synonyms.SameGroup(cand.Key, item.Key) {
			continue
		}
		if contradictoryValues(cand.Value, item.Value) {
			continue // contradiction handling owns this pair
		}
		if s := c.Similarity(cand, item); s > bestScore {
			best, bestScore = item, s
		}
	}
	return best
}

func strongestContradictor(cand core.EnhancedCandidate, similar []*core.MemoryItem) *core.MemoryItem {
	var strongest *core.MemoryItem
	for _, item := range similar {
		if !contradictoryValues(cand.Value, item.Value) {
			continue
		}
		if strongest == nil || item.Confidence > strongest.Confidence {
			strongest = item
		}
	}
	return strongest
}

// itemVolatility reads the volatility recorded at save time, falling back to
// the candidate's own estimate for items persisted before tracking existed.
func itemVolatility(item *core.MemoryItem, fallback core.Volatility) core.Volatility {
	if v, ok := item.Metadata["volatility"]; ok && v != "" {
		return core.Volatility(v)
	}
	if fallback != "" {
		return fallback
	}
	return core.VolatilitySemiStable
}

var negationMarkers = []string{"nicht", "kein", "keine", "not", "never", "nie"}

// exclusiveSets are value vocabularies where two different members cannot
// both hold for the same fact slot.
var exclusiveSets = [][]string{
	{"rot", "blau", "grün", "gruen", "gelb", "schwarz", "weiß", "weiss", "orange", "lila", "rosa",
		"red", "blue", "green", "yellow", "black", "white", "purple", "pink"},
	{"ja", "nein", "yes", "no"},
}

// contradictoryValues reports whether two values cannot both be true:
// either a negation mismatch or two distinct members of a mutually
// exclusive value set.
func contradictoryValues(a, b string) bool {
	na, nb := util.Normalize(a), util.Normalize(b)
	if na == nb {
		return false
	}
	if hasNegation(na) != hasNegation(nb) {
		// negation flip over otherwise overlapping text
		if util.TrigramSimilarity(stripNegation(na), stripNegation(nb)) > 0.5 {
			return true
		}
	}
	for _, set := range exclusiveSets {
		memberA, memberB := "", ""
		for _, member := range set {
			if containsWord(na, member) {
				memberA = member
			}
			if containsWord(nb, member) {
				memberB = member
			}
		}
		if memberA != "" && memberB != "" && memberA != memberB {
			return true
		}
	}
	return false
}

func hasNegation(s string) bool {
	for _, tok := range strings.Fields(s) {
		for _, marker := range negationMarkers {
			if tok == marker {
				return true
			}
		}
	}
	return false
}

func stripNegation(s string) string {
	var kept []string
	for _, tok := range strings.Fields(s) {
		negated := false
		for _, marker := range negationMarkers {
			if tok == marker {
				negated = true
				break
			}
		}
		if !negated {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

func containsWord(s, word string) bool {
	for _, tok := range strings.Fields(s) {
		if tok == word {
			return true
		}
	}
	return false
}

// CleanupReport summarizes one pool cleanup pass.
type CleanupReport struct {
	Kept    []*core.MemoryItem
	Dropped []*core.MemoryItem
	Merged  int
}

// CleanupMemories groups items with pairwise similarity above the cleanup
// threshold. Weak singletons (confidence < 0.3 or importance < 0.2) are
// dropped; multi-item groups collapse to the highest-confidence member with
// unioned tags and a small confidence bump per corroborating duplicate.
func (c *Consolidator) CleanupMemories(pool []*core.MemoryItem) CleanupReport {
	n := len(pool)
	visited := make([]bool, n)
	var report CleanupReport

	for i := 0; i < n; i++ {
		if visited[i] {
			continue
		}
		group := []*core.MemoryItem{pool[i]}
		visited[i] = true
		for j := i + 1; j < n; j++ {
			if visited[j] {
				continue
			}
			if c.itemSimilarity(pool[i], pool[j]) > c.opts.CleanupThreshold {
				group = append(group, pool[j])
				visited[j] = true
			}
		}

		if len(group) == 1 {
			item := group[0]
			if item.Confidence < 0.3 || itemImportance(item) < 0.2 {
				report.Dropped = append(report.Dropped, item)
				continue
			}
			report.Kept = append(report.Kept, item)
			continue
		}

		survivor := collapseGroup(group)
		report.Kept = append(report.Kept, survivor)
		report.Merged += len(group) - 1
		for _, item := range group {
			if item.ID != survivor.ID {
				report.Dropped = append(report.Dropped, item)
			}
		}
	}
	return report
}

func (c *Consolidator) itemSimilarity(a, b *core.MemoryItem) float64 {
	score := 0.0
	if util.Normalize(a.Person) == util.Normalize(b.Person) {
		score += 0.3
	}
	if a.Type == b.Type {
		score += 0.2
	}
	score += 0.3 * c.keySimilarity(a.Key, b.Key)
	score += 0.2 * util.TrigramSimilarity(a.Value, b.Value)
	return score
}

func collapseGroup(group []*core.MemoryItem) *core.MemoryItem {
	sort.SliceStable(group, func(i, j int) bool { return group[i].Confidence > group[j].Confidence })
	survivor := *group[0]
	for _, other := range group[1:] {
		survivor.Tags = unionStrings(survivor.Tags, other.Tags)
		// each corroborating duplicate nudges confidence up
		survivor.Confidence = util.Clamp(survivor.Confidence+0.02, 0, 1)
	}
	return &survivor
}

func itemImportance(item *core.MemoryItem) float64 {
	if v, ok := item.Metadata["importance"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return 0.5
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
