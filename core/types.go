package core

// FactType is the closed set of fact categories a memory item can carry.
// Risk classification, auto-save policy and consolidation all switch
// exhaustively over this type; unknown values are rejected at the boundary
// via Valid() instead of falling through silently.
type FactType string

const (
	// FactPreference captures likes, dislikes and settings ("favorite color").
	FactPreference FactType = "preference"
	// FactProfile captures stable identity facts (name, birthday, hometown).
	FactProfile FactType = "profile_fact"
	// FactContact captures people and how to reach them.
	FactContact FactType = "contact"
	// FactTaskHint captures short-lived intent ("remind me to...").
	FactTaskHint FactType = "task_hint"
	// FactWorkContext captures employer, role and project facts.
	FactWorkContext FactType = "work_context"
)

// AllFactTypes enumerates every valid fact type, in a stable order.
var AllFactTypes = []FactType{FactPreference, FactProfile, FactContact, FactTaskHint, FactWorkContext}

// Valid reports whether t is a member of the closed fact type set.
func (t FactType) Valid() bool {
	switch t {
	case FactPreference, FactProfile, FactContact, FactTaskHint, FactWorkContext:
		return true
	default:
		return false
	}
}

// Volatility classifies how likely a fact is to change over time. It drives
// the update-vs-conflict decision during consolidation.
type Volatility string

const (
	// VolatilityStatic marks facts that essentially never change (a name).
	VolatilityStatic Volatility = "static"
	// VolatilitySemiStable marks facts that change slowly (an employer).
	VolatilitySemiStable Volatility = "semi_stable"
	// VolatilityDynamic marks facts expected to change (current task).
	VolatilityDynamic Volatility = "dynamic"
)

// Priority expresses the extractor's urgency estimate for a candidate.
type Priority string

const (
	// PriorityLow marks nice-to-have context.
	PriorityLow Priority = "low"
	// PriorityMedium is the default priority.
	PriorityMedium Priority = "medium"
	// PriorityHigh marks facts the assistant should not lose.
	PriorityHigh Priority = "high"
)

// RiskLevel is the outcome of policy risk classification for an utterance.
type RiskLevel string

const (
	// RiskLow permits normal processing.
	RiskLow RiskLevel = "low"
	// RiskMedium permits processing but blocks auto-save shortcuts.
	RiskMedium RiskLevel = "medium"
	// RiskHigh rejects the candidate outright.
	RiskHigh RiskLevel = "high"
)

// ConsolidationAction is the decision the consolidator reaches for a new
// candidate measured against the existing pool.
type ConsolidationAction string

const (
	// ActionMerge folds the candidate into an existing equivalent item.
	ActionMerge ConsolidationAction = "merge"
	// ActionUpdate replaces an existing item's value with the candidate's.
	ActionUpdate ConsolidationAction = "update"
	// ActionConflict flags contradictory values without resolving them.
	ActionConflict ConsolidationAction = "conflict"
	// ActionAddNew stores the candidate as a brand new item.
	ActionAddNew ConsolidationAction = "add_new"
)
