// Package manager orchestrates the evaluation pipeline: PII gate,
// extraction, per-candidate risk check, worthiness scoring (blended with
// the adaptive score when the user has feedback history), and routing into
// auto-save, suggestion, or rejection. It is the only component that
// coordinates the others; policy, scoring, storage, and consolidation stay
// independent behind it.
package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/memoweave/memoweave/adaptive"
	"github.com/memoweave/memoweave/consolidate"
	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/internal/util"
	"github.com/memoweave/memoweave/logging"
	"github.com/memoweave/memoweave/metrics"
	"github.com/memoweave/memoweave/policy"
	"github.com/memoweave/memoweave/score"
	"github.com/memoweave/memoweave/store"
)

// Rejection tags returned in EvaluationResult.Rejected.
const (
	RejectedPII             = "pii"
	RejectedEvaluationError = "evaluation_error"
)

// EvaluationResult partitions the outcome of one utterance. Ordering inside
// each slice follows candidate order, so results are stable across runs.
type EvaluationResult struct {
	Saved          []*core.MemoryItem         `json:"saved"`
	Suggestions    []core.PendingSuggestion   `json:"suggestions"`
	Rejected       []string                   `json:"rejected"`
	Consolidations []core.ConsolidationResult `json:"consolidations,omitempty"`
}

// Options configure a Manager.
type Options struct {
	// WorthinessWeight and AdaptiveWeight blend the two scores for users
	// with feedback history. Users without a profile are scored by
	// worthiness alone.
	WorthinessWeight float64
	AdaptiveWeight   float64

	// EphemeralOverride is the score at which a fact type excluded from
	// auto-save (a task hint) is persisted anyway, under its default TTL.
	EphemeralOverride float64

	Metrics core.MetricsSink
	Logger  *logging.MemoryLogger
	Clock   func() time.Time
}

// Manager runs the per-utterance pipeline and owns the pending suggestions.
type Manager struct {
	store        *store.FileStore
	policy       *policy.Policy
	scorer       *score.Scorer
	consolidator *consolidate.Consolidator
	learner      *adaptive.Learner
	pii          core.PIIDetector
	extractor    core.Extractor
	opts         Options

	mu      sync.Mutex
	pending map[string]core.PendingSuggestion
}

// New wires a manager from its collaborators. The learner may be nil to
// disable adaptive scoring.
func New(st *store.FileStore, pol *policy.Policy, sc *score.Scorer, cons *consolidate.Consolidator,
	learner *adaptive.Learner, pii core.PIIDetector, extractor core.Extractor, optFns ...func(o *Options)) *Manager {

	opts := Options{
		WorthinessWeight:  0.7,
		AdaptiveWeight:    0.3,
		EphemeralOverride: 0.9,
		Metrics:           core.NopSink{},
		Logger:            logging.NewLogger(logging.DefaultLoggerConfig()),
		Clock:             time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Manager{
		store:        st,
		policy:       pol,
		scorer:       sc,
		consolidator: cons,
		learner:      learner,
		pii:          pii,
		extractor:    extractor,
		opts:         opts,
		pending:      map[string]core.PendingSuggestion{},
	}
}

// EvaluateAndMaybeStore runs the full pipeline for one utterance. It never
// returns pipeline errors to the caller: unexpected failures surface as a
// single "evaluation_error" rejection instead.
func (m *Manager) EvaluateAndMaybeStore(ctx context.Context, userID, utterance string) (result *EvaluationResult, err error) {
	start := m.opts.Clock()
	log := m.opts.Logger.WithComponent("manager").WithUser(userID)

	result = &EvaluationResult{}
	defer func() {
		if r := recover(); r != nil {
			log.Error("evaluation panicked", "panic", fmt.Sprint(r))
			m.emit(metrics.EventError, userID, map[string]any{"stage": "evaluate"})
			result = &EvaluationResult{Rejected: []string{RejectedEvaluationError}}
			err = nil
		}
		log.LogEvaluation(userID, len(result.Saved), len(result.Suggestions), len(result.Rejected), m.opts.Clock().Sub(start))
	}()

	if pii := m.pii.Detect(utterance); pii.HasPII {
		log.Info("utterance rejected by pii gate", "matches", len(pii.Matches))
		m.emit(metrics.EventReject, userID, map[string]any{"reason": "pii"})
		result.Rejected = append(result.Rejected, RejectedPII)
		return result, nil
	}

	candidates, err := m.extractor.Extract(ctx, utterance, "")
	if err != nil {
		evalErr := &core.EvaluationError{Stage: "extract", Err: err}
		log.Error("extraction failed", "error", evalErr.Error())
		m.emit(metrics.EventError, userID, map[string]any{"stage": "extract"})
		result.Rejected = append(result.Rejected, RejectedEvaluationError)
		return result, nil
	}

	existing, err := m.store.ListByUser(userID)
	if err != nil {
		log.Error("store list failed", "error", err.Error())
		m.emit(metrics.EventError, userID, map[string]any{"stage": "list"})
		result.Rejected = append(result.Rejected, RejectedEvaluationError)
		return result, nil
	}

	for _, cand := range candidates {
		m.routeCandidate(userID, cand, existing, result, log)
	}

	return result, nil
}

// routeCandidate risk-checks, scores, and routes one candidate, appending
// its outcome to the result.
func (m *Manager) routeCandidate(userID string, cand core.Candidate, existing []*core.MemoryItem,
	result *EvaluationResult, log *logging.MemoryLogger) {

	if m.policy.ClassifyRisk(cand.Key+" "+cand.Value, cand.Type) == core.RiskHigh {
		result.Rejected = append(result.Rejected, "high_risk:"+cand.Key)
		m.emit(metrics.EventReject, userID, map[string]any{"reason": "high_risk", "key": cand.Key, "fact_type": string(cand.Type)})
		return
	}

	enhanced := m.enhance(cand)
	combined := m.combinedScore(userID, enhanced, existing)

	switch {
	case (m.policy.CanAutoSave(cand.Type) || combined >= m.opts.EphemeralOverride) && combined >= m.scorer.AutoThreshold():
		m.autoSave(userID, enhanced, combined, existing, result, log)

	case combined >= m.scorer.AskThreshold():
		suggestion := core.PendingSuggestion{
			ID:        core.NewID(),
			UserID:    userID,
			Candidate: enhanced,
			Score:     combined,
			CreatedAt: m.opts.Clock(),
		}
		m.mu.Lock()
		m.pending[suggestion.ID] = suggestion
		m.mu.Unlock()
		result.Suggestions = append(result.Suggestions, suggestion)
		m.emit(metrics.EventAsk, userID, map[string]any{"key": cand.Key, "fact_type": string(cand.Type), "score": combined})

	default:
		result.Rejected = append(result.Rejected, "low_score:"+cand.Key)
		m.emit(metrics.EventReject, userID, map[string]any{"reason": "low_score", "key": cand.Key, "score": combined})
	}
}

// autoSave runs the consolidation pass against the pre-save pool, persists
// the candidate, and records the outcome.
func (m *Manager) autoSave(userID string, cand core.EnhancedCandidate, combined float64,
	existing []*core.MemoryItem, result *EvaluationResult, log *logging.MemoryLogger) {

	consolidation := m.consolidator.Consolidate(cand, existing)
	result.Consolidations = append(result.Consolidations, consolidation)

	confidence := cand.Confidence
	switch consolidation.Action {
	case core.ActionMerge:
		if consolidation.Primary != nil {
			confidence = util.Clamp(consolidation.Primary.Confidence+consolidation.ConfidenceChange, 0, 1)
		}
	case core.ActionConflict:
		log.LogConsolidation(userID, cand.Key, string(core.ActionConflict), 0)
		m.emit(metrics.EventConsolidate, userID, map[string]any{
			"action": string(core.ActionConflict), "key": cand.Key, "reason": consolidation.ConflictReason,
		})
	}

	item, err := m.store.Upsert(userID, store.UpsertInput{
		Person:     cand.Person,
		Type:       cand.Type,
		Key:        cand.Key,
		Value:      cand.Value,
		Confidence: confidence,
		TTL:        m.policy.DefaultTTL(cand.Type),
		Tags:       cand.Tags,
		Metadata: map[string]string{
			"volatility": string(cand.Volatility),
			"importance": fmt.Sprintf("%.2f", cand.Importance),
		},
	})
	if err != nil {
		log.Error("auto-save failed", "key", cand.Key, "error", err.Error())
		result.Rejected = append(result.Rejected, "save_error:"+cand.Key)
		m.emit(metrics.EventError, userID, map[string]any{"stage": "save", "key": cand.Key})
		return
	}

	result.Saved = append(result.Saved, item)
	m.emit(metrics.EventSave, userID, map[string]any{"key": cand.Key, "fact_type": string(cand.Type), "score": combined})
}

// combinedScore blends worthiness with the adaptive score for users that
// have feedback history. Without a learner or profile the worthiness score
// stands alone.
func (m *Manager) combinedScore(userID string, cand core.EnhancedCandidate, existing []*core.MemoryItem) float64 {
	worthiness := m.scorer.Score(cand.Candidate, existing)
	if m.learner == nil || m.learner.Profile(userID) == nil {
		return worthiness
	}
	adaptiveScore := util.Clamp(m.learner.AdaptiveScore(userID, cand), 0, 1)
	return util.Clamp(m.opts.WorthinessWeight*worthiness+m.opts.AdaptiveWeight*adaptiveScore, 0, 1)
}

// enhance lifts a raw candidate and fills in the heuristic attributes the
// extended pipeline uses.
func (m *Manager) enhance(cand core.Candidate) core.EnhancedCandidate {
	enhanced := core.Enhance(cand)
	enhanced.Volatility = volatilityFor(cand)
	enhanced.Importance = importanceFor(cand.Type)
	enhanced.Category = categoryFor(cand.Type)
	return enhanced
}

// identityKeys are facts that practically never change once known.
var identityKeys = map[string]bool{
	"name":       true,
	"geburtstag": true,
	"birthday":   true,
}

func volatilityFor(cand core.Candidate) core.Volatility {
	if identityKeys[util.Normalize(cand.Key)] {
		return core.VolatilityStatic
	}
	switch cand.Type {
	case core.FactTaskHint, core.FactWorkContext:
		return core.VolatilityDynamic
	default:
		return core.VolatilitySemiStable
	}
}

func importanceFor(t core.FactType) float64 {
	switch t {
	case core.FactProfile, core.FactContact:
		return 0.8
	case core.FactPreference, core.FactWorkContext:
		return 0.6
	default:
		return 0.3
	}
}

func categoryFor(t core.FactType) string {
	switch t {
	case core.FactProfile:
		return "identity"
	case core.FactPreference:
		return "preferences"
	case core.FactContact:
		return "contact"
	case core.FactWorkContext:
		return "work"
	default:
		return "tasks"
	}
}

// SaveSuggestion is the only path that persists a suggestion. It re-validates
// ownership and fails with a ValidationError wrapping ErrOwnershipMismatch
// when the caller does not own the suggestion.
func (m *Manager) SaveSuggestion(ctx context.Context, userID string, suggestion core.PendingSuggestion) (*core.MemoryItem, error) {
	if suggestion.UserID != userID {
		return nil, &core.ValidationError{
			Field:  "user_id",
			Reason: "suggestion belongs to a different user",
			Err:    core.ErrOwnershipMismatch,
		}
	}

	cand := suggestion.Candidate
	item, err := m.store.Upsert(userID, store.UpsertInput{
		Person:     cand.Person,
		Type:       cand.Type,
		Key:        cand.Key,
		Value:      cand.Value,
		Confidence: cand.Confidence,
		TTL:        m.policy.DefaultTTL(cand.Type),
		Tags:       cand.Tags,
		Metadata: map[string]string{
			"volatility": string(cand.Volatility),
			"importance": fmt.Sprintf("%.2f", cand.Importance),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persist suggestion: %w", err)
	}

	m.mu.Lock()
	delete(m.pending, suggestion.ID)
	m.mu.Unlock()

	if m.learner != nil {
		m.learner.RecordFeedback(adaptive.Feedback{
			UserID:    userID,
			Action:    adaptive.FeedbackAccepted,
			Candidate: cand,
			Timestamp: m.opts.Clock(),
		})
	}

	m.emit(metrics.EventSave, userID, map[string]any{"key": cand.Key, "fact_type": string(cand.Type), "score": suggestion.Score, "source": "suggestion"})
	return item, nil
}

// RejectSuggestion drops a pending suggestion and feeds the rejection into
// the learner so future similar candidates score lower.
func (m *Manager) RejectSuggestion(userID, suggestionID string) error {
	m.mu.Lock()
	suggestion, ok := m.pending[suggestionID]
	if ok && suggestion.UserID == userID {
		delete(m.pending, suggestionID)
	}
	m.mu.Unlock()

	if !ok {
		return &core.ValidationError{Field: "suggestion_id", Reason: "unknown suggestion"}
	}
	if suggestion.UserID != userID {
		return &core.ValidationError{
			Field:  "user_id",
			Reason: "suggestion belongs to a different user",
			Err:    core.ErrOwnershipMismatch,
		}
	}

	if m.learner != nil {
		m.learner.RecordFeedback(adaptive.Feedback{
			UserID:    userID,
			Action:    adaptive.FeedbackRejected,
			Candidate: suggestion.Candidate,
			Timestamp: m.opts.Clock(),
		})
	}
	m.emit(metrics.EventReject, userID, map[string]any{"reason": "declined", "key": suggestion.Candidate.Key})
	return nil
}

// PendingSuggestion looks up a held suggestion by id, scoped to the user.
func (m *Manager) PendingSuggestion(userID, suggestionID string) (core.PendingSuggestion, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	suggestion, ok := m.pending[suggestionID]
	if !ok || suggestion.UserID != userID {
		return core.PendingSuggestion{}, false
	}
	return suggestion, true
}

// PendingSuggestions lists the user's held suggestions, newest first.
func (m *Manager) PendingSuggestions(userID string) []core.PendingSuggestion {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.PendingSuggestion
	for _, s := range m.pending {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Manager) emit(eventType, userID string, fields map[string]any) {
	m.opts.Metrics.Emit(core.NewMetricsEvent(eventType, userID, fields))
}
