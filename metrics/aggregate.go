package metrics

import (
	"bufio"
	"encoding/json"
	"io"
	"math"
	"sort"

	"github.com/memoweave/memoweave/core"
)

// Report holds the KPIs computed from one pass over the event log.
type Report struct {
	TotalEvents    int            `json:"total_events"`
	MalformedLines int            `json:"malformed_lines"`
	Saves          int            `json:"saves"`
	Asks           int            `json:"asks"`
	Rejects        int            `json:"rejects"`
	Retrievals     int            `json:"retrievals"`
	Errors         int            `json:"errors"`
	SaveRate       float64        `json:"save_rate"`
	AskRate        float64        `json:"ask_rate"`
	RejectRate     float64        `json:"reject_rate"`
	AverageScore   float64        `json:"average_score"`
	RetrievalP50   float64        `json:"retrieval_p50_ms"`
	RetrievalP95   float64        `json:"retrieval_p95_ms"`
	TopKeys        []KeyCount     `json:"top_keys"`
	EventsByType   map[string]int `json:"events_by_type"`
}

// KeyCount pairs a fact key with its occurrence count.
type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Aggregator computes a Report in a single streaming pass. It is not safe
// for concurrent use; create one per aggregation run.
type Aggregator struct {
	report    Report
	scoreSum  float64
	scoreN    int
	latencies []float64
	keyCounts map[string]int
	topKeyCap int
}

// NewAggregator creates an aggregator that reports the top n keys.
func NewAggregator(topKeys int) *Aggregator {
	if topKeys <= 0 {
		topKeys = 10
	}
	return &Aggregator{
		report:    Report{EventsByType: map[string]int{}},
		keyCounts: map[string]int{},
		topKeyCap: topKeys,
	}
}

// Consume folds one event into the running aggregation.
func (a *Aggregator) Consume(event core.MetricsEvent) {
	a.report.TotalEvents++
	a.report.EventsByType[event.Type]++

	switch event.Type {
	case EventSave:
		a.report.Saves++
	case EventAsk:
		a.report.Asks++
	case EventReject:
		a.report.Rejects++
	case EventRetrieve:
		a.report.Retrievals++
		if ms, ok := floatField(event, "latency_ms"); ok {
			a.latencies = append(a.latencies, ms)
		}
	case EventError:
		a.report.Errors++
	}

	if score, ok := floatField(event, "score"); ok {
		a.scoreSum += score
		a.scoreN++
	}
	if key, ok := event.Fields["key"].(string); ok && key != "" {
		a.keyCounts[key]++
	}
}

// Run streams NDJSON records from r, skipping malformed lines, and returns
// the final report.
func (a *Aggregator) Run(r io.Reader) (Report, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event core.MetricsEvent
		if err := json.Unmarshal(line, &event); err != nil {
			a.report.MalformedLines++
			continue
		}
		a.Consume(event)
	}
	if err := scanner.Err(); err != nil {
		return a.Finalize(), err
	}
	return a.Finalize(), nil
}

// Finalize computes the derived rates and percentiles.
func (a *Aggregator) Finalize() Report {
	decided := a.report.Saves + a.report.Asks + a.report.Rejects
	if decided > 0 {
		a.report.SaveRate = float64(a.report.Saves) / float64(decided)
		a.report.AskRate = float64(a.report.Asks) / float64(decided)
		a.report.RejectRate = float64(a.report.Rejects) / float64(decided)
	}
	if a.scoreN > 0 {
		a.report.AverageScore = a.scoreSum / float64(a.scoreN)
	}
	a.report.RetrievalP50 = percentile(a.latencies, 0.50)
	a.report.RetrievalP95 = percentile(a.latencies, 0.95)

	keys := make([]KeyCount, 0, len(a.keyCounts))
	for k, n := range a.keyCounts {
		keys = append(keys, KeyCount{Key: k, Count: n})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Count != keys[j].Count {
			return keys[i].Count > keys[j].Count
		}
		return keys[i].Key < keys[j].Key
	})
	if len(keys) > a.topKeyCap {
		keys = keys[:a.topKeyCap]
	}
	a.report.TopKeys = keys
	return a.report
}

func floatField(event core.MetricsEvent, name string) (float64, bool) {
	v, ok := event.Fields[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// percentile computes the nearest-rank percentile of unsorted samples.
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
