package metrics

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/memoweave/memoweave/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var _ core.MetricsSink = (*FileSink)(nil)
var _ core.MetricsSink = core.NopSink{}

func TestFileSinkAppendsNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	sink := NewFileSink(path)

	sink.Emit(core.NewMetricsEvent(EventSave, "u1", map[string]any{"key": "lieblingsfarbe", "score": 0.9}))
	sink.Emit(core.NewMetricsEvent(EventReject, "u1", map[string]any{"key": "wetter", "reason": "low_score"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []core.MetricsEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var event core.MetricsEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &event))
		lines = append(lines, event)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, EventSave, lines[0].Type)
	assert.Equal(t, "u1", lines[0].UserID)
	assert.False(t, lines[0].Timestamp.IsZero())
}

func TestFileSinkSwallowsErrors(t *testing.T) {
	// a directory path cannot be opened for append; Emit must not panic
	sink := NewFileSink(t.TempDir())
	assert.NotPanics(t, func() {
		sink.Emit(core.NewMetricsEvent(EventSave, "u1", nil))
	})
}

func TestFileSinkConcurrentEmit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	sink := NewFileSink(path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.Emit(core.NewMetricsEvent(EventSave, "u1", nil))
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 20)
}

func ndjson(t *testing.T, events ...core.MetricsEvent) string {
	t.Helper()
	var sb strings.Builder
	for _, event := range events {
		line, err := json.Marshal(event)
		require.NoError(t, err)
		sb.Write(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func TestAggregatorComputesKPIs(t *testing.T) {
	input := ndjson(t,
		core.NewMetricsEvent(EventSave, "u1", map[string]any{"key": "lieblingsfarbe", "score": 0.9}),
		core.NewMetricsEvent(EventSave, "u1", map[string]any{"key": "lieblingsfarbe", "score": 0.8}),
		core.NewMetricsEvent(EventAsk, "u1", map[string]any{"key": "arbeitgeber", "score": 0.6}),
		core.NewMetricsEvent(EventReject, "u1", map[string]any{"key": "wetter", "score": 0.2}),
		core.NewMetricsEvent(EventRetrieve, "u1", map[string]any{"latency_ms": 12.0}),
		core.NewMetricsEvent(EventRetrieve, "u1", map[string]any{"latency_ms": 48.0}),
	)

	report, err := NewAggregator(5).Run(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 6, report.TotalEvents)
	assert.Equal(t, 2, report.Saves)
	assert.Equal(t, 1, report.Asks)
	assert.Equal(t, 1, report.Rejects)
	assert.Equal(t, 2, report.Retrievals)
	assert.InDelta(t, 0.5, report.SaveRate, 1e-9)
	assert.InDelta(t, 0.625, report.AverageScore, 1e-9)
	assert.InDelta(t, 12.0, report.RetrievalP50, 1e-9)
	assert.InDelta(t, 48.0, report.RetrievalP95, 1e-9)

	require.NotEmpty(t, report.TopKeys)
	assert.Equal(t, "lieblingsfarbe", report.TopKeys[0].Key)
	assert.Equal(t, 2, report.TopKeys[0].Count)
}

func TestAggregatorSkipsMalformedLines(t *testing.T) {
	input := ndjson(t, core.NewMetricsEvent(EventSave, "u1", map[string]any{"score": 0.9})) +
		"{torn json\n" +
		"\n" +
		ndjson(t, core.NewMetricsEvent(EventReject, "u1", nil))

	report, err := NewAggregator(5).Run(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalEvents)
	assert.Equal(t, 1, report.MalformedLines)
}

func TestAggregatorEmptyInput(t *testing.T) {
	report, err := NewAggregator(5).Run(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, report.TotalEvents)
	assert.Zero(t, report.SaveRate)
	assert.Zero(t, report.RetrievalP95)
}
