// Package metrics provides the append-only observability stream of the
// memory pipeline: every save / ask / reject / retrieve / consolidate /
// summarize / error event is one newline-delimited JSON record. Sink
// failures are swallowed; observability must never affect the
// primary flow. A streaming aggregator computes KPIs in a single pass over
// the log, tolerating and skipping malformed lines.
package metrics

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/memoweave/memoweave/core"
	"github.com/memoweave/memoweave/logging"
)

// Event type names emitted by the pipeline.
const (
	EventSave        = "save"
	EventAsk         = "ask"
	EventReject      = "reject"
	EventRetrieve    = "retrieve"
	EventConsolidate = "consolidate"
	EventSummarize   = "summarize"
	EventSweep       = "sweep"
	EventError       = "error"
)

// FileSink appends events to an NDJSON log file, one record per line.
// Safe for concurrent use. All I/O errors are swallowed after logging.
type FileSink struct {
	path   string
	mu     sync.Mutex
	logger logging.Logger
}

// Options configure a FileSink.
type Options struct {
	Logger logging.Logger
}

// NewFileSink creates a sink appending to path.
func NewFileSink(path string, optFns ...func(o *Options)) *FileSink {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &FileSink{path: path, logger: opts.Logger}
}

// Emit appends one event. Failures are logged at debug level and dropped.
func (s *FileSink) Emit(event core.MetricsEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		s.logger.Debug("metrics marshal failed", "error", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		s.logger.Debug("metrics open failed", "path", s.path, "error", err.Error())
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		s.logger.Debug("metrics append failed", "path", s.path, "error", err.Error())
	}
}
