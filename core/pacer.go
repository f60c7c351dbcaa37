package core

import (
	"context"
	"sync"
	"time"
)

// Pacer inserts a fixed delay between successive operations. The summarizer
// uses it between clusters to avoid overloading the embedding backend; it is
// a backpressure device, not a correctness requirement.
type Pacer struct {
	delay time.Duration
	last  time.Time
	count int
	mu    sync.Mutex
}

// NewPacer creates a pacer with the given inter-operation delay.
// A zero or negative delay disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay}
}

// Wait blocks until the configured delay has elapsed since the previous
// Wait, or until the context is canceled. The first call never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	wait := time.Duration(0)
	if !p.last.IsZero() && p.delay > 0 {
		if elapsed := time.Since(p.last); elapsed < p.delay {
			wait = p.delay - elapsed
		}
	}
	p.last = time.Now().Add(wait)
	p.count++
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Count returns the number of Wait calls made so far.
func (p *Pacer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
