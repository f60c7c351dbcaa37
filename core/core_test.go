package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFactTypeValid(t *testing.T) {
	for _, ft := range AllFactTypes {
		assert.True(t, ft.Valid(), "expected %q to be valid", ft)
	}
	assert.False(t, FactType("opinion").Valid())
	assert.False(t, FactType("").Valid())
}

func TestDedupKeyNormalization(t *testing.T) {
	a := DedupKey("u1", FactPreference, "Lieblingsfarbe", "")
	b := DedupKey("u1", FactPreference, "  lieblingsfarbe ", "")
	assert.Equal(t, a, b)

	// person widens the slot
	c := DedupKey("u1", FactPreference, "lieblingsfarbe", "anna")
	assert.NotEqual(t, a, c)
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()
	assert.NotEmpty(t, a)
	assert.Len(t, a, 36) // UUID length
	assert.NotEqual(t, a, b)
}

func TestNewItemIDSortable(t *testing.T) {
	a := NewItemID()
	time.Sleep(2 * time.Millisecond)
	b := NewItemID()
	assert.Len(t, a, 26) // ULID length
	assert.Less(t, a, b)
}

func TestValidationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewValidationError("candidate.key", "empty", cause)
	assert.ErrorIs(t, err, cause)

	var ve *ValidationError
	assert.ErrorAs(t, error(err), &ve)
	assert.Equal(t, "candidate.key", ve.Field)
}

func TestPacerFirstCallDoesNotBlock(t *testing.T) {
	p := NewPacer(500 * time.Millisecond)
	start := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("first wait blocked for %v", elapsed)
	}
	if p.Count() != 1 {
		t.Fatalf("expected count 1, got %d", p.Count())
	}
}

func TestPacerRespectsCancellation(t *testing.T) {
	p := NewPacer(time.Minute)
	_ = p.Wait(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
