package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "meine lieblingsfarbe", Normalize("  Meine   Lieblingsfarbe "))
	assert.Equal(t, "", Normalize("   "))
}

func TestTrigramSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, TrigramSimilarity("Blau", "blau"))
	assert.Equal(t, 0.0, TrigramSimilarity("", "blau"))

	sim := TrigramSimilarity("blau", "blaugrün")
	assert.Greater(t, sim, 0.3)
	assert.Less(t, sim, 1.0)

	assert.Less(t, TrigramSimilarity("rot", "blau"), 0.2)
}

func TestTrigramSimilaritySymmetric(t *testing.T) {
	a, b := "favorite color blue", "favourite colour blue"
	assert.InDelta(t, TrigramSimilarity(a, b), TrigramSimilarity(b, a), 1e-9)
}

func TestHasProperNoun(t *testing.T) {
	assert.True(t, HasProperNoun("lives in Berlin"))
	assert.True(t, HasProperNoun("Anna"))
	assert.False(t, HasProperNoun("blue"))
	assert.False(t, HasProperNoun("The weather is fine")) // sentence capitalization only
}

func TestHasDigits(t *testing.T) {
	assert.True(t, HasDigits("room 42"))
	assert.False(t, HasDigits("blau"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(2, 0, 1))
	assert.Equal(t, 0.5, Clamp(0.5, 0, 1))
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}
	assert.InDelta(t, 1.0, CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity(a, c), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 2}))
}
