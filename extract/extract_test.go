package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoweave/memoweave/core"
)

func TestExtractFavoriteColor(t *testing.T) {
	e := NewPatternExtractor()

	cands, err := e.Extract(context.Background(), "Meine Lieblingsfarbe ist blau", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)

	assert.Equal(t, core.FactPreference, cands[0].Type)
	assert.Equal(t, "lieblingsfarbe", cands[0].Key)
	assert.Equal(t, "blau", cands[0].Value)
	assert.GreaterOrEqual(t, cands[0].Confidence, 0.8)
}

func TestExtractProfileAndWork(t *testing.T) {
	e := NewPatternExtractor()

	cands, err := e.Extract(context.Background(), "Ich heiße Anna und ich arbeite bei Siemens", "")
	require.NoError(t, err)
	require.Len(t, cands, 2)

	byKey := map[string]core.Candidate{}
	for _, c := range cands {
		byKey[c.Key] = c
	}
	assert.Equal(t, "Anna", byKey["name"].Value)
	assert.Equal(t, core.FactWorkContext, byKey["arbeitgeber"].Type)
	assert.Equal(t, "Siemens", byKey["arbeitgeber"].Value)
}

func TestExtractEnglish(t *testing.T) {
	e := NewPatternExtractor()

	cands, err := e.Extract(context.Background(), "My favorite color is green", "")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "green", cands[0].Value)
}

func TestExtractNothing(t *testing.T) {
	e := NewPatternExtractor()

	cands, err := e.Extract(context.Background(), "Wie wird das Wetter morgen?", "")
	require.NoError(t, err)
	assert.Empty(t, cands)
}
