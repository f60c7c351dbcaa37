package anthropic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoweave/memoweave/core"
)

func TestParseCandidates(t *testing.T) {
	text := `Here are the extracted facts:
[{"type":"preference","key":"lieblingsfarbe","value":"blau","confidence":0.85},
 {"type":"work_context","key":"arbeitgeber","value":"Siemens","confidence":0.9}]`

	cands, err := parseCandidates(text)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, core.FactPreference, cands[0].Type)
	assert.Equal(t, "blau", cands[0].Value)
}

func TestParseCandidatesDropsInvalid(t *testing.T) {
	text := `[{"type":"nonsense","key":"x","value":"y","confidence":0.5},
 {"type":"profile","key":"","value":"y","confidence":0.5},
 {"type":"profile","key":"name","value":"Anna","confidence":2.0}]`

	cands, err := parseCandidates(text)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Anna", cands[0].Value)
	assert.Equal(t, 0.5, cands[0].Confidence, "out-of-range confidence resets to neutral")
}

func TestParseCandidatesProfileAlias(t *testing.T) {
	text := `[{"type":"profile","key":"name","value":"Max Mustermann","confidence":0.9},
 {"type":"profile_fact","key":"wohnort","value":"Berlin","confidence":0.85}]`

	cands, err := parseCandidates(text)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	assert.Equal(t, core.FactProfile, cands[0].Type)
	assert.Equal(t, core.FactProfile, cands[1].Type)
}

func TestParseCandidatesNoArray(t *testing.T) {
	cands, err := parseCandidates("I could not find any facts.")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestParseCandidatesMalformed(t *testing.T) {
	_, err := parseCandidates(`[{"type": "profile",]`)
	assert.Error(t, err)
}
