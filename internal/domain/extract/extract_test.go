package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPureJSON(t *testing.T) {
	obj, err := JSONObject(`{"a":1}`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), obj["a"])
}

func TestFencedBlock(t *testing.T) {
	obj, err := JSONObject("```json\n{\"a\":1}\n```")
	require.NoError(t, err)
	assert.Equal(t, float64(1), obj["a"])
}

func TestFencedBlockWithoutTag(t *testing.T) {
	obj, err := JSONObject("Here you go:\n```\n{\"cards\":[]}\n```\nHope that helps!")
	require.NoError(t, err)
	assert.Contains(t, obj, "cards")
}

func TestBraceSlice(t *testing.T) {
	obj, err := JSONObject(`noise {"a":1} trailing`)
	require.NoError(t, err)
	assert.Equal(t, float64(1), obj["a"])
}

func TestProseAroundNestedObject(t *testing.T) {
	obj, err := JSONObject(`Sure! The result is {"outer":{"inner":2}} as requested.`)
	require.NoError(t, err)
	inner, ok := obj["outer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(2), inner["inner"])
}

func TestNotJSONAtAll(t *testing.T) {
	_, err := JSONObject("not json at all")
	assert.ErrorIs(t, err, ErrMalformedModelOutput)
}

func TestTopLevelArrayRejected(t *testing.T) {
	// The contract is one JSON object, not any JSON value.
	_, err := JSONObject(`[1,2,3]`)
	assert.ErrorIs(t, err, ErrMalformedModelOutput)
}

func TestFallbackOrder(t *testing.T) {
	// Whole-text parse wins over a fenced block buried inside a string field.
	obj, err := JSONObject("{\"note\":\"see ```json fences\"}")
	require.NoError(t, err)
	assert.Equal(t, "see ```json fences", obj["note"])
}
