package maputil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDFormatsNumericIDs(t *testing.T) {
	// large venue order ids decoded as float64 must not go scientific
	assert.Equal(t, "8389765528", ID(map[string]any{"id": float64(8389765528)}, "id"))
	assert.Equal(t, "88001", ID(map[string]any{"id": float64(88001)}, "id"))
	assert.Equal(t, "abc-1", ID(map[string]any{"id": " abc-1 "}, "id"))
	assert.Equal(t, "42", ID(map[string]any{"id": int64(42)}, "id"))
	assert.Equal(t, "", ID(map[string]any{}, "id"))
}

func TestFloatCoercesStrings(t *testing.T) {
	m := map[string]any{"a": "2000.5", "b": 3, "c": "junk"}
	assert.Equal(t, 2000.5, Float(m, "a"))
	assert.Equal(t, 3.0, Float(m, "b"))
	assert.Equal(t, 0.0, Float(m, "c"))
	assert.Equal(t, 0.0, Float(nil, "a"))
}

func TestNestedAndClone(t *testing.T) {
	m := map[string]any{"info": map[string]any{"x": 1}, "flat": "y"}
	assert.NotNil(t, Nested(m, "info"))
	assert.Nil(t, Nested(m, "flat"))
	assert.Nil(t, Nested(m, "missing"))

	c := Clone(m)
	c["flat"] = "changed"
	assert.Equal(t, "y", m["flat"])
	assert.NotNil(t, Clone(nil))
}
