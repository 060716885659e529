package record

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected Kind
	}{
		{name: "nil", input: nil, expected: KindNull},
		{name: "ordered mapping", input: NewMapping(), expected: KindMapping},
		{name: "nil ordered mapping", input: Mapping(nil), expected: KindNull},
		{name: "plain map", input: map[string]any{"a": 1}, expected: KindMapping},
		{name: "sequence", input: []any{1, 2}, expected: KindSequence},
		{name: "bool", input: true, expected: KindBoolean},
		{name: "string", input: "x", expected: KindString},
		{name: "int", input: 3, expected: KindInteger},
		{name: "int64", input: int64(3), expected: KindInteger},
		{name: "uint8", input: uint8(3), expected: KindInteger},
		{name: "uint64 in range", input: uint64(3), expected: KindInteger},
		{name: "uint64 overflow", input: uint64(math.MaxUint64), expected: KindUnknown},
		{name: "float64", input: 3.5, expected: KindFloat},
		{name: "float32", input: float32(3), expected: KindFloat},
		{name: "json integer", input: json.Number("42"), expected: KindInteger},
		{name: "json negative integer", input: json.Number("-7"), expected: KindInteger},
		{name: "json float", input: json.Number("3.0"), expected: KindFloat},
		{name: "json exponent", input: json.Number("1e3"), expected: KindFloat},
		{name: "json integer overflow", input: json.Number("123456789012345678901234567890"), expected: KindUnknown},
		{name: "time", input: time.Now(), expected: KindUnknown},
		{name: "bytes", input: []byte("blob"), expected: KindUnknown},
		{name: "typed slice", input: []string{"a"}, expected: KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, KindOf(tt.input))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "mapping", KindMapping.String())
	assert.Equal(t, "float", KindFloat.String())
	assert.Equal(t, "kind(99)", Kind(99).String())
	assert.True(t, KindString.IsScalar())
	assert.False(t, KindSequence.IsScalar())
	assert.False(t, KindNull.IsScalar())
}

func TestPairs_OrderedMapping(t *testing.T) {
	m := FromPairs(
		Pair{Key: "zeta", Value: 1},
		Pair{Key: "alpha", Value: 2},
		Pair{Key: "mid", Value: 3},
	)

	pairs, ok := Pairs(m)
	require.True(t, ok)
	require.Len(t, pairs, 3)
	assert.Equal(t, "zeta", pairs[0].Key)
	assert.Equal(t, "alpha", pairs[1].Key)
	assert.Equal(t, "mid", pairs[2].Key)
}

func TestPairs_PlainMapIsSorted(t *testing.T) {
	pairs, ok := Pairs(map[string]any{"b": 1, "c": 2, "a": 3})
	require.True(t, ok)
	assert.Equal(t, []Pair{{"a", 3}, {"b", 1}, {"c", 2}}, pairs)
}

func TestPairs_NotMapping(t *testing.T) {
	_, ok := Pairs([]any{1})
	assert.False(t, ok)
	_, ok = Pairs(Mapping(nil))
	assert.False(t, ok)
}

func TestFromPairs_DuplicateKeepsPosition(t *testing.T) {
	m := FromPairs(Pair{"a", 1}, Pair{"b", 2}, Pair{"a", 3})
	pairs, _ := Pairs(m)
	assert.Equal(t, []Pair{{"a", 3}, {"b", 2}}, pairs)
}

func TestLookup(t *testing.T) {
	doc, err := DecodeBytes([]byte(`{"data": {"items": [1, 2]}, "plain": {"x": true}}`))
	require.NoError(t, err)

	v, ok := Lookup(doc, "data.items")
	require.True(t, ok)
	assert.Len(t, v, 2)

	v, ok = Lookup(doc, "plain.x")
	require.True(t, ok)
	assert.Equal(t, true, v)

	_, ok = Lookup(doc, "data.missing")
	assert.False(t, ok)

	_, ok = Lookup(doc, "data.items.0")
	assert.False(t, ok, "sequences are not navigable by key")

	v, ok = Lookup(doc, "")
	assert.True(t, ok)
	assert.Equal(t, doc, v)
}
