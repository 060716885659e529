package schema

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/goingest/internal/record"
)

func mustDecode(t *testing.T, doc string) any {
	t.Helper()
	v, err := record.DecodeBytes([]byte(doc))
	require.NoError(t, err)
	return v
}

func mustInfer(t *testing.T, doc string, opts Options) *StructNode {
	t.Helper()
	s, err := Infer(mustDecode(t, doc), opts)
	require.NoError(t, err)
	return s
}

func fieldType(t *testing.T, s *StructNode, name string) Node {
	t.Helper()
	f, ok := s.Field(name)
	require.True(t, ok, "field %q missing from %s", name, spew.Sdump(s))
	return f.Type
}

func TestInfer_ScalarMapping(t *testing.T) {
	tests := []struct {
		doc      string
		expected Kind
	}{
		{doc: `{"n": 3}`, expected: KindInteger},
		{doc: `{"n": 3.5}`, expected: KindFloat},
		{doc: `{"n": 3.0}`, expected: KindFloat},
		{doc: `{"n": -12e3}`, expected: KindFloat},
		{doc: `{"n": "x"}`, expected: KindString},
		{doc: `{"n": true}`, expected: KindBoolean},
		{doc: `{"n": false}`, expected: KindBoolean},
	}

	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			s := mustInfer(t, tt.doc, Options{})
			n := fieldType(t, s, "n")
			assert.Equal(t, tt.expected, n.Kind())
			assert.IsType(t, &ScalarNode{}, n)
		})
	}
}

func TestInfer_NativeGoValues(t *testing.T) {
	example := map[string]any{
		"b":   true,
		"i":   42,
		"i64": int64(7),
		"u8":  uint8(1),
		"f":   1.25,
		"f32": float32(2),
		"s":   "text",
	}

	s, err := Infer(example, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"b", "f", "f32", "i", "i64", "s", "u8"}, s.Names(), "plain maps are visited in sorted order")
	assert.Equal(t, KindBoolean, fieldType(t, s, "b").Kind())
	assert.Equal(t, KindInteger, fieldType(t, s, "i").Kind())
	assert.Equal(t, KindInteger, fieldType(t, s, "i64").Kind())
	assert.Equal(t, KindInteger, fieldType(t, s, "u8").Kind())
	assert.Equal(t, KindFloat, fieldType(t, s, "f").Kind())
	assert.Equal(t, KindFloat, fieldType(t, s, "f32").Kind())
	assert.Equal(t, KindString, fieldType(t, s, "s").Kind())
}

func TestInfer_NestedRoundTrip(t *testing.T) {
	s := mustInfer(t, `{"addr": {"city": "X", "zip": 1}}`, Options{})

	addr, ok := fieldType(t, s, "addr").(*StructNode)
	require.True(t, ok)
	assert.Equal(t, []string{"city", "zip"}, addr.Names())
	assert.Equal(t, KindString, fieldType(t, addr, "city").Kind())
	assert.Equal(t, KindInteger, fieldType(t, addr, "zip").Kind())
	assert.Equal(t, "struct<addr:struct<city:string,zip:bigint>>", s.String())
}

func TestInfer_FieldOrderFollowsInsertion(t *testing.T) {
	s := mustInfer(t, `{"zulu": 1, "alpha": "a", "mike": true, "bravo": {"y": 1, "x": 2}}`, Options{})
	assert.Equal(t, []string{"zulu", "alpha", "mike", "bravo"}, s.Names())

	bravo := fieldType(t, s, "bravo").(*StructNode)
	assert.Equal(t, []string{"y", "x"}, bravo.Names())
}

func TestInfer_AllFieldsNullable(t *testing.T) {
	s := mustInfer(t, `{"a": 1, "b": {"c": [{"d": "x"}]}}`, Options{})

	var check func(n Node)
	check = func(n Node) {
		switch x := n.(type) {
		case *StructNode:
			for _, f := range x.Fields {
				assert.True(t, f.Nullable, "field %q", f.Name)
				check(f.Type)
			}
		case *ArrayNode:
			assert.True(t, x.ContainsNull)
			check(x.Element)
		}
	}
	check(s)
}

func TestInfer_NullOmission(t *testing.T) {
	s := mustInfer(t, `{"a": 1, "b": null}`, Options{})
	assert.Equal(t, []string{"a"}, s.Names())

	nested := mustInfer(t, `{"o": {"x": null, "y": "v"}}`, Options{})
	o := fieldType(t, nested, "o").(*StructNode)
	assert.Equal(t, []string{"y"}, o.Names())
}

func TestInfer_EmptyArrayDefault(t *testing.T) {
	s := mustInfer(t, `{"tags": []}`, Options{})

	arr, ok := fieldType(t, s, "tags").(*ArrayNode)
	require.True(t, ok)
	assert.Equal(t, KindString, arr.Element.Kind())
	assert.True(t, arr.Placeholder)
	assert.Equal(t, "array<string>", arr.String())
}

func TestInfer_ArrayUsesFirstElementOnly(t *testing.T) {
	s := mustInfer(t, `{"mixed": [1, "two", {"three": 3}]}`, Options{})

	arr := fieldType(t, s, "mixed").(*ArrayNode)
	assert.Equal(t, KindInteger, arr.Element.Kind())
	assert.False(t, arr.Placeholder)
}

func TestInfer_ArrayOfStructs(t *testing.T) {
	s := mustInfer(t, `{"items": [{"id": 1, "name": "a"}, {"id": 2}]}`, Options{})

	arr := fieldType(t, s, "items").(*ArrayNode)
	elem, ok := arr.Element.(*StructNode)
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, elem.Names())
}

func TestInfer_NestedArrays(t *testing.T) {
	s := mustInfer(t, `{"matrix": [[1.5, 2], [3]], "empty_inner": [[]]}`, Options{})

	outer := fieldType(t, s, "matrix").(*ArrayNode)
	inner, ok := outer.Element.(*ArrayNode)
	require.True(t, ok)
	assert.Equal(t, KindFloat, inner.Element.Kind())

	e := fieldType(t, s, "empty_inner").(*ArrayNode)
	einner := e.Element.(*ArrayNode)
	assert.True(t, einner.Placeholder)
	assert.Equal(t, "array<array<string>>", e.String())
}

func TestInfer_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		example any
	}{
		{name: "sequence", example: mustDecode(t, `[{"a": 1}]`)},
		{name: "scalar", example: "text"},
		{name: "number", example: 3},
		{name: "nil", example: nil},
		{name: "nil mapping", example: record.Mapping(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Infer(tt.example, Options{})
			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var ie *InferenceError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, "", ie.Path)
		})
	}
}

func TestInfer_InvalidConfiguration(t *testing.T) {
	example := mustDecode(t, `{"a": 1}`)

	tests := []struct {
		name  string
		level int
		opts  Options
		msg   string
	}{
		{name: "zero level", level: 0, msg: "level must be greater than zero"},
		{name: "negative level", level: -2, msg: "level must be greater than zero"},
		{name: "max level below level", level: 3, opts: Options{MaxLevel: 2}, msg: "max_level must be greater than or equal to level"},
		{name: "negative max level", level: 1, opts: Options{MaxLevel: -1}, msg: "max_level must not be negative"},
		{name: "negative recursion limit", level: 1, opts: Options{RecursionLimit: -1}, msg: "recursion limit"},
		{name: "unknown propagation", level: 1, opts: Options{Propagation: "sideways"}, msg: "unknown propagation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InferAt(example, tt.level, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestInfer_InvalidInputCheckedBeforeConfiguration(t *testing.T) {
	_, err := InferAt([]any{}, 0, Options{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestInferAt_MaxLevelEqualToLevel(t *testing.T) {
	s, err := InferAt(mustDecode(t, `{"a": {"b": 1}, "c": 2}`), 2, Options{MaxLevel: 2})
	require.NoError(t, err)
	assert.IsType(t, &StringNode{}, fieldType(t, s, "a"))
	assert.IsType(t, &StringNode{}, fieldType(t, s, "c"))
}

func TestInfer_UnsupportedType(t *testing.T) {
	tests := []struct {
		name    string
		example any
		path    string
	}{
		{name: "time value", example: map[string]any{"when": time.Now()}, path: "when"},
		{name: "bytes", example: map[string]any{"blob": []byte("x")}, path: "blob"},
		{name: "nested struct value", example: map[string]any{"o": map[string]any{"p": struct{}{}}}, path: "o.p"},
		{name: "array with null head", example: mustDecode(t, `{"xs": [null, 1]}`), path: "xs[]"},
		{name: "huge integer literal", example: mustDecode(t, `{"big": 123456789012345678901234567890}`), path: "big"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Infer(tt.example, Options{})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnsupportedType)

			var ie *InferenceError
			require.True(t, errors.As(err, &ie))
			assert.Equal(t, tt.path, ie.Path)
		})
	}
}

func TestInfer_StringifyOverride(t *testing.T) {
	s := mustInfer(t, `{"addr": {"city": "X"}, "n": 1}`, Options{StringifyFields: []string{"addr"}})

	addr := fieldType(t, s, "addr")
	require.IsType(t, &StringNode{}, addr)
	assert.Equal(t, ReasonStringify, addr.(*StringNode).Reason)
	assert.Equal(t, KindString, addr.Kind())
	assert.Equal(t, KindInteger, fieldType(t, s, "n").Kind())
}

func TestInfer_StringifyMatchesByNameAtAnyStructLevel(t *testing.T) {
	s := mustInfer(t, `{"meta": {"raw": {"deep": 1}}, "raw": [1]}`, Options{StringifyFields: []string{"raw"}})

	assert.IsType(t, &StringNode{}, fieldType(t, s, "raw"))
	meta := fieldType(t, s, "meta").(*StructNode)
	assert.IsType(t, &StringNode{}, fieldType(t, meta, "raw"))
}

func TestInfer_SkipFields(t *testing.T) {
	s := mustInfer(t, `{"a": 1, "secret": "x", "b": {"secret": 2, "c": 3}}`, Options{SkipFields: []string{"secret"}})

	assert.Equal(t, []string{"a", "b"}, s.Names())

	b := fieldType(t, s, "b").(*StructNode)
	assert.Equal(t, []string{"secret", "c"}, b.Names(), "skip applies to the top-level mapping only")
}

func TestInfer_SkipWinsOverStringify(t *testing.T) {
	s := mustInfer(t, `{"a": {"x": 1}, "b": 2}`, Options{SkipFields: []string{"a"}, StringifyFields: []string{"a"}})
	assert.Equal(t, []string{"b"}, s.Names())
}

func TestInfer_DepthClamp(t *testing.T) {
	doc := `{"l1": {"l2": {"l3": {"l4": 1}}, "s2": "x"}, "top": 1}`

	s := mustInfer(t, doc, Options{MaxLevel: 2})

	assert.Equal(t, KindInteger, fieldType(t, s, "top").Kind())
	l1 := fieldType(t, s, "l1").(*StructNode)
	assert.Equal(t, []string{"l2", "s2"}, l1.Names())
	for _, f := range l1.Fields {
		require.IsType(t, &StringNode{}, f.Type, "field %q at level 2", f.Name)
		assert.Equal(t, ReasonMaxLevel, f.Type.(*StringNode).Reason)
	}
}

func TestInfer_MaxLevelOneStringifiesEverything(t *testing.T) {
	s := mustInfer(t, `{"a": {"b": 1}, "c": [1], "d": 2, "e": null}`, Options{MaxLevel: 1})

	assert.Equal(t, []string{"a", "c", "d", "e"}, s.Names(), "forced fields are kept even when null")
	for _, f := range s.Fields {
		assert.IsType(t, &StringNode{}, f.Type)
	}
}

func TestInfer_DepthClampHoldsAtEveryStructLevel(t *testing.T) {
	doc := `{"a": {"b": {"c": {"d": {"e": {"f": 1}}}}}}`

	for maxLevel := 1; maxLevel <= 5; maxLevel++ {
		s := mustInfer(t, doc, Options{MaxLevel: maxLevel})

		var node Node = s
		for level := 1; level <= maxLevel; level++ {
			st, ok := node.(*StructNode)
			require.True(t, ok, "max_level %d level %d", maxLevel, level)
			node = st.Fields[0].Type
		}
		assert.IsType(t, &StringNode{}, node, "max_level %d", maxLevel)
	}
}

func TestInfer_LegacyPropagationIntoArrays(t *testing.T) {
	doc := `{"items": [{"secret": 1, "raw": {"x": 1}, "deep": {"deeper": {"deepest": 1}}}]}`
	opts := Options{MaxLevel: 2, StringifyFields: []string{"raw"}, SkipFields: []string{"secret"}}

	s := mustInfer(t, doc, opts)

	items := fieldType(t, s, "items").(*ArrayNode)
	elem := items.Element.(*StructNode)
	assert.Equal(t, []string{"secret", "raw", "deep"}, elem.Names(), "no option reaches inside arrays")
	assert.IsType(t, &StructNode{}, fieldType(t, elem, "raw"))
	deep := fieldType(t, elem, "deep").(*StructNode)
	assert.IsType(t, &StructNode{}, fieldType(t, deep, "deeper"))
}

func TestInfer_UniformPropagationIntoArrays(t *testing.T) {
	doc := `{"items": [{"secret": 1, "raw": {"x": 1}, "n": 2}], "b": {"secret": 3, "k": 4}}`
	opts := Options{StringifyFields: []string{"raw"}, SkipFields: []string{"secret"}, Propagation: PropagationUniform}

	s := mustInfer(t, doc, opts)

	items := fieldType(t, s, "items").(*ArrayNode)
	elem := items.Element.(*StructNode)
	assert.Equal(t, []string{"raw", "n"}, elem.Names())
	assert.IsType(t, &StringNode{}, fieldType(t, elem, "raw"))

	b := fieldType(t, s, "b").(*StructNode)
	assert.Equal(t, []string{"k"}, b.Names())
}

func TestInfer_UniformDepthClampCoversArrays(t *testing.T) {
	doc := `{"xs": [{"a": {"b": 1}}], "ys": [[1]], "zs": []}`

	s := mustInfer(t, doc, Options{MaxLevel: 2, Propagation: PropagationUniform})

	for _, name := range []string{"xs", "ys", "zs"} {
		arr, ok := fieldType(t, s, name).(*ArrayNode)
		require.True(t, ok, name)
		require.IsType(t, &StringNode{}, arr.Element, name)
		assert.Equal(t, ReasonMaxLevel, arr.Element.(*StringNode).Reason)
	}

	s3 := mustInfer(t, doc, Options{MaxLevel: 3, Propagation: PropagationUniform})
	xs := fieldType(t, s3, "xs").(*ArrayNode)
	elem := xs.Element.(*StructNode)
	assert.IsType(t, &StringNode{}, fieldType(t, elem, "a"), "struct element sits at level 3")
}

func TestInfer_RecursionLimit(t *testing.T) {
	deep := strings.Repeat(`{"n": `, 10) + "1" + strings.Repeat("}", 10)

	_, err := Infer(mustDecode(t, deep), Options{RecursionLimit: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)

	var ie *InferenceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "n.n.n.n.n", ie.Path)

	_, err = Infer(mustDecode(t, deep), Options{RecursionLimit: 11})
	assert.NoError(t, err)
}

func TestInfer_DefaultRecursionLimit(t *testing.T) {
	depth := DefaultRecursionLimit + 5
	deep := strings.Repeat(`[`, depth) + strings.Repeat(`]`, depth)
	doc := `{"a": ` + deep + `}`

	_, err := Infer(mustDecode(t, doc), Options{})
	assert.ErrorIs(t, err, ErrRecursionLimitExceeded)
}

func TestInfer_MaxLevelStopsBeforeRecursionLimit(t *testing.T) {
	deep := strings.Repeat(`{"n": `, 100) + "1" + strings.Repeat("}", 100)
	_, err := Infer(mustDecode(t, deep), Options{MaxLevel: 3})
	assert.NoError(t, err)
}

func TestInfer_Determinism(t *testing.T) {
	doc := `{"id": 1, "name": "n", "tags": ["a"], "addr": {"city": "c", "geo": {"lat": 1.5}}, "items": [{"k": true}]}`
	opts := Options{MaxLevel: 3, StringifyFields: []string{"geo"}}

	first := mustInfer(t, doc, opts)
	for i := 0; i < 20; i++ {
		again := mustInfer(t, doc, opts)
		require.True(t, Equal(first, again), "run %d differs:\n%s\nvs\n%s", i, spew.Sdump(first), spew.Sdump(again))
	}
}

func TestInfer_ConcurrentCalls(t *testing.T) {
	example := mustDecode(t, `{"a": {"b": [1, 2]}, "c": "x"}`)
	want, err := Infer(example, Options{})
	require.NoError(t, err)

	results := make(chan *StructNode, 16)
	for i := 0; i < 16; i++ {
		go func() {
			s, _ := Infer(example, Options{})
			results <- s
		}()
	}
	for i := 0; i < 16; i++ {
		assert.True(t, Equal(want, <-results))
	}
}

func TestInfer_FieldCoverage(t *testing.T) {
	doc := `{"a": 1, "b": null, "c": {"d": 1}, "e": [1], "skip": 2, "f": "x"}`
	example := mustDecode(t, doc)
	s, err := Infer(example, Options{SkipFields: []string{"skip"}})
	require.NoError(t, err)

	pairs, _ := record.Pairs(example)
	for _, p := range pairs {
		_, present := s.Field(p.Key)
		switch {
		case p.Key == "skip", p.Value == nil:
			assert.False(t, present, p.Key)
		default:
			assert.True(t, present, p.Key)
		}
	}
}

func TestParsePropagation(t *testing.T) {
	p, err := ParsePropagation("")
	require.NoError(t, err)
	assert.Equal(t, PropagationLegacy, p)

	p, err = ParsePropagation("uniform")
	require.NoError(t, err)
	assert.Equal(t, PropagationUniform, p)

	_, err = ParsePropagation("nope")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
