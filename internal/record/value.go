// Package record models the semi-structured values that flow from a record
// source into schema inference and the table sink.
//
// A value is one of:
//   - Mapping: *orderedmap.OrderedMap[string, any] (map[string]any is also accepted)
//   - Sequence: []any
//   - Scalar: bool, string, a Go integer kind, float32/float64 or json.Number
//   - Null: nil
package record

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// Mapping is an insertion-ordered set of unique string keys.
type Mapping = *orderedmap.OrderedMap[string, any]

// NewMapping returns an empty Mapping.
func NewMapping() Mapping {
	return orderedmap.NewOrderedMap[string, any]()
}

// Kind classifies a semi-structured value.
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindMapping
	KindSequence
	KindBoolean
	KindInteger
	KindFloat
	KindString
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindNull:     "null",
	KindMapping:  "mapping",
	KindSequence: "sequence",
	KindBoolean:  "boolean",
	KindInteger:  "integer",
	KindFloat:    "float",
	KindString:   "string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsScalar reports whether k is one of the four scalar kinds.
func (k Kind) IsScalar() bool {
	return k == KindBoolean || k == KindInteger || k == KindFloat || k == KindString
}

// KindOf classifies v. Values outside the closed set (time.Time, []byte,
// structs, integers that do not fit in 64 bits) are KindUnknown.
func KindOf(v any) Kind {
	switch x := v.(type) {
	case nil:
		return KindNull
	case Mapping:
		if x == nil {
			return KindNull
		}
		return KindMapping
	case map[string]any:
		if x == nil {
			return KindNull
		}
		return KindMapping
	case []any:
		return KindSequence
	case bool:
		return KindBoolean
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return KindInteger
	case uint:
		if uint64(x) > math.MaxInt64 {
			return KindUnknown
		}
		return KindInteger
	case uint64:
		if x > math.MaxInt64 {
			return KindUnknown
		}
		return KindInteger
	case float32, float64:
		return KindFloat
	case json.Number:
		return numberKind(x)
	default:
		return KindUnknown
	}
}

// numberKind follows the literal form: no fraction or exponent means integer.
func numberKind(n json.Number) Kind {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		if _, err := n.Float64(); err != nil {
			return KindUnknown
		}
		return KindFloat
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return KindUnknown
	}
	return KindInteger
}

// Pair is one key/value entry of a Mapping.
type Pair struct {
	Key   string
	Value any
}

// Pairs returns the entries of a mapping value in iteration order. Ordered
// mappings keep insertion order; plain Go maps are visited in sorted key
// order so results are deterministic. ok is false when v is not a mapping.
func Pairs(v any) (pairs []Pair, ok bool) {
	switch m := v.(type) {
	case Mapping:
		if m == nil {
			return nil, false
		}
		pairs = make([]Pair, 0, m.Len())
		for el := m.Front(); el != nil; el = el.Next() {
			pairs = append(pairs, Pair{Key: el.Key, Value: el.Value})
		}
		return pairs, true
	case map[string]any:
		if m == nil {
			return nil, false
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs = make([]Pair, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, Pair{Key: k, Value: m[k]})
		}
		return pairs, true
	default:
		return nil, false
	}
}

// Get returns the value stored under key in a mapping value.
func Get(v any, key string) (any, bool) {
	switch m := v.(type) {
	case Mapping:
		if m == nil {
			return nil, false
		}
		return m.Get(key)
	case map[string]any:
		val, ok := m[key]
		return val, ok
	default:
		return nil, false
	}
}

// Lookup walks a dot-separated path into nested mappings.
// An empty path returns v itself.
func Lookup(v any, path string) (any, bool) {
	if path == "" {
		return v, true
	}
	current := v
	for _, part := range strings.Split(path, ".") {
		next, ok := Get(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// FromPairs builds an ordered Mapping from pairs, keeping their order.
// Later duplicates overwrite earlier values in place.
func FromPairs(pairs ...Pair) Mapping {
	m := NewMapping()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}
