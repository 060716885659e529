// Package schema infers a structural, Spark-style schema from a sample
// semi-structured record and uses it to conform and describe the full record
// set before it is written to a table.
package schema

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a schema node.
type Kind int

const (
	KindStruct Kind = iota + 1
	KindArray
	KindBoolean
	KindInteger
	KindFloat
	KindString
)

var kindNames = map[Kind]string{
	KindStruct:  "struct",
	KindArray:   "array",
	KindBoolean: "boolean",
	KindInteger: "integer",
	KindFloat:   "float",
	KindString:  "string",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Node is one node of an inferred schema tree. The set of implementations is
// closed: *StructNode, *ArrayNode, *ScalarNode and *StringNode.
type Node interface {
	Kind() Kind
	// String returns the compact Spark simpleString form, e.g. struct<a:bigint>.
	String() string
	node()
}

// Field is a named, nullable member of a StructNode.
type Field struct {
	Name     string
	Type     Node
	Nullable bool
}

// StructNode is an ordered set of fields. Order is the insertion order of
// first-seen keys.
type StructNode struct {
	Fields []Field
}

func (*StructNode) Kind() Kind { return KindStruct }
func (*StructNode) node()      {}

func (s *StructNode) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.Name + ":" + f.Type.String()
	}
	return "struct<" + strings.Join(parts, ",") + ">"
}

// Len returns the number of fields.
func (s *StructNode) Len() int { return len(s.Fields) }

// Field returns the field with the given name.
func (s *StructNode) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns the field names in order.
func (s *StructNode) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// ArrayNode is a homogeneous array. Placeholder is set when the element type
// was not observed (the sample array was empty) and defaulted to String.
type ArrayNode struct {
	Element      Node
	ContainsNull bool
	Placeholder  bool
}

func (*ArrayNode) Kind() Kind { return KindArray }
func (*ArrayNode) node()      {}

func (a *ArrayNode) String() string {
	return "array<" + a.Element.String() + ">"
}

// ScalarNode is a Boolean, 64-bit Integer, double Float or String leaf.
type ScalarNode struct {
	kind Kind
}

// Shared scalar nodes. Schema trees are immutable so these are reused.
var (
	BooleanType = &ScalarNode{kind: KindBoolean}
	IntegerType = &ScalarNode{kind: KindInteger}
	FloatType   = &ScalarNode{kind: KindFloat}
	StringType  = &ScalarNode{kind: KindString}
)

func (s *ScalarNode) Kind() Kind { return s.kind }
func (*ScalarNode) node()        {}

func (s *ScalarNode) String() string {
	switch s.kind {
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "bigint"
	case KindFloat:
		return "double"
	default:
		return "string"
	}
}

// ForceReason records why a field was forced to a String leaf.
type ForceReason int

const (
	ReasonStringify ForceReason = iota + 1
	ReasonMaxLevel
	ReasonConflict
)

func (r ForceReason) String() string {
	switch r {
	case ReasonStringify:
		return "stringify"
	case ReasonMaxLevel:
		return "max_level"
	case ReasonConflict:
		return "conflict"
	default:
		return "reason(" + strconv.Itoa(int(r)) + ")"
	}
}

// StringNode is a String leaf forced by configuration (stringify_fields,
// max_level) or by a type conflict between samples, regardless of the shape
// of the sampled value.
type StringNode struct {
	Reason ForceReason
}

func (*StringNode) Kind() Kind     { return KindString }
func (*StringNode) String() string { return "string" }
func (*StringNode) node()          {}

// Equal reports whether two schema trees are structurally identical: same
// field names in the same order, same kinds and flags. Force reasons and
// array placeholders are part of the structure.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *StructNode:
		y, ok := b.(*StructNode)
		if !ok || len(x.Fields) != len(y.Fields) {
			return false
		}
		for i := range x.Fields {
			fx, fy := x.Fields[i], y.Fields[i]
			if fx.Name != fy.Name || fx.Nullable != fy.Nullable || !Equal(fx.Type, fy.Type) {
				return false
			}
		}
		return true
	case *ArrayNode:
		y, ok := b.(*ArrayNode)
		return ok && x.ContainsNull == y.ContainsNull && x.Placeholder == y.Placeholder && Equal(x.Element, y.Element)
	case *ScalarNode:
		y, ok := b.(*ScalarNode)
		return ok && x.kind == y.kind
	case *StringNode:
		y, ok := b.(*StringNode)
		return ok && x.Reason == y.Reason
	default:
		return false
	}
}

// IsForced reports whether n is a forced String leaf.
func IsForced(n Node) bool {
	_, ok := n.(*StringNode)
	return ok
}
