package schema

import (
	"errors"
	"strconv"
)

// Suggest infers a schema from every sample and folds the results with
// Merge. A single sample gives exactly what Infer gives. Inference is
// all-or-nothing: the first failing sample fails the whole call.
func Suggest(samples []any, opts Options) (*StructNode, error) {
	if len(samples) == 0 {
		return nil, newError(ErrInvalidInput, "", "no samples")
	}

	var merged *StructNode
	for i, sample := range samples {
		s, err := Infer(sample, opts)
		if err != nil {
			var ie *InferenceError
			if errors.As(err, &ie) {
				ie.Detail = withSample(i, ie.Detail)
			}
			return nil, err
		}
		if merged == nil {
			merged = s
			continue
		}
		merged = MergeStruct(merged, s)
	}
	return merged, nil
}

func withSample(i int, detail string) string {
	prefix := "sample " + strconv.Itoa(i)
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}

// Merge unions two schema nodes:
//   - a forced String leaf wins over anything
//   - structs union their fields in first-seen order
//   - arrays merge elements; an unobserved (placeholder) element yields
//   - Integer and Float widen to Float
//   - any other disagreement becomes a String leaf with ReasonConflict
//
// Either side may be nil, in which case the other is returned.
func Merge(a, b Node) Node {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if IsForced(a) {
		return a
	}
	if IsForced(b) {
		return b
	}

	switch x := a.(type) {
	case *StructNode:
		if y, ok := b.(*StructNode); ok {
			return MergeStruct(x, y)
		}
	case *ArrayNode:
		if y, ok := b.(*ArrayNode); ok {
			return mergeArray(x, y)
		}
	case *ScalarNode:
		if y, ok := b.(*ScalarNode); ok {
			if x.kind == y.kind {
				return x
			}
			if isNumeric(x.kind) && isNumeric(y.kind) {
				return FloatType
			}
		}
	}
	return &StringNode{Reason: ReasonConflict}
}

// MergeStruct unions the fields of two structs. Fields of a keep their
// position; fields only in b are appended in b's order.
func MergeStruct(a, b *StructNode) *StructNode {
	out := &StructNode{Fields: make([]Field, 0, len(a.Fields)+len(b.Fields))}
	index := make(map[string]int, len(a.Fields))
	for _, f := range a.Fields {
		index[f.Name] = len(out.Fields)
		out.Fields = append(out.Fields, f)
	}
	for _, f := range b.Fields {
		if i, ok := index[f.Name]; ok {
			cur := out.Fields[i]
			out.Fields[i] = Field{
				Name:     cur.Name,
				Type:     Merge(cur.Type, f.Type),
				Nullable: cur.Nullable || f.Nullable,
			}
			continue
		}
		index[f.Name] = len(out.Fields)
		out.Fields = append(out.Fields, f)
	}
	return out
}

func mergeArray(a, b *ArrayNode) *ArrayNode {
	if a.Placeholder {
		return b
	}
	if b.Placeholder {
		return a
	}
	return &ArrayNode{
		Element:      Merge(a.Element, b.Element),
		ContainsNull: a.ContainsNull || b.ContainsNull,
	}
}

func isNumeric(k Kind) bool {
	return k == KindInteger || k == KindFloat
}
