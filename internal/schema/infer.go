package schema

import (
	"fmt"

	"github.com/dbsmedya/goingest/internal/record"
)

// Infer returns the schema of example, which must be a Mapping, starting at
// level 1. Every emitted field is nullable. Keys whose sampled value is null
// are omitted because no type can be read from them.
func Infer(example any, opts Options) (*StructNode, error) {
	return InferAt(example, 1, opts)
}

// InferAt is Infer starting at an explicit 1-indexed level.
func InferAt(example any, level int, opts Options) (*StructNode, error) {
	if record.KindOf(example) != record.KindMapping {
		return nil, newError(ErrInvalidInput, "", "expected a mapping, got %s", describe(example))
	}
	if err := opts.Validate(level); err != nil {
		return nil, err
	}
	in := newInferrer(opts)
	return in.inferStruct(example, level, fullScope, "")
}

// scope is the subset of options active for one recursive call.
type scope struct {
	stringify bool
	skip      bool
	maxLevel  bool
}

var fullScope = scope{stringify: true, skip: true, maxLevel: true}

type inferrer struct {
	maxLevel  int
	stringify map[string]struct{}
	skip      map[string]struct{}
	uniform   bool
	limit     int
}

func newInferrer(opts Options) *inferrer {
	prop, _ := ParsePropagation(string(opts.Propagation))
	return &inferrer{
		maxLevel:  opts.MaxLevel,
		stringify: toSet(opts.StringifyFields),
		skip:      toSet(opts.SkipFields),
		uniform:   prop == PropagationUniform,
		limit:     opts.recursionLimit(),
	}
}

// structScope is the scope handed to a mapping nested under a struct field.
func (in *inferrer) structScope(sc scope) scope {
	if in.uniform {
		return sc
	}
	return scope{stringify: sc.stringify, maxLevel: sc.maxLevel}
}

// arrayScope is the scope handed to a sequence under a struct field.
func (in *inferrer) arrayScope(sc scope) scope {
	if in.uniform {
		return sc
	}
	return scope{}
}

func (in *inferrer) clamped(sc scope, level int) bool {
	return sc.maxLevel && in.maxLevel > 0 && level >= in.maxLevel
}

func (in *inferrer) inferStruct(node any, level int, sc scope, path string) (*StructNode, error) {
	if level > in.limit {
		return nil, newError(ErrRecursionLimitExceeded, path, "level %d exceeds limit %d", level, in.limit)
	}
	pairs, ok := record.Pairs(node)
	if !ok {
		return nil, newError(ErrInvalidInput, path, "expected a mapping, got %s", describe(node))
	}

	out := &StructNode{Fields: make([]Field, 0, len(pairs))}
	for _, p := range pairs {
		fieldPath := joinPath(path, p.Key)

		if sc.skip && in.has(in.skip, p.Key) {
			continue
		}
		if sc.stringify && in.has(in.stringify, p.Key) {
			out.Fields = append(out.Fields, Field{Name: p.Key, Type: &StringNode{Reason: ReasonStringify}, Nullable: true})
			continue
		}
		if in.clamped(sc, level) {
			out.Fields = append(out.Fields, Field{Name: p.Key, Type: &StringNode{Reason: ReasonMaxLevel}, Nullable: true})
			continue
		}

		var (
			child Node
			err   error
		)
		switch record.KindOf(p.Value) {
		case record.KindMapping:
			child, err = in.inferStruct(p.Value, level+1, in.structScope(sc), fieldPath)
		case record.KindSequence:
			child, err = in.inferArray(p.Value.([]any), level+1, in.arrayScope(sc), fieldPath)
		case record.KindNull:
			continue
		default:
			child, err = scalarNode(p.Value, fieldPath)
		}
		if err != nil {
			return nil, err
		}
		out.Fields = append(out.Fields, Field{Name: p.Key, Type: child, Nullable: true})
	}
	return out, nil
}

// inferArray types an array from its first element only.
func (in *inferrer) inferArray(seq []any, level int, sc scope, path string) (*ArrayNode, error) {
	if level > in.limit {
		return nil, newError(ErrRecursionLimitExceeded, path, "level %d exceeds limit %d", level, in.limit)
	}
	if in.clamped(sc, level) {
		return &ArrayNode{Element: &StringNode{Reason: ReasonMaxLevel}, ContainsNull: true}, nil
	}
	if len(seq) == 0 {
		return &ArrayNode{Element: StringType, ContainsNull: true, Placeholder: true}, nil
	}

	head := seq[0]
	elemPath := path + "[]"

	var (
		elem Node
		err  error
	)
	switch record.KindOf(head) {
	case record.KindSequence:
		elem, err = in.inferArray(head.([]any), level+1, sc, elemPath)
	case record.KindMapping:
		elem, err = in.inferStruct(head, level+1, sc, elemPath)
	default:
		elem, err = scalarNode(head, elemPath)
	}
	if err != nil {
		return nil, err
	}
	return &ArrayNode{Element: elem, ContainsNull: true}, nil
}

// scalarNode maps a scalar to its schema type. Null and every runtime type
// outside the closed scalar set fail.
func scalarNode(v any, path string) (Node, error) {
	switch record.KindOf(v) {
	case record.KindBoolean:
		return BooleanType, nil
	case record.KindInteger:
		return IntegerType, nil
	case record.KindFloat:
		return FloatType, nil
	case record.KindString:
		return StringType, nil
	default:
		return nil, newError(ErrUnsupportedType, path, "no schema type for %s", describe(v))
	}
}

func (in *inferrer) has(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func describe(v any) string {
	if k := record.KindOf(v); k != record.KindUnknown {
		return k.String()
	}
	return fmt.Sprintf("%T", v)
}
