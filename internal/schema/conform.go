package schema

import (
	"errors"
	"fmt"

	"github.com/dbsmedya/goingest/internal/record"
	"github.com/dbsmedya/goingest/internal/types"
)

// ErrTypeMismatch is wrapped by every ConformError.
var ErrTypeMismatch = errors.New("type mismatch")

// ConformError reports a record value that does not fit the schema.
type ConformError struct {
	Path string
	Want string
	Got  record.Kind
}

func (e *ConformError) Error() string {
	return fmt.Sprintf("%s at %q: want %s, got %s", ErrTypeMismatch, e.Path, e.Want, e.Got)
}

func (e *ConformError) Unwrap() error {
	return ErrTypeMismatch
}

// Row holds one column value per top-level schema field, in schema order.
// Values are nil, bool, int64, float64 or string; nested struct and array
// columns are JSON text.
type Row []any

// Conform validates rec against s and coerces it into a Row. Keys missing
// from rec, or null, become nil. Keys not in the schema are ignored.
func Conform(rec any, s *StructNode) (Row, error) {
	if record.KindOf(rec) != record.KindMapping {
		return nil, &ConformError{Path: "", Want: "struct", Got: record.KindOf(rec)}
	}
	row := make(Row, len(s.Fields))
	for i, f := range s.Fields {
		v, _ := record.Get(rec, f.Name)
		col, err := ConformColumn(v, f)
		if err != nil {
			return nil, err
		}
		row[i] = col
	}
	return row, nil
}

// ConformColumn coerces the value of a single top-level field.
func ConformColumn(v any, f Field) (any, error) {
	if record.KindOf(v) == record.KindNull {
		return nil, nil
	}
	switch t := f.Type.(type) {
	case *StringNode:
		if s, ok := v.(string); ok {
			return s, nil
		}
		data, err := record.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", f.Name, err)
		}
		return string(data), nil
	case *ScalarNode:
		return coerceScalar(v, t, f.Name)
	default:
		if err := validate(v, f.Type, f.Name); err != nil {
			return nil, err
		}
		data, err := record.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", f.Name, err)
		}
		return string(data), nil
	}
}

func coerceScalar(v any, t *ScalarNode, path string) (any, error) {
	switch t.kind {
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindInteger:
		if n, ok := types.ToInt64(v); ok {
			return n, nil
		}
	case KindFloat:
		if f, ok := types.ToFloat64(v); ok {
			return f, nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	}
	return nil, &ConformError{Path: path, Want: t.String(), Got: record.KindOf(v)}
}

// validate checks v against n without coercing it.
func validate(v any, n Node, path string) error {
	if record.KindOf(v) == record.KindNull {
		return nil
	}
	switch t := n.(type) {
	case *StringNode:
		return nil
	case *ScalarNode:
		_, err := coerceScalar(v, t, path)
		return err
	case *StructNode:
		if record.KindOf(v) != record.KindMapping {
			return &ConformError{Path: path, Want: "struct", Got: record.KindOf(v)}
		}
		for _, f := range t.Fields {
			fv, _ := record.Get(v, f.Name)
			if err := validate(fv, f.Type, joinPath(path, f.Name)); err != nil {
				return err
			}
		}
		return nil
	case *ArrayNode:
		seq, ok := v.([]any)
		if !ok {
			return &ConformError{Path: path, Want: "array", Got: record.KindOf(v)}
		}
		if t.Placeholder {
			// element type was never observed
			return nil
		}
		for _, item := range seq {
			if err := validate(item, t.Element, path+"[]"); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown schema node %T at %q", n, path)
	}
}
