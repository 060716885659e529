package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxDecodeDepth bounds object/array nesting accepted by the decoder.
const MaxDecodeDepth = 1000

// ErrNotMapping is returned when a record is required but the decoded value
// is not a JSON object.
var ErrNotMapping = errors.New("value is not a JSON object")

// ErrTooDeep is returned when a document nests deeper than MaxDecodeDepth.
var ErrTooDeep = errors.New("JSON nesting too deep")

// Decode reads a single JSON value from r. Objects become ordered Mappings,
// arrays []any and numbers json.Number.
func Decode(r io.Reader) (any, error) {
	dec := newDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("decode: empty input")
		}
		return nil, fmt.Errorf("decode: %w", err)
	}
	v, err := decodeValue(dec, tok, 0)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode: unexpected data after top-level value")
	}
	return v, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(data []byte) (any, error) {
	return Decode(bytes.NewReader(data))
}

// DecodeMapping decodes a single JSON object.
func DecodeMapping(r io.Reader) (Mapping, error) {
	v, err := Decode(r)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Mapping)
	if !ok {
		return nil, fmt.Errorf("%w (got %s)", ErrNotMapping, KindOf(v))
	}
	return m, nil
}

// DecodeRecords reads every record from r. The input may be a single array
// of objects, a single object, or a stream of objects (NDJSON).
func DecodeRecords(r io.Reader) ([]Mapping, error) {
	dec := newDecoder(r)
	var records []Mapping
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		v, err := decodeValue(dec, tok, 0)
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		switch x := v.(type) {
		case Mapping:
			records = append(records, x)
		case []any:
			items, err := ToRecords(x)
			if err != nil {
				return nil, err
			}
			records = append(records, items...)
		default:
			return nil, fmt.Errorf("decode record %d: %w (got %s)", len(records), ErrNotMapping, KindOf(v))
		}
	}
}

// ToRecords asserts that every element of seq is a Mapping.
func ToRecords(seq []any) ([]Mapping, error) {
	records := make([]Mapping, 0, len(seq))
	for i, item := range seq {
		m, ok := item.(Mapping)
		if !ok {
			return nil, fmt.Errorf("item %d: %w (got %s)", i, ErrNotMapping, KindOf(item))
		}
		records = append(records, m)
	}
	return records, nil
}

func newDecoder(r io.Reader) *json.Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}

func decodeValue(dec *json.Decoder, tok json.Token, depth int) (any, error) {
	delim, ok := tok.(json.Delim)
	if !ok {
		// string, bool, json.Number or nil
		return tok, nil
	}
	if depth >= MaxDecodeDepth {
		return nil, ErrTooDeep
	}

	switch delim {
	case '{':
		m := NewMapping()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("unexpected object key %v", keyTok)
			}
			valTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			val, err := decodeValue(dec, valTok, depth+1)
			if err != nil {
				return nil, err
			}
			m.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		seq := make([]any, 0)
		for dec.More() {
			itemTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			item, err := decodeValue(dec, itemTok, depth+1)
			if err != nil {
				return nil, err
			}
			seq = append(seq, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return seq, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}
