package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Marshal encodes a semi-structured value as JSON, keeping the key order of
// ordered Mappings.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeValue(buf *bytes.Buffer, v any) error {
	switch x := v.(type) {
	case Mapping, map[string]any:
		pairs, ok := Pairs(x)
		if !ok {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(p.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encodeValue(buf, p.Value); err != nil {
				return fmt.Errorf("%s: %w", p.Key, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range x {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeValue(buf, item); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return err
		}
		buf.Write(data)
		return nil
	}
}
