package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// ToInt64 converts a numeric value to int64.
// Supports Go integer kinds, float32/float64 and json.Number. The second
// return value is false when v is not a number, is fractional, or does not
// fit in 64 bits.
func ToInt64(v interface{}) (int64, bool) {
	switch i := v.(type) {
	case int64:
		return i, true
	case int:
		return int64(i), true
	case int32:
		return int64(i), true
	case int16:
		return int64(i), true
	case int8:
		return int64(i), true
	case uint:
		if uint64(i) > math.MaxInt64 {
			return 0, false
		}
		return int64(i), true
	case uint64:
		if i > math.MaxInt64 {
			return 0, false
		}
		return int64(i), true
	case uint32:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint8:
		return int64(i), true
	case float64:
		return floatToInt64(i)
	case float32:
		return floatToInt64(float64(i))
	case json.Number:
		if n, err := strconv.ParseInt(i.String(), 10, 64); err == nil {
			return n, true
		}
		f, err := i.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

// ToFloat64 converts a numeric value to float64.
func ToFloat64(v interface{}) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	case json.Number:
		n, err := f.Float64()
		if err != nil {
			return 0, false
		}
		return n, true
	}
	if n, ok := ToInt64(v); ok {
		return float64(n), true
	}
	return 0, false
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
