package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CoerceError reports a failed primitive conversion. It carries the expected
// type name and the observed input kind so callers can build structured
// diagnostics.
type CoerceError struct {
	Expected string
	Got      string
	Msg      string
}

func (e CoerceError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("cannot coerce %s to %s: %s", e.Got, e.Expected, e.Msg)
	}
	return fmt.Sprintf("cannot coerce %s to %s", e.Got, e.Expected)
}

func fail(expected string, v any, msg string) error {
	return CoerceError{Expected: expected, Got: KindName(v), Msg: msg}
}

// KindName names the runtime kind of a raw value the way decoded JSON/YAML
// input presents it.
func KindName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case json.Number, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case time.Time:
		return "time"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Int converts a raw value to int64. Accepted inputs: Go integer kinds,
// json.Number and float64 with integral values, and strings that are
// unambiguous integer literals.
func Int(v any) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return 0, fail("int", v, "overflow")
		}
		return int64(t), nil
	case float32:
		return intFromFloat(float64(t))
	case float64:
		return intFromFloat(t)
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		if f, err := t.Float64(); err == nil {
			return intFromFloat(f)
		}
		return 0, fail("int", v, "not an integer literal")
	case string:
		s := strings.TrimSpace(t)
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fail("int", v, "not an integer literal")
		}
		return n, nil
	default:
		return 0, fail("int", v, "")
	}
}

func intFromFloat(f float64) (int64, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, CoerceError{Expected: "int", Got: "number", Msg: "not an integer"}
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, CoerceError{Expected: "int", Got: "number", Msg: "overflow"}
	}
	return int64(f), nil
}

// Float converts a raw value to float64. Accepted inputs: Go numeric kinds,
// json.Number, and strings that are unambiguous numeric literals.
func Float(v any) (float64, error) {
	switch t := v.(type) {
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case int8:
		return float64(t), nil
	case int16:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case uint:
		return float64(t), nil
	case uint8:
		return float64(t), nil
	case uint16:
		return float64(t), nil
	case uint32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, fail("float", v, "not a numeric literal")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fail("float", v, "not a numeric literal")
		}
		return f, nil
	default:
		return 0, fail("float", v, "")
	}
}

// boolTokens is the closed set of textual boolean literals.
var boolTokens = map[string]bool{
	"true":  true,
	"false": false,
	"1":     true,
	"0":     false,
}

// Bool converts a raw value to bool. Accepted inputs: bool, and the canonical
// textual tokens "true"/"false"/"1"/"0" case-insensitively. Numbers are not
// coerced.
func Bool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, ok := boolTokens[strings.ToLower(strings.TrimSpace(t))]
		if !ok {
			return false, fail("bool", v, "not a boolean token")
		}
		return b, nil
	default:
		return false, fail("bool", v, "")
	}
}

// String requires a string value. No implicit stringification of other kinds.
func String(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fail("string", v, "")
	}
	return s, nil
}

// timeLayouts are tried in order for string inputs. RFC3339Nano subsumes
// RFC3339 with fractional seconds; the date-only form covers ISO-8601 dates.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// Time converts a raw value to time.Time. Accepted inputs: time.Time, and
// ISO-8601-shaped strings (RFC3339 with optional fractional seconds, or a
// bare date).
func Time(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fail("time", v, "not an ISO-8601 timestamp")
	default:
		return time.Time{}, fail("time", v, "")
	}
}

// multipleOfEpsilon bounds the remainder tolerance for binary floats.
const multipleOfEpsilon = 1e-9

// IntMultipleOf reports whether v is an exact multiple of n.
func IntMultipleOf(v, n int64) bool {
	if n == 0 {
		return false
	}
	return v%n == 0
}

// FloatMultipleOf reports whether v is a multiple of n within the documented
// epsilon for binary floats.
func FloatMultipleOf(v, n float64) bool {
	if n == 0 {
		return false
	}
	r := math.Abs(math.Mod(v, n))
	return r < multipleOfEpsilon || math.Abs(r-math.Abs(n)) < multipleOfEpsilon
}
