package jsonrpc

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strconv"
)

// ValueKind is the closed set of value shapes that cross the wire.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindUnknown
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// KindOf classifies v. Values decoded by Decode are json.Number, string, bool,
// []any, map[string]any or nil; native Go values from call sites are classified
// by their reflected kind.
func KindOf(v any) ValueKind {
	switch v.(type) {
	case nil:
		return KindNull
	case bool:
		return KindBool
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case string, []byte:
		return KindString
	case []any:
		return KindArray
	case map[string]any:
		return KindObject
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return KindNull
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.String:
		return KindString
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return KindObject
		}
	case reflect.Struct:
		return KindObject
	}
	return KindUnknown
}

// NumberString returns the decimal string form of a numeric value.
func NumberString(v any) (string, bool) {
	switch n := v.(type) {
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	}
	return "", false
}

// ParseNumber returns s as a json.Number when s round-trips exactly through
// integer or floating-point parsing ("12", "1.5", integers of any size);
// "012", "1e3" or "1.50" do not.
func ParseNumber(s string) (json.Number, bool) {
	if i, ok := new(big.Int).SetString(s, 10); ok && i.String() == s {
		return json.Number(s), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if strconv.FormatFloat(f, 'f', -1, 64) == s {
			return json.Number(s), true
		}
		// A whole float keeps its ".0" when printed.
		if f == float64(int64(f)) && strconv.FormatFloat(f, 'f', 1, 64) == s {
			return json.Number(s), true
		}
	}
	return "", false
}

// Float64 converts a numeric value to float64.
func Float64(v any) (float64, bool) {
	s, ok := NumberString(v)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

// Int64 converts an integral numeric value to int64.
func Int64(v any) (int64, bool) {
	s, ok := NumberString(v)
	if !ok {
		return 0, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	return i, err == nil
}
