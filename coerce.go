// FILE: confschema/coerce.go
package confschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

var (
	errNotText     = errors.New("value is not text")
	errNotInChoice = errors.New("value is not an allowed choice")
	errNestedList  = errors.New("nested sequences are not supported")
	errOverflow    = errors.New("integer overflows int64")
	errNull        = errors.New("value is null")
	errNonFinite   = errors.New("float is not finite")
)

// coerceValue converts a raw value (text or decoder-native) to the native
// representation of the entry. It returns a plain error; callers attach
// path and provenance.
func coerceValue(e Entry, raw any) (any, error) {
	if raw == nil {
		return nil, errNull
	}
	if e.Type == TypeList {
		return coerceList(e, raw)
	}
	return coerceScalar(e.Type, e.Choices, raw)
}

func coerceScalar(t ValueType, choices []string, raw any) (any, error) {
	if raw == nil {
		return nil, errNull
	}
	switch t {
	case TypeBool:
		return coerceBool(raw)
	case TypeInt:
		return coerceInt(raw)
	case TypeFloat:
		return coerceFloat(raw)
	case TypeString, TypePath:
		return coerceString(raw)
	case TypeChoice:
		return coerceChoice(raw, choices)
	default:
		return nil, fmt.Errorf("no scalar coercion for type %s", t)
	}
}

// parseBool accepts true/false, yes/no, on/off and 1/0 in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("cannot parse %q as bool", s)
}

func coerceBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return parseBool(v)
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

func coerceInt(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case json.Number:
		return v.Int64()
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if rv.Uint() > math.MaxInt64 {
			return nil, errOverflow
		}
		return int64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

// coerceFloat rejects NaN and infinities, which no file format round-trips.
func coerceFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, err
		}
		return finite(f)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, err
		}
		return finite(f)
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("unexpected %T", raw)
}

func finite(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errNonFinite
	}
	return f, nil
}

func coerceString(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		return s, nil
	}
	return nil, errNotText
}

func coerceChoice(raw any, choices []string) (any, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, errNotText
	}
	if !slices.Contains(choices, s) {
		return nil, errNotInChoice
	}
	return s, nil
}

// splitList splits textual list input by sep, trimming every item.
// An empty separator splits on whitespace; blank input is an empty list.
func splitList(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if sep == "" {
		return strings.Fields(s)
	}
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func coerceList(e Entry, raw any) (any, error) {
	var items []any
	switch v := raw.(type) {
	case string:
		for _, item := range splitList(v, e.Separator) {
			items = append(items, item)
		}
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("unexpected %T", raw)
		}
		for i := range rv.Len() {
			items = append(items, rv.Index(i).Interface())
		}
	}

	out := newTypedSlice(e.Elem, len(items))
	for i, item := range items {
		if item != nil {
			kind := reflect.TypeOf(item).Kind()
			if kind == reflect.Slice || kind == reflect.Array || kind == reflect.Map {
				return nil, errNestedList
			}
		}
		value, err := coerceScalar(e.Elem, e.Choices, item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = appendTyped(out, value)
	}
	return out, nil
}

func newTypedSlice(elem ValueType, n int) any {
	switch elem {
	case TypeBool:
		return make([]bool, 0, n)
	case TypeInt:
		return make([]int64, 0, n)
	case TypeFloat:
		return make([]float64, 0, n)
	default:
		return make([]string, 0, n)
	}
}

func appendTyped(slice, value any) any {
	switch s := slice.(type) {
	case []bool:
		return append(s, value.(bool))
	case []int64:
		return append(s, value.(int64))
	case []float64:
		return append(s, value.(float64))
	case []string:
		return append(s, value.(string))
	}
	return slice
}

// formatValue renders a native value as text that coerceValue accepts back.
func formatValue(e Entry, v any) string {
	switch t := v.(type) {
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case string:
		return t
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice {
		sep := e.Separator
		if sep == "" {
			sep = " "
		}
		parts := make([]string, rv.Len())
		for i := range rv.Len() {
			parts[i] = formatValue(e, rv.Index(i).Interface())
		}
		return strings.Join(parts, sep)
	}
	return fmt.Sprint(v)
}

// valuesEqual compares two native values, including typed slices.
func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
