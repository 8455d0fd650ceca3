package jsontree

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Clone returns a fully independent deep copy of v.
func Clone(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return (*Object)(nil)
		}
		out := NewObject(t.Len())
		t.Range(func(k string, val any) bool {
			out.Set(k, Clone(val))
			return true
		})
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// CloneObject is Clone for objects.
func CloneObject(o *Object) *Object {
	if o == nil {
		return nil
	}
	return Clone(o).(*Object)
}

// Equal reports structural equality. Numbers compare by value regardless of
// their Go representation; object comparison ignores key order.
func Equal(a, b any) bool {
	if na, ok := AsFloat(a); ok {
		nb, ok := AsFloat(b)
		return ok && na == nb
	}
	switch ta := a.(type) {
	case *Object:
		tb, ok := b.(*Object)
		if !ok || ta.Len() != tb.Len() {
			return false
		}
		equal := true
		ta.Range(func(k string, va any) bool {
			vb, ok := tb.Get(k)
			if !ok || !Equal(va, vb) {
				equal = false
			}
			return equal
		})
		return equal
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	case nil:
		return b == nil
	default:
		return reflect.DeepEqual(a, b)
	}
}

// IsNumber reports whether v is a JSON number.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}

// AsFloat converts any numeric representation to float64.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// FromValue normalizes plain Go values into tree values: maps become
// objects (keys sorted, since Go maps carry no order), typed slices become
// []any. Tree values pass through unchanged.
func FromValue(v any) any {
	switch t := v.(type) {
	case nil, string, bool, json.Number, *Object:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := NewObject(len(keys))
		for _, k := range keys {
			out.Set(k, FromValue(t[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = FromValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	}
	if IsNumber(v) {
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = FromValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		out := NewObject(len(keys))
		for _, k := range keys {
			out.Set(k, FromValue(rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()))
		}
		return out
	}
	return v
}

// ToPlain converts a tree value into map[string]any / []any with numbers as
// int64 when integral and float64 otherwise.
func ToPlain(v any) any {
	switch t := v.(type) {
	case *Object:
		if t == nil {
			return nil
		}
		out := make(map[string]any, t.Len())
		t.Range(func(k string, val any) bool {
			out[k] = ToPlain(val)
			return true
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ToPlain(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToPlain(item)
		}
		return out
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	}
	return v
}

// numberLiteral renders a number in its shortest stable form: integral
// values without a fractional part, others in Go's shortest float format.
func numberLiteral(v any) string {
	if n, ok := v.(json.Number); ok {
		if _, err := strconv.ParseInt(string(n), 10, 64); err == nil {
			return string(n)
		}
	}
	f, _ := AsFloat(v)
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
