// Package jsontree holds the ordered JSON value model shared by schema
// documents and records. Objects keep key insertion order so documents
// round-trip with reproducible diffs.
package jsontree

import (
	"sort"
)

// Object is a string-keyed JSON object that preserves insertion order.
// The zero value is an empty object ready to use.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject creates an empty object with room for n keys.
func NewObject(n int) *Object {
	return &Object{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Pairs builds an object from alternating key/value arguments.
// Keys must be strings; a trailing key without value is stored as null.
func Pairs(kv ...any) *Object {
	o := NewObject(len(kv) / 2)
	for i := 0; i < len(kv); i += 2 {
		key, _ := kv[i].(string)
		var value any
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		o.Set(key, FromValue(value))
	}
	return o
}

// Len returns the number of keys.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	if o == nil || o.values == nil {
		return false
	}
	_, ok := o.values[key]
	return ok
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	if o == nil || o.values == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// GetObject returns the nested object stored under key, or nil.
func (o *Object) GetObject(key string) *Object {
	v, _ := o.Get(key)
	child, _ := v.(*Object)
	return child
}

// GetString returns the string stored under key, or "".
func (o *Object) GetString(key string) string {
	v, _ := o.Get(key)
	s, _ := v.(string)
	return s
}

// Set stores value under key. New keys are appended, existing keys keep
// their position.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Delete removes key, keeping the order of the remaining keys.
func (o *Object) Delete(key string) {
	if !o.Has(key) {
		return
	}
	delete(o.values, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns a copy of the keys in insertion order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// SortedKeys returns the keys in lexical order.
func (o *Object) SortedKeys() []string {
	out := o.Keys()
	sort.Strings(out)
	return out
}

// Range calls fn for each entry in insertion order until fn returns false.
func (o *Object) Range(fn func(key string, value any) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// ShallowCopy copies the top level only; nested values are shared.
func (o *Object) ShallowCopy() *Object {
	out := NewObject(o.Len())
	o.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}
