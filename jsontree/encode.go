package jsontree

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
)

// MarshalJSON writes the object compactly in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, o, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalJSON replaces the object's content, keeping the input's key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeObject(data)
	if err != nil {
		return err
	}
	*o = *decoded
	return nil
}

// Marshal encodes v compactly, objects in insertion order.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalIndent encodes v with the given indent, objects in insertion order.
func MarshalIndent(v any, indent string) ([]byte, error) {
	compact, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", indent); err != nil {
		return nil, fmt.Errorf("failed to indent json: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalCanonical encodes v compactly with object keys sorted at every
// level and numbers normalized, so equal trees always produce equal bytes.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v any, canonical bool) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case *Object:
		if t == nil {
			buf.WriteString("null")
			return nil
		}
		keys := t.Keys()
		if canonical {
			sort.Strings(keys)
		}
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			val, _ := t.Get(k)
			if err := writeValue(buf, val, canonical); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item, canonical); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case string:
		return writeString(buf, t)
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		if canonical {
			buf.WriteString(numberLiteral(t))
		} else {
			buf.WriteString(string(t))
		}
		return nil
	}
	if IsNumber(v) {
		if canonical {
			buf.WriteString(numberLiteral(v))
			return nil
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(encoded)
		return nil
	}
	normalized := FromValue(v)
	if _, isObj := normalized.(*Object); isObj {
		return writeValue(buf, normalized, canonical)
	}
	if _, isArr := normalized.([]any); isArr {
		return writeValue(buf, normalized, canonical)
	}
	encoded, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return fmt.Errorf("unsupported value %T: %w", v, err)
	}
	buf.Write(encoded)
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	encoded, err := json.MarshalWithOption(s, json.DisableHTMLEscape())
	if err != nil {
		return err
	}
	buf.Write(encoded)
	return nil
}
