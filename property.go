package astroschema

import (
	"fmt"

	"github.com/lychee-technology/astroschema/jsontree"
)

// PropertyDescriptor is the parsed form of one entry under "properties".
type PropertyDescriptor struct {
	Types          []string `json:"type,omitempty"` // "string", "number", "array", ...
	Description    string   `json:"description,omitempty"`
	Format         string   `json:"format,omitempty"`
	Unique         bool     `json:"unique"`
	Distinguishing bool     `json:"distinguishing"`
	Required       bool     `json:"required"`
	Default        any      `json:"default,omitempty"`
	HasDefault     bool     `json:"-"`
	// Extra holds every other keyword (minimum, enum, $ref, items, ...).
	Extra *jsontree.Object `json:"-"`
}

// ParsePropertyDescriptor reads the descriptor of property name from its
// schema. Boolean schemas parse as empty descriptors. The unique and
// distinguishing flags must be booleans when present.
func ParsePropertyDescriptor(name string, schema any, required []string) (PropertyDescriptor, error) {
	desc := PropertyDescriptor{Extra: jsontree.NewObject(0)}
	for _, r := range required {
		if r == name {
			desc.Required = true
			break
		}
	}

	prop, ok := schema.(*jsontree.Object)
	if !ok {
		return desc, nil
	}

	var err error
	prop.Range(func(key string, value any) bool {
		switch key {
		case "type":
			desc.Types = parseTypes(value)
		case "description":
			desc.Description, _ = value.(string)
		case "format":
			desc.Format, _ = value.(string)
		case "unique", "distinguishing":
			flag, isBool := value.(bool)
			if !isBool {
				err = NewSchemaInvalidError(ErrCodeInvalidKeyFlag,
					fmt.Sprintf("%q must be a boolean, got %v", key, value)).WithField(name)
				return false
			}
			if key == "unique" {
				desc.Unique = flag
			} else {
				desc.Distinguishing = flag
			}
		case "default":
			desc.Default = jsontree.Clone(value)
			desc.HasDefault = true
		default:
			desc.Extra.Set(key, jsontree.Clone(value))
		}
		return true
	})
	if err != nil {
		return PropertyDescriptor{}, err
	}
	return desc, nil
}

func parseTypes(value any) []string {
	switch t := value.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// clone returns a descriptor that shares no mutable state with d.
func (d PropertyDescriptor) clone() PropertyDescriptor {
	out := d
	out.Types = append([]string(nil), d.Types...)
	out.Default = jsontree.Clone(d.Default)
	out.Extra = jsontree.CloneObject(d.Extra)
	return out
}

func (d PropertyDescriptor) equal(o PropertyDescriptor) bool {
	if len(d.Types) != len(o.Types) {
		return false
	}
	for i := range d.Types {
		if d.Types[i] != o.Types[i] {
			return false
		}
	}
	return d.Description == o.Description &&
		d.Format == o.Format &&
		d.Unique == o.Unique &&
		d.Distinguishing == o.Distinguishing &&
		d.Required == o.Required &&
		d.HasDefault == o.HasDefault &&
		jsontree.Equal(d.Default, o.Default) &&
		jsontree.Equal(d.Extra, o.Extra)
}
