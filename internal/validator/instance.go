package validator

import (
	"strconv"
	"strings"

	"github.com/lychee-technology/astroschema/jsontree"
)

// instancePath follows schemaPath through the compiled tree and maps it
// onto instance, a plain value. Array elements are named by the index of
// the first element that fails the items schema. The walk stops at the
// first keyword it cannot map, so the result may be a prefix.
func (c *Compiled) instancePath(schemaPath string, instance any) string {
	tokens := splitPointer(schemaPath)
	var node any = c.tree
	var out strings.Builder
	for i := 0; i < len(tokens); i++ {
		schema, ok := node.(*jsontree.Object)
		if !ok {
			break
		}
		switch tok := tokens[i]; tok {
		case "properties", "dependencies":
			if i+1 >= len(tokens) {
				return out.String()
			}
			name := tokens[i+1]
			node = schemaMember(schema, tok, name)
			i++
			if tok == "properties" {
				obj, _ := instance.(map[string]any)
				instance = obj[name]
				out.WriteString("/" + escapePointer(name))
			}
		case "allOf", "anyOf", "oneOf":
			if i+1 >= len(tokens) {
				return out.String()
			}
			branches, _ := schema.Get(tok)
			list, _ := branches.([]any)
			n, err := strconv.Atoi(tokens[i+1])
			if err != nil || n < 0 || n >= len(list) {
				return out.String()
			}
			node = list[n]
			i++
		case "not", "if", "then", "else":
			node, _ = schema.Get(tok)
		case "items":
			items, _ := schema.Get(tok)
			elems, ok := instance.([]any)
			if !ok {
				return out.String()
			}
			if tuple, isTuple := items.([]any); isTuple {
				if i+1 >= len(tokens) {
					return out.String()
				}
				n, err := strconv.Atoi(tokens[i+1])
				if err != nil || n < 0 || n >= len(tuple) || n >= len(elems) {
					return out.String()
				}
				node, instance = tuple[n], elems[n]
				out.WriteString("/" + tokens[i+1])
				i++
				continue
			}
			sub, ok := items.(*jsontree.Object)
			if !ok {
				return out.String()
			}
			n := firstFailing(sub, elems)
			if n < 0 {
				return out.String()
			}
			node, instance = sub, elems[n]
			out.WriteString("/" + strconv.Itoa(n))
		default:
			return out.String()
		}
	}
	return out.String()
}

func schemaMember(schema *jsontree.Object, keyword, name string) any {
	group := schema.GetObject(keyword)
	if group == nil {
		return nil
	}
	v, _ := group.Get(name)
	return v
}

// firstFailing returns the index of the first element that schema rejects,
// or -1.
func firstFailing(schema *jsontree.Object, elems []any) int {
	resolved, err := resolve(schema)
	if err != nil {
		return -1
	}
	for i, elem := range elems {
		if resolved.Validate(elem) != nil {
			return i
		}
	}
	return -1
}

func splitPointer(p string) []string {
	p = strings.TrimPrefix(p, "#")
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
	}
	return parts
}

func escapePointer(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1")
}
