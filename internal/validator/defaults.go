package validator

import (
	"github.com/lychee-technology/astroschema/jsontree"
)

// InjectDefaults fills absent object members that declare a default, then
// walks into present members, array items and the allOf/anyOf/oneOf
// branches. Every branch is visited whether or not it ends up matching.
// Returns the number of values injected.
func InjectDefaults(schema *jsontree.Object, instance any) int {
	if schema == nil {
		return 0
	}
	injected := 0

	if props := schema.GetObject("properties"); props != nil {
		switch obj := instance.(type) {
		case *jsontree.Object:
			props.Range(func(name string, sub any) bool {
				subSchema, ok := sub.(*jsontree.Object)
				if !ok || obj.Has(name) {
					return true
				}
				if def, ok := subSchema.Get("default"); ok {
					obj.Set(name, jsontree.Clone(def))
					injected++
				}
				return true
			})
			props.Range(func(name string, sub any) bool {
				if child, ok := obj.Get(name); ok {
					subSchema, _ := sub.(*jsontree.Object)
					injected += InjectDefaults(subSchema, child)
				}
				return true
			})
		case map[string]any:
			props.Range(func(name string, sub any) bool {
				subSchema, ok := sub.(*jsontree.Object)
				if !ok {
					return true
				}
				if _, present := obj[name]; !present {
					if def, ok := subSchema.Get("default"); ok {
						obj[name] = jsontree.ToPlain(jsontree.Clone(def))
						injected++
					}
				}
				return true
			})
			props.Range(func(name string, sub any) bool {
				if child, ok := obj[name]; ok {
					subSchema, _ := sub.(*jsontree.Object)
					injected += InjectDefaults(subSchema, child)
				}
				return true
			})
		}
	}

	if deps := schema.GetObject("dependencies"); deps != nil {
		deps.Range(func(name string, dep any) bool {
			depSchema, ok := dep.(*jsontree.Object)
			if ok && hasMember(instance, name) {
				injected += InjectDefaults(depSchema, instance)
			}
			return true
		})
	}

	if items, ok := schema.Get("items"); ok {
		elems, _ := instance.([]any)
		switch it := items.(type) {
		case *jsontree.Object:
			for _, elem := range elems {
				injected += InjectDefaults(it, elem)
			}
		case []any:
			for i, elem := range elems {
				if i >= len(it) {
					break
				}
				sub, _ := it[i].(*jsontree.Object)
				injected += InjectDefaults(sub, elem)
			}
		}
	}

	for _, keyword := range []string{"allOf", "anyOf", "oneOf"} {
		branches, _ := schema.Get(keyword)
		list, _ := branches.([]any)
		for _, b := range list {
			sub, _ := b.(*jsontree.Object)
			injected += InjectDefaults(sub, instance)
		}
	}
	return injected
}

func hasMember(instance any, name string) bool {
	switch obj := instance.(type) {
	case *jsontree.Object:
		return obj.Has(name)
	case map[string]any:
		_, ok := obj[name]
		return ok
	}
	return false
}
