package validator

import (
	"regexp"
	"strings"

	"github.com/lychee-technology/astroschema/jsontree"
)

// Custom format names understood by the validator.
const (
	FormatNumeric   = "numeric"
	FormatAstroTime = "astrotime"
)

const numericPattern = `^-?[0-9]+(\.[0-9]*)?([eE][-+]?[0-9]+)?$`

var numericRe = regexp.MustCompile(numericPattern)

// IsNumeric reports whether v is a number or a string holding a numeric
// literal with no surrounding whitespace. Lists are never numeric.
func IsNumeric(v any) bool {
	if jsontree.IsNumber(v) {
		return true
	}
	s, ok := v.(string)
	return ok && numericRe.MatchString(s)
}

// IsAstroTime reports whether v is numeric or a date-like string.
func IsAstroTime(v any) bool {
	if IsNumeric(v) {
		return true
	}
	s, ok := v.(string)
	return ok && strings.ContainsAny(s, "-/")
}

// numericSchema is the structural equivalent of the numeric format.
func numericSchema() *jsontree.Object {
	return jsontree.Pairs(
		"type", []any{"number", "string"},
		"pattern", numericPattern,
	)
}

// astroTimeSchema is the structural equivalent of the astrotime format.
func astroTimeSchema() *jsontree.Object {
	return jsontree.Pairs(
		"anyOf", []any{
			numericSchema(),
			jsontree.Pairs("type", "string", "pattern", "[-/]"),
		},
	)
}

// lowerFormats rewrites the custom formats into allOf constraints, since the
// engine treats format as an annotation only. The tree is modified in place.
func lowerFormats(node any) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			lowerFormats(item)
		}
	case *jsontree.Object:
		v.Range(func(key string, value any) bool {
			switch key {
			case "enum", "const", "default", "examples":
				return true
			}
			lowerFormats(value)
			return true
		})
		var constraint *jsontree.Object
		switch v.GetString("format") {
		case FormatNumeric:
			constraint = numericSchema()
		case FormatAstroTime:
			constraint = astroTimeSchema()
		default:
			return
		}
		allOf, _ := v.Get("allOf")
		list, _ := allOf.([]any)
		v.Set("allOf", append(list, constraint))
	}
}
