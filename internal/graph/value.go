package graph

import (
	"fmt"
	"strings"
)

// AsString coerces a scalar JSON value to a trimmed string. Numbers keep
// their literal form; anything non-scalar yields "".
func AsString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		return ""
	}
}

// AsList coerces a value to a list: scalars and objects become a one-element
// list, nil becomes empty. Messy documents mix the two shapes freely.
func AsList(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	default:
		return []any{x}
	}
}

// AsStrings coerces a scalar-or-list value into its non-empty string forms.
func AsStrings(v any) []string {
	var out []string
	for _, e := range AsList(v) {
		if s := AsString(e); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// AsNode returns the value as a Node when it is a JSON object.
func AsNode(v any) (Node, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Node(m), true
}

// RefID extracts a node reference: either a bare IRI string or an object
// carrying "@id".
func RefID(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case map[string]any:
		return AsString(x["@id"])
	default:
		return ""
	}
}

// RefIDs extracts all non-empty references from a scalar-or-list value.
func RefIDs(v any) []string {
	var out []string
	for _, e := range AsList(v) {
		if id := RefID(e); id != "" {
			out = append(out, id)
		}
	}
	return out
}
