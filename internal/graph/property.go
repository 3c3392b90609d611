package graph

import (
	"fmt"
	"strings"
)

// HandleInfix is the registry's handle prefix that may or may not appear
// between the "doi:" scheme and the type-id segment of a property IRI.
// "doi:X#Y" and "doi:21.T11969/X#Y" address the same property.
const HandleInfix = "21.T11969/"

// AlternateSpelling returns the other spelling of a "doi:" property IRI,
// inserting or stripping the handle infix. Non-doi identifiers have no
// alternate.
func AlternateSpelling(property string) (string, bool) {
	rest, ok := strings.CutPrefix(property, "doi:")
	if !ok {
		return "", false
	}
	if after, ok := strings.CutPrefix(rest, HandleInfix); ok {
		return "doi:" + after, true
	}
	return "doi:" + HandleInfix + rest, true
}

// ResolveProperty looks a registry-declared property up in a node, trying the
// declared spelling first and its alternate second. Absent on both means
// (nil, false); it never fails.
func ResolveProperty(n Node, declared string) (any, bool) {
	if v, ok := n[declared]; ok {
		return v, true
	}
	if alt, ok := AlternateSpelling(declared); ok {
		if v, ok := n[alt]; ok {
			return v, true
		}
	}
	return nil, false
}

// PropertyInfo resolves a property by type-qualified logical name, forming
// "{@type}#{logical}" and applying the same two-spelling rule. Sub-decoders
// use it for inline nodes whose properties were never declared by the
// registry. The only error is a node without @type; callers treat that as a
// decode-skip.
func PropertyInfo(n Node, logical string) (any, bool, error) {
	t := n.Type()
	if t == "" {
		return nil, false, fmt.Errorf("node %q has no @type for property %q", n.ID(), logical)
	}
	v, ok := ResolveProperty(n, t+"#"+logical)
	return v, ok, nil
}
