package openapi

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// orderIndex records mapping key order by JSON pointer. kin-openapi decodes
// schemas into Go maps, so declaration order is recovered from the raw
// payload.
type orderIndex map[string][]string

func buildOrderIndex(raw []byte) (orderIndex, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("openapi: index document: %w", err)
	}
	idx := make(orderIndex)
	if len(doc.Content) > 0 {
		idx.walk(doc.Content[0], "#")
	}
	return idx, nil
}

func (idx orderIndex) walk(n *yaml.Node, pointer string) {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	if n == nil {
		return
	}
	switch n.Kind {
	case yaml.MappingNode:
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			keys = append(keys, key)
			idx.walk(n.Content[i+1], pointer+"/"+escapePointer(key))
		}
		idx[pointer] = keys
	case yaml.SequenceNode:
		for i, child := range n.Content {
			idx.walk(child, fmt.Sprintf("%s/%d", pointer, i))
		}
	}
}

// keys returns the names of m ordered as declared at pointer. Names the
// index does not know about follow in lexical order.
func (idx orderIndex) keys(pointer string, names []string) []string {
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
	}
	out := make([]string, 0, len(names))
	for _, name := range idx[pointer] {
		if _, ok := present[name]; ok {
			out = append(out, name)
			delete(present, name)
		}
	}
	rest := make([]string, 0, len(present))
	for name := range present {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func escapePointer(value string) string {
	value = strings.ReplaceAll(value, "~", "~0")
	return strings.ReplaceAll(value, "/", "~1")
}
