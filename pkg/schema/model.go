package schema

import (
	"context"
	"fmt"
	"strings"
)

// Model is one source-of-truth model definition as exposed by the surrounding
// application: a name, an ordered field list and the native type of each
// field. Adapters produce Models; the introspector consumes them.
type Model struct {
	Name        string
	Description string
	// Location records the document the model came from, for error reports.
	Location string
	Fields   []Field
}

// Field is a declared model property. Field order is significant.
type Field struct {
	Name     string
	Required bool
	Node     *Node
}

// Node describes a field's declared type using the source's native
// (JSON-Schema shaped) type system. Constraint keywords are kept as
// Annotations in document order so nothing is lost before introspection.
type Node struct {
	Types       []string
	Format      string
	Ref         string
	Enum        []any
	Const       any
	HasConst    bool
	Items       *Node
	AnyOf       []*Node
	OneOf       []*Node
	AllOf       []*Node
	Properties  []Field
	Nullable    bool
	Title       string
	Description string
	Default     any
	Annotations []Annotation
}

// Annotation is a single constraint keyword attached to a node.
type Annotation struct {
	Keyword string
	Value   any
}

// Annotation returns the first annotation with the given keyword.
func (n *Node) Annotation(keyword string) (Annotation, bool) {
	if n == nil {
		return Annotation{}, false
	}
	for _, annotation := range n.Annotations {
		if annotation.Keyword == keyword {
			return annotation, true
		}
	}
	return Annotation{}, false
}

// HasType reports whether the node declares the given JSON type.
func (n *Node) HasType(name string) bool {
	if n == nil {
		return false
	}
	for _, t := range n.Types {
		if t == name {
			return true
		}
	}
	return false
}

// String renders a compact description used in error messages.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var parts []string
	if len(n.Types) > 0 {
		parts = append(parts, "type="+strings.Join(n.Types, "|"))
	}
	if n.Ref != "" {
		parts = append(parts, "ref="+n.Ref)
	}
	if n.Format != "" {
		parts = append(parts, "format="+n.Format)
	}
	if len(n.Enum) > 0 {
		parts = append(parts, fmt.Sprintf("enum=%d", len(n.Enum)))
	}
	if len(n.AnyOf) > 0 {
		parts = append(parts, fmt.Sprintf("anyOf=%d", len(n.AnyOf)))
	}
	if len(n.OneOf) > 0 {
		parts = append(parts, fmt.Sprintf("oneOf=%d", len(n.OneOf)))
	}
	if len(n.AllOf) > 0 {
		parts = append(parts, fmt.Sprintf("allOf=%d", len(n.AllOf)))
	}
	if len(n.Properties) > 0 {
		parts = append(parts, fmt.Sprintf("properties=%d", len(n.Properties)))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// RefName returns the trailing segment of a local reference such as
// "#/$defs/PostAuthor" or "#/components/schemas/PostAuthor".
func RefName(ref string) string {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return ""
	}
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.ReplaceAll(trimmed, "~1", "/")
	return strings.ReplaceAll(trimmed, "~0", "~")
}

// FormatAdapter turns a loaded document into source models.
type FormatAdapter interface {
	Name() string
	Detect(src Source, raw []byte) bool
	Models(ctx context.Context, doc Document) ([]Model, error)
}
