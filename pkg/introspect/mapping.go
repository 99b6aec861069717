package introspect

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/goliatone/go-schemasync/pkg/ir"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

type fieldMapper struct {
	model    string
	field    string
	unmapped []ir.UnmappedConstraint
}

func (m *fieldMapper) fail(format string, args ...any) *ir.IntrospectionError {
	return ir.Errorf(m.model, m.field, format, args...)
}

func (m *fieldMapper) skip(constraint, reason string) {
	m.unmapped = append(m.unmapped, ir.UnmappedConstraint{
		Model:      m.model,
		Field:      m.field,
		Constraint: constraint,
		Stage:      Stage,
		Reason:     reason,
	})
}

func (m *fieldMapper) mapField(field schema.Field) (ir.FieldDefinition, *ir.IntrospectionError) {
	if field.Node == nil {
		return ir.FieldDefinition{}, m.fail("field has no declared type")
	}
	typ, constraints, err := m.mapType(field.Node, 0)
	if err != nil {
		return ir.FieldDefinition{}, err
	}
	if !field.Required {
		typ = ir.Optional{Elem: typ}
	}
	return ir.FieldDefinition{
		Name:        field.Name,
		Type:        typ,
		Required:    field.Required,
		Constraints: constraints,
		Doc:         SanitizeDoc(field.Node.Description),
	}, nil
}

// mapType maps node at the given list depth: 0 is the field itself, 1 its
// list elements and so on.
func (m *fieldMapper) mapType(node *schema.Node, depth int) (ir.SemanticType, []ir.Constraint, *ir.IntrospectionError) {
	node, nullable, err := m.unwrap(node)
	if err != nil {
		return nil, nil, err
	}

	var (
		typ       ir.SemanticType
		itemRules []ir.Constraint
	)
	types := nonNullTypes(node.Types)
	switch {
	case node.Ref != "":
		name := schema.RefName(node.Ref)
		if name == "" {
			return nil, nil, m.fail("reference %q has no model name", node.Ref)
		}
		typ = ir.ModelRef{Name: name}
	case len(node.Enum) > 0:
		enum, enumNullable, err := m.enum(node)
		if err != nil {
			return nil, nil, err
		}
		typ = enum
		nullable = nullable || enumNullable
	case node.HasConst:
		value, ok := node.Const.(string)
		if !ok {
			return nil, nil, m.fail("const %v is not a string", node.Const)
		}
		typ = ir.Enum{Name: m.enumName(node), Members: []string{value}}
	case len(types) > 1:
		return nil, nil, m.fail("union of types %s is not supported", strings.Join(types, ", "))
	case len(types) == 0:
		if len(node.Properties) > 0 {
			return nil, nil, m.fail("inline object schemas are not supported; declare a named model and reference it")
		}
		return nil, nil, m.fail("field has no declared type")
	default:
		switch types[0] {
		case "string":
			typ = ir.String()
		case "integer":
			typ = ir.Int()
		case "number":
			typ = ir.Float()
		case "boolean":
			typ = ir.Bool()
		case "array":
			if node.Items == nil {
				return nil, nil, m.fail("array has no item type")
			}
			elem, rules, err := m.mapType(node.Items, depth+1)
			if err != nil {
				return nil, nil, err
			}
			if ir.IsOptional(elem) {
				return nil, nil, m.fail("list elements cannot be optional")
			}
			typ = ir.List{Elem: elem}
			itemRules = rules
		case "object":
			if len(node.Properties) > 0 {
				return nil, nil, m.fail("inline object schemas are not supported; declare a named model and reference it")
			}
			return nil, nil, m.fail("unstructured object has no fixed shape; declare a named model and reference it")
		case "null":
			return nil, nil, m.fail("field only admits null")
		default:
			return nil, nil, m.fail("unknown type %q", types[0])
		}
	}

	constraints := m.constraints(node, typ)
	switch {
	case depth == 1:
		for i := range constraints {
			constraints[i] = constraints[i].OnItems()
		}
	case depth > 1:
		for _, c := range constraints {
			m.skip(c.String(), "constraints on nested list elements cannot be expressed")
		}
		constraints = nil
	}
	constraints = append(constraints, itemRules...)

	if nullable {
		typ = ir.Nullable{Elem: typ}
	}
	return typ, constraints, nil
}

// unwrap folds the nullable encodings (nullable: true, type lists holding
// "null", anyOf/oneOf with a null branch) and single-branch allOf wrappers
// into one node plus a nullable flag.
func (m *fieldMapper) unwrap(node *schema.Node) (*schema.Node, bool, *ir.IntrospectionError) {
	nullable := node.Nullable
	if node.HasType("null") && len(node.Types) > 1 {
		nullable = true
	}

	if len(node.AllOf) > 0 {
		if len(node.AllOf) > 1 {
			return nil, false, m.fail("allOf composition of %d schemas is not supported", len(node.AllOf))
		}
		inner, innerNullable, err := m.unwrap(merge(node, node.AllOf[0]))
		if err != nil {
			return nil, false, err
		}
		return inner, nullable || innerNullable, nil
	}

	for _, variants := range [][]*schema.Node{node.AnyOf, node.OneOf} {
		if len(variants) == 0 {
			continue
		}
		var branches []*schema.Node
		for _, variant := range variants {
			if isNull(variant) {
				nullable = true
				continue
			}
			branches = append(branches, variant)
		}
		if len(branches) != 1 {
			return nil, false, m.fail("union of %d schemas is not supported; only X | null is", len(branches))
		}
		inner, innerNullable, err := m.unwrap(merge(node, branches[0]))
		if err != nil {
			return nil, false, err
		}
		return inner, nullable || innerNullable, nil
	}
	return node, nullable, nil
}

func (m *fieldMapper) enum(node *schema.Node) (ir.Enum, bool, *ir.IntrospectionError) {
	for _, t := range nonNullTypes(node.Types) {
		if t != "string" {
			return ir.Enum{}, false, m.fail("enum of type %q is not supported; members must be strings", t)
		}
	}
	var (
		members  []string
		nullable bool
	)
	for _, value := range node.Enum {
		switch v := value.(type) {
		case nil:
			nullable = true
		case string:
			members = append(members, v)
		default:
			return ir.Enum{}, false, m.fail("enum member %v is not a string", value)
		}
	}
	if len(members) == 0 {
		return ir.Enum{}, false, m.fail("enum has no string members")
	}
	return ir.Enum{Name: m.enumName(node), Members: members}, nullable, nil
}

func (m *fieldMapper) enumName(node *schema.Node) string {
	if name := pascal(node.Title); name != "" {
		return name
	}
	return m.model + pascal(m.field)
}

// merge combines a wrapper node (outer) with the branch it wraps (inner).
// The branch decides the type; the wrapper contributes documentation and
// any constraint keywords declared next to the union.
func merge(outer, inner *schema.Node) *schema.Node {
	out := *inner
	if strings.TrimSpace(out.Description) == "" {
		out.Description = outer.Description
	}
	if out.Default == nil {
		out.Default = outer.Default
	}
	if out.Format == "" {
		out.Format = outer.Format
	}
	out.Nullable = out.Nullable || outer.Nullable
	out.Annotations = append(append([]schema.Annotation(nil), inner.Annotations...), outer.Annotations...)
	return &out
}

func isNull(node *schema.Node) bool {
	if node == nil {
		return false
	}
	if node.Ref != "" || len(node.AnyOf) > 0 || len(node.OneOf) > 0 || len(node.AllOf) > 0 {
		return false
	}
	return len(node.Types) == 1 && node.Types[0] == "null"
}

func nonNullTypes(types []string) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		if t != "null" {
			out = append(out, t)
		}
	}
	return out
}

// pascal turns "display name", "display_name" or "Display Name" into
// "DisplayName".
func pascal(value string) string {
	var b strings.Builder
	upper := true
	for _, r := range strings.TrimSpace(value) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func describe(keyword string, value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return keyword
		}
	case nil:
		return keyword
	}
	return fmt.Sprintf("%s(%v)", keyword, value)
}
