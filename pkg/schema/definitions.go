package schema

import (
	"fmt"
	"strings"
)

// Definition is a named node declared by a document ($defs, definitions,
// components.schemas or a Go type).
type Definition struct {
	Name string
	Node *Node
}

// IsObject reports whether the node declares a structured object: an
// explicit object type or a property list, without a $ref.
func (n *Node) IsObject() bool {
	if n == nil || n.Ref != "" {
		return false
	}
	return len(n.Properties) > 0 || (n.HasType("object") && len(n.Enum) == 0)
}

// ModelsFromDefinitions turns object definitions into Models. Every other
// definition (enums, constrained scalars, lists) is an alias: references to
// it are replaced by a copy of its node so the introspector only ever sees
// references between models. Definition order is preserved.
func ModelsFromDefinitions(location string, defs []Definition) ([]Model, error) {
	aliases := make(map[string]*Node)
	for _, def := range defs {
		if def.Node == nil {
			return nil, fmt.Errorf("schema: definition %q has no schema", def.Name)
		}
		if !def.Node.IsObject() {
			aliases[def.Name] = def.Node
		}
	}

	r := aliasResolver{aliases: aliases}
	var models []Model
	for _, def := range defs {
		if !def.Node.IsObject() {
			continue
		}
		model := Model{
			Name:        def.Name,
			Description: strings.TrimSpace(def.Node.Description),
			Location:    location,
			Fields:      make([]Field, 0, len(def.Node.Properties)),
		}
		for _, field := range def.Node.Properties {
			node, err := r.resolve(field.Node, nil)
			if err != nil {
				return nil, fmt.Errorf("schema: %s.%s: %w", def.Name, field.Name, err)
			}
			model.Fields = append(model.Fields, Field{Name: field.Name, Required: field.Required, Node: node})
		}
		models = append(models, model)
	}
	return models, nil
}

type aliasResolver struct {
	aliases map[string]*Node
}

func (r aliasResolver) resolve(node *Node, stack []string) (*Node, error) {
	if node == nil {
		return nil, nil
	}
	out := node.clone()

	if name := RefName(node.Ref); name != "" {
		if alias, ok := r.aliases[name]; ok {
			for _, seen := range stack {
				if seen == name {
					return nil, fmt.Errorf("alias %q refers to itself", name)
				}
			}
			target, err := r.resolve(alias, append(stack, name))
			if err != nil {
				return nil, err
			}
			if target.Title == "" {
				target.Title = name
			}
			if desc := strings.TrimSpace(node.Description); desc != "" {
				target.Description = desc
			}
			if node.Nullable {
				target.Nullable = true
			}
			target.Annotations = append(target.Annotations, node.Annotations...)
			return target, nil
		}
	}

	var err error
	if out.Items, err = r.resolve(node.Items, stack); err != nil {
		return nil, err
	}
	for _, list := range []*[]*Node{&out.AnyOf, &out.OneOf, &out.AllOf} {
		for i, child := range *list {
			if (*list)[i], err = r.resolve(child, stack); err != nil {
				return nil, err
			}
		}
	}
	for i, field := range out.Properties {
		if out.Properties[i].Node, err = r.resolve(field.Node, stack); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (n *Node) clone() *Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Types = append([]string(nil), n.Types...)
	out.Enum = append([]any(nil), n.Enum...)
	out.Annotations = append([]Annotation(nil), n.Annotations...)
	out.AnyOf = append([]*Node(nil), n.AnyOf...)
	out.OneOf = append([]*Node(nil), n.OneOf...)
	out.AllOf = append([]*Node(nil), n.AllOf...)
	out.Properties = append([]Field(nil), n.Properties...)
	return &out
}
