package jsonschema

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

// metadataKeywords carry no validation meaning and are dropped while
// parsing. Everything else that is not structural becomes an Annotation.
var metadataKeywords = map[string]struct{}{
	"$schema":              {},
	"$id":                  {},
	"$comment":             {},
	"$defs":                {},
	"definitions":          {},
	"examples":             {},
	"example":              {},
	"readOnly":             {},
	"writeOnly":            {},
	"deprecated":           {},
	"discriminator":        {},
	"xml":                  {},
	"externalDocs":         {},
	"additionalProperties": {},
}

// ParseNode converts a yaml.v3 node holding a JSON Schema into a schema.Node.
// Mapping order is kept for properties and annotations.
func ParseNode(n *yaml.Node) (*schema.Node, error) {
	return parseNode(n, "#")
}

func parseNode(n *yaml.Node, path string) (*schema.Node, error) {
	n = resolveAlias(n)
	if n == nil {
		return nil, fmt.Errorf("jsonschema: %s: missing schema", path)
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, fmt.Errorf("jsonschema: %s: empty document", path)
		}
		return parseNode(n.Content[0], path)
	case yaml.ScalarNode:
		var boolean bool
		if err := n.Decode(&boolean); err == nil {
			// Boolean schemas accept anything (true) or nothing (false); neither
			// carries a type.
			return &schema.Node{}, nil
		}
		return nil, fmt.Errorf("jsonschema: %s: expected an object, got %q", path, n.Value)
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("jsonschema: %s: expected an object", path)
	}

	out := &schema.Node{}
	var required []string
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		value := resolveAlias(n.Content[i+1])
		at := path + "/" + escapePointer(key)

		if strings.HasPrefix(key, "x-") {
			continue
		}
		if _, skip := metadataKeywords[key]; skip {
			continue
		}

		var err error
		switch key {
		case "type":
			out.Types, err = decodeTypes(value)
		case "format":
			out.Format, err = decodeString(value)
		case "$ref":
			out.Ref, err = decodeString(value)
		case "title":
			out.Title, err = decodeString(value)
		case "description":
			out.Description, err = decodeString(value)
		case "nullable":
			err = value.Decode(&out.Nullable)
		case "default":
			err = value.Decode(&out.Default)
		case "enum":
			err = value.Decode(&out.Enum)
		case "const":
			out.HasConst = true
			err = value.Decode(&out.Const)
		case "required":
			err = value.Decode(&required)
		case "items":
			if value.Kind == yaml.SequenceNode {
				return nil, fmt.Errorf("jsonschema: %s: tuple items are not supported", at)
			}
			out.Items, err = parseNode(value, at)
		case "anyOf":
			out.AnyOf, err = parseList(value, at)
		case "oneOf":
			out.OneOf, err = parseList(value, at)
		case "allOf":
			out.AllOf, err = parseList(value, at)
		case "properties":
			out.Properties, err = parseProperties(value, at)
		default:
			var decoded any
			err = value.Decode(&decoded)
			out.Annotations = append(out.Annotations, schema.Annotation{Keyword: key, Value: decoded})
		}
		if err != nil {
			return nil, wrapErr(at, err)
		}
	}

	if len(required) > 0 {
		index := make(map[string]struct{}, len(required))
		for _, name := range required {
			index[name] = struct{}{}
		}
		for i := range out.Properties {
			if _, ok := index[out.Properties[i].Name]; ok {
				out.Properties[i].Required = true
			}
		}
	}
	return out, nil
}

func parseProperties(n *yaml.Node, path string) ([]schema.Field, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errors.New("properties must be an object")
	}
	fields := make([]schema.Field, 0, len(n.Content)/2)
	seen := make(map[string]struct{}, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate property %q", name)
		}
		seen[name] = struct{}{}
		node, err := parseNode(n.Content[i+1], path+"/"+escapePointer(name))
		if err != nil {
			return nil, err
		}
		fields = append(fields, schema.Field{Name: name, Node: node})
	}
	return fields, nil
}

func parseList(n *yaml.Node, path string) ([]*schema.Node, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, errors.New("expected a list of schemas")
	}
	out := make([]*schema.Node, 0, len(n.Content))
	for i, child := range n.Content {
		node, err := parseNode(child, fmt.Sprintf("%s/%d", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

// parseDefinitions reads an ordered name → schema mapping.
func parseDefinitions(n *yaml.Node, path string) ([]schema.Definition, error) {
	n = resolveAlias(n)
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("jsonschema: %s: expected an object", path)
	}
	defs := make([]schema.Definition, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		name := n.Content[i].Value
		node, err := parseNode(n.Content[i+1], path+"/"+escapePointer(name))
		if err != nil {
			return nil, err
		}
		defs = append(defs, schema.Definition{Name: name, Node: node})
	}
	return defs, nil
}

func decodeTypes(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		var out []string
		if err := n.Decode(&out); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, errors.New("type must be a string or a list of strings")
	}
}

func decodeString(n *yaml.Node) (string, error) {
	if n.Kind != yaml.ScalarNode {
		return "", errors.New("expected a string")
	}
	return n.Value, nil
}

// lookup returns the value node for key in a mapping node.
func lookup(n *yaml.Node, key string) *yaml.Node {
	n = resolveAlias(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return resolveAlias(n.Content[i+1])
		}
	}
	return nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func escapePointer(value string) string {
	value = strings.ReplaceAll(value, "~", "~0")
	return strings.ReplaceAll(value, "/", "~1")
}

func wrapErr(path string, err error) error {
	if strings.HasPrefix(err.Error(), "jsonschema: ") {
		return err
	}
	return fmt.Errorf("jsonschema: %s: %w", path, err)
}
