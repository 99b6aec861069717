package jsonschema

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

const DefaultAdapterName = "jsonschema"

// Adapter reads JSON Schema documents such as Pydantic's
// model_json_schema() output or a bundle of $defs.
type Adapter struct{}

// NewAdapter constructs a JSON Schema adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Name returns the adapter registry identifier.
func (a *Adapter) Name() string {
	return DefaultAdapterName
}

// Detect reports whether the raw payload appears to be JSON Schema.
func (a *Adapter) Detect(_ schema.Source, raw []byte) bool {
	root, err := parseRoot(raw)
	if err != nil {
		return false
	}
	if lookup(root, "openapi") != nil || lookup(root, "swagger") != nil {
		return false
	}
	for _, key := range []string{"$schema", "$defs", "definitions", "properties"} {
		if lookup(root, key) != nil {
			return true
		}
	}
	return false
}

// Models returns one model per object definition in the document. The root
// schema becomes a model when it declares properties; it is named after its
// title, or after the document's file name when untitled.
func (a *Adapter) Models(ctx context.Context, doc schema.Document) ([]schema.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	root, err := parseRoot(doc.Raw())
	if err != nil {
		return nil, err
	}

	var defs []schema.Definition
	for _, key := range []string{"$defs", "definitions"} {
		parsed, err := parseDefinitions(lookup(root, key), "#/"+key)
		if err != nil {
			return nil, err
		}
		defs = append(defs, parsed...)
	}

	if lookup(root, "properties") != nil {
		node, err := ParseNode(root)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSpace(node.Title)
		if name == "" {
			name = stem(doc.Location())
		}
		if name == "" {
			return nil, errors.New("jsonschema: root schema has no title")
		}
		for _, def := range defs {
			if def.Name == name {
				return nil, fmt.Errorf("jsonschema: root schema %q is also declared in definitions", name)
			}
		}
		if len(node.Types) == 0 {
			node.Types = []string{"object"}
		}
		defs = append([]schema.Definition{{Name: name, Node: node}}, defs...)
	}

	if len(defs) == 0 {
		return nil, errors.New("jsonschema: document declares no models")
	}
	return schema.ModelsFromDefinitions(doc.Location(), defs)
}

func parseRoot(raw []byte) (*yaml.Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("jsonschema: raw schema is empty")
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("jsonschema: parse schema: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	root = resolveAlias(root)
	if root == nil || root.Kind != yaml.MappingNode {
		return nil, errors.New("jsonschema: schema must be an object")
	}
	return root, nil
}

func stem(location string) string {
	base := path.Base(strings.ReplaceAll(location, "\\", "/"))
	for _, ext := range []string{".schema.json", ".json", ".yaml", ".yml"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(base, ext)
		}
	}
	if base == "." || base == "/" {
		return ""
	}
	return base
}
