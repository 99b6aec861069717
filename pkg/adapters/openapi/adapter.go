package openapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

const DefaultAdapterName = "openapi"

const componentsPointer = "#/components/schemas"

// Adapter turns the components.schemas section of an OpenAPI 3 document
// (for example FastAPI's /openapi.json) into source models.
type Adapter struct {
	validate bool
}

// AdapterOption configures the OpenAPI adapter.
type AdapterOption func(*Adapter)

// WithValidation runs kin-openapi document validation before extracting
// models.
func WithValidation(enabled bool) AdapterOption {
	return func(a *Adapter) {
		a.validate = enabled
	}
}

// NewAdapter constructs an OpenAPI adapter.
func NewAdapter(options ...AdapterOption) *Adapter {
	adapter := &Adapter{}
	for _, opt := range options {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

// Name returns the adapter registry identifier.
func (a *Adapter) Name() string {
	return DefaultAdapterName
}

// Detect reports whether the payload declares an "openapi" version.
func (a *Adapter) Detect(_ schema.Source, raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	var probe struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	return probe.OpenAPI != ""
}

// Models returns one model per object schema under components.schemas, in
// declaration order.
func (a *Adapter) Models(ctx context.Context, doc schema.Document) ([]schema.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	spec, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if a.validate {
		if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi: validate: %w", err)
		}
	}
	if spec.Components == nil || len(spec.Components.Schemas) == 0 {
		return nil, errors.New("openapi: document has no components.schemas")
	}

	idx, err := buildOrderIndex(raw)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(spec.Components.Schemas))
	for name := range spec.Components.Schemas {
		names = append(names, name)
	}
	names = idx.keys(componentsPointer, names)

	defs := make([]schema.Definition, 0, len(names))
	for _, name := range names {
		pointer := componentsPointer + "/" + escapePointer(name)
		node := convert(spec.Components.Schemas[name].Value, pointer, idx)
		if node == nil {
			return nil, fmt.Errorf("openapi: schema %q is unresolved", name)
		}
		defs = append(defs, schema.Definition{Name: name, Node: node})
	}
	return schema.ModelsFromDefinitions(doc.Location(), defs)
}

func convertRef(ref *openapi3.SchemaRef, pointer string, idx orderIndex) *schema.Node {
	if ref == nil {
		return nil
	}
	if ref.Ref != "" {
		return &schema.Node{Ref: ref.Ref}
	}
	return convert(ref.Value, pointer, idx)
}

func convert(src *openapi3.Schema, pointer string, idx orderIndex) *schema.Node {
	if src == nil {
		return nil
	}
	node := &schema.Node{
		Format:      src.Format,
		Title:       src.Title,
		Description: src.Description,
		Default:     src.Default,
		Nullable:    src.Nullable,
	}
	if src.Type != nil {
		node.Types = append([]string(nil), src.Type.Slice()...)
	}
	if len(src.Enum) > 0 {
		node.Enum = append([]any(nil), src.Enum...)
	}
	node.Items = convertRef(src.Items, pointer+"/items", idx)
	node.AnyOf = convertRefs(src.AnyOf, pointer+"/anyOf", idx)
	node.OneOf = convertRefs(src.OneOf, pointer+"/oneOf", idx)
	node.AllOf = convertRefs(src.AllOf, pointer+"/allOf", idx)

	if len(src.Properties) > 0 {
		names := make([]string, 0, len(src.Properties))
		for name := range src.Properties {
			names = append(names, name)
		}
		required := make(map[string]struct{}, len(src.Required))
		for _, name := range src.Required {
			required[name] = struct{}{}
		}
		propsPointer := pointer + "/properties"
		for _, name := range idx.keys(propsPointer, names) {
			_, isRequired := required[name]
			node.Properties = append(node.Properties, schema.Field{
				Name:     name,
				Required: isRequired,
				Node:     convertRef(src.Properties[name], propsPointer+"/"+escapePointer(name), idx),
			})
		}
	}

	node.Annotations = annotations(src)
	return node
}

func convertRefs(refs openapi3.SchemaRefs, pointer string, idx orderIndex) []*schema.Node {
	if len(refs) == 0 {
		return nil
	}
	out := make([]*schema.Node, 0, len(refs))
	for i, ref := range refs {
		out = append(out, convertRef(ref, fmt.Sprintf("%s/%d", pointer, i), idx))
	}
	return out
}

// annotations lists the constraint keywords present on src in a fixed
// keyword order.
func annotations(src *openapi3.Schema) []schema.Annotation {
	var out []schema.Annotation
	add := func(keyword string, value any) {
		out = append(out, schema.Annotation{Keyword: keyword, Value: value})
	}
	if src.MinLength != 0 {
		add("minLength", int(src.MinLength))
	}
	if src.MaxLength != nil {
		add("maxLength", int(*src.MaxLength))
	}
	if src.Pattern != "" {
		add("pattern", src.Pattern)
	}
	if src.Min != nil {
		add("minimum", *src.Min)
	}
	if src.ExclusiveMin {
		add("exclusiveMinimum", true)
	}
	if src.Max != nil {
		add("maximum", *src.Max)
	}
	if src.ExclusiveMax {
		add("exclusiveMaximum", true)
	}
	if src.MinItems != 0 {
		add("minItems", int(src.MinItems))
	}
	if src.MaxItems != nil {
		add("maxItems", int(*src.MaxItems))
	}
	if src.MultipleOf != nil {
		add("multipleOf", *src.MultipleOf)
	}
	if src.UniqueItems {
		add("uniqueItems", true)
	}
	if src.MinProps != 0 {
		add("minProperties", int(src.MinProps))
	}
	if src.MaxProps != nil {
		add("maxProperties", int(*src.MaxProps))
	}
	if src.Not != nil {
		add("not", src.Not.Ref)
	}
	return out
}
