package ir

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Registry is the canonical set of models produced by one introspection run.
// It is populated by a Builder and read-only afterwards.
type Registry struct {
	models map[string]ModelDefinition
	names  []string
}

// Get returns the model with the given name.
func (r *Registry) Get(name string) (ModelDefinition, bool) {
	if r == nil {
		return ModelDefinition{}, false
	}
	model, ok := r.models[name]
	return model, ok
}

// Has reports whether the registry contains the model.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of models.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}

// Names returns the model names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.names...)
}

// Models returns every model sorted by name.
func (r *Registry) Models() []ModelDefinition {
	if r == nil {
		return nil
	}
	out := make([]ModelDefinition, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.models[name])
	}
	return out
}

// References returns the sorted distinct models referenced by name.
func (r *Registry) References(name string) []string {
	model, ok := r.Get(name)
	if !ok {
		return nil
	}
	refs := model.References()
	sort.Strings(refs)
	return refs
}

// Walk visits root and every model reachable from it through ModelRefs,
// breadth first. Each model is visited once, so reference cycles terminate.
func (r *Registry) Walk(root string, fn func(ModelDefinition) error) error {
	if _, ok := r.Get(root); !ok {
		return fmt.Errorf("ir: model %q not found", root)
	}
	visited := map[string]struct{}{root: {}}
	queue := []string{root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		model := r.models[name]
		if err := fn(model); err != nil {
			return err
		}
		for _, ref := range r.References(name) {
			if _, seen := visited[ref]; seen {
				continue
			}
			visited[ref] = struct{}{}
			queue = append(queue, ref)
		}
	}
	return nil
}

// Cycles returns the sorted names of models that can reach themselves
// through references.
func (r *Registry) Cycles() []string {
	var out []string
	for _, name := range r.Names() {
		if r.reaches(name, name) {
			out = append(out, name)
		}
	}
	return out
}

func (r *Registry) reaches(from, target string) bool {
	visited := make(map[string]struct{})
	queue := r.References(from)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if name == target {
			return true
		}
		if _, seen := visited[name]; seen {
			continue
		}
		visited[name] = struct{}{}
		queue = append(queue, r.References(name)...)
	}
	return false
}

// Subset returns a registry holding the named roots and everything they
// reach. The result shares model values with r.
func (r *Registry) Subset(roots ...string) (*Registry, error) {
	if len(roots) == 0 {
		return r, nil
	}
	builder := NewBuilder()
	seen := make(map[string]struct{})
	for _, root := range roots {
		err := r.Walk(root, func(model ModelDefinition) error {
			if _, ok := seen[model.Name]; ok {
				return nil
			}
			seen[model.Name] = struct{}{}
			return builder.Add(model)
		})
		if err != nil {
			return nil, err
		}
	}
	sub, errs := builder.Build()
	if len(errs) > 0 {
		return nil, errs
	}
	return sub, nil
}

// Builder accumulates models and checks registry-wide invariants.
type Builder struct {
	models map[string]ModelDefinition
	order  []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{models: make(map[string]ModelDefinition)}
}

// Add validates a model and stages it. Validation failures are returned as
// IntrospectionErrors so callers can collect them.
func (b *Builder) Add(model ModelDefinition) error {
	name := strings.TrimSpace(model.Name)
	if name == "" {
		return Errorf("", "", "model name is required")
	}
	if existing, exists := b.models[name]; exists {
		if cmp.Equal(existing, model) {
			return nil
		}
		return Errorf(name, "", "model is declared more than once with a different definition")
	}

	var errs IntrospectionErrors
	fields := make(map[string]struct{}, len(model.Fields))
	for _, field := range model.Fields {
		if strings.TrimSpace(field.Name) == "" {
			errs = append(errs, Errorf(name, "", "field name is required"))
			continue
		}
		if _, dup := fields[field.Name]; dup {
			errs = append(errs, Errorf(name, field.Name, "field is declared more than once"))
			continue
		}
		fields[field.Name] = struct{}{}
		if err := ValidateType(field.Type); err != nil {
			errs = append(errs, Errorf(name, field.Name, "%v", err))
			continue
		}
		if field.Required == IsOptional(field.Type) {
			errs = append(errs, Errorf(name, field.Name, "required flag disagrees with optional type %s", field.Type))
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	b.models[name] = model
	b.order = append(b.order, name)
	return nil
}

// Build resolves every ModelRef against the staged models. Dangling
// references are reported for every offending field.
func (b *Builder) Build() (*Registry, IntrospectionErrors) {
	var errs IntrospectionErrors
	for _, name := range b.order {
		model := b.models[name]
		for _, field := range model.Fields {
			for _, ref := range Refs(field.Type) {
				if _, ok := b.models[ref]; !ok {
					errs = append(errs, Errorf(name, field.Name, "references unknown model %q", ref))
				}
			}
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	names := append([]string(nil), b.order...)
	sort.Strings(names)
	models := make(map[string]ModelDefinition, len(b.models))
	for name, model := range b.models {
		models[name] = model
	}
	return &Registry{models: models, names: names}, nil
}

// AsIntrospectionErrors flattens err into a list when it carries
// introspection failures.
func AsIntrospectionErrors(err error) (IntrospectionErrors, bool) {
	var list IntrospectionErrors
	if errors.As(err, &list) {
		return list, true
	}
	var single *IntrospectionError
	if errors.As(err, &single) {
		return IntrospectionErrors{single}, true
	}
	return nil, false
}
