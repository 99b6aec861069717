// Package zod emits one zod validator module per model. Every constraint in
// the IR is either enforced by the generated schema or reported as an
// UnmappedConstraint; none is dropped silently.
package zod

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-schemasync/internal/tsgen"
	"github.com/goliatone/go-schemasync/pkg/emit"
	"github.com/goliatone/go-schemasync/pkg/ir"
)

// Stage is the UnmappedConstraint stage reported by this emitter.
const Stage = emit.TargetValidators

// DefaultImport is the module specifier zod is imported from.
const DefaultImport = "zod"

// Emitter renders the validators target.
type Emitter struct {
	workers    int
	zodImport  string
	schemaName func(model string) string
}

// Option configures the emitter.
type Option func(*Emitter)

// WithWorkers bounds the number of models rendered concurrently.
func WithWorkers(n int) Option {
	return func(e *Emitter) {
		e.workers = n
	}
}

// WithImport overrides the module zod is imported from.
func WithImport(specifier string) Option {
	return func(e *Emitter) {
		if strings.TrimSpace(specifier) != "" {
			e.zodImport = specifier
		}
	}
}

// New constructs a validators emitter.
func New(options ...Option) *Emitter {
	e := &Emitter{zodImport: DefaultImport}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	e.schemaName = SchemaName
	return e
}

var _ emit.Emitter = (*Emitter)(nil)

// SchemaName is the exported constant holding model's validator.
func SchemaName(model string) string {
	return model + "Schema"
}

// Target implements emit.Emitter.
func (e *Emitter) Target() string {
	return emit.TargetValidators
}

// Emit renders every model in reg.
func (e *Emitter) Emit(ctx context.Context, reg *ir.Registry, layout *emit.Layout) (emit.Output, error) {
	return emit.Each(ctx, reg, e.workers, func(model ir.ModelDefinition) (emit.Artifact, []ir.UnmappedConstraint, error) {
		content, unmapped, err := e.Render(model, layout)
		if err != nil {
			return emit.Artifact{}, nil, err
		}
		path, err := layout.Path(emit.TargetValidators, model.Name)
		if err != nil {
			return emit.Artifact{}, nil, err
		}
		return emit.Artifact{Model: model.Name, Target: emit.TargetValidators, Path: path, Content: content}, unmapped, nil
	})
}

// Output is the result of EmitValidators.
type Output struct {
	Files    map[string]string
	Unmapped []ir.UnmappedConstraint
}

// EmitValidators renders every model with the default options.
func EmitValidators(ctx context.Context, reg *ir.Registry, layout *emit.Layout) (Output, error) {
	out, err := New().Emit(ctx, reg, layout)
	if err != nil {
		return Output{}, err
	}
	files := make(map[string]string, len(out.Artifacts))
	for _, artifact := range out.Artifacts {
		files[artifact.Path] = artifact.Content
	}
	return Output{Files: files, Unmapped: out.Unmapped}, nil
}

// Render returns the validator module for a single model plus the
// constraints that could not be expressed.
func (e *Emitter) Render(model ir.ModelDefinition, layout *emit.Layout) (string, []ir.UnmappedConstraint, error) {
	if !tsgen.IsIdentifier(model.Name) {
		return "", nil, fmt.Errorf("zod: model %q is not a valid identifier", model.Name)
	}
	lines, err := layout.Banner(emit.TargetValidators, model.Name)
	if err != nil {
		return "", nil, err
	}

	hasTypes := hasTarget(layout, emit.TargetTypes)
	var imports []tsgen.Import
	if hasTypes {
		from, err := layout.ImportPath(emit.TargetValidators, model.Name, emit.TargetTypes, model.Name)
		if err != nil {
			return "", nil, err
		}
		imports = append(imports, tsgen.Import{Names: []string{model.Name}, From: from, TypeOnly: true})
	}
	for _, ref := range model.References() {
		if ref == model.Name {
			continue
		}
		from, err := layout.ImportPath(emit.TargetValidators, model.Name, emit.TargetValidators, ref)
		if err != nil {
			return "", nil, err
		}
		imports = append(imports, tsgen.Import{Names: []string{e.schemaName(ref)}, From: from})
	}
	tsgen.SortImports(imports)

	lines = append(lines, "", `import { z } from `+tsgen.Quote(e.zodImport)+`;`)
	if len(imports) > 0 {
		lines = append(lines, "")
		for _, imp := range imports {
			lines = append(lines, imp.Render())
		}
	}

	r := fieldRenderer{model: model.Name, schemaName: e.schemaName}
	lines = append(lines, "")
	lines = append(lines, tsgen.DocComment(model.Doc, "")...)
	declaration := "export const " + e.schemaName(model.Name)
	if hasTypes {
		declaration += ": z.ZodType<" + model.Name + ">"
	}
	if len(model.Fields) == 0 {
		lines = append(lines, declaration+" = z.object({});")
		return tsgen.Finish(lines), nil, nil
	}
	lines = append(lines, declaration+" = z.object({")
	for _, field := range model.Fields {
		expr, err := r.field(field)
		if err != nil {
			return "", nil, fmt.Errorf("zod: model %q field %q: %w", model.Name, field.Name, err)
		}
		lines = append(lines, tsgen.DocComment(field.Doc, "  ")...)
		lines = append(lines, "  "+tsgen.PropertyKey(field.Name)+": "+expr+",")
	}
	lines = append(lines, "});")
	return tsgen.Finish(lines), r.unmapped, nil
}

func hasTarget(layout *emit.Layout, target string) bool {
	_, err := layout.Dir(target)
	return err == nil
}

type fieldRenderer struct {
	model      string
	schemaName func(string) string
	current    string
	unmapped   []ir.UnmappedConstraint
}

func (r *fieldRenderer) field(field ir.FieldDefinition) (string, error) {
	r.current = field.Name

	var own, items []ir.Constraint
	for _, c := range field.Constraints {
		if c.Items {
			items = append(items, c)
		} else {
			own = append(own, c)
		}
	}

	t := field.Type
	optional := false
	if opt, ok := t.(ir.Optional); ok {
		optional = true
		t = opt.Elem
	}
	expr, err := r.expr(t, own, items)
	if err != nil {
		return "", err
	}
	if optional {
		expr += ".optional()"
	}
	return expr, nil
}

// expr renders t with constraints applied to its base value and item
// constraints applied to list elements.
func (r *fieldRenderer) expr(t ir.SemanticType, own, items []ir.Constraint) (string, error) {
	nullable := false
	if n, ok := t.(ir.Nullable); ok {
		nullable = true
		t = n.Elem
	}

	var expr string
	switch v := t.(type) {
	case ir.Primitive:
		switch v.Kind {
		case ir.KindString:
			expr = "z.string()"
		case ir.KindInt:
			expr = "z.number().int()"
		case ir.KindFloat:
			expr = "z.number()"
		case ir.KindBool:
			expr = "z.boolean()"
		default:
			return "", fmt.Errorf("unknown primitive kind %q", v.Kind)
		}
	case ir.Enum:
		members := make([]string, len(v.Members))
		for i, member := range v.Members {
			members[i] = tsgen.Quote(member)
		}
		expr = "z.enum([" + strings.Join(members, ", ") + "])"
	case ir.List:
		elem, err := r.expr(v.Elem, items, nil)
		if err != nil {
			return "", err
		}
		items = nil
		expr = "z.array(" + elem + ")"
	case ir.ModelRef:
		expr = "z.lazy(() => " + r.schemaName(v.Name) + ")"
	case ir.Optional:
		return "", errors.New("optional is only valid as the outermost field type")
	default:
		return "", fmt.Errorf("unsupported semantic type %T", t)
	}

	var refinements []string
	for _, c := range own {
		rule, reason := Rule(c, t)
		if reason != "" {
			r.skip(c, reason)
			continue
		}
		if isRefinement(rule) {
			refinements = append(refinements, rule)
			continue
		}
		expr += rule
	}
	expr += strings.Join(refinements, "")
	for _, c := range items {
		r.skip(c, "item constraints apply to lists only")
	}

	if nullable {
		expr += ".nullable()"
	}
	return expr, nil
}

func (r *fieldRenderer) skip(c ir.Constraint, reason string) {
	r.unmapped = append(r.unmapped, ir.UnmappedConstraint{
		Model:      r.model,
		Field:      r.current,
		Constraint: c.String(),
		Stage:      Stage,
		Reason:     reason,
	})
}
