// Package typescript emits one TypeScript interface declaration per model.
// Types carry shape only; constraints are left to the validator target.
package typescript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-schemasync/internal/tsgen"
	"github.com/goliatone/go-schemasync/pkg/emit"
	"github.com/goliatone/go-schemasync/pkg/ir"
)

// Emitter renders the types target.
type Emitter struct {
	workers int
}

// Option configures the emitter.
type Option func(*Emitter)

// WithWorkers bounds the number of models rendered concurrently.
func WithWorkers(n int) Option {
	return func(e *Emitter) {
		e.workers = n
	}
}

// New constructs a types emitter.
func New(options ...Option) *Emitter {
	e := &Emitter{}
	for _, opt := range options {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

var _ emit.Emitter = (*Emitter)(nil)

// Target implements emit.Emitter.
func (e *Emitter) Target() string {
	return emit.TargetTypes
}

// Emit renders every model in reg.
func (e *Emitter) Emit(ctx context.Context, reg *ir.Registry, layout *emit.Layout) (emit.Output, error) {
	return emit.Each(ctx, reg, e.workers, func(model ir.ModelDefinition) (emit.Artifact, []ir.UnmappedConstraint, error) {
		content, err := Render(model, layout)
		if err != nil {
			return emit.Artifact{}, nil, err
		}
		path, err := layout.Path(emit.TargetTypes, model.Name)
		if err != nil {
			return emit.Artifact{}, nil, err
		}
		return emit.Artifact{Model: model.Name, Target: emit.TargetTypes, Path: path, Content: content}, nil, nil
	})
}

// EmitTypes renders every model and returns the file contents keyed by path.
func EmitTypes(ctx context.Context, reg *ir.Registry, layout *emit.Layout) (map[string]string, error) {
	out, err := New().Emit(ctx, reg, layout)
	if err != nil {
		return nil, err
	}
	files := make(map[string]string, len(out.Artifacts))
	for _, artifact := range out.Artifacts {
		files[artifact.Path] = artifact.Content
	}
	return files, nil
}

// Render returns the declaration file for a single model.
func Render(model ir.ModelDefinition, layout *emit.Layout) (string, error) {
	if !tsgen.IsIdentifier(model.Name) {
		return "", fmt.Errorf("typescript: model %q is not a valid identifier", model.Name)
	}

	lines, err := layout.Banner(emit.TargetTypes, model.Name)
	if err != nil {
		return "", err
	}

	var imports []tsgen.Import
	for _, ref := range model.References() {
		if ref == model.Name {
			continue
		}
		from, err := layout.ImportPath(emit.TargetTypes, model.Name, emit.TargetTypes, ref)
		if err != nil {
			return "", err
		}
		imports = append(imports, tsgen.Import{Names: []string{ref}, From: from, TypeOnly: true})
	}
	if len(imports) > 0 {
		tsgen.SortImports(imports)
		lines = append(lines, "")
		for _, imp := range imports {
			lines = append(lines, imp.Render())
		}
	}

	lines = append(lines, "")
	lines = append(lines, tsgen.DocComment(model.Doc, "")...)
	if len(model.Fields) == 0 {
		lines = append(lines, "export interface "+model.Name+" {}")
		return tsgen.Finish(lines), nil
	}

	lines = append(lines, "export interface "+model.Name+" {")
	for _, field := range model.Fields {
		line, err := fieldLine(field)
		if err != nil {
			return "", fmt.Errorf("typescript: model %q field %q: %w", model.Name, field.Name, err)
		}
		lines = append(lines, tsgen.DocComment(field.Doc, "  ")...)
		lines = append(lines, line)
	}
	lines = append(lines, "}")
	return tsgen.Finish(lines), nil
}

func fieldLine(field ir.FieldDefinition) (string, error) {
	key := tsgen.PropertyKey(field.Name)
	if opt, ok := field.Type.(ir.Optional); ok {
		expr, err := TypeExpr(opt.Elem)
		if err != nil {
			return "", err
		}
		return "  " + key + "?: " + expr + " | undefined;", nil
	}
	expr, err := TypeExpr(field.Type)
	if err != nil {
		return "", err
	}
	return "  " + key + ": " + expr + ";", nil
}

// TypeExpr renders a semantic type as a TypeScript type expression. Optional
// is only valid as a field's outermost wrapper and is rejected here.
func TypeExpr(t ir.SemanticType) (string, error) {
	switch v := t.(type) {
	case ir.Primitive:
		switch v.Kind {
		case ir.KindString:
			return "string", nil
		case ir.KindInt, ir.KindFloat:
			return "number", nil
		case ir.KindBool:
			return "boolean", nil
		}
		return "", fmt.Errorf("unknown primitive kind %q", v.Kind)
	case ir.Enum:
		members := make([]string, len(v.Members))
		for i, member := range v.Members {
			members[i] = tsgen.Quote(member)
		}
		return strings.Join(members, " | "), nil
	case ir.List:
		elem, err := TypeExpr(v.Elem)
		if err != nil {
			return "", err
		}
		return "Array<" + elem + ">", nil
	case ir.Nullable:
		elem, err := TypeExpr(v.Elem)
		if err != nil {
			return "", err
		}
		return elem + " | null", nil
	case ir.ModelRef:
		return v.Name, nil
	case ir.Optional:
		return "", errors.New("optional is only valid as the outermost field type")
	default:
		return "", fmt.Errorf("unsupported semantic type %T", t)
	}
}
