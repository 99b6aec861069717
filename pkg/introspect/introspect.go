// Package introspect maps source models onto the canonical IR. Each model is
// mapped independently on a bounded worker pool; the results are merged in
// input order so reports are deterministic.
package introspect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-schemasync/internal/tsgen"
	"github.com/goliatone/go-schemasync/pkg/ir"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

// Stage is the UnmappedConstraint stage reported by the introspector.
const Stage = "introspect"

// Result carries the canonical registry plus both side channels. Registry is
// nil whenever Errors is non-empty.
type Result struct {
	Registry *ir.Registry
	Unmapped []ir.UnmappedConstraint
	Errors   ir.IntrospectionErrors
}

// Introspector converts []schema.Model into an ir.Registry.
type Introspector struct {
	workers int
	logger  *slog.Logger
}

// Option configures an Introspector.
type Option func(*Introspector)

// WithWorkers bounds the number of models mapped concurrently.
func WithWorkers(n int) Option {
	return func(i *Introspector) {
		if n > 0 {
			i.workers = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Introspector) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New constructs an Introspector.
func New(options ...Option) *Introspector {
	i := &Introspector{}
	for _, opt := range options {
		if opt != nil {
			opt(i)
		}
	}
	i.applyDefaults()
	return i
}

func (i *Introspector) applyDefaults() {
	if i.workers <= 0 {
		i.workers = runtime.GOMAXPROCS(0)
	}
	if i.logger == nil {
		i.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

type slot struct {
	model    ir.ModelDefinition
	unmapped []ir.UnmappedConstraint
	errs     ir.IntrospectionErrors
}

// Introspect maps every model. Failures across all models are collected; when
// any exist the returned error is an ir.IntrospectionErrors listing them and
// Result.Registry is nil. Context cancellation aborts the run.
func (i *Introspector) Introspect(ctx context.Context, models []schema.Model) (Result, error) {
	slots := make([]slot, len(models))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.workers)
	for idx := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[idx] = mapModel(models[idx])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, fmt.Errorf("introspect: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("introspect: %w", err)
	}

	var result Result
	builder := ir.NewBuilder()
	for _, s := range slots {
		result.Unmapped = append(result.Unmapped, s.unmapped...)
		result.Errors = append(result.Errors, s.errs...)
		// Models with field errors are still staged, minus the broken fields,
		// so references to them do not surface as dangling.
		if err := builder.Add(s.model); err != nil {
			if errs, ok := ir.AsIntrospectionErrors(err); ok {
				result.Errors = append(result.Errors, errs...)
				continue
			}
			return Result{}, err
		}
		i.logger.Debug("model mapped", "model", s.model.Name, "fields", len(s.model.Fields))
	}

	reg, errs := builder.Build()
	result.Errors = append(result.Errors, errs...)
	if len(result.Errors) > 0 {
		return result, result.Errors
	}
	result.Registry = reg
	return result, nil
}

func mapModel(model schema.Model) slot {
	out := slot{model: ir.ModelDefinition{
		Name: model.Name,
		Doc:  SanitizeDoc(model.Description),
	}}
	// Model names become exported declarations and file names.
	if name := strings.TrimSpace(model.Name); name != "" && !tsgen.IsIdentifier(name) {
		out.errs = append(out.errs, ir.Errorf(model.Name, "", "model name %q is not a valid TypeScript identifier", model.Name))
	}
	for _, field := range model.Fields {
		m := fieldMapper{model: model.Name, field: field.Name}
		def, err := m.mapField(field)
		out.unmapped = append(out.unmapped, m.unmapped...)
		if err != nil {
			out.errs = append(out.errs, err)
			continue
		}
		out.model.Fields = append(out.model.Fields, def)
	}
	return out
}
