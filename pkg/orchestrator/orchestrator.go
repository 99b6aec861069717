package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"github.com/goliatone/go-schemasync/internal/fsutil"
	"github.com/goliatone/go-schemasync/internal/loader"
	"github.com/goliatone/go-schemasync/pkg/drift"
	"github.com/goliatone/go-schemasync/pkg/emit"
	"github.com/goliatone/go-schemasync/pkg/emit/typescript"
	"github.com/goliatone/go-schemasync/pkg/emit/zod"
	"github.com/goliatone/go-schemasync/pkg/introspect"
	"github.com/goliatone/go-schemasync/pkg/ir"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

// ConfirmFunc is asked before files that differ from the emitted content
// are overwritten or removed. Returning false aborts the write.
type ConfirmFunc func(ctx context.Context, paths []string) (bool, error)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom document loader.
func WithLoader(l schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = l
	}
}

// WithAdapterRegistry injects the format adapters used for detection.
func WithAdapterRegistry(registry *AdapterRegistry) Option {
	return func(o *Orchestrator) {
		o.adapters = registry
	}
}

// WithEmitterRegistry injects the emitters, one per layout target.
func WithEmitterRegistry(registry *emit.Registry) Option {
	return func(o *Orchestrator) {
		o.emitters = registry
	}
}

// WithWorkers bounds the per-model fan out of introspection and emission.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		o.workers = n
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithConfirm registers a hook asked before drifted files are replaced.
func WithConfirm(fn ConfirmFunc) Option {
	return func(o *Orchestrator) {
		o.confirm = fn
	}
}

// WithZodImport overrides the module the default validator emitter imports
// zod from.
func WithZodImport(specifier string) Option {
	return func(o *Orchestrator) {
		o.zodImport = specifier
	}
}

// Orchestrator coordinates the pipeline from source documents to generated
// files. Missing dependencies are initialised with the built-in
// implementations.
type Orchestrator struct {
	loader    schema.Loader
	adapters  *AdapterRegistry
	emitters  *emit.Registry
	workers   int
	logger    *slog.Logger
	confirm   ConfirmFunc
	zodImport string
	committer *fsutil.Committer
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.loader == nil {
		o.loader = loader.New(schema.NewLoaderOptions())
	}
	if o.adapters == nil {
		o.adapters = NewDefaultAdapterRegistry(AdapterConfig{ValidateOpenAPI: true})
	}
	if o.emitters == nil {
		o.emitters = emit.NewRegistry()
		o.emitters.MustRegister(typescript.New(typescript.WithWorkers(o.workers)))
		o.emitters.MustRegister(zod.New(zod.WithWorkers(o.workers), zod.WithImport(o.zodImport)))
	}
	if o.committer == nil {
		o.committer = fsutil.NewCommitter()
	}
}

// Targets places the generated files when Request.Layout is nil.
type Targets struct {
	TypesDir      string
	ValidatorsDir string
}

// Request describes one run.
type Request struct {
	Mode Mode

	// Sources are loaded and mapped by the adapter Format names, or by
	// detection when Format is empty or "auto".
	Sources   []schema.Source
	Documents []schema.Document
	// Models bypass loading and adapters entirely.
	Models []schema.Model
	Format string

	// Only restricts emission to the named models and everything they
	// reference.
	Only []string

	Layout  *emit.Layout
	Targets Targets

	// Strict fails sync runs that leave constraints unmapped. Nothing is
	// written in that case.
	Strict bool
	// Prune removes generated files that no longer belong to a model.
	Prune bool
}

// Run executes the request. The report is always populated; the error is
// non-nil whenever the report status is not ok and carries the typed cause
// (ir.IntrospectionErrors, *IOError, *drift.DriftError).
func (o *Orchestrator) Run(ctx context.Context, req Request) (RunReport, error) {
	if ctx == nil {
		return RunReport{}, errors.New("orchestrator: context is required")
	}
	if req.Mode != ModeSync && req.Mode != ModeCheck {
		return RunReport{}, fmt.Errorf("orchestrator: unknown mode %q", req.Mode)
	}
	layout, err := o.layoutFor(req)
	if err != nil {
		return RunReport{}, err
	}

	report := newReport(req.Mode)
	run := &runState{report: &report, logger: o.logger.With("mode", string(req.Mode))}
	logger := run.logger
	run.enter(PhaseIntrospecting)

	models, err := o.collectModels(ctx, req, &report)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return report, ctxErr
	}
	if err != nil {
		run.enter(PhaseIntrospectionFailed)
		return report, err
	}

	introspector := introspect.New(introspect.WithWorkers(o.workers), introspect.WithLogger(logger))
	result, err := introspector.Introspect(ctx, models)
	report.UnmappedConstraints = append(report.UnmappedConstraints, result.Unmapped...)
	if err != nil {
		errs, ok := ir.AsIntrospectionErrors(err)
		if !ok {
			return report, err
		}
		for _, e := range errs {
			report.addError(e.Model, e.Field, e.Reason)
			logger.Error("introspection failed", "model", e.Model, "field", e.Field, "reason", e.Reason)
		}
		run.enter(PhaseIntrospectionFailed)
		return report, errs
	}

	reg := result.Registry
	var reserved []string
	if len(req.Only) > 0 {
		full := reg
		reg, err = full.Subset(req.Only...)
		if err != nil {
			report.addError("", "", err.Error())
			run.enter(PhaseIntrospectionFailed)
			return report, err
		}
		reserved, err = reservedPaths(full, reg, layout)
		if err != nil {
			report.addError("", "", err.Error())
			return report, err
		}
	}
	report.Models = reg.Names()
	for _, name := range reg.Cycles() {
		logger.Debug("model is part of a reference cycle", "model", name)
	}
	run.enter(PhaseIntrospectionOk)

	run.enter(PhaseEmitting)
	artifacts, unmapped, err := o.emit(ctx, reg, layout)
	if err != nil {
		report.addError("", "", err.Error())
		logger.Error("emit failed", "error", err)
		return report, err
	}
	report.UnmappedConstraints = append(report.UnmappedConstraints, unmapped...)
	for _, u := range report.UnmappedConstraints {
		logger.Warn("unmapped constraint", "model", u.Model, "field", u.Field, "constraint", u.Constraint, "stage", u.Stage)
	}
	run.enter(PhaseEmitOk)

	if req.Mode == ModeCheck {
		err := o.check(ctx, run, reg, layout, artifacts, reserved)
		return report, err
	}
	if req.Strict && len(report.UnmappedConstraints) > 0 {
		report.Status = StatusError
		report.warn("strict: %d unmapped constraint(s); nothing written", len(report.UnmappedConstraints))
		return report, fmt.Errorf("orchestrator: strict mode: %d unmapped constraint(s)", len(report.UnmappedConstraints))
	}
	err = o.sync(ctx, run, reg, layout, artifacts, reserved, req.Prune)
	return report, err
}

type runState struct {
	report *RunReport
	logger *slog.Logger
}

func (r *runState) enter(phase Phase) {
	r.report.Phase = phase
	r.logger.Info("phase", "phase", string(phase))
}

func (o *Orchestrator) layoutFor(req Request) (*emit.Layout, error) {
	if req.Layout != nil {
		return req.Layout, nil
	}
	if req.Targets.TypesDir == "" && req.Targets.ValidatorsDir == "" {
		return nil, errors.New("orchestrator: layout or target directories are required")
	}
	targets := make(map[string]emit.TargetLayout, 2)
	if req.Targets.TypesDir != "" {
		targets[emit.TargetTypes] = emit.TargetLayout{Dir: req.Targets.TypesDir}
	}
	if req.Targets.ValidatorsDir != "" {
		targets[emit.TargetValidators] = emit.TargetLayout{Dir: req.Targets.ValidatorsDir}
	}
	return emit.NewLayout(targets, "")
}

// reservedPaths lists the files the models left out of subset would own, so
// a subset run neither reports nor prunes them as orphans.
func reservedPaths(full, subset *ir.Registry, layout *emit.Layout) ([]string, error) {
	var paths []string
	for _, name := range full.Names() {
		if subset.Has(name) {
			continue
		}
		for _, target := range layout.Targets() {
			path, err := layout.Path(target, name)
			if err != nil {
				return nil, fmt.Errorf("orchestrator: %w", err)
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}

func (o *Orchestrator) emit(ctx context.Context, reg *ir.Registry, layout *emit.Layout) ([]emit.Artifact, []ir.UnmappedConstraint, error) {
	var (
		artifacts []emit.Artifact
		unmapped  []ir.UnmappedConstraint
	)
	for _, target := range layout.Targets() {
		emitter, err := o.emitters.Get(target)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: target %q: %w", target, err)
		}
		out, err := emitter.Emit(ctx, reg, layout)
		if err != nil {
			return nil, nil, fmt.Errorf("orchestrator: emit %s: %w", target, err)
		}
		artifacts = append(artifacts, out.Artifacts...)
		unmapped = append(unmapped, out.Unmapped...)
	}
	emit.SortArtifacts(artifacts)
	return artifacts, unmapped, nil
}

func (o *Orchestrator) check(ctx context.Context, run *runState, reg *ir.Registry, layout *emit.Layout, artifacts []emit.Artifact, reserved []string) error {
	report := run.report
	run.enter(PhaseDiffing)
	snapshot, err := drift.LoadSnapshot(ctx, layout, artifacts)
	if err != nil {
		ioErr := &IOError{Op: "read", Path: "targets", Err: err}
		report.addError("", "", ioErr.Error())
		return ioErr
	}
	snapshot.Reserved = reserved
	result := drift.CheckDrift(reg, artifacts, snapshot)
	report.Drift = result.Files()
	report.Orphans = result.Orphans
	if result.InSync {
		run.enter(PhaseInSync)
		return nil
	}
	for _, file := range report.Drift {
		run.logger.Warn("drift", "path", file.Path, "target", file.Target, "missing", file.Missing, "fields", len(file.Fields))
	}
	if report.Status == StatusOK {
		report.Status = StatusDrift
	}
	run.enter(PhaseDrifted)
	return result.Err()
}

func (o *Orchestrator) sync(ctx context.Context, run *runState, reg *ir.Registry, layout *emit.Layout, artifacts []emit.Artifact, reserved []string, prune bool) error {
	report := run.report
	run.enter(PhaseWriting)
	snapshot, err := drift.LoadSnapshot(ctx, layout, artifacts)
	if err != nil {
		ioErr := &IOError{Op: "read", Path: "targets", Err: err}
		report.addError("", "", ioErr.Error())
		return ioErr
	}
	snapshot.Reserved = reserved
	current := drift.CheckDrift(reg, artifacts, snapshot)

	plan := fsutil.Plan{Writes: make([]fsutil.Write, 0, len(artifacts))}
	for _, artifact := range artifacts {
		plan.Writes = append(plan.Writes, fsutil.Write{Path: artifact.Path, Content: []byte(artifact.Content)})
	}
	if prune {
		plan.Removes = current.Orphans
	} else {
		for _, orphan := range current.Orphans {
			report.warn("orphaned generated file %s (run with prune to remove it)", orphan)
		}
	}

	if o.confirm != nil {
		var changed []string
		for _, file := range current.Files() {
			if !file.Missing {
				changed = append(changed, file.Path)
			}
		}
		changed = append(changed, plan.Removes...)
		if len(changed) > 0 {
			ok, err := o.confirm(ctx, changed)
			if err != nil {
				report.addError("", "", err.Error())
				return fmt.Errorf("orchestrator: confirm: %w", err)
			}
			if !ok {
				report.addError("", "", "overwrite declined; nothing written")
				return errors.New("orchestrator: overwrite declined")
			}
		}
	}

	result, err := o.committer.Commit(ctx, plan)
	if err != nil {
		var commitErr *fsutil.Error
		ioErr := &IOError{Op: "write", Path: "targets", Err: err}
		if errors.As(err, &commitErr) {
			ioErr = &IOError{Op: commitErr.Op, Path: commitErr.Path, Err: commitErr.Err}
			if !commitErr.RolledBack {
				report.warn("rollback incomplete; inspect %s", commitErr.Path)
			}
		}
		report.addError("", "", ioErr.Error())
		return ioErr
	}
	report.FilesWritten = append(report.FilesWritten, result.Written...)
	report.FilesUnchanged = result.Unchanged
	report.FilesRemoved = result.Removed
	for _, path := range result.Written {
		run.logger.Debug("file written", "path", path)
	}
	run.enter(PhaseWritten)
	return nil
}
