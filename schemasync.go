// Package schemasync generates TypeScript types and zod validators from
// backend schema definitions and detects when committed output has drifted.
//
// The root package re-exports the pieces most callers need so a build script
// can run the pipeline without importing the sub-packages directly.
package schemasync

import (
	"context"

	"github.com/goliatone/go-schemasync/pkg/orchestrator"
	"github.com/goliatone/go-schemasync/pkg/schema"
)

// RunReport aliases orchestrator.RunReport.
type RunReport = orchestrator.RunReport

// Targets places the generated type and validator files.
type Targets = orchestrator.Targets

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// Sync loads the sources, writes one type file and one validator file per
// model under targets and returns the run report. Sources accept the same
// forms as the CLI: paths, globs, URLs and pkg:<import path>.
func Sync(ctx context.Context, sources []string, targets Targets, options ...orchestrator.Option) (RunReport, error) {
	return run(ctx, orchestrator.ModeSync, sources, targets, options...)
}

// Check compares the files under targets with what Sync would write. The
// returned error wraps *drift.DriftError when they differ.
func Check(ctx context.Context, sources []string, targets Targets, options ...orchestrator.Option) (RunReport, error) {
	return run(ctx, orchestrator.ModeCheck, sources, targets, options...)
}

// SyncModels runs sync over models that were already built in memory,
// bypassing loading and format detection.
func SyncModels(ctx context.Context, models []schema.Model, targets Targets, options ...orchestrator.Option) (RunReport, error) {
	return orchestrator.New(options...).Run(ctx, orchestrator.Request{
		Mode:    orchestrator.ModeSync,
		Models:  models,
		Targets: targets,
	})
}

func run(ctx context.Context, mode orchestrator.Mode, locations []string, targets Targets, options ...orchestrator.Option) (RunReport, error) {
	sources, err := orchestrator.ExpandSources(locations)
	if err != nil {
		return RunReport{}, err
	}
	return orchestrator.New(options...).Run(ctx, orchestrator.Request{
		Mode:    mode,
		Sources: sources,
		Targets: targets,
	})
}
