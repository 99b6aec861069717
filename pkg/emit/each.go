package emit

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-schemasync/pkg/ir"
)

// ModelFunc renders the artifact for a single model.
type ModelFunc func(model ir.ModelDefinition) (Artifact, []ir.UnmappedConstraint, error)

// Each runs fn for every model on at most workers goroutines and merges the
// per-model results in model name order. The first error cancels the run.
func Each(ctx context.Context, reg *ir.Registry, workers int, fn ModelFunc) (Output, error) {
	models := reg.Models()
	type slot struct {
		artifact Artifact
		unmapped []ir.UnmappedConstraint
	}
	slots := make([]slot, len(models))

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range models {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			artifact, unmapped, err := fn(models[i])
			if err != nil {
				return err
			}
			slots[i] = slot{artifact: artifact, unmapped: unmapped}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Output{}, err
	}

	var out Output
	for _, s := range slots {
		out.Artifacts = append(out.Artifacts, s.artifact)
		out.Unmapped = append(out.Unmapped, s.unmapped...)
	}
	return out, nil
}

// SortArtifacts orders artifacts by target then path.
func SortArtifacts(artifacts []Artifact) {
	sort.SliceStable(artifacts, func(i, j int) bool {
		if artifacts[i].Target != artifacts[j].Target {
			return artifacts[i].Target < artifacts[j].Target
		}
		return artifacts[i].Path < artifacts[j].Path
	})
}
