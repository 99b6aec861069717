package emit

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemasync/pkg/ir"
)

type stubEmitter struct {
	target string
}

func (s stubEmitter) Target() string { return s.target }

func (s stubEmitter) Emit(context.Context, *ir.Registry, *Layout) (Output, error) {
	return Output{}, nil
}

func registry(t *testing.T, names ...string) *ir.Registry {
	t.Helper()
	builder := ir.NewBuilder()
	for _, name := range names {
		model := ir.ModelDefinition{Name: name, Fields: []ir.FieldDefinition{{Name: "id", Type: ir.String(), Required: true}}}
		if err := builder.Add(model); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	reg, errs := builder.Build()
	if len(errs) > 0 {
		t.Fatalf("build: %v", errs)
	}
	return reg
}

func TestEach_MergesInModelOrder(t *testing.T) {
	reg := registry(t, "Zeta", "Alpha", "Mid")
	out, err := Each(context.Background(), reg, 3, func(model ir.ModelDefinition) (Artifact, []ir.UnmappedConstraint, error) {
		return Artifact{Model: model.Name, Target: "types", Path: model.Name + ".ts"},
			[]ir.UnmappedConstraint{{Model: model.Name, Field: "id", Constraint: "x"}}, nil
	})
	if err != nil {
		t.Fatalf("each: %v", err)
	}
	var models, unmapped []string
	for _, artifact := range out.Artifacts {
		models = append(models, artifact.Model)
	}
	for _, u := range out.Unmapped {
		unmapped = append(unmapped, u.Model)
	}
	want := []string{"Alpha", "Mid", "Zeta"}
	if diff := cmp.Diff(want, models); diff != "" {
		t.Fatalf("artifact order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, unmapped); diff != "" {
		t.Fatalf("unmapped order mismatch (-want +got):\n%s", diff)
	}
}

func TestEach_PropagatesErrors(t *testing.T) {
	reg := registry(t, "A", "B")
	boom := errors.New("boom")
	_, err := Each(context.Background(), reg, 1, func(model ir.ModelDefinition) (Artifact, []ir.UnmappedConstraint, error) {
		if model.Name == "B" {
			return Artifact{}, nil, boom
		}
		return Artifact{Model: model.Name}, nil, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}
