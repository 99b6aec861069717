package ir

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func cyclicModels() []ModelDefinition {
	return []ModelDefinition{
		{
			Name: "Post",
			Fields: []FieldDefinition{
				{Name: "id", Type: String(), Required: true},
				{Name: "author", Type: ModelRef{Name: "User"}, Required: true},
			},
		},
		{
			Name: "User",
			Fields: []FieldDefinition{
				{Name: "id", Type: String(), Required: true},
				{Name: "posts", Type: Optional{Elem: List{Elem: ModelRef{Name: "Post"}}}},
			},
		},
		{
			Name: "Tag",
			Fields: []FieldDefinition{
				{Name: "label", Type: String(), Required: true},
			},
		},
	}
}

func buildRegistry(t *testing.T, models []ModelDefinition) *Registry {
	t.Helper()
	builder := NewBuilder()
	for _, model := range models {
		if err := builder.Add(model); err != nil {
			t.Fatalf("add %s: %v", model.Name, err)
		}
	}
	reg, errs := builder.Build()
	if len(errs) > 0 {
		t.Fatalf("build: %v", errs)
	}
	return reg
}

func TestRegistry_WalkTerminatesOnCycles(t *testing.T) {
	reg := buildRegistry(t, cyclicModels())

	var visited []string
	err := reg.Walk("Post", func(model ModelDefinition) error {
		visited = append(visited, model.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	if diff := cmp.Diff([]string{"Post", "User"}, visited); diff != "" {
		t.Fatalf("visited mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	reg := buildRegistry(t, cyclicModels())
	if diff := cmp.Diff([]string{"Post", "Tag", "User"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if got := reg.References("User"); len(got) != 1 || got[0] != "Post" {
		t.Fatalf("references = %v", got)
	}
}

func TestRegistry_Cycles(t *testing.T) {
	reg := buildRegistry(t, cyclicModels())
	if diff := cmp.Diff([]string{"Post", "User"}, reg.Cycles()); diff != "" {
		t.Fatalf("cycles mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Subset(t *testing.T) {
	reg := buildRegistry(t, cyclicModels())
	sub, err := reg.Subset("User")
	if err != nil {
		t.Fatalf("subset: %v", err)
	}
	if diff := cmp.Diff([]string{"Post", "User"}, sub.Names()); diff != "" {
		t.Fatalf("subset mismatch (-want +got):\n%s", diff)
	}
	if _, err := reg.Subset("Missing"); err == nil {
		t.Fatalf("expected error for unknown root")
	}
}

func TestBuilder_DanglingReference(t *testing.T) {
	builder := NewBuilder()
	err := builder.Add(ModelDefinition{
		Name: "Post",
		Fields: []FieldDefinition{
			{Name: "author", Type: ModelRef{Name: "Ghost"}, Required: true},
			{Name: "editor", Type: Optional{Elem: ModelRef{Name: "Phantom"}}},
		},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	_, errs := builder.Build()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if errs[0].Model != "Post" || errs[0].Field != "author" {
		t.Fatalf("unexpected first error %+v", errs[0])
	}
}

func TestBuilder_RejectsInvalidModels(t *testing.T) {
	cases := []struct {
		name  string
		model ModelDefinition
	}{
		{
			name: "duplicate field",
			model: ModelDefinition{Name: "A", Fields: []FieldDefinition{
				{Name: "x", Type: String(), Required: true},
				{Name: "x", Type: Int(), Required: true},
			}},
		},
		{
			name: "required disagrees with optional",
			model: ModelDefinition{Name: "A", Fields: []FieldDefinition{
				{Name: "x", Type: Optional{Elem: String()}, Required: true},
			}},
		},
		{
			name: "nested optional",
			model: ModelDefinition{Name: "A", Fields: []FieldDefinition{
				{Name: "x", Type: List{Elem: Optional{Elem: String()}}, Required: true},
			}},
		},
		{
			name: "duplicate enum member",
			model: ModelDefinition{Name: "A", Fields: []FieldDefinition{
				{Name: "x", Type: Enum{Name: "E", Members: []string{"a", "a"}}, Required: true},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := NewBuilder().Add(tc.model)
			if err == nil {
				t.Fatalf("expected error")
			}
			list, ok := AsIntrospectionErrors(err)
			if !ok || len(list) == 0 {
				t.Fatalf("expected introspection errors, got %T", err)
			}
			if list[0].Model != "A" || list[0].Field != "x" {
				t.Fatalf("unexpected error %+v", list[0])
			}
		})
	}
}

func TestBuilder_DuplicateModel(t *testing.T) {
	builder := NewBuilder()
	model := ModelDefinition{Name: "A", Fields: []FieldDefinition{{Name: "x", Type: String(), Required: true}}}
	if err := builder.Add(model); err != nil {
		t.Fatalf("add: %v", err)
	}
	conflicting := ModelDefinition{Name: "A", Fields: []FieldDefinition{{Name: "x", Type: Int(), Required: true}}}
	err := builder.Add(conflicting)
	var single *IntrospectionError
	if !errors.As(err, &single) {
		t.Fatalf("expected IntrospectionError, got %v", err)
	}
	if single.Model != "A" {
		t.Fatalf("unexpected model %q", single.Model)
	}
}

func TestBuilder_IdenticalDuplicateIsMerged(t *testing.T) {
	builder := NewBuilder()
	author := func() ModelDefinition {
		return ModelDefinition{
			Name: "PostAuthor",
			Doc:  "Author summary embedded in posts.",
			Fields: []FieldDefinition{
				{Name: "id", Type: String(), Required: true, Constraints: []Constraint{FormatOf(FormatUUID)}},
				{Name: "username", Type: String(), Required: true, Constraints: []Constraint{MinLengthOf(3), MaxLengthOf(50)}},
			},
		}
	}
	if err := builder.Add(author()); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := builder.Add(author()); err != nil {
		t.Fatalf("identical duplicate should be accepted: %v", err)
	}

	reg, errs := builder.Build()
	if len(errs) > 0 {
		t.Fatalf("build: %v", errs)
	}
	if diff := cmp.Diff([]string{"PostAuthor"}, reg.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestConstraintString(t *testing.T) {
	cases := map[string]Constraint{
		"maxLength(280)":     MaxLengthOf(280),
		"minimum(>0)":        MinimumOf(0, true),
		"maximum(99.5)":      MaximumOf(99.5, false),
		"items.format(uuid)": FormatOf(FormatUUID).OnItems(),
		"pattern(^[a-z]+$)":  PatternOf("^[a-z]+$"),
	}
	for want, constraint := range cases {
		if got := constraint.String(); got != want {
			t.Fatalf("String() = %q, want %q", got, want)
		}
	}
}

func TestBase(t *testing.T) {
	typ := Optional{Elem: Nullable{Elem: String()}}
	if Base(typ) != String() {
		t.Fatalf("Base = %v", Base(typ))
	}
	if !IsNullable(typ) || !IsOptional(typ) {
		t.Fatalf("expected optional nullable")
	}
}
