package zod

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemasync/pkg/adapters/jsonschema"
	"github.com/goliatone/go-schemasync/pkg/emit"
	"github.com/goliatone/go-schemasync/pkg/introspect"
	"github.com/goliatone/go-schemasync/pkg/ir"
	"github.com/goliatone/go-schemasync/pkg/testsupport"
)

func microblogRegistry(t *testing.T) *ir.Registry {
	t.Helper()
	doc := testsupport.LoadDocument(t, testsupport.Fixture("microblog", "models.schema.json"))
	models, err := jsonschema.NewAdapter().Models(testsupport.Context(), doc)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	result, err := introspect.New().Introspect(testsupport.Context(), models)
	if err != nil {
		t.Fatalf("introspect: %v", err)
	}
	return result.Registry
}

func layout(t *testing.T) *emit.Layout {
	t.Helper()
	l, err := emit.DefaultLayout("types", "validators")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return l
}

func buildRegistry(t *testing.T, models ...ir.ModelDefinition) *ir.Registry {
	t.Helper()
	builder := ir.NewBuilder()
	for _, model := range models {
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

func atLeast(n int) string {
	return fmt.Sprintf(`.refine((s) => [...s].length >= %d, "String must contain at least %d character(s)")`, n, n)
}

func atMost(n int) string {
	return fmt.Sprintf(`.refine((s) => [...s].length <= %d, "String must contain at most %d character(s)")`, n, n)
}

func TestEmitValidators_PostCreate(t *testing.T) {
	out, err := EmitValidators(testsupport.Context(), microblogRegistry(t), layout(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(out.Unmapped) != 0 {
		t.Fatalf("unexpected unmapped: %+v", out.Unmapped)
	}
	want := `// @generated by schemasync. DO NOT EDIT.

import { z } from "zod";

import type { PostCreate } from "../types/PostCreate";

/** Schema for creating a new post. */
export const PostCreateSchema: z.ZodType<PostCreate> = z.object({
  content: z.string()` + atLeast(1) + atMost(280) + `,
});
`
	if diff := cmp.Diff(want, out.Files[filepath.Join("validators", "PostCreate.schema.ts")]); diff != "" {
		t.Fatalf("PostCreate mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitValidators_PostPublicGolden(t *testing.T) {
	out, err := EmitValidators(testsupport.Context(), microblogRegistry(t), layout(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := out.Files[filepath.Join("validators", "PostPublic.schema.ts")]
	testsupport.AssertGolden(t, filepath.Join("testdata", "PostPublic.schema.golden.ts"), got)
}

func TestEmitValidators_UserCreateFields(t *testing.T) {
	out, err := EmitValidators(testsupport.Context(), microblogRegistry(t), layout(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	content := out.Files[filepath.Join("validators", "UserCreate.schema.ts")]
	for _, line := range []string{
		`  username: z.string().regex(new RegExp("^[a-zA-Z0-9_-]+$"))` + atLeast(3) + atMost(50) + `,`,
		`  email: z.string().email(),`,
		`  password: z.string()` + atLeast(8) + atMost(100) + `,`,
		`  display_name: z.string()` + atMost(100) + `.nullable().optional(),`,
		`  bio: z.string()` + atMost(250) + `.nullable().optional(),`,
	} {
		if !strings.Contains(content, line+"\n") {
			t.Fatalf("missing line %q in:\n%s", line, content)
		}
	}
}

func TestRender_TypesAndRules(t *testing.T) {
	model := ir.ModelDefinition{
		Name: "Node",
		Fields: []ir.FieldDefinition{
			{Name: "count", Type: ir.Int(), Required: true, Constraints: []ir.Constraint{ir.MinimumOf(0, true), ir.MaximumOf(10, false)}},
			{Name: "ratio", Type: ir.Float(), Required: true, Constraints: []ir.Constraint{ir.MinimumOf(0.5, false), ir.MaximumOf(1, true)}},
			{Name: "on", Type: ir.Bool(), Required: true},
			{Name: "state", Type: ir.Enum{Name: "State", Members: []string{"open", "closed"}}, Required: true},
			{Name: "ids", Type: ir.List{Elem: ir.String()}, Required: true, Constraints: []ir.Constraint{
				ir.MinLengthOf(1), ir.FormatOf(ir.FormatUUID).OnItems(),
			}},
			{Name: "children", Type: ir.Optional{Elem: ir.List{Elem: ir.ModelRef{Name: "Node"}}}},
			{Name: "addr", Type: ir.Nullable{Elem: ir.String()}, Required: true, Constraints: []ir.Constraint{ir.FormatOf(ir.FormatIPv6)}},
		},
	}
	reg := buildRegistry(t, model)
	node, _ := reg.Get("Node")

	got, unmapped, err := New().Render(node, layout(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(unmapped) != 0 {
		t.Fatalf("unexpected unmapped: %+v", unmapped)
	}
	want := `// @generated by schemasync. DO NOT EDIT.

import { z } from "zod";

import type { Node } from "../types/Node";

export const NodeSchema: z.ZodType<Node> = z.object({
  count: z.number().int().gt(0).lte(10),
  ratio: z.number().gte(0.5).lt(1),
  on: z.boolean(),
  state: z.enum(["open", "closed"]),
  ids: z.array(z.string().uuid()).min(1),
  children: z.array(z.lazy(() => NodeSchema)).optional(),
  addr: z.string().ip({ version: "v6" }).nullable(),
});
`
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_UnmappableConstraintsAreReported(t *testing.T) {
	model := ir.ModelDefinition{
		Name: "Account",
		Fields: []ir.FieldDefinition{
			{Name: "secret", Type: ir.String(), Required: true, Constraints: []ir.Constraint{ir.MinLengthOf(8), ir.FormatOf("password")}},
			{Name: "active", Type: ir.Bool(), Required: true, Constraints: []ir.Constraint{ir.MinLengthOf(1)}},
			{Name: "age", Type: ir.Int(), Required: true, Constraints: []ir.Constraint{ir.PatternOf("^[0-9]+$")}},
			{Name: "name", Type: ir.String(), Required: true, Constraints: []ir.Constraint{ir.FormatOf(ir.FormatEmail).OnItems()}},
		},
	}
	reg := buildRegistry(t, model)
	account, _ := reg.Get("Account")

	got, unmapped, err := New().Render(account, layout(t))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, line := range []string{
		"  secret: z.string()" + atLeast(8) + ",",
		"  active: z.boolean(),",
		"  age: z.number().int(),",
		"  name: z.string(),",
	} {
		if !strings.Contains(got, line+"\n") {
			t.Fatalf("missing line %q in:\n%s", line, got)
		}
	}

	var keys []string
	for _, u := range unmapped {
		if u.Stage != Stage || u.Model != "Account" {
			t.Fatalf("unexpected unmapped entry: %+v", u)
		}
		keys = append(keys, u.Field+":"+u.Constraint)
	}
	want := []string{
		"secret:format(password)",
		"active:minLength(1)",
		"age:pattern(^[0-9]+$)",
		"name:items.format(email)",
	}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("unmapped mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_ValidatorsOnlyLayoutSkipsTypeImport(t *testing.T) {
	l, err := emit.NewLayout(map[string]emit.TargetLayout{
		emit.TargetValidators: {Dir: "schemas"},
	}, "")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got, _, err := New(WithImport("zod/v3")).Render(ir.ModelDefinition{Name: "Empty"}, l)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "// @generated by schemasync. DO NOT EDIT.\n\nimport { z } from \"zod/v3\";\n\nexport const EmptySchema = z.object({});\n"
	if got != want {
		t.Fatalf("render = %q", got)
	}
}

func TestEmitValidators_Idempotent(t *testing.T) {
	first, err := EmitValidators(testsupport.Context(), microblogRegistry(t), layout(t))
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := EmitValidators(testsupport.Context(), microblogRegistry(t), layout(t))
		if err != nil {
			t.Fatalf("emit: %v", err)
		}
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("run %d differs (-first +again):\n%s", i, diff)
		}
	}
}
