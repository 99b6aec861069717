package jsonschema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-schemasync/pkg/schema"
	"github.com/goliatone/go-schemasync/pkg/testsupport"
)

func TestAdapter_DetectsJSONSchema(t *testing.T) {
	adapter := NewAdapter()
	src := schema.SourceFromFile("inline.json")

	cases := []struct {
		name string
		raw  string
		want bool
	}{
		{name: "defs bundle", raw: `{"$defs": {"A": {"type": "object"}}}`, want: true},
		{name: "single model", raw: `{"title": "A", "properties": {}}`, want: true},
		{name: "yaml", raw: "$schema: https://json-schema.org/draft/2020-12/schema\nproperties: {}\n", want: true},
		{name: "openapi", raw: `{"openapi": "3.1.0", "components": {}}`, want: false},
		{name: "array", raw: `[1, 2]`, want: false},
		{name: "empty", raw: ``, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := adapter.Detect(src, []byte(tc.raw)); got != tc.want {
				t.Fatalf("Detect() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAdapter_ModelsFromPydanticBundle(t *testing.T) {
	doc := testsupport.LoadDocument(t, testsupport.Fixture("microblog", "models.schema.json"))

	models, err := NewAdapter().Models(testsupport.Context(), doc)
	if err != nil {
		t.Fatalf("models: %v", err)
	}

	names := make([]string, len(models))
	for i, model := range models {
		names[i] = model.Name
	}
	want := []string{
		"PostAuthor", "PostCreate", "PostList", "PostPublic", "TokenRequest",
		"TokenResponse", "UserCreate", "UserPublic", "UserUpdate",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("model names mismatch (-want +got):\n%s", diff)
	}

	user := findModel(t, models, "UserPublic")
	var fields []string
	for _, field := range user.Fields {
		fields = append(fields, field.Name)
	}
	wantFields := []string{
		"id", "username", "email", "display_name", "bio", "join_date",
		"post_count", "follower_count", "following_count",
	}
	if diff := cmp.Diff(wantFields, fields); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if !user.Fields[3].Required || user.Fields[6].Required {
		t.Fatalf("required flags not applied: %+v", user.Fields)
	}

	content := findModel(t, models, "PostCreate").Fields[0].Node
	wantAnnotations := []schema.Annotation{
		{Keyword: "maxLength", Value: 280},
		{Keyword: "minLength", Value: 1},
	}
	if diff := cmp.Diff(wantAnnotations, content.Annotations); diff != "" {
		t.Fatalf("annotations mismatch (-want +got):\n%s", diff)
	}

	posts := findModel(t, models, "PostList").Fields[0].Node
	if posts.Items == nil || posts.Items.Ref != "#/$defs/PostPublic" {
		t.Fatalf("posts items = %+v", posts.Items)
	}
}

func TestAdapter_RootModelWithDefs(t *testing.T) {
	raw := `{
  "$defs": {
    "Status": {"enum": ["draft", "published"], "title": "Status", "type": "string"},
    "Author": {"properties": {"id": {"type": "string"}}, "required": ["id"], "title": "Author", "type": "object"}
  },
  "properties": {
    "status": {"$ref": "#/$defs/Status"},
    "author": {"$ref": "#/$defs/Author"},
    "score": {"type": "number", "multipleOf": 0.5}
  },
  "required": ["status"],
  "title": "Article",
  "type": "object"
}`
	doc := schema.MustNewDocument(schema.SourceFromFile("article.json"), []byte(raw))
	models, err := NewAdapter().Models(testsupport.Context(), doc)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 2 || models[0].Name != "Article" || models[1].Name != "Author" {
		t.Fatalf("unexpected models: %+v", models)
	}

	status := models[0].Fields[0].Node
	if diff := cmp.Diff([]any{"draft", "published"}, status.Enum); diff != "" {
		t.Fatalf("enum alias not inlined (-want +got):\n%s", diff)
	}
	score := models[0].Fields[2].Node
	if annotation, ok := score.Annotation("multipleOf"); !ok || annotation.Value != 0.5 {
		t.Fatalf("multipleOf annotation lost: %+v", score.Annotations)
	}
}

func TestAdapter_UntitledRootUsesFileName(t *testing.T) {
	raw := "properties:\n  name:\n    type: string\n"
	doc := schema.MustNewDocument(schema.SourceFromFile("models/Tag.schema.json"), []byte(raw))
	models, err := NewAdapter().Models(testsupport.Context(), doc)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(models) != 1 || models[0].Name != "Tag" {
		t.Fatalf("unexpected models: %+v", models)
	}
}

func TestAdapter_RejectsTupleItems(t *testing.T) {
	raw := `{"title": "Pair", "properties": {"xy": {"type": "array", "items": [{"type": "number"}, {"type": "number"}]}}}`
	doc := schema.MustNewDocument(schema.SourceFromFile("pair.json"), []byte(raw))
	if _, err := NewAdapter().Models(testsupport.Context(), doc); err == nil {
		t.Fatalf("expected tuple items error")
	}
}

func findModel(t *testing.T, models []schema.Model, name string) schema.Model {
	t.Helper()
	for _, model := range models {
		if model.Name == name {
			return model
		}
	}
	t.Fatalf("model %q not found", name)
	return schema.Model{}
}
