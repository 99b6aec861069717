package emit

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLayout_DefaultPaths(t *testing.T) {
	layout, err := DefaultLayout("web/types", "web/validators")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got, err := layout.Path(TargetTypes, "PostCreate")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join("web", "types", "PostCreate.ts"); got != want {
		t.Fatalf("types path = %q, want %q", got, want)
	}
	got, err = layout.Path(TargetValidators, "PostCreate")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join("web", "validators", "PostCreate.schema.ts"); got != want {
		t.Fatalf("validators path = %q, want %q", got, want)
	}

	imp, err := layout.ImportPath(TargetValidators, "PostCreate", TargetTypes, "PostCreate")
	if err != nil {
		t.Fatalf("import path: %v", err)
	}
	if imp != "../types/PostCreate" {
		t.Fatalf("import path = %q", imp)
	}
}

func TestLayout_FileTemplateFilters(t *testing.T) {
	layout, err := NewLayout(map[string]TargetLayout{
		TargetTypes: {Dir: "out", FileTemplate: "{{ model|kebab }}.d.ts"},
	}, "")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	got, err := layout.Path(TargetTypes, "PostAuthor")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if want := filepath.Join("out", "post-author.d.ts"); got != want {
		t.Fatalf("path = %q, want %q", got, want)
	}
}

func TestLayout_RejectsEscapingNames(t *testing.T) {
	layout, err := NewLayout(map[string]TargetLayout{
		TargetTypes: {Dir: "out", FileTemplate: "../{{ model }}.ts"},
	}, "")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if _, err := layout.Path(TargetTypes, "Post"); err == nil {
		t.Fatalf("expected escape error")
	}
	if _, err := layout.Path("unknown", "Post"); err == nil {
		t.Fatalf("expected unknown target error")
	}
}

func TestLayout_Banner(t *testing.T) {
	layout, err := NewLayout(map[string]TargetLayout{
		TargetTypes: {Dir: "out"},
	}, "Source: {{ model }} ({{ target }})\n\n// keep in sync")
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	lines, err := layout.Banner(TargetTypes, "Post")
	if err != nil {
		t.Fatalf("banner: %v", err)
	}
	want := []string{
		"// " + Marker + ". DO NOT EDIT.",
		"// Source: Post (types)",
		"//",
		"// keep in sync",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("banner mismatch (-want +got):\n%s", diff)
	}
	if !IsGenerated(lines[0] + "\nexport {};\n") {
		t.Fatalf("banner should be recognised as generated")
	}
	if IsGenerated("export interface Hand {}\n// " + Marker) {
		t.Fatalf("marker must be on the first line")
	}
}

func TestSplitWords(t *testing.T) {
	cases := map[string]string{
		"PostAuthor": "post_author",
		"HTTPServer": "http_server",
		"user":       "user",
		"UserV2":     "user_v2",
	}
	for input, want := range cases {
		if got := splitWords(input, '_'); got != want {
			t.Fatalf("splitWords(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(stubEmitter{target: "types"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(stubEmitter{target: "types"}); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	reg.MustRegister(stubEmitter{target: "validators"})
	if diff := cmp.Diff([]string{"types", "validators"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if _, err := reg.Get("docs"); err == nil {
		t.Fatalf("expected missing emitter error")
	}
}
