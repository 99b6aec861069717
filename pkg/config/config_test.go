package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
sources:
  - schemas/**/*.schema.json
format: jsonschema
targets:
  types:
    dir: web/src/types
  validators:
    dir: web/src/validators
    file: "{{ model|kebab }}.schema.ts"
strict: true
http:
  enabled: true
  timeout: 5s
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := DefaultConfig()
	want.Sources = []string{"schemas/**/*.schema.json"}
	want.Format = FormatJSONSchema
	want.Targets.Types = TargetConfig{Dir: "web/src/types", File: "{{ model }}.ts"}
	want.Targets.Validators = TargetConfig{Dir: "web/src/validators", File: "{{ model|kebab }}.schema.ts"}
	want.Strict = true
	want.HTTP = HTTPConfig{Enabled: true, Timeout: 5 * time.Second}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	if _, err := Parse([]byte("sources: [a.json]\nstrictt: true\n")); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestParse_EmptyDocumentKeepsDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "protobuf"
	cfg.Targets.Types.Dir = ""
	cfg.Workers = -1
	cfg.Models = []string{" "}

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, fragment := range []string{
		"sources: at least one source is required",
		`format: "protobuf"`,
		"targets.types.dir: is required",
		"workers: must not be negative",
		"models[0]: must not be empty",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("missing %q in:\n%v", fragment, err)
		}
	}
}

func TestValidate_SameFilesForBothTargets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources = []string{"a.json"}
	cfg.Targets.Validators = cfg.Targets.Types
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "same files") {
		t.Fatalf("err = %v", err)
	}
}

func TestLoad_DefaultFileIsOptional(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(filepath.Join(dir, DefaultFile), []byte("sources: [models.json]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"models.json"}, cfg.Sources); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for explicit missing file")
	}
}

func TestConfig_Layout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Targets.Validators.File = "{{ model|snake }}.schema.ts"
	layout, err := cfg.Layout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	path, err := layout.Path("validators", "PostAuthor")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if path != filepath.Join("generated", "validators", "post_author.schema.ts") {
		t.Fatalf("path = %q", path)
	}
}
