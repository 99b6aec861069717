package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "models.json")
	if err := os.WriteFile(path, []byte(`{"title":"Post"}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	loader := New(schema.NewLoaderOptions())
	doc, err := loader.Load(context.Background(), schema.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := string(doc.Raw()); got != `{"title":"Post"}` {
		t.Fatalf("raw = %q", got)
	}
}

func TestLoader_FS(t *testing.T) {
	files := fstest.MapFS{"models/user.yaml": {Data: []byte("title: User\n")}}
	loader := New(schema.NewLoaderOptions(schema.WithFileSystem(files)))

	doc, err := loader.Load(context.Background(), schema.SourceFromFS("models/user.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Location() != "models/user.yaml" {
		t.Fatalf("location = %q", doc.Location())
	}
}

func TestLoader_RejectsOversizedDocuments(t *testing.T) {
	files := fstest.MapFS{"big.json": {Data: []byte(strings.Repeat("x", 64))}}
	loader := New(schema.NewLoaderOptions(
		schema.WithFileSystem(files),
		schema.WithMaxDocumentBytes(16),
	))

	if _, err := loader.Load(context.Background(), schema.SourceFromFS("big.json")); err == nil {
		t.Fatalf("expected size limit error")
	}
}

func TestLoader_HTTPDisabledByDefault(t *testing.T) {
	src, err := schema.SourceFromURL("https://example.com/openapi.json")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if _, err := New(schema.NewLoaderOptions()).Load(context.Background(), src); err == nil {
		t.Fatalf("expected http disabled error")
	}
}

func TestLoader_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"openapi":"3.0.0"}`))
	}))
	defer server.Close()

	src, err := schema.SourceFromURL(server.URL + "/openapi.json")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	loader := New(schema.NewLoaderOptions(schema.WithHTTPClient(server.Client())))
	doc, err := loader.Load(context.Background(), src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(string(doc.Raw()), "openapi") {
		t.Fatalf("unexpected payload %q", doc.Raw())
	}
}

func TestLoader_PackageSourcePassesThrough(t *testing.T) {
	doc, err := New(schema.NewLoaderOptions()).Load(context.Background(), schema.SourceFromPackage("./models"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Source().Kind() != schema.SourceKindPackage {
		t.Fatalf("kind = %q", doc.Source().Kind())
	}
	if len(doc.Raw()) != 0 {
		t.Fatalf("expected empty payload for package source")
	}
}
