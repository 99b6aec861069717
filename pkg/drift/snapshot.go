package drift

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goliatone/go-schemasync/pkg/emit"
)

// generatedPattern matches the files scanned for the generated marker.
const generatedPattern = "**/*.ts"

// LoadSnapshot reads the file behind every artifact and lists the generated
// files under each target directory of layout. Missing files and
// directories are not errors.
func LoadSnapshot(ctx context.Context, layout *emit.Layout, artifacts []emit.Artifact) (Snapshot, error) {
	snapshot := Snapshot{Files: make(map[string]string, len(artifacts))}
	for _, artifact := range artifacts {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		content, ok, err := readFile(artifact.Path)
		if err != nil {
			return Snapshot{}, err
		}
		if ok {
			snapshot.Files[artifact.Path] = content
		}
	}

	if layout == nil {
		return snapshot, nil
	}
	seen := make(map[string]struct{})
	for _, target := range layout.Targets() {
		dir, err := layout.Dir(target)
		if err != nil {
			return Snapshot{}, err
		}
		generated, err := GeneratedFiles(ctx, dir)
		if err != nil {
			return Snapshot{}, err
		}
		for _, path := range generated {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			snapshot.Generated = append(snapshot.Generated, path)
		}
	}
	sort.Strings(snapshot.Generated)
	return snapshot, nil
}

// GeneratedFiles returns the TypeScript files below dir whose first line
// carries emit.Marker. Paths are joined onto dir.
func GeneratedFiles(ctx context.Context, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("drift: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("drift: %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), generatedPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("drift: scan %s: %w", dir, err)
	}
	var out []string
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, filepath.FromSlash(match))
		content, ok, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if ok && emit.IsGenerated(content) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func readFile(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("drift: read %s: %w", path, err)
	}
	return string(data), true, nil
}
