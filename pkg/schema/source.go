package schema

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where a model document originated so loaders can operate
// on files, fs.FS entries, or URLs without leaking implementation details.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
	// SourceKindPackage points at a Go package directory consumed by the
	// gostruct adapter instead of a single document.
	SourceKindPackage SourceKind = "package"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string  { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string  { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string  { return s.raw }
func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL validates the supplied URL string and returns a Source.
func SourceFromURL(raw string) (Source, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", trimmed, err)
	}
	return urlSource{raw: trimmed}, nil
}

type packageSource struct {
	dir string
}

func (s packageSource) Location() string  { return s.dir }
func (s packageSource) Kind() SourceKind { return SourceKindPackage }

// SourceFromPackage returns a Source naming a Go package directory.
func SourceFromPackage(dir string) Source {
	return packageSource{dir: filepath.Clean(dir)}
}

// ParseSource maps a command line style location onto a Source: http(s) URLs
// become URL sources, "pkg:" prefixed paths become package sources and
// everything else is treated as a file path.
func ParseSource(raw string) (Source, error) {
	location := strings.TrimSpace(raw)
	switch {
	case location == "":
		return nil, errors.New("schema: source location is required")
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return SourceFromURL(location)
	case strings.HasPrefix(location, "pkg:"):
		dir := strings.TrimSpace(strings.TrimPrefix(location, "pkg:"))
		if dir == "" {
			return nil, errors.New("schema: package source requires a directory")
		}
		return SourceFromPackage(dir), nil
	default:
		return SourceFromFile(location), nil
	}
}
