// Package tsgen holds the TypeScript source helpers shared by the type and
// validator emitters.
package tsgen

import (
	"bytes"
	"encoding/json"
	"path"
	"sort"
	"strings"
	"unicode"
)

// IsIdentifier reports whether name can be written as a bare property key.
func IsIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$' || unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) || unicode.Is(unicode.Pc, r)):
		default:
			return false
		}
	}
	return true
}

// PropertyKey returns name unquoted when it is an identifier and as a string
// literal otherwise.
func PropertyKey(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return Quote(name)
}

// Quote renders s as a double-quoted string literal.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Strings always encode.
		panic(err)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// DocComment renders doc as a JSDoc block at the given indentation. Empty
// docs produce no lines.
func DocComment(doc, indent string) []string {
	doc = strings.TrimSpace(doc)
	if doc == "" {
		return nil
	}
	doc = strings.ReplaceAll(doc, "*/", "*\\/")
	lines := strings.Split(doc, "\n")
	if len(lines) == 1 {
		return []string{indent + "/** " + lines[0] + " */"}
	}
	out := make([]string, 0, len(lines)+2)
	out = append(out, indent+"/**")
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			out = append(out, indent+" *")
			continue
		}
		out = append(out, indent+" * "+line)
	}
	return append(out, indent+" */")
}

// ImportPath returns the module specifier that file from uses to import
// file to. Both are slash separated paths; the ".ts" extension is dropped.
func ImportPath(from, to string) string {
	rel := relative(path.Dir(path.Clean(from)), path.Clean(to))
	rel = strings.TrimSuffix(rel, ".ts")
	if !strings.HasPrefix(rel, ".") {
		rel = "./" + rel
	}
	return rel
}

func relative(base, target string) string {
	baseParts := splitPath(base)
	targetParts := splitPath(target)
	i := 0
	for i < len(baseParts) && i < len(targetParts) && baseParts[i] == targetParts[i] {
		i++
	}
	var parts []string
	for range baseParts[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, targetParts[i:]...)
	return strings.Join(parts, "/")
}

func splitPath(p string) []string {
	if p == "." || p == "" {
		return nil
	}
	return strings.Split(strings.Trim(p, "/"), "/")
}

// Import is a single named import statement.
type Import struct {
	Names    []string
	From     string
	TypeOnly bool
}

// Render returns the import statement.
func (i Import) Render() string {
	names := append([]string(nil), i.Names...)
	sort.Strings(names)
	keyword := "import"
	if i.TypeOnly {
		keyword = "import type"
	}
	return keyword + " { " + strings.Join(names, ", ") + " } from " + Quote(i.From) + ";"
}

// SortImports orders imports by module specifier.
func SortImports(imports []Import) {
	sort.SliceStable(imports, func(a, b int) bool {
		return imports[a].From < imports[b].From
	})
}

// Finish joins lines with LF and guarantees exactly one trailing newline.
func Finish(lines []string) string {
	text := strings.Join(lines, "\n")
	return strings.TrimRight(text, "\n") + "\n"
}
