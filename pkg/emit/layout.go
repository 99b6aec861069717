package emit

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-schemasync/internal/tsgen"
)

// Marker is written on the first line of every generated file. Files in a
// target directory that carry it but no longer correspond to a model are
// orphans.
const Marker = "@generated by schemasync"

// Default file name templates, rendered with pongo2.
const (
	DefaultTypesFile      = "{{ model }}.ts"
	DefaultValidatorsFile = "{{ model }}.schema.ts"
)

// TargetLayout places one target's artifacts.
type TargetLayout struct {
	Dir          string
	FileTemplate string
}

// Layout maps (target, model) pairs to file paths and renders the banner.
type Layout struct {
	targets map[string]compiledTarget
	banner  *pongo2.Template
}

type compiledTarget struct {
	dir  string
	file *pongo2.Template
}

var registerFilters sync.Once

// NewLayout compiles the file name templates and the optional banner
// template. Templates see the variables model, target and the filters kebab
// and snake.
func NewLayout(targets map[string]TargetLayout, banner string) (*Layout, error) {
	registerFilters.Do(registerNameFilters)

	if len(targets) == 0 {
		return nil, errors.New("emit: layout needs at least one target")
	}
	layout := &Layout{targets: make(map[string]compiledTarget, len(targets))}
	for name, target := range targets {
		if strings.TrimSpace(target.Dir) == "" {
			return nil, fmt.Errorf("emit: target %q: directory is required", name)
		}
		source := target.FileTemplate
		if strings.TrimSpace(source) == "" {
			source = defaultFileTemplate(name)
		}
		tpl, err := pongo2.FromString(source)
		if err != nil {
			return nil, fmt.Errorf("emit: target %q: parse file template: %w", name, err)
		}
		layout.targets[name] = compiledTarget{dir: filepath.Clean(target.Dir), file: tpl}
	}
	if strings.TrimSpace(banner) != "" {
		tpl, err := pongo2.FromString(banner)
		if err != nil {
			return nil, fmt.Errorf("emit: parse banner template: %w", err)
		}
		layout.banner = tpl
	}
	return layout, nil
}

// DefaultLayout places types and validators in the given directories with
// the default file names.
func DefaultLayout(typesDir, validatorsDir string) (*Layout, error) {
	return NewLayout(map[string]TargetLayout{
		TargetTypes:      {Dir: typesDir},
		TargetValidators: {Dir: validatorsDir},
	}, "")
}

func defaultFileTemplate(target string) string {
	if target == TargetValidators {
		return DefaultValidatorsFile
	}
	return DefaultTypesFile
}

// Targets returns the configured target names.
func (l *Layout) Targets() []string {
	names := make([]string, 0, len(l.targets))
	for name := range l.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dir returns the output directory of target.
func (l *Layout) Dir(target string) (string, error) {
	t, ok := l.targets[target]
	if !ok {
		return "", fmt.Errorf("emit: unknown target %q", target)
	}
	return t.dir, nil
}

// Path returns the file path of model's artifact for target.
func (l *Layout) Path(target, model string) (string, error) {
	t, ok := l.targets[target]
	if !ok {
		return "", fmt.Errorf("emit: unknown target %q", target)
	}
	name, err := t.file.Execute(templateContext(target, model))
	if err != nil {
		return "", fmt.Errorf("emit: target %q model %q: render file name: %w", target, model, err)
	}
	name = strings.TrimSpace(name)
	clean := path.Clean(filepath.ToSlash(name))
	switch {
	case name == "" || clean == ".":
		return "", fmt.Errorf("emit: target %q model %q: empty file name", target, model)
	case path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../"):
		return "", fmt.Errorf("emit: target %q model %q: file name %q escapes the target directory", target, model, name)
	case !strings.HasSuffix(clean, ".ts"):
		return "", fmt.Errorf("emit: target %q model %q: file name %q must end in .ts", target, model, name)
	}
	return filepath.Join(t.dir, filepath.FromSlash(clean)), nil
}

// ImportPath returns the module specifier the artifact at (fromTarget,
// fromModel) uses to import the artifact at (toTarget, toModel).
func (l *Layout) ImportPath(fromTarget, fromModel, toTarget, toModel string) (string, error) {
	from, err := l.Path(fromTarget, fromModel)
	if err != nil {
		return "", err
	}
	to, err := l.Path(toTarget, toModel)
	if err != nil {
		return "", err
	}
	return tsgen.ImportPath(filepath.ToSlash(from), filepath.ToSlash(to)), nil
}

// Banner returns the comment header for a generated file. The first line
// always carries Marker; a configured banner template adds further lines.
func (l *Layout) Banner(target, model string) ([]string, error) {
	lines := []string{"// " + Marker + ". DO NOT EDIT."}
	if l.banner == nil {
		return lines, nil
	}
	text, err := l.banner.Execute(templateContext(target, model))
	if err != nil {
		return nil, fmt.Errorf("emit: render banner: %w", err)
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		switch {
		case line == "":
			lines = append(lines, "//")
		case strings.HasPrefix(line, "//"):
			lines = append(lines, line)
		default:
			lines = append(lines, "// "+line)
		}
	}
	return lines, nil
}

// IsGenerated reports whether content starts with the generated marker.
func IsGenerated(content string) bool {
	first, _, _ := strings.Cut(content, "\n")
	return strings.Contains(first, Marker)
}

func templateContext(target, model string) pongo2.Context {
	return pongo2.Context{"model": model, "target": target}
}

func registerNameFilters() {
	filters := map[string]func(string) string{
		"kebab": func(s string) string { return splitWords(s, '-') },
		"snake": func(s string) string { return splitWords(s, '_') },
	}
	for name, fn := range filters {
		if pongo2.FilterExists(name) {
			continue
		}
		_ = pongo2.RegisterFilter(name, func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
			return pongo2.AsValue(fn(in.String())), nil
		})
	}
}

// splitWords lower-cases a PascalCase name and joins its words with sep:
// "PostAuthor" becomes "post-author".
func splitWords(s string, sep rune) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteRune(sep)
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == '_' || r == ' ' {
			b.WriteRune(sep)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
