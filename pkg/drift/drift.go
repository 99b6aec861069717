// Package drift compares freshly emitted artifacts with the files on disk.
// CheckDrift is pure; LoadSnapshot is the only function that touches the
// filesystem and it never writes.
package drift

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/goliatone/go-schemasync/internal/tsast"
	"github.com/goliatone/go-schemasync/pkg/emit"
	"github.com/goliatone/go-schemasync/pkg/ir"
)

// Snapshot is the on-disk state the artifacts are compared with. A path
// absent from Files does not exist. Generated lists the files in the target
// directories that carry the generated marker. Reserved paths belong to
// models outside the comparison; they are neither compared nor orphaned.
type Snapshot struct {
	Files     map[string]string
	Generated []string
	Reserved  []string
}

// FieldDrift names a declaration member that differs. An empty Expected
// means the member only exists on disk; an empty Actual means it is gone.
type FieldDrift struct {
	Name     string `json:"name"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// FileDrift describes one artifact whose file is missing or differs.
type FileDrift struct {
	Target           string       `json:"target"`
	Path             string       `json:"path"`
	Expected         string       `json:"-"`
	Actual           string       `json:"-"`
	Missing          bool         `json:"missing,omitempty"`
	ExpectedChecksum string       `json:"expectedChecksum"`
	ActualChecksum   string       `json:"actualChecksum,omitempty"`
	DiffSummary      string       `json:"diffSummary,omitempty"`
	Fields           []FieldDrift `json:"fields,omitempty"`
}

// ModelDrift groups the drifted files of one model.
type ModelDrift struct {
	Model string      `json:"model"`
	Files []FileDrift `json:"files"`
}

// Report is the outcome of CheckDrift.
type Report struct {
	InSync   bool                  `json:"inSync"`
	PerModel map[string]ModelDrift `json:"perModel,omitempty"`
	Orphans  []string              `json:"orphans,omitempty"`
}

// Models returns the drifted model names in order.
func (r Report) Models() []string {
	names := make([]string, 0, len(r.PerModel))
	for name := range r.PerModel {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Files returns every drifted file ordered by model, then path.
func (r Report) Files() []FileDrift {
	var files []FileDrift
	for _, name := range r.Models() {
		files = append(files, r.PerModel[name].Files...)
	}
	return files
}

// Err returns a *DriftError when the report is not in sync.
func (r Report) Err() error {
	if r.InSync {
		return nil
	}
	return &DriftError{Models: r.Models(), Orphans: append([]string(nil), r.Orphans...)}
}

// DriftError is returned by check runs that find divergent artifacts.
type DriftError struct {
	Models  []string
	Orphans []string
}

func (e *DriftError) Error() string {
	var parts []string
	if len(e.Models) > 0 {
		parts = append(parts, fmt.Sprintf("%d model(s) drifted: %s", len(e.Models), strings.Join(e.Models, ", ")))
	}
	if len(e.Orphans) > 0 {
		parts = append(parts, fmt.Sprintf("%d orphaned file(s): %s", len(e.Orphans), strings.Join(e.Orphans, ", ")))
	}
	if len(parts) == 0 {
		return "drift: artifacts out of sync"
	}
	return "drift: " + strings.Join(parts, "; ")
}

// CheckDrift compares each artifact with its file in onDisk. Content is
// compared after Normalize, so line ending and trailing newline differences
// are not drift. Models in reg without artifacts are not reported.
func CheckDrift(reg *ir.Registry, artifacts []emit.Artifact, onDisk Snapshot) Report {
	report := Report{InSync: true, PerModel: make(map[string]ModelDrift)}

	expected := make(map[string]struct{}, len(artifacts)+len(onDisk.Reserved))
	for _, path := range onDisk.Reserved {
		expected[filepath.Clean(path)] = struct{}{}
	}
	sorted := append([]emit.Artifact(nil), artifacts...)
	emit.SortArtifacts(sorted)
	for _, artifact := range sorted {
		expected[filepath.Clean(artifact.Path)] = struct{}{}
		if reg != nil && !reg.Has(artifact.Model) {
			continue
		}
		file, drifted := compare(artifact, onDisk.Files)
		if !drifted {
			continue
		}
		report.InSync = false
		entry := report.PerModel[artifact.Model]
		entry.Model = artifact.Model
		entry.Files = append(entry.Files, file)
		report.PerModel[artifact.Model] = entry
	}

	for _, path := range onDisk.Generated {
		if _, ok := expected[filepath.Clean(path)]; !ok {
			report.Orphans = append(report.Orphans, path)
		}
	}
	sort.Strings(report.Orphans)
	if len(report.Orphans) > 0 {
		report.InSync = false
	}
	return report
}

func compare(artifact emit.Artifact, files map[string]string) (FileDrift, bool) {
	want := Normalize(artifact.Content)
	file := FileDrift{
		Target:           artifact.Target,
		Path:             artifact.Path,
		Expected:         want,
		ExpectedChecksum: Checksum(want),
	}

	raw, ok := lookup(files, artifact.Path)
	if !ok {
		file.Missing = true
		return file, true
	}
	got := Normalize(raw)
	file.Actual = got
	file.ActualChecksum = Checksum(got)
	if file.ActualChecksum == file.ExpectedChecksum {
		return file, false
	}

	file.DiffSummary = unifiedDiff(artifact.Path, want, got)
	file.Fields = fieldDrift(want, got)
	return file, true
}

func lookup(files map[string]string, path string) (string, bool) {
	if content, ok := files[path]; ok {
		return content, true
	}
	content, ok := files[filepath.Clean(path)]
	return content, ok
}

// Normalize converts CRLF and CR line endings to LF and collapses trailing
// newlines to exactly one.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.TrimRight(content, "\n") + "\n"
}

// Checksum is the hex SHA-256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func unifiedDiff(path, want, got string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(want),
		B:        difflib.SplitLines(got),
		FromFile: path + " (expected)",
		ToFile:   path,
		Context:  2,
	})
	if err != nil {
		return fmt.Sprintf("diff unavailable: %v", err)
	}
	return diff
}

// fieldDrift pairs declaration members by name. Members are reported in
// expected order followed by members that only exist on disk.
func fieldDrift(want, got string) []FieldDrift {
	ctx := context.Background()
	expected := tsast.Extract(ctx, []byte(want))
	actual := tsast.Extract(ctx, []byte(got))

	onDisk := make(map[string]string, len(actual))
	for _, m := range actual {
		onDisk[m.Name] = m.Text
	}
	declared := make(map[string]struct{}, len(expected))

	var fields []FieldDrift
	for _, m := range expected {
		declared[m.Name] = struct{}{}
		text, ok := onDisk[m.Name]
		if ok && text == m.Text {
			continue
		}
		fields = append(fields, FieldDrift{Name: m.Name, Expected: m.Text, Actual: text})
	}
	for _, m := range actual {
		if _, ok := declared[m.Name]; !ok {
			fields = append(fields, FieldDrift{Name: m.Name, Actual: m.Text})
		}
	}
	return fields
}
