package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

// FormatAuto selects the adapter by content detection.
const FormatAuto = "auto"

func (o *Orchestrator) resolveAdapter(format string, doc schema.Document) (schema.FormatAdapter, error) {
	if o.adapters == nil {
		return nil, errors.New("orchestrator: adapter registry is nil")
	}

	format = strings.TrimSpace(format)
	if format != "" && !strings.EqualFold(format, FormatAuto) {
		return o.adapters.Get(format)
	}

	matches := o.adapters.Detect(doc.Source(), doc.Raw())
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("orchestrator: %s: unable to detect format", doc.Location())
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("orchestrator: %s: multiple adapters matched payload (%s), specify format", doc.Location(), formatAdapterNames(matches))
	}
}

// collectModels loads every source and maps every document to source
// models. Failures are collected per source so one bad file does not hide
// the others.
func (o *Orchestrator) collectModels(ctx context.Context, req Request, report *RunReport) ([]schema.Model, error) {
	models := append([]schema.Model(nil), req.Models...)
	docs := append([]schema.Document(nil), req.Documents...)

	var errs []error
	for _, src := range req.Sources {
		if src == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := o.loader.Load(ctx, src)
		if err != nil {
			ioErr := &IOError{Op: "read", Path: src.Location(), Err: err}
			report.addError("", "", ioErr.Error())
			errs = append(errs, ioErr)
			continue
		}
		docs = append(docs, doc)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		adapter, err := o.resolveAdapter(req.Format, doc)
		if err != nil {
			report.addError("", "", err.Error())
			errs = append(errs, err)
			continue
		}
		found, err := adapter.Models(ctx, doc)
		if err != nil {
			err = fmt.Errorf("orchestrator: %s: %w", doc.Location(), err)
			report.addError("", "", err.Error())
			errs = append(errs, err)
			continue
		}
		o.logger.Debug("source mapped", "path", doc.Location(), "adapter", adapter.Name(), "models", len(found))
		models = append(models, found...)
	}
	return models, errors.Join(errs...)
}

func formatAdapterNames(adapters []schema.FormatAdapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		if adapter == nil {
			continue
		}
		if name := strings.TrimSpace(adapter.Name()); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// ExpandSources turns command line locations into sources. File patterns
// containing glob characters are expanded with doublestar ("**" matches
// any depth) and their matches sorted; a pattern matching nothing is an
// error. Duplicates are dropped, keeping the first occurrence.
func ExpandSources(locations []string) ([]schema.Source, error) {
	var (
		out  []schema.Source
		errs []error
	)
	seen := make(map[string]struct{})
	add := func(src schema.Source) {
		key := string(src.Kind()) + ":" + src.Location()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, src)
	}

	for _, location := range locations {
		src, err := schema.ParseSource(location)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if src.Kind() != schema.SourceKindFile || !containsGlob(src.Location()) {
			add(src)
			continue
		}
		matches, err := doublestar.FilepathGlob(src.Location(), doublestar.WithFilesOnly())
		if err != nil {
			errs = append(errs, fmt.Errorf("orchestrator: glob %q: %w", location, err))
			continue
		}
		if len(matches) == 0 {
			errs = append(errs, fmt.Errorf("orchestrator: no files match %q", location))
			continue
		}
		sort.Strings(matches)
		for _, match := range matches {
			add(schema.SourceFromFile(match))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// containsGlob reports whether pattern has glob characters and does not
// name an existing file literally.
func containsGlob(pattern string) bool {
	if !strings.ContainsAny(pattern, "*?[{") {
		return false
	}
	_, err := os.Stat(pattern)
	return err != nil
}
