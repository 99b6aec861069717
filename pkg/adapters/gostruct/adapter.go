package gostruct

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

const DefaultAdapterName = "gostruct"

// Adapter reads exported struct types from a Go package. Field names come
// from json tags and constraints from go-playground style validate tags.
type Adapter struct {
	tags Tags
}

// Tags names the struct tags the adapter reads.
type Tags struct {
	JSON     string
	Validate string
}

// AdapterOption configures the adapter.
type AdapterOption func(*Adapter)

// WithValidateTag overrides the struct tag holding validation rules.
func WithValidateTag(name string) AdapterOption {
	return func(a *Adapter) {
		if strings.TrimSpace(name) != "" {
			a.tags.Validate = name
		}
	}
}

// NewAdapter constructs a Go struct adapter.
func NewAdapter(options ...AdapterOption) *Adapter {
	adapter := &Adapter{tags: Tags{JSON: "json", Validate: "validate"}}
	for _, opt := range options {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

// Name returns the adapter registry identifier.
func (a *Adapter) Name() string {
	return DefaultAdapterName
}

// Detect accepts package sources only.
func (a *Adapter) Detect(src schema.Source, _ []byte) bool {
	return src != nil && src.Kind() == schema.SourceKindPackage
}

// Models loads the package at the document location and returns one model
// per exported, non-generic struct type in declaration order.
func (a *Adapter) Models(ctx context.Context, doc schema.Document) ([]schema.Model, error) {
	dir := doc.Location()
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("gostruct: package directory is required")
	}
	pkg, err := loadPackage(ctx, dir)
	if err != nil {
		return nil, err
	}

	c := converter{pkg: pkg.Types, tags: a.tags, enums: collectEnums(pkg)}
	var models []schema.Model
	for _, spec := range structSpecs(pkg) {
		obj, ok := pkg.TypesInfo.Defs[spec.spec.Name].(*types.TypeName)
		if !ok {
			continue
		}
		st, ok := obj.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		fields, err := c.fields(st, fieldDocs(spec.spec))
		if err != nil {
			return nil, fmt.Errorf("gostruct: %s: %w", obj.Name(), err)
		}
		models = append(models, schema.Model{
			Name:        obj.Name(),
			Description: spec.doc,
			Location:    pkg.Fset.Position(spec.spec.Pos()).Filename,
			Fields:      fields,
		})
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("gostruct: package %s declares no exported structs", pkg.PkgPath)
	}
	return models, nil
}

func loadPackage(ctx context.Context, dir string) (*packages.Package, error) {
	cfg := &packages.Config{
		Context: ctx,
		Mode: packages.NeedName |
			packages.NeedSyntax |
			packages.NeedTypes |
			packages.NeedTypesInfo,
		Dir:  dir,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, ".")
	if err != nil {
		return nil, fmt.Errorf("gostruct: load %s: %w", dir, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("gostruct: no package found in %s", dir)
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		msgs := make([]string, 0, len(pkg.Errors))
		for _, e := range pkg.Errors {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("gostruct: load %s: %s", dir, strings.Join(msgs, "; "))
	}
	if pkg.Types == nil || pkg.TypesInfo == nil {
		return nil, fmt.Errorf("gostruct: no type info for %s", dir)
	}
	return pkg, nil
}

type declaredStruct struct {
	spec *ast.TypeSpec
	doc  string
}

func structSpecs(pkg *packages.Package) []declaredStruct {
	var out []declaredStruct
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, s := range gen.Specs {
				spec, ok := s.(*ast.TypeSpec)
				if !ok || !spec.Name.IsExported() || spec.TypeParams != nil {
					continue
				}
				if _, ok := spec.Type.(*ast.StructType); !ok {
					continue
				}
				doc := spec.Doc
				if doc == nil && len(gen.Specs) == 1 {
					doc = gen.Doc
				}
				out = append(out, declaredStruct{spec: spec, doc: strings.TrimSpace(doc.Text())})
			}
		}
	}
	return out
}

func fieldDocs(spec *ast.TypeSpec) map[string]string {
	st, ok := spec.Type.(*ast.StructType)
	if !ok || st.Fields == nil {
		return nil
	}
	docs := make(map[string]string)
	for _, field := range st.Fields.List {
		group := field.Doc
		if group == nil {
			group = field.Comment
		}
		text := strings.TrimSpace(group.Text())
		if text == "" {
			continue
		}
		for _, name := range field.Names {
			docs[name.Name] = text
		}
	}
	return docs
}

// collectEnums maps named string types to the constants declared for them,
// ordered by source position.
func collectEnums(pkg *packages.Package) map[*types.TypeName][]string {
	type member struct {
		pos   token.Pos
		value string
	}
	grouped := make(map[*types.TypeName][]member)
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		c, ok := scope.Lookup(name).(*types.Const)
		if !ok {
			continue
		}
		named, ok := c.Type().(*types.Named)
		if !ok || named.Obj().Pkg() != pkg.Types {
			continue
		}
		if basic, ok := named.Underlying().(*types.Basic); !ok || basic.Info()&types.IsString == 0 {
			continue
		}
		value := c.Val().ExactString()
		if unquoted, err := unquote(value); err == nil {
			value = unquoted
		}
		grouped[named.Obj()] = append(grouped[named.Obj()], member{pos: c.Pos(), value: value})
	}

	out := make(map[*types.TypeName][]string, len(grouped))
	for obj, members := range grouped {
		sort.Slice(members, func(i, j int) bool { return members[i].pos < members[j].pos })
		values := make([]string, 0, len(members))
		seen := make(map[string]struct{}, len(members))
		for _, m := range members {
			if _, dup := seen[m.value]; dup {
				continue
			}
			seen[m.value] = struct{}{}
			values = append(values, m.value)
		}
		out[obj] = values
	}
	return out
}
