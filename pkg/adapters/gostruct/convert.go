package gostruct

import (
	"fmt"
	"go/types"
	"reflect"
	"strconv"
	"strings"

	"github.com/goliatone/go-schemasync/pkg/schema"
)

type converter struct {
	pkg   *types.Package
	tags  Tags
	enums map[*types.TypeName][]string
}

func (c converter) fields(st *types.Struct, docs map[string]string) ([]schema.Field, error) {
	var out []schema.Field
	seen := make(map[string]struct{})
	for i := 0; i < st.NumFields(); i++ {
		v := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		name, opts := parseJSONTag(tag.Get(c.tags.JSON))
		if name == "-" && len(opts) == 0 {
			continue
		}

		if v.Embedded() && name == "" {
			if inner, ok := derefStruct(v.Type()); ok {
				embedded, err := c.fields(inner, nil)
				if err != nil {
					return nil, err
				}
				for _, field := range embedded {
					if _, dup := seen[field.Name]; dup {
						continue
					}
					seen[field.Name] = struct{}{}
					out = append(out, field)
				}
				continue
			}
		}
		if !v.Exported() {
			continue
		}
		if name == "" {
			name = v.Name()
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("field %s: duplicate json name %q", v.Name(), name)
		}
		seen[name] = struct{}{}

		field, err := c.field(name, v.Type(), opts, tag.Get(c.tags.Validate))
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", v.Name(), err)
		}
		field.Node.Description = docs[v.Name()]
		out = append(out, field)
	}
	return out, nil
}

func (c converter) field(name string, typ types.Type, jsonOpts []string, validate string) (schema.Field, error) {
	rules := parseRules(validate)
	omitempty := hasOption(jsonOpts, "omitempty") || hasOption(jsonOpts, "omitzero")

	required := !omitempty
	for _, rule := range rules {
		switch rule.name {
		case "required":
			required = true
		case "omitempty":
			required = false
		}
	}

	node := c.node(typ)
	if _, isPointer := typ.(*types.Pointer); isPointer && !omitempty {
		node.Nullable = true
	}
	if err := applyRules(node, rules); err != nil {
		return schema.Field{}, err
	}
	return schema.Field{Name: name, Required: required, Node: node}, nil
}

// node maps a Go type onto a JSON-Schema shaped node. Maps, interfaces and
// structs from other packages come back as untyped objects and are rejected
// during introspection.
func (c converter) node(typ types.Type) *schema.Node {
	switch t := typ.(type) {
	case *types.Pointer:
		return c.node(t.Elem())
	case *types.Alias:
		return c.node(types.Unalias(t))
	case *types.Named:
		obj := t.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == "time" && obj.Name() == "Time" {
			return &schema.Node{Types: []string{"string"}, Format: "date-time"}
		}
		if members, ok := c.enums[obj]; ok && len(members) > 0 {
			enum := make([]any, len(members))
			for i, m := range members {
				enum[i] = m
			}
			return &schema.Node{Types: []string{"string"}, Enum: enum, Title: obj.Name()}
		}
		if _, ok := t.Underlying().(*types.Struct); ok {
			if obj.Pkg() == c.pkg && obj.Exported() && t.TypeArgs().Len() == 0 {
				return &schema.Node{Ref: "#/" + obj.Name()}
			}
			return &schema.Node{Types: []string{"object"}}
		}
		return c.node(t.Underlying())
	case *types.Basic:
		info := t.Info()
		switch {
		case info&types.IsBoolean != 0:
			return &schema.Node{Types: []string{"boolean"}}
		case info&types.IsInteger != 0:
			return &schema.Node{Types: []string{"integer"}}
		case info&types.IsFloat != 0:
			return &schema.Node{Types: []string{"number"}}
		case info&types.IsString != 0:
			return &schema.Node{Types: []string{"string"}}
		}
		return &schema.Node{}
	case *types.Slice:
		if basic, ok := t.Elem().(*types.Basic); ok && basic.Kind() == types.Byte {
			return &schema.Node{Types: []string{"string"}}
		}
		return &schema.Node{Types: []string{"array"}, Items: c.node(t.Elem())}
	case *types.Array:
		return &schema.Node{Types: []string{"array"}, Items: c.node(t.Elem())}
	case *types.Map, *types.Interface, *types.Struct:
		return &schema.Node{Types: []string{"object"}}
	default:
		return &schema.Node{}
	}
}

func derefStruct(typ types.Type) (*types.Struct, bool) {
	if ptr, ok := typ.(*types.Pointer); ok {
		typ = ptr.Elem()
	}
	st, ok := typ.Underlying().(*types.Struct)
	return st, ok
}

func parseJSONTag(tag string) (string, []string) {
	if tag == "" {
		return "", nil
	}
	parts := strings.Split(tag, ",")
	return parts[0], parts[1:]
}

func hasOption(opts []string, name string) bool {
	for _, opt := range opts {
		if opt == name {
			return true
		}
	}
	return false
}

func unquote(value string) (string, error) {
	return strconv.Unquote(value)
}
