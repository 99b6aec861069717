package ir

import (
	"errors"
	"fmt"
	"strings"
)

// PrimitiveKind enumerates scalar kinds.
type PrimitiveKind string

const (
	KindString PrimitiveKind = "string"
	KindInt    PrimitiveKind = "int"
	KindFloat  PrimitiveKind = "float"
	KindBool   PrimitiveKind = "bool"
)

// SemanticType is the closed set of type variants. The unexported marker
// method keeps other packages from adding variants, so switches over it can
// treat the default branch as a programming error.
type SemanticType interface {
	semanticType()
	String() string
}

// Primitive is a scalar value.
type Primitive struct {
	Kind PrimitiveKind
}

// Enum is a named ordered set of string members.
type Enum struct {
	Name    string
	Members []string
}

// List is a homogeneous sequence.
type List struct {
	Elem SemanticType
}

// Optional marks a value that may be absent. It only appears as the outermost
// wrapper of a field type.
type Optional struct {
	Elem SemanticType
}

// Nullable marks a value that may be present with an explicit null.
type Nullable struct {
	Elem SemanticType
}

// ModelRef is a weak, by-name reference to another model in the registry.
type ModelRef struct {
	Name string
}

func (Primitive) semanticType() {}
func (Enum) semanticType()      {}
func (List) semanticType()      {}
func (Optional) semanticType()  {}
func (Nullable) semanticType()  {}
func (ModelRef) semanticType()  {}

func (t Primitive) String() string { return string(t.Kind) }

func (t Enum) String() string {
	return fmt.Sprintf("enum %s(%s)", t.Name, strings.Join(t.Members, "|"))
}

func (t List) String() string     { return "list<" + typeString(t.Elem) + ">" }
func (t Optional) String() string { return "optional<" + typeString(t.Elem) + ">" }
func (t Nullable) String() string { return "nullable<" + typeString(t.Elem) + ">" }
func (t ModelRef) String() string { return "ref " + t.Name }

func typeString(t SemanticType) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// String, Int, Float and Bool are convenience constructors.
func String() SemanticType { return Primitive{Kind: KindString} }
func Int() SemanticType    { return Primitive{Kind: KindInt} }
func Float() SemanticType  { return Primitive{Kind: KindFloat} }
func Bool() SemanticType   { return Primitive{Kind: KindBool} }

// IsOptional reports whether t is wrapped in Optional.
func IsOptional(t SemanticType) bool {
	_, ok := t.(Optional)
	return ok
}

// IsNullable reports whether t, ignoring an outer Optional, is Nullable.
func IsNullable(t SemanticType) bool {
	if opt, ok := t.(Optional); ok {
		t = opt.Elem
	}
	_, ok := t.(Nullable)
	return ok
}

// Base strips Optional and Nullable wrappers.
func Base(t SemanticType) SemanticType {
	for {
		switch v := t.(type) {
		case Optional:
			t = v.Elem
		case Nullable:
			t = v.Elem
		default:
			return t
		}
	}
}

// Refs returns the model names referenced anywhere inside t, in traversal
// order and without duplicates.
func Refs(t SemanticType) []string {
	var out []string
	seen := make(map[string]struct{})
	var walk func(SemanticType)
	walk = func(t SemanticType) {
		switch v := t.(type) {
		case ModelRef:
			if _, ok := seen[v.Name]; !ok {
				seen[v.Name] = struct{}{}
				out = append(out, v.Name)
			}
		case List:
			walk(v.Elem)
		case Optional:
			walk(v.Elem)
		case Nullable:
			walk(v.Elem)
		}
	}
	walk(t)
	return out
}

// ValidateType checks structural rules: no nil elements, Optional only at
// the top, enums with unique non-empty members, known primitive kinds.
func ValidateType(t SemanticType) error {
	return validateType(t, true)
}

func validateType(t SemanticType, top bool) error {
	switch v := t.(type) {
	case nil:
		return errors.New("type is missing")
	case Primitive:
		switch v.Kind {
		case KindString, KindInt, KindFloat, KindBool:
			return nil
		default:
			return fmt.Errorf("unknown primitive kind %q", v.Kind)
		}
	case Enum:
		if len(v.Members) == 0 {
			return fmt.Errorf("enum %q has no members", v.Name)
		}
		seen := make(map[string]struct{}, len(v.Members))
		for _, member := range v.Members {
			if _, dup := seen[member]; dup {
				return fmt.Errorf("enum %q repeats member %q", v.Name, member)
			}
			seen[member] = struct{}{}
		}
		return nil
	case List:
		return validateType(v.Elem, false)
	case Optional:
		if !top {
			return errors.New("optional is only valid as the outermost field type")
		}
		return validateType(v.Elem, false)
	case Nullable:
		if _, nested := v.Elem.(Nullable); nested {
			return errors.New("nullable wraps nullable")
		}
		return validateType(v.Elem, false)
	case ModelRef:
		if strings.TrimSpace(v.Name) == "" {
			return errors.New("model reference has no name")
		}
		return nil
	default:
		return fmt.Errorf("unsupported semantic type %T", t)
	}
}
