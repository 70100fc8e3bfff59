package model

import (
	"strings"
)

// TypeKind classifies a type reference.
type TypeKind string

const (
	KindClass         TypeKind = "class"
	KindTypeParameter TypeKind = "type_parameter"
	KindPrimitive     TypeKind = "primitive"
	KindVirtual       TypeKind = "virtual"
)

func (k TypeKind) String() string { return string(k) }

// Type is a resolved type reference: a class with type arguments, a type
// parameter, a primitive, or a synthesized virtual container. Arrays counts
// the array dimensions on top of the base type.
type Type struct {
	Name   string   `json:"name"`
	Kind   TypeKind `json:"kind"`
	Args   []Type   `json:"args,omitempty"`
	Arrays int      `json:"arrays,omitempty"`
}

// Void is the return type of methods without a value.
var Void = Type{Name: "void", Kind: KindPrimitive}

// Class returns a class type with the given type arguments.
func Class(name string, args ...Type) Type {
	return Type{Name: name, Kind: KindClass, Args: args}
}

// TypeParam returns a reference to a type parameter.
func TypeParam(name string) Type {
	return Type{Name: name, Kind: KindTypeParameter}
}

// Primitive returns a primitive type.
func Primitive(name string) Type {
	return Type{Name: name, Kind: KindPrimitive}
}

// Virtual returns a synthesized container type holding the given components.
// Its name concatenates the component labels, e.g. KV or TXYS for (T, XY[]).
func Virtual(components ...Type) Type {
	var sb strings.Builder
	for _, c := range components {
		sb.WriteString(c.baseLabel())
		sb.WriteString(strings.Repeat("S", c.Arrays))
	}
	return Type{Name: sb.String(), Kind: KindVirtual, Args: components}
}

// Array returns the type with n extra array dimensions.
func (t Type) Array(n int) Type {
	out := t
	out.Arrays += n
	return out
}

// Element returns the type with one array dimension removed.
func (t Type) Element() Type {
	out := t
	if out.Arrays > 0 {
		out.Arrays--
	}
	return out
}

func (t Type) IsVoid() bool {
	return t.Kind == KindPrimitive && t.Name == "void"
}

func (t Type) IsTypeParameter() bool {
	return t.Kind == KindTypeParameter
}

func (t Type) IsPrimitive() bool {
	return t.Kind == KindPrimitive && t.Arrays == 0
}

// IsZero reports whether the type is unset.
func (t Type) IsZero() bool {
	return t.Name == "" && t.Kind == ""
}

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.Name != o.Name || t.Kind != o.Kind || t.Arrays != o.Arrays || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Mentions reports whether the type parameter occurs anywhere in t.
func (t Type) Mentions(typeParameter string) bool {
	if t.Kind == KindTypeParameter {
		return t.Name == typeParameter
	}
	for _, a := range t.Args {
		if a.Mentions(typeParameter) {
			return true
		}
	}
	return false
}

func (t Type) baseLabel() string {
	switch t.Kind {
	case KindTypeParameter:
		return t.Name
	case KindVirtual:
		return t.Name
	default:
		return "$"
	}
}

func (t Type) String() string {
	var sb strings.Builder
	if t.Kind == KindVirtual {
		sb.WriteString(t.Name)
	} else {
		sb.WriteString(t.Name)
		if len(t.Args) > 0 {
			sb.WriteByte('<')
			for i, a := range t.Args {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(a.String())
			}
			sb.WriteByte('>')
		}
	}
	for i := 0; i < t.Arrays; i++ {
		sb.WriteString("[]")
	}
	return sb.String()
}

// Field is a declared field of a type.
type Field struct {
	Name   string `json:"name"`
	Type   Type   `json:"type"`
	Static bool   `json:"static,omitempty"`
}

// TypeInfo is a type declaration: its formal type parameters, its supertypes
// expressed in terms of those parameters, and its fields.
type TypeInfo struct {
	Name           string   `json:"name"`
	TypeParameters []string `json:"type_parameters,omitempty"`
	Supertypes     []Type   `json:"supertypes,omitempty"`
	Fields         []Field  `json:"fields,omitempty"`
	Immutable      bool     `json:"immutable,omitempty"`
}

// Formal returns the type of the declaration with its own type parameters as
// arguments, e.g. List<E>.
func (ti *TypeInfo) Formal() Type {
	args := make([]Type, len(ti.TypeParameters))
	for i, tp := range ti.TypeParameters {
		args[i] = TypeParam(tp)
	}
	return Class(ti.Name, args...)
}

// Field returns the field with the given name and its ordinal.
func (ti *TypeInfo) Field(name string) (Field, int, bool) {
	for i, f := range ti.Fields {
		if f.Name == name {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// TypeParameterIndex returns the position of a formal type parameter.
func (ti *TypeInfo) TypeParameterIndex(name string) int {
	for i, tp := range ti.TypeParameters {
		if tp == name {
			return i
		}
	}
	return -1
}
