package model

import (
	"errors"
	"fmt"
)

// ErrUnknownVariableKind is returned when decoding a variable of an unknown kind.
var ErrUnknownVariableKind = errors.New("unknown variable kind")

// Variable kinds in their serialized form.
const (
	KindLocal     = "local"
	KindParam     = "param"
	KindThis      = "this"
	KindField     = "field"
	KindReturn    = "return"
	KindElement   = "element"
	KindSynthetic = "synthetic"
)

// VariableDoc is the self-contained serialized form of a variable.
type VariableDoc struct {
	Kind    string       `json:"kind"`
	Name    string       `json:"name,omitempty"`
	Method  string       `json:"method,omitempty"`
	Index   int          `json:"index,omitempty"`
	Type    Type         `json:"type"`
	Scope   *VariableDoc `json:"scope,omitempty"`
	Owner   string       `json:"owner,omitempty"`
	Ordinal int          `json:"ordinal,omitempty"`
	Element string       `json:"element,omitempty"`
}

// Describe serializes a variable.
func Describe(v Variable) VariableDoc {
	switch x := v.(type) {
	case Local:
		return VariableDoc{Kind: KindLocal, Name: x.Name, Type: x.VarType}
	case Parameter:
		return VariableDoc{Kind: KindParam, Name: x.Name, Method: x.Method, Index: x.Index, Type: x.VarType}
	case This:
		return VariableDoc{Kind: KindThis, Type: x.VarType}
	case FieldReference:
		d := VariableDoc{Kind: KindField, Name: x.Field, Owner: x.Owner, Ordinal: x.Ordinal, Type: x.VarType}
		if x.Scope != nil {
			s := Describe(x.Scope)
			d.Scope = &s
		}
		return d
	case ReturnVariable:
		return VariableDoc{Kind: KindReturn, Method: x.Method, Type: x.VarType}
	case DependentVariable:
		s := Describe(x.Array)
		return VariableDoc{Kind: KindElement, Scope: &s, Element: x.Index, Type: x.VarType}
	case Synthetic:
		return VariableDoc{Kind: KindSynthetic, Name: x.ID, Type: x.VarType}
	default:
		panic("model: unknown variable kind")
	}
}

// Variable rebuilds the variable described by d.
func (d VariableDoc) Variable() (Variable, error) {
	switch d.Kind {
	case KindLocal:
		return Local{Name: d.Name, VarType: d.Type}, nil
	case KindParam:
		return Parameter{Method: d.Method, Index: d.Index, Name: d.Name, VarType: d.Type}, nil
	case KindThis:
		return This{VarType: d.Type}, nil
	case KindField:
		f := FieldReference{Owner: d.Owner, Field: d.Name, Ordinal: d.Ordinal, VarType: d.Type}
		if d.Scope != nil {
			s, err := d.Scope.Variable()
			if err != nil {
				return nil, err
			}
			f.Scope = s
		}
		return f, nil
	case KindReturn:
		return ReturnVariable{Method: d.Method, VarType: d.Type}, nil
	case KindElement:
		if d.Scope == nil {
			return nil, fmt.Errorf("element %q without array: %w", d.Element, ErrUnknownVariableKind)
		}
		s, err := d.Scope.Variable()
		if err != nil {
			return nil, err
		}
		return DependentVariable{Array: s, Index: d.Element, VarType: d.Type}, nil
	case KindSynthetic:
		return Synthetic{ID: d.Name, VarType: d.Type}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariableKind, d.Kind)
	}
}
