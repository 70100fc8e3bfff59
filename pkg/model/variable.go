package model

import (
	"strings"
)

// VirtualFieldPrefix marks the names of synthesized hidden-content fields.
const VirtualFieldPrefix = "§"

// Variable is the closed set of variable kinds the analysis reasons about:
// Local, Parameter, This, FieldReference, ReturnVariable, DependentVariable
// and Synthetic. Consumers switch exhaustively over these kinds.
type Variable interface {
	// FQN is the identity of the variable within one method body.
	FQN() string
	Type() Type
	variable()
}

// Local is a local variable declared in a method body.
type Local struct {
	Name    string
	VarType Type
}

// Parameter is a formal parameter of a method.
type Parameter struct {
	Method  string
	Index   int
	Name    string
	VarType Type
}

// This is the receiver of an instance method.
type This struct {
	VarType Type
}

// FieldReference is a field accessed through a scope variable. Static fields
// have a nil Scope and are identified by their Owner. Virtual fields carry a
// name starting with VirtualFieldPrefix.
type FieldReference struct {
	Scope   Variable
	Owner   string
	Field   string
	Ordinal int
	VarType Type
}

// ReturnVariable stands for the value returned by a method.
type ReturnVariable struct {
	Method  string
	VarType Type
}

// DependentVariable is an element of an array, a[i].
type DependentVariable struct {
	Array   Variable
	Index   string
	VarType Type
}

// Synthetic is an ephemeral variable created while evaluating an expression,
// such as the result of a call.
type Synthetic struct {
	ID      string
	VarType Type
}

func (v Local) FQN() string { return v.Name }
func (v Local) Type() Type { return v.VarType }
func (Local) variable() {}
func (v Local) String() string { return v.FQN() }

func (v Parameter) FQN() string { return v.Name }
func (v Parameter) Type() Type { return v.VarType }
func (Parameter) variable() {}
func (v Parameter) String() string { return v.FQN() }

func (This) FQN() string { return "this" }
func (v This) Type() Type { return v.VarType }
func (This) variable() {}
func (v This) String() string { return v.FQN() }

func (v FieldReference) FQN() string {
	if v.Scope == nil {
		return v.Owner + "." + v.Field
	}
	return v.Scope.FQN() + "." + v.Field
}
func (v FieldReference) Type() Type { return v.VarType }
func (FieldReference) variable() {}
func (v FieldReference) String() string { return v.FQN() }

// IsVirtual reports whether the field is a synthesized hidden-content field.
func (v FieldReference) IsVirtual() bool {
	return strings.HasPrefix(v.Field, VirtualFieldPrefix)
}

func (ReturnVariable) FQN() string { return "<return>" }
func (v ReturnVariable) Type() Type { return v.VarType }
func (ReturnVariable) variable() {}
func (v ReturnVariable) String() string { return v.FQN() }

func (v DependentVariable) FQN() string { return v.Array.FQN() + "[" + v.Index + "]" }
func (v DependentVariable) Type() Type { return v.VarType }
func (DependentVariable) variable() {}
func (v DependentVariable) String() string { return v.FQN() }

func (v Synthetic) FQN() string { return "$" + v.ID }
func (v Synthetic) Type() Type { return v.VarType }
func (Synthetic) variable() {}
func (v Synthetic) String() string { return v.FQN() }

// Scope returns the variable a field reference or array element hangs off,
// or nil for variables without a scope.
func Scope(v Variable) Variable {
	switch x := v.(type) {
	case FieldReference:
		return x.Scope
	case DependentVariable:
		return x.Array
	case Local, Parameter, This, ReturnVariable, Synthetic:
		return nil
	default:
		panic("model: unknown variable kind")
	}
}

// Root follows scopes up to the outermost variable.
func Root(v Variable) Variable {
	for {
		s := Scope(v)
		if s == nil {
			return v
		}
		v = s
	}
}

// IsDescendantOf reports whether v is reached from ancestor by following
// field or element scopes, excluding v == ancestor.
func IsDescendantOf(v, ancestor Variable) bool {
	for s := Scope(v); s != nil; s = Scope(s) {
		if s.FQN() == ancestor.FQN() {
			return true
		}
	}
	return false
}

// IsInterface reports whether a variable is visible outside the method body:
// the receiver, parameters, the return value, static fields and anything
// reached from them.
func IsInterface(v Variable) bool {
	switch r := Root(v).(type) {
	case This, Parameter, ReturnVariable:
		return true
	case FieldReference:
		return r.Scope == nil
	case Local, Synthetic, DependentVariable:
		return false
	default:
		panic("model: unknown variable kind")
	}
}

// WithType returns a copy of the variable carrying a different type.
func WithType(v Variable, t Type) Variable {
	switch x := v.(type) {
	case Local:
		x.VarType = t
		return x
	case Parameter:
		x.VarType = t
		return x
	case This:
		x.VarType = t
		return x
	case FieldReference:
		x.VarType = t
		return x
	case ReturnVariable:
		x.VarType = t
		return x
	case DependentVariable:
		x.VarType = t
		return x
	case Synthetic:
		x.VarType = t
		return x
	default:
		panic("model: unknown variable kind")
	}
}
