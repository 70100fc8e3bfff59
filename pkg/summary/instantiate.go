package summary

import (
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vf"
)

// Binding maps the formal interface variables of a summary onto the
// variables of a call site.
type Binding struct {
	// This is the receiver at the call site; nil for static calls.
	This model.Variable
	// Args holds one variable per argument; nil entries are dropped.
	Args []model.Variable
	// Result receives the return value.
	Result model.Variable
	// Types substitutes the callee's formal type parameters, those of its
	// owner and its own, by the concrete types of the call.
	Types *vf.TranslationMap
	// Immutable reports concrete types whose content cannot be modified.
	// Hidden-content links carrying only such content lose their mutable
	// marker. May be nil.
	Immutable func(model.Type) bool
}

// Edge is one link of an instantiated summary.
type Edge struct {
	From model.Variable
	To   model.Variable
	LV   link.LV
}

// Instance is a summary expressed in the caller's variables.
type Instance struct {
	Edges    []Edge
	Modified []model.Variable
}

// Instantiate rewrites the summary for a call site. Links and modifications
// whose formal variables have no counterpart at the call are dropped.
func (s *MethodLinkedVariables) Instantiate(b Binding) Instance {
	var out Instance
	add := func(from, to model.Variable, lv link.LV) {
		af, ok := b.actual(from)
		if !ok {
			return
		}
		at, ok := b.actual(to)
		if !ok || af.FQN() == at.FQN() {
			return
		}
		if lv.Nature().HasIndices() && (b.immutableContent(from.Type()) || b.immutableContent(to.Type())) {
			lv = lv.Immutable()
		}
		out.Edges = append(out.Edges, Edge{From: af, To: at, LV: lv})
	}
	for _, p := range s.Params {
		for _, l := range p.Slice() {
			add(l.From, l.To, l.LV)
		}
	}
	for _, l := range s.Return.Slice() {
		add(l.From, l.To, l.LV)
	}
	for _, v := range s.Modified {
		if a, ok := b.actual(v); ok {
			out.Modified = append(out.Modified, a)
		}
	}
	return out
}

func (b Binding) actual(v model.Variable) (model.Variable, bool) {
	return b.replaceRoot(b.Types.TranslateVariableRecursively(v))
}

func (b Binding) replaceRoot(v model.Variable) (model.Variable, bool) {
	switch x := v.(type) {
	case model.Parameter:
		if x.Index < 0 || x.Index >= len(b.Args) || b.Args[x.Index] == nil {
			return nil, false
		}
		return b.Args[x.Index], true
	case model.This:
		return b.This, b.This != nil
	case model.ReturnVariable:
		return b.Result, b.Result != nil
	case model.FieldReference:
		if x.Scope == nil {
			return x, true
		}
		s, ok := b.replaceRoot(x.Scope)
		if !ok {
			return nil, false
		}
		x.Scope = s
		return x, true
	case model.DependentVariable:
		s, ok := b.replaceRoot(x.Array)
		if !ok {
			return nil, false
		}
		x.Array = s
		return x, true
	case model.Local, model.Synthetic:
		return nil, false
	default:
		panic("summary: unknown variable kind")
	}
}

// immutableContent reports whether every type parameter in the formal type
// is bound to a type whose content cannot be modified.
func (b Binding) immutableContent(formal model.Type) bool {
	if b.Immutable == nil || b.Types.Len() == 0 {
		return false
	}
	tps := typeParametersIn(formal, nil)
	if len(tps) == 0 {
		return false
	}
	for _, tp := range tps {
		t, ok := b.Types.Get(tp)
		if !ok || !b.Immutable(t) {
			return false
		}
	}
	return true
}

func typeParametersIn(t model.Type, acc []string) []string {
	if t.IsTypeParameter() {
		return append(acc, t.Name)
	}
	for _, a := range t.Args {
		acc = typeParametersIn(a, acc)
	}
	return acc
}

// BindTypes builds the type translation for a call of m: the receiver's
// formal-to-concrete map, then the method's own type parameters unified
// against the argument types.
func BindTypes(receiver *vf.TranslationMap, m *model.Method, argTypes []model.Type) *vf.TranslationMap {
	tm := vf.NewTranslationMap()
	tm.Merge(receiver)
	if len(m.TypeParameters) == 0 {
		return tm
	}
	for i, p := range m.Params {
		if i >= len(argTypes) || argTypes[i].IsZero() {
			continue
		}
		tm.Unify(p.VarType, argTypes[i], m.TypeParameters)
	}
	return tm
}
