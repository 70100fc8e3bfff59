package vf

import (
	"slices"
	"sort"
	"strings"

	"github.com/panbanda/linkage/pkg/model"
)

// TranslationMap substitutes type parameters by types: a concrete type, a
// type raised to extra array dimensions, another type parameter, or a
// virtual container. Virtual fields are renamed after their translated
// type, so equal substitutions yield equal names. A nil map translates
// nothing.
//
// Parameters of a class and its supertypes are bound under their declaring
// type, since Rev<K,V> extends Map<V,K> binds Rev.K and Map.K differently.
// For selects one declaration's view, in which its parameters are bare.
type TranslationMap struct {
	entries map[typeParamKey]model.Type
}

type typeParamKey struct {
	owner string
	name  string
}

func (k typeParamKey) String() string {
	if k.owner == "" {
		return k.name
	}
	return k.owner + "." + k.name
}

func NewTranslationMap() *TranslationMap {
	return &TranslationMap{entries: make(map[typeParamKey]model.Type)}
}

// Put binds a type parameter. A later binding replaces an earlier one.
func (m *TranslationMap) Put(typeParameter string, to model.Type) {
	m.entries[typeParamKey{name: typeParameter}] = to
}

// PutFor binds a type parameter declared by owner.
func (m *TranslationMap) PutFor(owner, typeParameter string, to model.Type) {
	m.entries[typeParamKey{owner: owner, name: typeParameter}] = to
}

// PutField binds a type parameter to the type of a virtual field, nesting
// one container's hidden content inside another's.
func (m *TranslationMap) PutField(typeParameter string, f *Field) {
	m.Put(typeParameter, f.Type)
}

func (m *TranslationMap) Get(typeParameter string) (model.Type, bool) {
	return m.GetFor("", typeParameter)
}

// GetFor returns the binding of a type parameter declared by owner.
func (m *TranslationMap) GetFor(owner, typeParameter string) (model.Type, bool) {
	if m == nil {
		return model.Type{}, false
	}
	t, ok := m.entries[typeParamKey{owner: owner, name: typeParameter}]
	return t, ok
}

// For returns the translation seen from inside owner's declaration: owner's
// parameters come back bare, next to the bindings that have no owner.
// Parameters of other declarations are dropped.
func (m *TranslationMap) For(owner string) *TranslationMap {
	out := NewTranslationMap()
	if m == nil {
		return out
	}
	for k, t := range m.entries {
		if k.owner == owner && owner != "" {
			out.entries[typeParamKey{name: k.name}] = t
		}
	}
	for k, t := range m.entries {
		if k.owner != "" {
			continue
		}
		if _, ok := out.entries[k]; !ok {
			out.entries[k] = t
		}
	}
	return out
}

func (m *TranslationMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Merge adds the bindings of o that m does not have yet.
func (m *TranslationMap) Merge(o *TranslationMap) {
	if o == nil {
		return
	}
	for k, t := range o.entries {
		if _, ok := m.entries[k]; !ok {
			m.entries[k] = t
		}
	}
}

// Unify binds the type parameters named in typeParameters that occur in
// formal to the matching parts of actual, e.g. T[] against String[][] binds
// T to String[]. Existing bindings are kept and mismatched shapes bind
// nothing.
func (m *TranslationMap) Unify(formal, actual model.Type, typeParameters []string) {
	switch formal.Kind {
	case model.KindTypeParameter:
		if !slices.Contains(typeParameters, formal.Name) || actual.Arrays < formal.Arrays {
			return
		}
		key := typeParamKey{name: formal.Name}
		if _, ok := m.entries[key]; ok {
			return
		}
		to := actual
		to.Arrays -= formal.Arrays
		if to.Kind == model.KindTypeParameter && to.Name == formal.Name && to.Arrays == 0 {
			return
		}
		m.entries[key] = to
	case model.KindClass:
		if actual.Kind != model.KindClass || actual.Name != formal.Name ||
			actual.Arrays != formal.Arrays || len(actual.Args) != len(formal.Args) {
			return
		}
		for i := range formal.Args {
			m.Unify(formal.Args[i], actual.Args[i], typeParameters)
		}
	}
}

// TranslateType substitutes every bound type parameter in t. A parameter
// with array dimensions keeps them on top of its replacement.
func (m *TranslationMap) TranslateType(t model.Type) model.Type {
	if m.Len() == 0 {
		return t
	}
	switch t.Kind {
	case model.KindTypeParameter:
		if to, ok := m.entries[typeParamKey{name: t.Name}]; ok {
			return to.Array(t.Arrays)
		}
		return t
	case model.KindVirtual:
		components := make([]model.Type, len(t.Args))
		for i, c := range t.Args {
			components[i] = m.TranslateType(c)
		}
		return model.Virtual(components...).Array(t.Arrays)
	case model.KindClass:
		if len(t.Args) == 0 {
			return t
		}
		out := t
		out.Args = make([]model.Type, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = m.TranslateType(a)
		}
		return out
	default:
		return t
	}
}

// TranslateVariableRecursively translates the type of v and of every scope
// it hangs off. Virtual hidden-content fields whose type changes are renamed
// with NameOf. Variables mentioning no bound parameter come back unchanged.
func (m *TranslationMap) TranslateVariableRecursively(v model.Variable) model.Variable {
	if m.Len() == 0 {
		return v
	}
	switch x := v.(type) {
	case model.FieldReference:
		if x.Scope != nil {
			x.Scope = m.TranslateVariableRecursively(x.Scope)
		}
		t := m.TranslateType(x.VarType)
		if x.IsVirtual() && x.Field != MutableFieldName && !t.Equal(x.VarType) {
			x.Field = NameOf(t)
		}
		x.VarType = t
		return x
	case model.DependentVariable:
		x.Array = m.TranslateVariableRecursively(x.Array)
		x.VarType = m.TranslateType(x.VarType)
		return x
	default:
		return model.WithType(v, m.TranslateType(v.Type()))
	}
}

// String renders "List.E --> String, T --> K[]" in name order.
func (m *TranslationMap) String() string {
	if m == nil {
		return ""
	}
	parts := make([]string, 0, len(m.entries))
	for k, t := range m.entries {
		parts = append(parts, k.String()+" --> "+t.String())
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}
