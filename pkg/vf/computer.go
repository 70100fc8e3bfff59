// Package vf synthesizes virtual fields: placeholder fields standing in for
// the hidden content of generic containers and arrays, so that links can
// address "the elements of this list" like an ordinary field.
package vf

import (
	"strings"
	"sync"

	"github.com/panbanda/linkage/pkg/model"
)

// MutableFieldName is the virtual field that is modified whenever the
// container itself is modified.
const MutableFieldName = model.VirtualFieldPrefix + "m"

// Field is a synthesized field.
type Field struct {
	Name string     `json:"name"`
	Type model.Type `json:"type"`
}

// VirtualFields holds the synthesized fields of a type. Either may be nil;
// both nil is the "no virtual content" marker.
type VirtualFields struct {
	Mutable       *Field `json:"mutable,omitempty"`
	HiddenContent *Field `json:"hidden_content,omitempty"`
}

// None is the value for types without virtual content.
var None = VirtualFields{}

func (v VirtualFields) IsNone() bool {
	return v.Mutable == nil && v.HiddenContent == nil
}

// String renders "§m - E[] §es", "/ - T §t" or "NONE".
func (v VirtualFields) String() string {
	if v.IsNone() {
		return "NONE"
	}
	m := "/"
	if v.Mutable != nil {
		m = v.Mutable.Name
	}
	hc := "/"
	if v.HiddenContent != nil {
		hc = v.HiddenContent.Type.String() + " " + v.HiddenContent.Name
	}
	return m + " - " + hc
}

// NameOf returns the deterministic name of the hidden-content field of the
// given type: the lower-cased type parameter, "$" for a concrete type or the
// concatenated components of a virtual container, followed by one "s" per
// array dimension. E.g. E[] is §es, KV[] is §kvs, (T, XY[])[] is §txyss.
func NameOf(t model.Type) string {
	return model.VirtualFieldPrefix + letters(t) + strings.Repeat("s", t.Arrays)
}

func letters(t model.Type) string {
	switch t.Kind {
	case model.KindTypeParameter:
		return strings.ToLower(t.Name)
	case model.KindVirtual:
		var sb strings.Builder
		for _, c := range t.Args {
			sb.WriteString(letters(c))
			sb.WriteString(strings.Repeat("s", c.Arrays))
		}
		return sb.String()
	default:
		return "$"
	}
}

// TypeResolver looks up type declarations. *model.Program implements it.
type TypeResolver interface {
	TypeInfo(name string) (*model.TypeInfo, bool)
}

// Result is the outcome of Compute: the virtual fields of a type and the map
// translating the formal type parameters of its declaration (and of its
// supertypes) into the concrete type arguments. The parameters are bound
// under their declaring type; callers select a view with For.
type Result struct {
	Fields           VirtualFields
	FormalToConcrete *TranslationMap
}

// Computer computes virtual fields. It is safe for concurrent use.
type Computer struct {
	types TypeResolver

	mu           sync.RWMutex
	multiplicity map[string]int
}

// NewComputer creates a computer resolving declarations through types.
func NewComputer(types TypeResolver) *Computer {
	return &Computer{types: types, multiplicity: make(map[string]int)}
}

func hiddenContent(t model.Type) *Field {
	return &Field{Name: NameOf(t), Type: t}
}

func mutableField() *Field {
	return &Field{Name: MutableFieldName, Type: model.Primitive("boolean")}
}

// Compute returns the virtual fields of t. A bare type parameter is its own
// hidden content. Arrays and generic containers get a hidden-content field
// whose array depth expresses how many elements the container can hold, and
// a mutable marker unless the container is immutable. Arrays of type
// parameters only have virtual content when allowArrayOfTypeParameter is set.
// Primitives and non-generic classes have none.
func (c *Computer) Compute(t model.Type, allowArrayOfTypeParameter bool) Result {
	none := Result{Fields: None, FormalToConcrete: NewTranslationMap()}

	switch t.Kind {
	case model.KindTypeParameter:
		if t.Arrays == 0 {
			return Result{Fields: VirtualFields{HiddenContent: hiddenContent(t)}, FormalToConcrete: NewTranslationMap()}
		}
		if !allowArrayOfTypeParameter {
			return none
		}
		return Result{
			Fields:           VirtualFields{Mutable: mutableField(), HiddenContent: hiddenContent(t)},
			FormalToConcrete: NewTranslationMap(),
		}
	case model.KindPrimitive, model.KindVirtual:
		if t.Arrays == 0 || t.IsVoid() {
			return none
		}
		return Result{
			Fields:           VirtualFields{Mutable: mutableField(), HiddenContent: hiddenContent(t)},
			FormalToConcrete: NewTranslationMap(),
		}
	}

	if len(t.Args) == 0 {
		if t.Arrays == 0 {
			return none
		}
		return Result{
			Fields:           VirtualFields{Mutable: mutableField(), HiddenContent: hiddenContent(t)},
			FormalToConcrete: NewTranslationMap(),
		}
	}

	info, ok := c.types.TypeInfo(t.Name)
	if !ok {
		return none
	}
	extra := t.Arrays + c.Multiplicity(info) - 1
	if extra < 0 {
		return none
	}

	params := make([]Result, len(t.Args))
	mutable := t.Arrays > 0 || !info.Immutable
	for i, arg := range t.Args {
		params[i] = c.Compute(arg, allowArrayOfTypeParameter)
		if params[i].Fields.Mutable != nil {
			mutable = true
		}
	}

	var hcType model.Type
	if len(t.Args) == 1 {
		hcType = t.Args[0]
		if hc := params[0].Fields.HiddenContent; hc != nil {
			hcType = hc.Type
		}
		hcType = hcType.Array(extra)
	} else {
		components := make([]model.Type, len(t.Args))
		for i, arg := range t.Args {
			components[i] = arg
			if hc := params[i].Fields.HiddenContent; hc != nil &&
				(hc.Type.Kind == model.KindTypeParameter || hc.Type.Kind == model.KindVirtual) {
				components[i] = hc.Type
			}
		}
		hcType = model.Virtual(components...).Array(extra)
	}

	fields := VirtualFields{HiddenContent: hiddenContent(hcType)}
	if mutable {
		fields.Mutable = mutableField()
	}
	tm := NewTranslationMap()
	c.bind(tm, info, t.Args, map[string]bool{})
	return Result{Fields: fields, FormalToConcrete: tm}
}

// bind maps the type parameters of info to args under info's name, then
// walks the supertypes with their arguments translated in info's view.
func (c *Computer) bind(tm *TranslationMap, info *model.TypeInfo, args []model.Type, seen map[string]bool) {
	if seen[info.Name] {
		return
	}
	seen[info.Name] = true
	for i, tp := range info.TypeParameters {
		if i >= len(args) {
			break
		}
		if args[i].IsTypeParameter() && args[i].Name == tp && args[i].Arrays == 0 {
			continue
		}
		tm.PutFor(info.Name, tp, args[i])
	}
	view := tm.For(info.Name)
	for _, st := range info.Supertypes {
		sinfo, ok := c.types.TypeInfo(st.Name)
		if !ok {
			continue
		}
		sargs := make([]model.Type, len(st.Args))
		for i, a := range st.Args {
			sargs[i] = view.TranslateType(a)
		}
		c.bind(tm, sinfo, sargs, seen)
	}
}

// Multiplicity is the nesting level at which a declaration holds its type
// parameters: 0 when it never exposes them, 1 for a single value such as
// Optional<T>, 2 for a collection such as List<E>. It is derived from the
// declared fields and supertypes.
func (c *Computer) Multiplicity(info *model.TypeInfo) int {
	c.mu.RLock()
	m, ok := c.multiplicity[info.Name]
	c.mu.RUnlock()
	if ok {
		return m
	}
	m = c.declMultiplicity(info, map[string]bool{})
	c.mu.Lock()
	c.multiplicity[info.Name] = m
	c.mu.Unlock()
	return m
}

func (c *Computer) declMultiplicity(info *model.TypeInfo, visiting map[string]bool) int {
	if visiting[info.Name] {
		return 0
	}
	visiting[info.Name] = true
	defer delete(visiting, info.Name)

	m := 0
	for _, f := range info.Fields {
		if f.Static {
			continue
		}
		m = max(m, c.typeMultiplicity(f.Type, visiting))
	}
	for _, st := range info.Supertypes {
		m = max(m, c.typeMultiplicity(st, visiting))
	}
	return m
}

func (c *Computer) typeMultiplicity(t model.Type, visiting map[string]bool) int {
	if t.Arrays > 0 {
		base := t
		base.Arrays = 0
		b := c.typeMultiplicity(base, visiting)
		if b == 0 {
			return 0
		}
		return b + t.Arrays
	}
	switch t.Kind {
	case model.KindTypeParameter, model.KindVirtual:
		return 1
	case model.KindPrimitive:
		return 0
	}
	m := 0
	for _, a := range t.Args {
		m = max(m, c.typeMultiplicity(a, visiting))
	}
	if m == 0 {
		return 0
	}
	if info, ok := c.types.TypeInfo(t.Name); ok {
		if inner := c.declMultiplicity(info, visiting); inner > 1 {
			return m + inner - 1
		}
	}
	return m
}
