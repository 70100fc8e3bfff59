package summary

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vardata"
	"github.com/panbanda/linkage/pkg/vf"
)

func testProgram(t *testing.T) *model.Program {
	t.Helper()
	p := model.NewProgram()
	e := model.TypeParam("E")
	p.AddType(&model.TypeInfo{
		Name:           "List",
		TypeParameters: []string{"E"},
		Fields:         []model.Field{{Name: "elements", Type: e.Array(1)}},
	})
	p.AddType(&model.TypeInfo{
		Name:   "C",
		Fields: []model.Field{{Name: "i", Type: model.Primitive("int")}},
	})
	p.AddType(&model.TypeInfo{Name: "String", Immutable: true})
	p.AddType(&model.TypeInfo{Name: "StringBuilder"})

	intT := model.Primitive("int")
	tT := model.TypeParam("T")
	methods := []*model.Method{
		{Name: "add", Owner: "List", Params: []model.Parameter{{Name: "e", VarType: e}},
			ReturnType: model.Void, Verdicts: model.Verdicts{Modifying: model.True}},
		{Name: "get", Owner: "List", Params: []model.Parameter{{Name: "index", VarType: intT}},
			ReturnType: e},
		{Name: "setI", Owner: "C", Params: []model.Parameter{{Name: "i", VarType: intT}},
			ReturnType: model.Void, Verdicts: model.Verdicts{Setter: "i"}},
		{Name: "getI", Owner: "C", ReturnType: intT, Verdicts: model.Verdicts{Getter: "i"}},
		{Name: "withI", Owner: "C", Params: []model.Parameter{{Name: "i", VarType: intT}},
			ReturnType: model.Class("C"), Verdicts: model.Verdicts{Setter: "i", Fluent: true}},
		{Name: "requireNonNull", Owner: "Objects", Static: true, TypeParameters: []string{"T"},
			Params: []model.Parameter{{Name: "obj", VarType: tT}}, ReturnType: tT,
			Verdicts: model.Verdicts{Identity: true}},
		{Name: "singletonList", Owner: "Collections", Static: true, TypeParameters: []string{"T"},
			Params: []model.Parameter{{Name: "o", VarType: tT}}, ReturnType: model.Class("List", tT)},
		{Name: "size", Owner: "List", ReturnType: intT},
	}
	for _, m := range methods {
		require.NoError(t, p.AddMethod(m))
	}
	return p
}

func shallow(t *testing.T, p *model.Program, fqn string) *MethodLinkedVariables {
	t.Helper()
	m, ok := p.Method(fqn)
	require.True(t, ok, fqn)
	owner, _ := p.TypeInfo(m.Owner)
	return Shallow(m, owner)
}

func TestShallow(t *testing.T) {
	p := testProgram(t)
	tests := map[string]string{
		"List.add":                  "e: e *M-4-0M this; modified: this",
		"List.get":                  "<return>: <return> *M-4-0M this",
		"List.size":                 "-",
		"C.setI":                    "i: i 0 this.i; modified: this",
		"C.getI":                    "<return>: <return> 0 this.i",
		"C.withI":                   "i: i 0 this.i; <return>: <return> 0 this; modified: this",
		"Objects.requireNonNull":    "<return>: <return> 0 obj",
		"Collections.singletonList": "<return>: <return> 0M-4-*M o",
	}
	for fqn, want := range tests {
		t.Run(fqn, func(t *testing.T) {
			assert.Equal(t, want, shallow(t, p, fqn).String())
		})
	}
}

func TestShallow_UnknownOwner(t *testing.T) {
	m := &model.Method{Name: "get", Owner: "Unknown", ReturnType: model.TypeParam("E"),
		Verdicts: model.Verdicts{Getter: "x", Fluent: true}}
	s := Shallow(m, nil)
	assert.Equal(t, "<return>: <return> 0 this", s.String())
}

func listOf(elem model.Type) model.Type {
	return model.Class("List", elem)
}

func binding(t *testing.T, p *model.Program, receiver model.Variable, args ...model.Variable) Binding {
	t.Helper()
	res := vf.NewComputer(p).Compute(receiver.Type(), false)
	return Binding{
		This:   receiver,
		Args:   args,
		Result: model.Synthetic{ID: "r", VarType: model.Class("Object")},
		Types:  res.FormalToConcrete.For(receiver.Type().Name),
		Immutable: func(typ model.Type) bool {
			if typ.Arrays > 0 || typ.IsTypeParameter() {
				return false
			}
			if typ.IsPrimitive() {
				return true
			}
			ti, ok := p.TypeInfo(typ.Name)
			return ok && ti.Immutable
		},
	}
}

func edges(in Instance) []string {
	out := make([]string, len(in.Edges))
	for i, e := range in.Edges {
		out[i] = e.From.FQN() + " " + e.LV.String() + " " + e.To.FQN()
	}
	return out
}

func TestInstantiate_ContainerGet(t *testing.T) {
	p := testProgram(t)
	get := shallow(t, p, "List.get")

	strings := model.Local{Name: "list", VarType: listOf(model.Class("String"))}
	in := get.Instantiate(binding(t, p, strings, nil))
	assert.Equal(t, []string{"$r *-4-0 list"}, edges(in))
	assert.Empty(t, in.Modified)

	builders := model.Local{Name: "ms", VarType: listOf(model.Class("StringBuilder"))}
	in = get.Instantiate(binding(t, p, builders, nil))
	assert.Equal(t, []string{"$r *M-4-0M ms"}, edges(in))
}

func TestInstantiate_ContainerAdd(t *testing.T) {
	p := testProgram(t)
	add := shallow(t, p, "List.add")

	list := model.Local{Name: "list", VarType: listOf(model.Class("StringBuilder"))}
	x := model.Local{Name: "x", VarType: model.Class("StringBuilder")}
	in := add.Instantiate(binding(t, p, list, x))

	assert.Equal(t, []string{"x *M-4-0M list"}, edges(in))
	require.Len(t, in.Modified, 1)
	assert.Equal(t, "list", in.Modified[0].FQN())
}

func TestInstantiate_Setter(t *testing.T) {
	p := testProgram(t)
	with := shallow(t, p, "C.withI")

	c := model.Local{Name: "c", VarType: model.Class("C")}
	k := model.Local{Name: "k", VarType: model.Primitive("int")}
	in := with.Instantiate(binding(t, p, c, k))

	assert.ElementsMatch(t, []string{"k 0 c.i", "$r 0 c"}, edges(in))
	assert.Equal(t, "c", in.Modified[0].FQN())
}

func TestInstantiate_DropsUnboundArguments(t *testing.T) {
	p := testProgram(t)
	add := shallow(t, p, "List.add")

	list := model.Local{Name: "list", VarType: listOf(model.Class("StringBuilder"))}
	in := add.Instantiate(binding(t, p, list))
	assert.Empty(t, in.Edges)
	assert.Len(t, in.Modified, 1)
}

func TestInstantiate_RenamesVirtualFields(t *testing.T) {
	p := testProgram(t)
	list, _ := p.TypeInfo("List")
	this := model.This{VarType: list.Formal()}
	rv := model.ReturnVariable{Method: "List.toArray", VarType: model.TypeParam("E").Array(1)}
	hc := model.FieldReference{Scope: this, Owner: "List", Field: "§es", VarType: model.TypeParam("E").Array(1)}
	s := New("List.toArray", nil, vardata.NewBuilder(rv).Add(rv, hc, link.SA).Build(), nil)

	strs := model.Local{Name: "list", VarType: listOf(model.Class("String"))}
	in := s.Instantiate(binding(t, p, strs))
	assert.Equal(t, []string{"$r 0 list.§$s"}, edges(in))
}

func TestBindTypes(t *testing.T) {
	p := testProgram(t)
	m, _ := p.Method("Collections.singletonList")
	tm := BindTypes(nil, m, []model.Type{model.Class("String")})
	assert.Equal(t, "T --> String", tm.String())

	recv := vf.NewTranslationMap()
	recv.Put("E", model.Class("Integer"))
	tm = BindTypes(recv, m, nil)
	assert.Equal(t, "E --> Integer", tm.String())
}

func TestSummary_StripDelays(t *testing.T) {
	a := model.Parameter{Name: "a", VarType: model.Class("X")}
	b := model.Parameter{Name: "b", Index: 1, VarType: model.Class("X")}
	rv := model.ReturnVariable{Method: "X.f", VarType: model.Class("X")}
	s := New("X.f",
		[]vardata.Links{vardata.NewBuilder(a).Add(a, b, link.DelayedLV).Build(), vardata.Empty(b)},
		vardata.NewBuilder(rv).Add(rv, a, link.SA).Build(),
		[]model.Variable{b, a, b})

	assert.True(t, s.HasDelays())
	assert.Equal(t, "a: a D b; <return>: <return> 0 a; modified: a, b", s.String())
	assert.True(t, s.IsModified("b"))

	stripped := s.StripDelays()
	assert.False(t, stripped.HasDelays())
	assert.True(t, stripped.Unresolved)
	assert.Equal(t, "<return>: <return> 0 a; modified: a, b", stripped.String())
	assert.True(t, s.IsRefinedBy(stripped))
	assert.False(t, stripped.IsRefinedBy(New("X.f", stripped.Params, vardata.Empty(rv), nil)))
	assert.False(t, s.Equal(stripped))
}

func TestSummary_JSON(t *testing.T) {
	p := testProgram(t)
	for _, fqn := range []string{"C.withI", "List.add", "Collections.singletonList"} {
		s := shallow(t, p, fqn)
		data, err := json.Marshal(s)
		require.NoError(t, err)

		var got MethodLinkedVariables
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, s.Equal(&got), "%s: %s != %s", fqn, s, &got)
	}
}

func TestSummary_JSONRejectsUnknownKinds(t *testing.T) {
	var got MethodLinkedVariables
	err := json.Unmarshal([]byte(`{"method":"X.f","modified":[{"kind":"global","type":{"name":"X","kind":"class"}}]}`), &got)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownVariableKind)
}

func TestStore(t *testing.T) {
	p := testProgram(t)
	st := NewStore()

	_, status := st.Summary("List.add")
	assert.Equal(t, Missing, status)

	var wg sync.WaitGroup
	for _, fqn := range p.MethodNames() {
		s := shallow(t, p, fqn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Put(s)
		}()
	}
	wg.Wait()

	assert.Equal(t, len(p.Methods), st.Len())
	assert.Equal(t, p.MethodNames(), st.Methods())
	got, status := st.Summary("List.add")
	assert.Equal(t, Available, status)
	assert.Equal(t, "List.add", got.Method)
	assert.Equal(t, "pending", Pending.String())
}
