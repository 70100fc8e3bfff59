package linker

import (
	"fmt"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vf"
)

// value is one link of an evaluated expression: the value is related to v
// by lv. An expression without links evaluates to nil.
type value struct {
	v  model.Variable
	lv link.LV
}

func (e *evaluator) expr(st *state, x model.Expression) []value {
	switch x := x.(type) {
	case nil:
		return nil
	case *model.VarRef:
		e.declare(st, x.Var)
		e.read(st, x.Var)
		return []value{{v: x.Var, lv: link.SA}}
	case *model.Constant:
		return nil
	case *model.New:
		for _, a := range x.Args {
			e.expr(st, a)
		}
		return nil
	case *model.Cast:
		return e.expr(st, x.Expr)
	case *model.Conditional:
		e.expr(st, x.Cond)
		return alternatives(e.expr(st, x.Then), e.expr(st, x.Else))
	case *model.Call:
		return e.call(st, x)
	default:
		panic(fmt.Sprintf("linker: unknown expression %T", x))
	}
}

// alternatives merges the values of two branches the way merge joins
// states.
func alternatives(a, b []value) []value {
	inB := make(map[string]link.LV, len(b))
	for _, y := range b {
		inB[y.v.FQN()] = y.lv
	}
	seen := make(map[string]bool, len(a))
	out := make([]value, 0, len(a)+len(b))
	for _, x := range a {
		seen[x.v.FQN()] = true
		if lv, ok := inB[x.v.FQN()]; ok {
			out = append(out, value{v: x.v, lv: link.CombineOf(x.lv, lv)})
		} else {
			out = append(out, value{v: x.v, lv: weaken(x.lv)})
		}
	}
	for _, y := range b {
		if !seen[y.v.FQN()] {
			out = append(out, value{v: y.v, lv: weaken(y.lv)})
		}
	}
	return out
}

// elements relates the loop variable of a for-each to the hidden content of
// what it iterates over.
func (e *evaluator) elements(iterable []value, elem model.Type) []value {
	of := link.ElementOf(link.Single(0), !e.l.Immutable(elem))
	out := make([]value, len(iterable))
	for i, x := range iterable {
		out[i] = value{v: x.v, lv: of.Compose(x.lv)}
	}
	return out
}

// synthetic creates the variable holding an intermediate value of the
// current statement. Re-evaluating the statement reuses the name, so its
// old links are dropped.
func (e *evaluator) synthetic(st *state, t model.Type) model.Variable {
	if t.IsVoid() || t.IsZero() {
		return nil
	}
	e.seq++
	v := model.Synthetic{ID: fmt.Sprintf("%s#%d", e.idx, e.seq), VarType: t}
	st.dropEdges(v.FQN())
	e.declare(st, v)
	return v
}

// bind turns an evaluated operand into one variable: the variable itself
// when the operand is a plain read, else a synthetic one carrying the
// operand's links.
func (e *evaluator) bind(st *state, val []value) model.Variable {
	switch {
	case len(val) == 0:
		return nil
	case len(val) == 1 && val[0].lv.Nature() == link.StaticallyAssigned:
		return val[0].v
	}
	v := e.synthetic(st, val[0].v.Type())
	for _, x := range val {
		st.addEdge(v, x.v, x.lv)
	}
	return v
}

// call applies the callee's summary at the call site. A callee whose
// summary is being computed in the same cycle yields DELAYED links between
// the result, the receiver and the arguments; an unknown callee yields no
// links at all.
func (e *evaluator) call(st *state, c *model.Call) []value {
	var recv model.Variable
	if c.Object != nil {
		recv = e.bind(st, e.expr(st, c.Object))
	}
	args := make([]model.Variable, len(c.Args))
	argTypes := make([]model.Type, len(c.Args))
	for i, a := range c.Args {
		args[i] = e.bind(st, e.expr(st, a))
		if args[i] != nil {
			argTypes[i] = args[i].Type()
		}
	}

	m, ok := e.l.program.Method(c.Method)
	if !ok {
		e.missing(c.Method, "unknown method")
		return nil
	}

	var receiverTypes *vf.TranslationMap
	if recv != nil {
		receiverTypes = e.l.fields.Compute(recv.Type(), e.l.allowArrayOfTPar).FormalToConcrete.For(m.Owner)
	}
	types := summary.BindTypes(receiverTypes, m, argTypes)
	result := e.synthetic(st, types.TranslateType(m.ReturnType))

	s, status := e.lookup.Summary(m.FQN())
	switch status {
	case summary.Pending:
		e.delay(st, result, recv, args)
		return single(result)
	case summary.Missing:
		if m.HasBody() {
			e.missing(m.FQN(), "no summary available")
			return single(result)
		}
		owner, _ := e.l.program.TypeInfo(m.Owner)
		s = summary.Shallow(m, owner)
	}

	in := s.Instantiate(summary.Binding{
		This:      recv,
		Args:      args,
		Result:    result,
		Types:     types,
		Immutable: e.l.Immutable,
	})
	for _, edge := range in.Edges {
		e.declare(st, edge.From)
		e.declare(st, edge.To)
		st.addEdge(edge.From, edge.To, edge.LV)
	}
	for _, v := range in.Modified {
		e.modify(st, v)
	}
	return single(result)
}

func single(v model.Variable) []value {
	if v == nil {
		return nil
	}
	return []value{{v: v, lv: link.SA}}
}

// delay links every participant of a call to every other one with DELAYED.
func (e *evaluator) delay(st *state, result, recv model.Variable, args []model.Variable) {
	var vs []model.Variable
	for _, v := range append([]model.Variable{result, recv}, args...) {
		if v != nil {
			vs = append(vs, v)
		}
	}
	for i := range vs {
		for j := i + 1; j < len(vs); j++ {
			st.addEdge(vs[i], vs[j], link.DelayedLV)
		}
	}
}
