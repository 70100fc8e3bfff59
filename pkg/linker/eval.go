package linker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/panbanda/linkage/pkg/diag"
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
)

// evaluator walks one method body. It is owned by a single call to Link.
type evaluator struct {
	ctx    context.Context
	l      *Linker
	m      *model.Method
	lookup summary.Lookup

	this model.Variable
	rv   model.ReturnVariable

	history   *vardata.History
	recording bool
	exits     []*state
	diags     []diag.Diagnostic

	// idx is the statement being evaluated; seq numbers its synthetic
	// variables.
	idx string
	seq int
}

func newEvaluator(ctx context.Context, l *Linker, m *model.Method, lookup summary.Lookup) *evaluator {
	e := &evaluator{
		ctx:       ctx,
		l:         l,
		m:         m,
		lookup:    lookup,
		rv:        m.Return(),
		history:   vardata.NewHistory(),
		recording: true,
	}
	if !m.Static {
		owner, _ := l.program.TypeInfo(m.Owner)
		e.this = m.This(owner)
	}
	return e
}

func (e *evaluator) run() (*state, error) {
	st := newState()
	if e.this != nil {
		e.declare(st, e.this)
		st.definite[e.this.FQN()] = true
	}
	for _, p := range e.m.Params {
		e.declare(st, p)
		st.definite[p.FQN()] = true
	}
	if !e.m.ReturnType.IsVoid() {
		e.declare(st, e.rv)
	}

	st, err := e.block(st, e.m.Body)
	if err != nil {
		return nil, err
	}
	final := merge(append(e.exits, st)...)
	final.returned = false
	// the exit record is a complete snapshot
	final.last = nil
	e.idx = strconv.Itoa(len(e.m.Body.Statements))
	e.record(final, e.idx)
	return final, nil
}

func (e *evaluator) block(st *state, b *model.Block) (*state, error) {
	if b == nil {
		return st, nil
	}
	for _, s := range b.Statements {
		if st.returned {
			break
		}
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if st, err = e.statement(st, s); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (e *evaluator) enter(idx string) {
	e.idx = idx
	e.seq = 0
}

func (e *evaluator) statement(st *state, s model.Statement) (*state, error) {
	switch x := s.(type) {
	case *model.Block:
		return e.block(st, x)

	case *model.Assign:
		e.enter(x.Idx)
		val := e.expr(st, x.Value)
		e.assign(st, x.Target, val)
		e.record(st, x.Idx)
		return st, nil

	case *model.ExprStmt:
		e.enter(x.Idx)
		e.expr(st, x.Expr)
		e.record(st, x.Idx)
		return st, nil

	case *model.Return:
		e.enter(x.Idx)
		val := e.expr(st, x.Value)
		if !e.m.ReturnType.IsVoid() && x.Value != nil {
			e.assign(st, e.rv, val)
		}
		e.record(st, x.Idx)
		if e.recording {
			e.exits = append(e.exits, st.clone())
		}
		st.returned = true
		return st, nil

	case *model.If:
		e.enter(x.Idx)
		e.expr(st, x.Cond)
		then, err := e.block(st.clone(), x.Then)
		if err != nil {
			return nil, err
		}
		els, err := e.block(st.clone(), x.Else)
		if err != nil {
			return nil, err
		}
		out := merge(then, els)
		out.last = st.last
		e.enter(x.Idx)
		e.record(out, x.Idx)
		return out, nil

	case *model.Loop:
		return e.loop(st, x.Idx, x.Body, func(in *state) {
			e.expr(in, x.Cond)
		})

	case *model.ForEach:
		e.enter(x.Idx)
		iterable := e.expr(st, x.Iterable)
		return e.loop(st, x.Idx, x.Body, func(in *state) {
			e.assign(in, x.Var, e.elements(iterable, x.Var.VarType))
		})

	case *model.Try:
		body, err := e.block(st.clone(), x.Body)
		if err != nil {
			return nil, err
		}
		// an exception may leave the body at any statement
		handlerIn := merge(st, body)
		outs := []*state{body}
		for _, c := range x.Catches {
			cs, err := e.block(handlerIn.clone(), c)
			if err != nil {
				return nil, err
			}
			outs = append(outs, cs)
		}
		out := merge(outs...)
		out.last = st.last
		e.enter(x.Idx)
		e.record(out, x.Idx)
		return e.block(out, x.Finally)

	default:
		panic(fmt.Sprintf("linker: unknown statement %T", s))
	}
}

// loop iterates the body until the state at its head is stable or the
// iteration cap is reached, then evaluates it once more recording the
// per-statement state. The body may run zero times.
func (e *evaluator) loop(st *state, idx string, body *model.Block, head func(*state)) (*state, error) {
	iterate := func(in *state) (*state, error) {
		s := in.clone()
		e.enter(idx)
		head(s)
		return e.block(s, body)
	}

	saved := e.recording
	e.recording = false
	cur := st
	converged := false
	for i := 0; i < e.l.maxLoop; i++ {
		end, err := iterate(cur)
		if err != nil {
			e.recording = saved
			return nil, err
		}
		next := merge(st, end)
		if next.sameLinks(cur) {
			converged = true
			break
		}
		cur = next
	}
	e.recording = saved
	if !converged {
		e.l.logger.Debug("loop did not stabilize",
			"method", e.m.FQN(), "index", idx, "iterations", e.l.maxLoop)
	}

	end, err := iterate(cur)
	if err != nil {
		return nil, err
	}
	out := merge(cur, end)
	out.last = st.last
	e.enter(idx)
	e.record(out, idx)
	return out, nil
}

// declare registers a variable together with the structural edges to the
// scopes it hangs off.
func (e *evaluator) declare(st *state, v model.Variable) {
	if v == nil {
		return
	}
	if _, ok := st.vars[v.FQN()]; ok {
		return
	}
	st.vars[v.FQN()] = v
	if s := model.Scope(v); s != nil {
		e.declare(st, s)
	}
	e.structural(st, v)
}

func (e *evaluator) structural(st *state, v model.Variable) {
	switch x := v.(type) {
	case model.FieldReference:
		if x.Scope != nil {
			st.addEdge(x, x.Scope, link.FieldOf(x.Ordinal))
		}
	case model.DependentVariable:
		st.addEdge(x, x.Array, link.ElementOf(link.Single(0), !e.l.Immutable(x.VarType)))
	}
}

func (e *evaluator) read(st *state, v model.Variable) {
	for cur := v; cur != nil; cur = model.Scope(cur) {
		st.reads[cur.FQN()] = st.reads[cur.FQN()].Add(e.idx)
	}
}

// assign makes target hold val. The old links of target and of everything
// reached through it are dropped first; assigning into a field or element
// modifies the object holding it.
func (e *evaluator) assign(st *state, target model.Variable, val []value) {
	e.declare(st, target)
	if reachesInto(val, target) {
		val = e.materialize(st, val, target)
	}
	for _, name := range st.names() {
		v := st.vars[name]
		if name == target.FQN() || model.IsDescendantOf(v, target) {
			st.dropEdges(name)
		}
	}
	for _, name := range st.names() {
		v := st.vars[name]
		if name == target.FQN() || model.IsDescendantOf(v, target) {
			e.structural(st, v)
		}
	}
	for _, x := range val {
		e.declare(st, x.v)
		st.addEdge(target, x.v, x.lv)
	}

	fqn := target.FQN()
	st.assigned[fqn] = st.assigned[fqn].Add(e.idx)
	st.definite[fqn] = true
	if s := model.Scope(target); s != nil {
		e.modify(st, s)
	}
}

func reachesInto(val []value, target model.Variable) bool {
	for _, x := range val {
		if x.v.FQN() == target.FQN() || model.IsDescendantOf(x.v, target) {
			return true
		}
	}
	return false
}

// materialize replaces a value that refers to target's own subtree by the
// links those variables have to the rest of the graph, so that x = x.next
// keeps what x.next was linked to before x changes.
func (e *evaluator) materialize(st *state, val []value, target model.Variable) []value {
	sp := e.l.cache.ShortestPath(st.graph())
	acc := make(map[string]link.LV)
	for _, x := range val {
		for w, lv := range sp.Links(x.v, link.CommonHC) {
			wv := st.vars[w]
			if wv == nil || w == target.FQN() || model.IsDescendantOf(wv, target) {
				continue
			}
			composed := x.lv.Compose(lv)
			if prev, ok := acc[w]; ok {
				composed = link.BestOf(prev, composed)
			}
			acc[w] = composed
		}
	}
	out := make([]value, 0, len(acc))
	for w, lv := range acc {
		out = append(out, value{v: st.vars[w], lv: lv})
	}
	return out
}

// modify marks v modified at the current statement, together with every
// variable a modification of v reaches: aliases and objects v is a
// dependent part of. Hidden content is not affected.
func (e *evaluator) modify(st *state, v model.Variable) {
	e.declare(st, v)
	sp := e.l.cache.ShortestPath(st.graph())
	for w, lv := range sp.Links(v, link.Dependent) {
		if !propagatesModification(lv) {
			continue
		}
		st.modified[w] = st.modified[w].Add(e.idx)
	}
}

func propagatesModification(lv link.LV) bool {
	switch lv.Nature() {
	case link.StaticallyAssigned, link.Assigned:
		return true
	case link.Dependent:
		return lv.ModFrom().IsAll()
	default:
		return false
	}
}

// record stores the state after a statement: every variable whose
// information differs from what the previous statement on this path holds.
// Recording an index again updates its existing record, whose links may only
// be refined.
func (e *evaluator) record(st *state, idx string) {
	if !e.recording || st.returned {
		return
	}
	sp := e.l.cache.ShortestPath(st.graph())
	vd, ok := e.history.At(idx)
	if !ok {
		vd = e.history.AppendAfter(idx, st.last)
	}
	for _, name := range st.names() {
		v := st.vars[name]
		if _, ok := v.(model.Synthetic); ok {
			continue
		}
		b := vardata.NewBuilder(v)
		for w, lv := range sp.Links(v, link.CommonHC) {
			to := st.vars[w]
			if to == nil || w == name {
				continue
			}
			if _, syn := to.(model.Synthetic); !syn {
				b.Add(v, to, lv)
			}
		}
		info := &vardata.VariableInfo{
			Variable:    v,
			Assignments: st.assigned[name],
			Reads:       st.reads[name],
			Modified:    st.modified[name],
			Links:       b.Build(),
			Definite:    st.definite[name],
		}
		if prev, ok := vd.Get(name); ok && sameInfo(prev, info) {
			continue
		}
		if err := vd.Put(info); err != nil {
			e.diags = append(e.diags, diag.Diagnostic{
				Kind:     diag.OverwriteConflict,
				Method:   e.m.FQN(),
				Variable: name,
				Index:    idx,
				Message:  err.Error(),
			})
		}
	}
	st.last = vd
}

func sameInfo(a, b *vardata.VariableInfo) bool {
	return a.Definite == b.Definite &&
		a.Assignments.Equal(b.Assignments) &&
		a.Reads.Equal(b.Reads) &&
		a.Modified.Equal(b.Modified) &&
		a.Links.Equal(b.Links)
}

func (e *evaluator) missing(method, format string, args ...any) {
	e.diags = append(e.diags, diag.Diagnostic{
		Kind:    diag.MissingSummary,
		Method:  e.m.FQN(),
		Index:   e.idx,
		Message: method + ": " + fmt.Sprintf(format, args...),
	})
}
