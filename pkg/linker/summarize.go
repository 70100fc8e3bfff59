package linker

import (
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/summary"
	"github.com/panbanda/linkage/pkg/vardata"
	"github.com/panbanda/linkage/pkg/wgraph"
)

// summarize derives the method summary from the exit state. Parameter i
// lists its links to the receiver, static fields and parameters after it;
// the return value lists its links to every other interface variable. A
// link from a part of the primary, such as a field of a parameter, is kept
// with that part as its source.
func (e *evaluator) summarize(exit *state, sp *wgraph.ShortestPath) *summary.MethodLinkedVariables {
	params := make([]vardata.Links, len(e.m.Params))
	for i, p := range e.m.Params {
		params[i] = e.interfaceLinks(exit, sp, p, func(w model.Variable) bool {
			switch r := model.Root(w).(type) {
			case model.This:
				return true
			case model.Parameter:
				return r.Index > i
			case model.FieldReference:
				return r.Scope == nil
			default:
				return false
			}
		})
	}

	ret := vardata.Empty(e.rv)
	if !e.m.ReturnType.IsVoid() {
		ret = e.interfaceLinks(exit, sp, e.rv, func(w model.Variable) bool {
			_, isReturn := model.Root(w).(model.ReturnVariable)
			return !isReturn
		})
	}

	var modified []model.Variable
	for name, at := range exit.modified {
		if v := exit.vars[name]; !at.IsEmpty() && reportsModification(v) {
			modified = append(modified, v)
		}
	}
	return summary.New(e.m.FQN(), params, ret, modified)
}

// reportsModification selects the modified variables a caller can observe:
// the receiver, parameters, static fields and the declared fields reached
// through them. Hidden content and array elements are covered by their
// container.
func reportsModification(v model.Variable) bool {
	if v == nil || !model.IsInterface(v) {
		return false
	}
	switch x := v.(type) {
	case model.This, model.Parameter:
		return true
	case model.FieldReference:
		return !x.IsVirtual()
	default:
		return false
	}
}

func (e *evaluator) interfaceLinks(st *state, sp *wgraph.ShortestPath, primary model.Variable, accept func(model.Variable) bool) vardata.Links {
	b := vardata.NewBuilder(primary)
	for _, name := range st.names() {
		from := st.vars[name]
		if name != primary.FQN() && !model.IsDescendantOf(from, primary) {
			continue
		}
		for w, lv := range sp.Links(from, link.CommonHC) {
			to := st.vars[w]
			if to == nil || !model.IsInterface(to) || !accept(to) {
				continue
			}
			b.Add(from, to, lv)
		}
	}
	return b.Build()
}
