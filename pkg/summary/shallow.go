package summary

import (
	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vardata"
)

// Shallow builds the summary of a method without a body from its verdicts
// and its signature. owner may be nil when the declaring type is unknown.
//
// Verdicts contribute identity, fluent, getter and setter links. The
// signature contributes COMMON_HIDDEN_CONTENT links: a parameter or return
// value typed with a type parameter of the owner shares content with the
// receiver, and one typed with a type parameter of the method shares
// content with the parameters of the same type.
func Shallow(m *model.Method, owner *model.TypeInfo) *MethodLinkedVariables {
	v := m.Verdicts
	rv := m.Return()
	var this model.Variable
	if !m.Static {
		this = m.This(owner)
	}

	rb := vardata.NewBuilder(rv)
	params := make([]vardata.Links, len(m.Params))
	var modified []model.Variable

	if v.Identity && len(m.Params) > 0 {
		rb.Add(rv, m.Params[0], link.SA)
	}
	if this != nil && !m.ReturnType.IsVoid() {
		if v.Fluent {
			rb.Add(rv, this, link.SA)
		}
		if f, ok := fieldOf(this, owner, v.Getter); ok {
			rb.Add(rv, f, link.SA)
		}
		if lv, ok := ownerContent(m.ReturnType, owner); ok {
			rb.Add(rv, this, lv)
		}
	}

	for i, p := range m.Params {
		pb := vardata.NewBuilder(p)
		if this != nil {
			if i == 0 {
				if f, ok := fieldOf(this, owner, v.Setter); ok {
					pb.Add(p, f, link.SA)
				}
			}
			if lv, ok := ownerContent(p.VarType, owner); ok {
				pb.Add(p, this, lv)
			}
		}
		if !m.ReturnType.IsVoid() {
			if lv, ok := sharedContent(m.ReturnType, p.VarType, m.TypeParameters); ok {
				rb.Add(rv, p, lv)
			}
		}
		params[i] = pb.Build()
	}

	if this != nil && (v.Setter != "" || v.Modifying == model.True) {
		modified = append(modified, this)
	}
	return New(m.FQN(), params, rb.Build(), modified)
}

func fieldOf(this model.Variable, owner *model.TypeInfo, name string) (model.FieldReference, bool) {
	if name == "" || owner == nil {
		return model.FieldReference{}, false
	}
	f, ordinal, ok := owner.Field(name)
	if !ok || f.Static {
		return model.FieldReference{}, false
	}
	return model.FieldReference{Scope: this, Owner: owner.Name, Field: f.Name, Ordinal: ordinal, VarType: f.Type}, true
}

// ownerContent links a value of type t to the receiver when t mentions the
// owner's type parameters: slot i of the receiver's hidden content holds
// type parameter i.
func ownerContent(t model.Type, owner *model.TypeInfo) (link.LV, bool) {
	if owner == nil {
		return link.LV{}, false
	}
	var links []link.IndexLink
	for i, tp := range owner.TypeParameters {
		from, ok := occurrences(tp, t)
		if !ok {
			continue
		}
		links = append(links, link.IndexLink{From: from, To: link.Single(i), Mutable: true})
	}
	if len(links) == 0 {
		return link.LV{}, false
	}
	return link.NewLV(link.CommonHC, links...), true
}

// sharedContent links a return value to a parameter sharing one of the
// method's own type parameters. Two bare occurrences of the same parameter
// say nothing about aliasing and are skipped.
func sharedContent(ret, param model.Type, typeParameters []string) (link.LV, bool) {
	var links []link.IndexLink
	for _, tp := range typeParameters {
		from, ok := occurrences(tp, ret)
		if !ok {
			continue
		}
		to, ok := occurrences(tp, param)
		if !ok || (from.IsAll() && to.IsAll()) {
			continue
		}
		links = append(links, link.IndexLink{From: from, To: to, Mutable: true})
	}
	if len(links) == 0 {
		return link.LV{}, false
	}
	return link.NewLV(link.CommonHC, links...), true
}

// occurrences returns ALL when t is the bare type parameter, else the slots
// of t's hidden content where it occurs.
func occurrences(tp string, t model.Type) (link.Indices, bool) {
	if !t.Mentions(tp) {
		return link.Indices{}, false
	}
	if t.IsTypeParameter() && t.Name == tp && t.Arrays == 0 {
		return link.All, true
	}
	s := link.AllOccurrencesOf(tp, t)
	return s, !s.IsEmpty()
}
