// Package summary holds method linked-variables summaries: what a method
// links its parameters and return value to, and which of its interface
// variables it modifies. Callers consult a callee's summary instead of its
// body, which keeps the analysis modular.
package summary

import (
	"sort"
	"strings"

	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vardata"
)

// MethodLinkedVariables is the summary of one method. Params holds one entry
// per formal parameter, in order. Modified is sorted by name. A summary is
// immutable once published to a Store.
type MethodLinkedVariables struct {
	Method   string
	Params   []vardata.Links
	Return   vardata.Links
	Modified []model.Variable
	// Unresolved is set when the summary was forced out of a cycle that
	// did not stabilize; its delays were stripped.
	Unresolved bool
}

// New creates a summary, sorting the modified variables.
func New(method string, params []vardata.Links, ret vardata.Links, modified []model.Variable) *MethodLinkedVariables {
	mods := dedupe(modified)
	return &MethodLinkedVariables{Method: method, Params: params, Return: ret, Modified: mods}
}

func dedupe(vs []model.Variable) []model.Variable {
	seen := make(map[string]bool, len(vs))
	out := make([]model.Variable, 0, len(vs))
	for _, v := range vs {
		if v == nil || seen[v.FQN()] {
			continue
		}
		seen[v.FQN()] = true
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FQN() < out[j].FQN() })
	return out
}

// HasDelays reports whether any link is still DELAYED.
func (s *MethodLinkedVariables) HasDelays() bool {
	if s.Return.HasDelays() {
		return true
	}
	for _, p := range s.Params {
		if p.HasDelays() {
			return true
		}
	}
	return false
}

// StripDelays returns a copy without DELAYED links, marked unresolved.
func (s *MethodLinkedVariables) StripDelays() *MethodLinkedVariables {
	params := make([]vardata.Links, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.StripDelays()
	}
	out := New(s.Method, params, s.Return.StripDelays(), s.Modified)
	out.Unresolved = true
	return out
}

// IsModified reports whether the interface variable named fqn is modified.
func (s *MethodLinkedVariables) IsModified(fqn string) bool {
	for _, v := range s.Modified {
		if v.FQN() == fqn {
			return true
		}
	}
	return false
}

// Equal compares links and modifications; Unresolved is ignored.
func (s *MethodLinkedVariables) Equal(o *MethodLinkedVariables) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Method != o.Method || len(s.Params) != len(o.Params) || len(s.Modified) != len(o.Modified) {
		return false
	}
	if !s.Return.Equal(o.Return) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	for i := range s.Modified {
		if s.Modified[i].FQN() != o.Modified[i].FQN() {
			return false
		}
	}
	return true
}

// IsRefinedBy reports whether n may replace s: links that were final in s
// are unchanged in n.
func (s *MethodLinkedVariables) IsRefinedBy(n *MethodLinkedVariables) bool {
	if len(s.Params) != len(n.Params) || !s.Return.IsRefinedBy(n.Return) {
		return false
	}
	for i := range s.Params {
		if !s.Params[i].IsRefinedBy(n.Params[i]) {
			return false
		}
	}
	return true
}

// String renders the non-empty link sets and the modified variables,
// separated by "; ".
func (s *MethodLinkedVariables) String() string {
	var parts []string
	for _, p := range s.Params {
		if !p.IsEmpty() {
			parts = append(parts, p.String())
		}
	}
	if !s.Return.IsEmpty() {
		parts = append(parts, s.Return.String())
	}
	if len(s.Modified) > 0 {
		names := make([]string, len(s.Modified))
		for i, v := range s.Modified {
			names[i] = v.FQN()
		}
		parts = append(parts, "modified: "+strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
