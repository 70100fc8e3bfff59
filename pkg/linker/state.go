package linker

import (
	"sort"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
	"github.com/panbanda/linkage/pkg/vardata"
	"github.com/panbanda/linkage/pkg/wgraph"
)

// state is the abstract state of a method body at one program point: the
// direct links between variables plus the assignment, read and
// modification history. Edges are stored in both directions.
type state struct {
	vars     map[string]model.Variable
	adj      map[string]map[string]link.LV
	assigned map[string]vardata.IndexSet
	reads    map[string]vardata.IndexSet
	modified map[string]vardata.IndexSet
	definite map[string]bool

	last     *vardata.VariableData
	returned bool
}

func newState() *state {
	return &state{
		vars:     make(map[string]model.Variable),
		adj:      make(map[string]map[string]link.LV),
		assigned: make(map[string]vardata.IndexSet),
		reads:    make(map[string]vardata.IndexSet),
		modified: make(map[string]vardata.IndexSet),
		definite: make(map[string]bool),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.vars {
		c.vars[k] = v
	}
	for a, m := range s.adj {
		cm := make(map[string]link.LV, len(m))
		for b, lv := range m {
			cm[b] = lv
		}
		c.adj[a] = cm
	}
	for k, v := range s.assigned {
		c.assigned[k] = v
	}
	for k, v := range s.reads {
		c.reads[k] = v
	}
	for k, v := range s.modified {
		c.modified[k] = v
	}
	for k, v := range s.definite {
		c.definite[k] = v
	}
	c.last = s.last
	c.returned = s.returned
	return c
}

// addEdge records from -lv-> to and its reverse, merging with what is
// already there.
func (s *state) addEdge(from, to model.Variable, lv link.LV) {
	a, b := from.FQN(), to.FQN()
	if a == b || lv.Nature() == link.Independent {
		return
	}
	s.put(a, b, lv)
	s.put(b, a, lv.Reverse())
}

func (s *state) put(a, b string, lv link.LV) {
	m, ok := s.adj[a]
	if !ok {
		m = make(map[string]link.LV)
		s.adj[a] = m
	}
	if prev, ok := m[b]; ok {
		lv = link.BestOf(prev, lv)
	}
	m[b] = lv
}

// dropEdges removes every edge incident to fqn.
func (s *state) dropEdges(fqn string) {
	for other := range s.adj[fqn] {
		delete(s.adj[other], fqn)
	}
	delete(s.adj, fqn)
}

// names returns the known variable names, sorted.
func (s *state) names() []string {
	out := make([]string, 0, len(s.vars))
	for k := range s.vars {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// graph builds the weighted graph of the current edges.
func (s *state) graph() *wgraph.Graph {
	g := wgraph.New()
	for _, name := range s.names() {
		m := s.adj[name]
		edges := make([]wgraph.Edge, 0, len(m))
		for to, lv := range m {
			edges = append(edges, wgraph.Edge{To: s.vars[to], LV: lv})
		}
		g.AddNode(s.vars[name], edges...)
	}
	return g
}

// sameLinks compares the edges and modifications of two states.
func (s *state) sameLinks(o *state) bool {
	if len(s.adj) != len(o.adj) || len(s.modified) != len(o.modified) {
		return false
	}
	for a, m := range s.adj {
		om, ok := o.adj[a]
		if !ok || len(om) != len(m) {
			return false
		}
		for b, lv := range m {
			if olv, ok := om[b]; !ok || !olv.Equal(lv) {
				return false
			}
		}
	}
	for k, v := range s.modified {
		if ov, ok := o.modified[k]; !ok || !ov.Equal(v) {
			return false
		}
	}
	return true
}

// merge joins the states at the end of alternative paths. Links present on
// both paths combine to the weaker one; a link present on one path only
// survives, a STATICALLY_ASSIGNED one weakened to ASSIGNED. Paths that
// returned do not reach the join.
func merge(states ...*state) *state {
	var live []*state
	for _, st := range states {
		if st != nil && !st.returned {
			live = append(live, st)
		}
	}
	switch len(live) {
	case 0:
		out := states[0].clone()
		out.returned = true
		return out
	case 1:
		return live[0].clone()
	}

	out := live[0].clone()
	for _, other := range live[1:] {
		out = merge2(out, other)
	}
	return out
}

func merge2(a, b *state) *state {
	out := a.clone()
	for k, v := range b.vars {
		out.vars[k] = v
	}

	out.adj = make(map[string]map[string]link.LV)
	for x, m := range a.adj {
		for y, lv := range m {
			if blv, ok := b.adj[x][y]; ok {
				out.put(x, y, link.CombineOf(lv, blv))
			} else {
				out.put(x, y, weaken(lv))
			}
		}
	}
	for x, m := range b.adj {
		for y, lv := range m {
			if _, ok := a.adj[x][y]; !ok {
				out.put(x, y, weaken(lv))
			}
		}
	}

	unionInto(out.assigned, b.assigned)
	unionInto(out.reads, b.reads)
	unionInto(out.modified, b.modified)
	for k := range out.vars {
		out.definite[k] = a.definite[k] && b.definite[k]
	}
	return out
}

func weaken(lv link.LV) link.LV {
	if lv.Nature() == link.StaticallyAssigned {
		return link.AssignedLV
	}
	return lv
}

func unionInto(dst, src map[string]vardata.IndexSet) {
	for k, v := range src {
		dst[k] = dst[k].Union(v)
	}
}
