package driver

import (
	"sort"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/linkage/pkg/model"
)

// CallGraph is the static call graph between the methods of a program that
// have a body. Calls to bodiless or unknown methods are not edges: their
// summaries come from verdicts and never wait on analysis.
type CallGraph struct {
	g     *simple.DirectedGraph
	ids   map[string]int64
	names []string
	self  map[string]bool
}

// NewCallGraph builds the call graph of p.
func NewCallGraph(p *model.Program) *CallGraph {
	cg := &CallGraph{
		g:    simple.NewDirectedGraph(),
		ids:  make(map[string]int64),
		self: make(map[string]bool),
	}
	for _, name := range p.MethodNames() {
		m, _ := p.Method(name)
		if !m.HasBody() {
			continue
		}
		id := int64(len(cg.names))
		cg.ids[name] = id
		cg.names = append(cg.names, name)
		cg.g.AddNode(simple.Node(id))
	}
	for _, caller := range cg.names {
		m, _ := p.Method(caller)
		for _, callee := range p.Callees(m) {
			to, ok := cg.ids[callee]
			if !ok {
				continue
			}
			// simple graphs reject self edges
			if callee == caller {
				cg.self[caller] = true
				continue
			}
			cg.g.SetEdge(simple.Edge{F: simple.Node(cg.ids[caller]), T: simple.Node(to)})
		}
	}
	return cg
}

// Len returns the number of methods in the graph.
func (cg *CallGraph) Len() int { return len(cg.names) }

// Callees returns the analyzed methods called by name, sorted.
func (cg *CallGraph) Callees(name string) []string {
	id, ok := cg.ids[name]
	if !ok {
		return nil
	}
	var out []string
	nodes := cg.g.From(id)
	for nodes.Next() {
		out = append(out, cg.names[nodes.Node().ID()])
	}
	if cg.self[name] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Component is a strongly connected component of the call graph: a group
// of mutually recursive methods, or a single method.
type Component struct {
	ID      int
	Methods []string
	// Recursive is set when a member calls into the component, itself
	// included, so its summaries need a fixpoint.
	Recursive bool
}

// Components returns the strongly connected components with sorted
// members, ordered by their first member.
func (cg *CallGraph) Components() []Component {
	sccs := topo.TarjanSCC(cg.g)
	out := make([]Component, 0, len(sccs))
	for _, scc := range sccs {
		c := Component{Methods: make([]string, len(scc))}
		for i, n := range scc {
			c.Methods[i] = cg.names[n.ID()]
		}
		sort.Strings(c.Methods)
		c.Recursive = len(scc) > 1 || cg.self[c.Methods[0]]
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Methods[0] < out[j].Methods[0] })
	for i := range out {
		out[i].ID = i
	}
	return out
}

// Waves groups components into layers: every component depends only on
// components of earlier waves, so the components of one wave can be
// analyzed in parallel once the previous waves are done.
func (cg *CallGraph) Waves(comps []Component) [][]Component {
	compOf := make(map[string]int, len(cg.names))
	for _, c := range comps {
		for _, m := range c.Methods {
			compOf[m] = c.ID
		}
	}

	indegree := make([]int, len(comps))
	dependents := make([][]int, len(comps))
	for _, c := range comps {
		deps := make(map[int]bool)
		for _, m := range c.Methods {
			for _, callee := range cg.Callees(m) {
				if d := compOf[callee]; d != c.ID {
					deps[d] = true
				}
			}
		}
		indegree[c.ID] = len(deps)
		for d := range deps {
			dependents[d] = append(dependents[d], c.ID)
		}
	}

	var waves [][]Component
	var ready []int
	for _, c := range comps {
		if indegree[c.ID] == 0 {
			ready = append(ready, c.ID)
		}
	}
	for len(ready) > 0 {
		sort.Ints(ready)
		wave := make([]Component, len(ready))
		var next []int
		for i, id := range ready {
			wave[i] = comps[id]
			for _, d := range dependents[id] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		waves = append(waves, wave)
		ready = next
	}
	return waves
}
