// Package wgraph is the weighted variable graph. Edges carry link values;
// the shortest path between two variables is the best composition of the
// labels along any chain of edges between them.
package wgraph

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
)

// Edge is an outgoing edge of a node.
type Edge struct {
	To model.Variable
	LV link.LV
}

// Graph is built once per evaluation and is not safe for concurrent
// mutation. Nodes are identified by their fully qualified name.
type Graph struct {
	nodes map[string]model.Variable
	adj   map[string]map[string]link.LV
}

func New() *Graph {
	return &Graph{
		nodes: make(map[string]model.Variable),
		adj:   make(map[string]map[string]link.LV),
	}
}

// AddNode inserts v and merges its outgoing edges. Every edge also makes the
// reverse label available from the target. Parallel edges are merged with
// link.BestOf; self edges are dropped.
func (g *Graph) AddNode(v model.Variable, edges ...Edge) {
	from := v.FQN()
	g.nodes[from] = v
	for _, e := range edges {
		to := e.To.FQN()
		if to == from {
			continue
		}
		g.nodes[to] = e.To
		g.merge(from, to, e.LV)
		g.merge(to, from, e.LV.Reverse())
	}
}

func (g *Graph) merge(from, to string, lv link.LV) {
	out, ok := g.adj[from]
	if !ok {
		out = make(map[string]link.LV)
		g.adj[from] = out
	}
	if prev, ok := out[to]; ok {
		lv = link.BestOf(prev, lv)
	}
	out[to] = lv
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the variable registered under fqn.
func (g *Graph) Node(fqn string) (model.Variable, bool) {
	v, ok := g.nodes[fqn]
	return v, ok
}

// Edge returns the merged label of the direct edge from -> to.
func (g *Graph) Edge(from, to string) (link.LV, bool) {
	lv, ok := g.adj[from][to]
	return lv, ok
}

// ShortestPath freezes the graph into a computation object. Equal graphs,
// whatever their insertion order, share the same canonical key.
func (g *Graph) ShortestPath() *ShortestPath {
	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	edges := make([][]edge, len(names))
	var sb strings.Builder
	for i, n := range names {
		out := g.adj[n]
		row := make([]edge, 0, len(out))
		for to, lv := range out {
			row = append(row, edge{to: index[to], lv: lv})
		}
		sort.Slice(row, func(a, b int) bool { return row[a].to < row[b].to })
		edges[i] = row

		sb.WriteString(strconv.Itoa(i))
		sb.WriteByte('(')
		for k, e := range row {
			if k > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(strconv.Itoa(e.to))
			sb.WriteByte(':')
			sb.WriteString(e.lv.String())
		}
		sb.WriteByte(')')
	}

	nodes := make([]model.Variable, len(names))
	for i, n := range names {
		nodes[i] = g.nodes[n]
	}
	key := sb.String()
	return &ShortestPath{
		nodes: nodes,
		index: index,
		comp:  newComputation(key, xxhash.Sum64String(key), edges),
	}
}
