package wgraph

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/panbanda/linkage/pkg/link"
	"github.com/panbanda/linkage/pkg/model"
)

type edge struct {
	to int
	lv link.LV
}

// ShortestPath answers link queries over a frozen graph. The underlying
// computation is keyed by shape only and may be shared between graphs whose
// variables differ in name but not in structure.
type ShortestPath struct {
	nodes []model.Variable
	index map[string]int
	comp  *computation
}

// Key is the canonical serialization of the adjacency: for each node in
// name order, "i(j:LV;...)".
func (sp *ShortestPath) Key() string { return sp.comp.key }

// Hash is the structural hash of Key.
func (sp *ShortestPath) Hash() uint64 { return sp.comp.hash }

// Nodes returns the variables in canonical order.
func (sp *ShortestPath) Nodes() []model.Variable {
	out := make([]model.Variable, len(sp.nodes))
	copy(out, sp.nodes)
	return out
}

// Links returns the best composed link from start to every reachable
// variable, keyed by fully qualified name. The start maps to
// STATICALLY_ASSIGNED; unreachable and independent variables are absent.
// Only paths at least as strong as atMost are explored; delays always are.
func (sp *ShortestPath) Links(start model.Variable, atMost link.Nature) map[string]link.LV {
	i, ok := sp.index[start.FQN()]
	if !ok {
		return map[string]link.LV{start.FQN(): link.SA}
	}
	res := sp.comp.links(i, atMost)
	out := make(map[string]link.LV, len(res))
	for j, lv := range res {
		out[sp.nodes[j].FQN()] = lv
	}
	return out
}

// computation is immutable apart from its memo of answered queries. Each
// query is answered at most once.
type computation struct {
	key   string
	hash  uint64
	edges [][]edge

	mu       sync.Mutex
	memo     map[memoKey]*answer
	computed atomic.Int64
}

type memoKey struct {
	start  int
	atMost link.Nature
}

type answer struct {
	once sync.Once
	res  map[int]link.LV
}

func newComputation(key string, hash uint64, edges [][]edge) *computation {
	return &computation{key: key, hash: hash, edges: edges, memo: make(map[memoKey]*answer)}
}

func (c *computation) links(start int, atMost link.Nature) map[int]link.LV {
	k := memoKey{start: start, atMost: atMost}
	c.mu.Lock()
	a, ok := c.memo[k]
	if !ok {
		a = &answer{}
		c.memo[k] = a
	}
	c.mu.Unlock()

	a.once.Do(func() {
		c.computed.Add(1)
		a.res = c.relax(start, atMost)
	})
	return a.res
}

// relax is a worklist relaxation over the (compose, best-of) semiring. A
// node is requeued whenever its best label changes; labels only move down
// a finite lattice, so the loop terminates. The step guard turns a
// violation of that property into a loud failure.
func (c *computation) relax(start int, atMost link.Nature) map[int]link.LV {
	best := map[int]link.LV{start: link.SA}
	queue := []int{start}
	queued := roaring.New()
	queued.Add(uint32(start))

	limit := 64 * (len(c.edges) + 1) * (len(c.edges) + 1)
	for steps := 0; len(queue) > 0; steps++ {
		if steps > limit {
			panic(fmt.Sprintf("wgraph: shortest path from node %d did not converge after %d steps", start, steps))
		}
		u := queue[0]
		queue = queue[1:]
		queued.Remove(uint32(u))
		from := best[u]

		for _, e := range c.edges[u] {
			if e.to == start {
				continue
			}
			n := e.lv.Nature()
			if n == link.Independent || !n.AtMost(atMost) {
				continue
			}
			cand := from.Compose(e.lv)
			if cn := cand.Nature(); cn == link.Independent || !cn.AtMost(atMost) {
				continue
			}
			prev, seen := best[e.to]
			next := cand
			if seen {
				next = link.BestOf(prev, cand)
				if next.Equal(prev) {
					continue
				}
			}
			best[e.to] = next
			if !queued.Contains(uint32(e.to)) {
				queued.Add(uint32(e.to))
				queue = append(queue, e.to)
			}
		}
	}
	return best
}
