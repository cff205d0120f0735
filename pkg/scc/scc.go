// Package scc labels the edge-based graph's strongly-connected components
// via Tarjan's algorithm, after inserting mate-edges that force forward
// and reverse siblings of the same node-based segment into one component
// (spec.md 4.I). Grounded on the teacher's pkg/datastructure Kosaraju
// pass, generalized from Kosaraju's two-DFS approach to a single-pass
// Tarjan implementation with an explicit stack (avoiding recursion depth
// limits on the country-sized graphs this pipeline targets).
package scc

import (
	"github.com/lintang-b-s/graphextract/pkg/ebgraph"
	"github.com/lintang-b-s/graphextract/pkg/model"
)

// Labels holds the outcome for every edge-based node.
type Labels struct {
	Component []uint32 // 1 + component index; 0 means unlabeled
	Tiny      []bool
}

// Label runs Tarjan's SCC over g's edges plus mate-edges from g.Segments,
// then tags each node with a component id and a tiny flag (spec.md 4.I.3).
func Label(g *ebgraph.Graph, smallComponentSize int) Labels {
	n := len(g.Nodes)
	adj := buildAdjacency(g, n)

	t := &tarjan{
		adj:     adj,
		index:   make([]int, n),
		low:     make([]int, n),
		onStack: make([]bool, n),
		comp:    make([]int, n),
	}
	for i := range t.index {
		t.index[i] = -1
	}

	for v := 0; v < n; v++ {
		if t.index[v] == -1 {
			t.strongConnect(v)
		}
	}

	sizes := make([]int, t.numComponents)
	for _, c := range t.comp {
		sizes[c]++
	}

	labels := Labels{
		Component: make([]uint32, n),
		Tiny:      make([]bool, n),
	}
	for v := 0; v < n; v++ {
		labels.Component[v] = uint32(t.comp[v] + 1)
		labels.Tiny[v] = sizes[t.comp[v]] < smallComponentSize
	}
	return labels
}

// buildAdjacency materializes the directed edge list of spec.md 4.I.1: one
// entry per EdgeBasedEdge direction plus mate-edges joining each segment's
// forward and reverse EBNs, deduplicated.
func buildAdjacency(g *ebgraph.Graph, n int) [][]int32 {
	seen := make(map[[2]int32]struct{})
	adj := make([][]int32, n)

	addEdge := func(a, b int32) {
		key := [2]int32{a, b}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		adj[a] = append(adj[a], b)
	}

	for _, e := range g.Edges {
		if e.Forward {
			addEdge(int32(e.Source), int32(e.Target))
		}
		if e.Backward {
			addEdge(int32(e.Target), int32(e.Source))
		}
	}
	for _, seg := range g.Segments {
		if seg.ForwardSegmentID == model.InvalidEdge || seg.ReverseSegmentID == model.InvalidEdge {
			continue
		}
		f := int32(seg.ForwardSegmentID)
		r := int32(seg.ReverseSegmentID)
		addEdge(f, r)
		addEdge(r, f)
	}
	return adj
}

type tarjan struct {
	adj           [][]int32
	index         []int
	low           []int
	onStack       []bool
	comp          []int
	stack         []int32
	counter       int
	numComponents int
}

// strongConnect is Tarjan's algorithm with an explicit work stack, so
// depth is bounded by heap size rather than goroutine stack size.
func (t *tarjan) strongConnect(start int) {
	type frame struct {
		v      int32
		edgeAt int
	}
	var work []frame

	push := func(v int32) {
		t.index[v] = t.counter
		t.low[v] = t.counter
		t.counter++
		t.stack = append(t.stack, v)
		t.onStack[v] = true
		work = append(work, frame{v: v, edgeAt: 0})
	}
	push(int32(start))

	for len(work) > 0 {
		top := &work[len(work)-1]
		v := top.v

		if top.edgeAt < len(t.adj[v]) {
			w := t.adj[v][top.edgeAt]
			top.edgeAt++
			if t.index[w] == -1 {
				push(w)
				continue
			} else if t.onStack[w] {
				if t.index[w] < t.low[v] {
					t.low[v] = t.index[w]
				}
			}
			continue
		}

		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := &work[len(work)-1]
			if t.low[v] < t.low[parent.v] {
				t.low[parent.v] = t.low[v]
			}
		}

		if t.low[v] == t.index[v] {
			for {
				w := t.stack[len(t.stack)-1]
				t.stack = t.stack[:len(t.stack)-1]
				t.onStack[w] = false
				t.comp[w] = t.numComponents
				if w == v {
					break
				}
			}
			t.numComponents++
		}
	}
}
