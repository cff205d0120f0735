// Package segregated implements the divided-carriageway detector of
// spec.md 4.G: classifying edge pairs that represent the two sides of a
// segregated road, so downstream turn-instruction generation can avoid a
// false "U-turn" call at the far end.
package segregated

import (
	"sort"

	"github.com/lintang-b-s/graphextract/pkg/errs"
	"github.com/lintang-b-s/graphextract/pkg/geo"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
)

type direction uint8

const (
	dirForward direction = iota
	dirReverse
	dirBoth
)

type neighbor struct {
	node      model.NodeID
	nameID    int
	dir       direction
	class     model.PriorityClass
	classMask model.ClassData
}

// Detect returns the set of non-reversed edge ids that form one side of a
// divided carriageway, applying spec.md 4.G's 8-step rule to each.
func Detect(g *nbgraph.Graph) (map[model.EdgeID]bool, error) {
	result := make(map[model.EdgeID]bool)
	for _, e := range g.Edges {
		if e.Reversed {
			continue
		}
		ok, err := isSegregated(g, e)
		if err != nil {
			return nil, err
		}
		if ok {
			result[e.ID] = true
		}
	}
	return result, nil
}

func isSegregated(g *nbgraph.Graph, e nbgraph.Edge) (bool, error) {
	nu, err := neighborsAt(g, e.From, e.To)
	if err != nil {
		return false, err
	}
	nv, err := neighborsAt(g, e.To, e.From)
	if err != nil {
		return false, err
	}
	sort.Slice(nu, func(i, j int) bool { return nu[i].nameID < nu[j].nameID })
	sort.Slice(nv, func(i, j int) bool { return nv[i].nameID < nv[j].nameID })

	eName := g.Annotations[e.AnnotationID].NameID
	if eName != 0 {
		found := false
		for _, n := range append(append([]neighbor{}, nu...), nv...) {
			if n.nameID == eName {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}

	type pair struct{ a, b neighbor }
	var commons []pair
	i, j := 0, 0
	for i < len(nu) && j < len(nv) {
		switch {
		case nu[i].nameID == 0 || nv[j].nameID == 0:
			if nu[i].nameID == 0 {
				i++
			}
			if j < len(nv) && nv[j].nameID == 0 {
				j++
			}
		case nu[i].nameID == nv[j].nameID:
			commons = append(commons, pair{nu[i], nv[j]})
			i++
			j++
		case nu[i].nameID < nv[j].nameID:
			i++
		default:
			j++
		}
	}

	if len(commons) < 2 {
		return false, nil
	}

	sameClass := 0
	minThreshold := -1.0
	for _, p := range commons {
		if p.a.class == p.b.class {
			sameClass++
		}
		t := model.SegregatedLengthThreshold(p.a.class) + model.SegregatedLengthThreshold(p.b.class)
		if minThreshold < 0 || t < minThreshold {
			minThreshold = t
		}
	}
	if sameClass < 2 {
		return false, nil
	}

	length := edgeLength(g, e)
	return length <= minThreshold, nil
}

// neighborsAt gathers N(n\{exclude}): every incident edge's far endpoint,
// merging entries that share a target node and setting their direction to
// "both" (spec.md 4.G step 1).
func neighborsAt(g *nbgraph.Graph, n, exclude model.NodeID) ([]neighbor, error) {
	byNode := make(map[model.NodeID]*neighbor)
	add := func(other model.NodeID, dir direction, class model.PriorityClass, mask model.ClassData) error {
		if other == exclude {
			return nil
		}
		if existing, ok := byNode[other]; ok {
			if existing.classMask != mask {
				return errs.WrapErrorf(nil, errs.ErrInconsistentInput,
					"segregated detector: node %d has conflicting class masks toward %d", n, other)
			}
			if existing.dir != dir {
				existing.dir = dirBoth
			}
			return nil
		}
		byNode[other] = &neighbor{node: other, dir: dir, class: class, classMask: mask}
		return nil
	}

	for _, id := range g.Out(n) {
		e := g.Edges[id]
		if e.To == exclude {
			continue
		}
		ann := g.Annotations[e.AnnotationID]
		if err := add(e.To, dirForward, e.Class, ann.ClassMask); err != nil {
			return nil, err
		}
		byNode[e.To].nameID = ann.NameID
	}
	for _, id := range g.In(n) {
		e := g.Edges[id]
		if e.From == exclude {
			continue
		}
		ann := g.Annotations[e.AnnotationID]
		if err := add(e.From, dirReverse, e.Class, ann.ClassMask); err != nil {
			return nil, err
		}
		byNode[e.From].nameID = ann.NameID
	}

	out := make([]neighbor, 0, len(byNode))
	for _, n := range byNode {
		out = append(out, *n)
	}
	return out, nil
}

func edgeLength(g *nbgraph.Graph, e nbgraph.Edge) float64 {
	nodes := g.DirectedNodes(e)

	var total float64
	for i := 0; i+1 < len(nodes); i++ {
		a := g.Coordinates[nodes[i]]
		b := g.Coordinates[nodes[i+1]]
		total += geo.CalculateHaversineDistance(a.LatDegrees(), a.LonDegrees(), b.LatDegrees(), b.LonDegrees()) * 1000
	}
	return total
}
