package nbgraph

import (
	"github.com/lintang-b-s/graphextract/pkg/extract"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/util"
)

// ResolvedRestriction is a PreparedRestriction whose from/to way references
// have been resolved to actual node-based edges, ready for the
// edge-expanded graph factory's turn enumeration.
type ResolvedRestriction struct {
	Kind     model.TurnRestrictionKind
	From     model.EdgeID
	Via      model.NodeID
	ViaNodes []model.NodeID
	// ViaWays and ViaEdges are populated only for Kind == model.WayRestriction:
	// the interior via-way ids and their resolved directed node-based-graph
	// edges, in traversal order (len(ViaEdges) == len(ViaWays)).
	ViaWays   []int64
	ViaEdges  []model.EdgeID
	To        model.EdgeID
	Only      bool
	Condition string
}

func (r ResolvedRestriction) IsConditional() bool { return r.Condition != "" }

// removeInvalidRestrictions drops any restriction whose (from, via, to) no
// longer corresponds to existing edges after compression (spec.md 4.F):
// the from-edge must be the directed edge of FromWay arriving at the first
// via node, and the to-edge the directed edge of ToWay leaving the last
// via node.
func removeInvalidRestrictions(edges []Edge, wayIndex map[int64][]int, restrictions []extract.PreparedRestriction) []ResolvedRestriction {
	var out []ResolvedRestriction
	for _, r := range restrictions {
		viaFirst, viaLast := r.Via, r.Via
		kind := model.NodeRestriction
		if len(r.ViaNodes) > 0 {
			kind = model.WayRestriction
			viaFirst = r.ViaNodes[0]
			viaLast = r.ViaNodes[len(r.ViaNodes)-1]
		}

		fromID, ok := findEdge(edges, wayIndex[r.FromWay], func(e Edge) bool { return e.To == viaFirst })
		if !ok {
			continue
		}
		toID, ok := findEdge(edges, wayIndex[r.ToWay], func(e Edge) bool { return e.From == viaLast })
		if !ok {
			continue
		}

		var viaEdges []model.EdgeID
		if kind == model.WayRestriction {
			viaEdges = make([]model.EdgeID, 0, len(r.ViaWays))
			ok = true
			for i, wayID := range r.ViaWays {
				from, to := r.ViaNodes[i], r.ViaNodes[i+1]
				edgeID, found := findEdge(edges, wayIndex[wayID], func(e Edge) bool { return e.From == from && e.To == to })
				if !found {
					ok = false
					break
				}
				viaEdges = append(viaEdges, edgeID)
			}
			if !ok {
				continue
			}
		}

		util.AssertPanic(len(viaEdges) == len(r.ViaWays), "resolved via-edge count must match via-way count")

		out = append(out, ResolvedRestriction{
			Kind:      kind,
			From:      fromID,
			Via:       r.Via,
			ViaNodes:  r.ViaNodes,
			ViaWays:   r.ViaWays,
			ViaEdges:  viaEdges,
			To:        toID,
			Only:      r.Only,
			Condition: r.Condition,
		})
	}
	return out
}

func findEdge(edges []Edge, candidates []int, pred func(Edge) bool) (model.EdgeID, bool) {
	for _, idx := range candidates {
		if pred(edges[idx]) {
			return edges[idx].ID, true
		}
	}
	return model.InvalidEdge, false
}
