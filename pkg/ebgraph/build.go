package ebgraph

import (
	"github.com/lintang-b-s/graphextract/pkg/geo"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
	"github.com/lintang-b-s/graphextract/pkg/profile"
)

// bearingSectors is the quantization granularity for BearingClass sectors,
// matching a common OSRM-style 10-degree bucket.
const bearingSectors = 36

// Input bundles everything the factory needs, matching spec.md 4.H's
// stated inputs.
type Input struct {
	Graph        *nbgraph.Graph
	Unconditional []nbgraph.ResolvedRestriction
	Conditional   []nbgraph.ResolvedRestriction
	Segregated    map[model.EdgeID]bool
	Profile       profile.Profile
	LaneMap       *model.LaneDescriptionMap
}

// Build runs the edge-based graph factory (spec.md 4.H).
func Build(in Input) *Graph {
	g := in.Graph
	out := &Graph{Lanes: in.LaneMap}

	// Step 1: one EBN per directed node-based edge; EBN id space and
	// node-based edge id space coincide, so no separate remap is needed.
	out.Nodes = make([]Node, len(g.Edges))
	for _, e := range g.Edges {
		out.Nodes[e.ID] = Node{
			ID:           model.NodeID(e.ID),
			AnnotationID: e.AnnotationID,
			SegmentID:    e.ID,
			Weight:       e.Weight,
			Duration:     e.Duration,
		}
	}

	var nodeRestrictions, wayRestrictions []nbgraph.ResolvedRestriction
	for _, r := range in.Unconditional {
		if r.Kind == model.WayRestriction {
			wayRestrictions = append(wayRestrictions, r)
		} else {
			nodeRestrictions = append(nodeRestrictions, r)
		}
	}

	forbidden, only := indexNodeRestrictions(nodeRestrictions)
	suppressed := suppressedEntryEdges(wayRestrictions)
	interner := newClassInterner()

	for v := model.NodeID(0); int(v) < g.NumNodes(); v++ {
		ins := g.In(v)
		outs := g.Out(v)
		if len(ins) == 0 || len(outs) == 0 {
			continue
		}

		entries := sectorsAt(g, v)
		bc, ec := classesFromSectors(entries)
		bcID := interner.internBearing(out, bc)
		ecID := interner.internEntry(out, ec)

		denied := g.Denied[v]

		for _, aID := range ins {
			a := g.Edges[aID]
			for _, bID := range outs {
				b := g.Edges[bID]

				if a.From == b.To && !(a.AllowUTurn || b.AllowUTurn) {
					continue
				}
				if denied {
					continue
				}
				if onlyTo, ok := only[restrictionKey{aID, v}]; ok && onlyTo != bID {
					continue
				}
				if forbiddenSet, ok := forbidden[restrictionKey{aID, v}]; ok && forbiddenSet[bID] {
					continue
				}
				if entryEdge, ok := suppressed[restrictionKey{aID, v}]; ok && entryEdge == bID {
					continue
				}

				angle := turnAngle(g, a, b)
				penalty := in.Profile.QueryTurnPenalty(profile.TurnDescription{
					AngleDegrees:     angle,
					FromClass:        a.Class,
					ToClass:          b.Class,
					IsSegregated:     in.Segregated[aID] || in.Segregated[bID],
					HasTrafficSignal: g.Signals[v],
					NumberOfRoads:    len(ins) + len(outs),
				})

				out.Edges = append(out.Edges, Edge{
					Source:   model.NodeID(aID),
					Target:   model.NodeID(bID),
					Weight:   a.Weight + penalty.Weight,
					Duration: a.Duration + penalty.Duration,
					Forward:  true,
				})

				discoverLanes(out, in.LaneMap, a, b)
			}
		}

		for _, aID := range ins {
			out.Nodes[aID].BearingClassID = bcID
			out.Nodes[aID].EntryClassID = ecID
		}
	}

	expandWayRestrictions(out, g, in, wayRestrictions)

	out.Conditional = in.Conditional
	out.Segments = buildSegments(g)

	return out
}

// suppressedEntryEdges returns, for each way restriction, the (from-edge,
// first-via-node) key whose plain turn the main enumeration above must skip:
// that specific movement is instead represented by the constrained
// duplicate path expandWayRestrictions builds, so it isn't legal for
// travelers who didn't arrive via the restricted from-edge.
func suppressedEntryEdges(rs []nbgraph.ResolvedRestriction) map[restrictionKey]model.EdgeID {
	out := make(map[restrictionKey]model.EdgeID, len(rs))
	for _, r := range rs {
		if len(r.ViaEdges) == 0 {
			continue
		}
		out[restrictionKey{from: r.From, via: r.ViaNodes[0]}] = r.ViaEdges[0]
	}
	return out
}

// expandWayRestrictions builds the duplicate edge-based-node chain a
// multi-way turn restriction needs (spec.md 4.H.4). A plain (from-edge,
// via-node) lookup can only ever be checked once, at the chain's first via
// node, so it cannot keep enforcing the restriction across the intermediate
// junctions of a longer chain without also constraining traffic that
// reaches those same junctions from anywhere else. Duplicating each via-edge
// into its own Constrained node isolates the restricted continuation: only
// travelers who enter through dup[0] (reached from r.From) ever occupy these
// nodes, so their outgoing turns can be limited to the restriction's actual
// legal continuation without touching the free twins other traffic uses.
func expandWayRestrictions(out *Graph, g *nbgraph.Graph, in Input, rs []nbgraph.ResolvedRestriction) {
	for _, r := range rs {
		if len(r.ViaEdges) == 0 {
			continue
		}

		dup := make([]model.NodeID, len(r.ViaEdges))
		for i, veID := range r.ViaEdges {
			orig := out.Nodes[veID]
			dup[i] = model.NodeID(len(out.Nodes))
			out.Nodes = append(out.Nodes, Node{
				ID:             dup[i],
				AnnotationID:   orig.AnnotationID,
				SegmentID:      orig.SegmentID,
				Weight:         orig.Weight,
				Duration:       orig.Duration,
				BearingClassID: orig.BearingClassID,
				EntryClassID:   orig.EntryClassID,
				Constrained:    true,
			})
		}

		fromEdge := g.Edges[r.From]
		firstVia := g.Edges[r.ViaEdges[0]]
		entryNode := r.ViaNodes[0]
		entryPenalty := in.Profile.QueryTurnPenalty(profile.TurnDescription{
			AngleDegrees:     turnAngle(g, fromEdge, firstVia),
			FromClass:        fromEdge.Class,
			ToClass:          firstVia.Class,
			IsSegregated:     in.Segregated[r.From] || in.Segregated[r.ViaEdges[0]],
			HasTrafficSignal: g.Signals[entryNode],
			NumberOfRoads:    len(g.In(entryNode)) + len(g.Out(entryNode)),
		})
		out.Edges = append(out.Edges, Edge{
			Source:   model.NodeID(r.From),
			Target:   dup[0],
			Weight:   fromEdge.Weight + entryPenalty.Weight,
			Duration: fromEdge.Duration + entryPenalty.Duration,
			Forward:  true,
		})

		for i := 0; i+1 < len(dup); i++ {
			a := g.Edges[r.ViaEdges[i]]
			b := g.Edges[r.ViaEdges[i+1]]
			hop := r.ViaNodes[i+1]
			penalty := in.Profile.QueryTurnPenalty(profile.TurnDescription{
				AngleDegrees:     turnAngle(g, a, b),
				FromClass:        a.Class,
				ToClass:          b.Class,
				IsSegregated:     in.Segregated[r.ViaEdges[i]] || in.Segregated[r.ViaEdges[i+1]],
				HasTrafficSignal: g.Signals[hop],
				NumberOfRoads:    len(g.In(hop)) + len(g.Out(hop)),
			})
			out.Edges = append(out.Edges, Edge{
				Source:   dup[i],
				Target:   dup[i+1],
				Weight:   a.Weight + penalty.Weight,
				Duration: a.Duration + penalty.Duration,
				Forward:  true,
			})
		}

		lastVia := g.Edges[r.ViaEdges[len(r.ViaEdges)-1]]
		lastViaNode := r.ViaNodes[len(r.ViaNodes)-1]
		lastDup := dup[len(dup)-1]
		if g.Denied[lastViaNode] {
			continue
		}

		if r.Only {
			toEdge := g.Edges[r.To]
			penalty := in.Profile.QueryTurnPenalty(profile.TurnDescription{
				AngleDegrees:     turnAngle(g, lastVia, toEdge),
				FromClass:        lastVia.Class,
				ToClass:          toEdge.Class,
				IsSegregated:     in.Segregated[r.ViaEdges[len(r.ViaEdges)-1]] || in.Segregated[r.To],
				HasTrafficSignal: g.Signals[lastViaNode],
				NumberOfRoads:    len(g.In(lastViaNode)) + len(g.Out(lastViaNode)),
			})
			out.Edges = append(out.Edges, Edge{
				Source:   lastDup,
				Target:   model.NodeID(r.To),
				Weight:   lastVia.Weight + penalty.Weight,
				Duration: lastVia.Duration + penalty.Duration,
				Forward:  true,
			})
			continue
		}

		for _, bID := range g.Out(lastViaNode) {
			if bID == r.To {
				continue
			}
			b := g.Edges[bID]
			if lastVia.From == b.To && !(lastVia.AllowUTurn || b.AllowUTurn) {
				continue
			}
			penalty := in.Profile.QueryTurnPenalty(profile.TurnDescription{
				AngleDegrees:     turnAngle(g, lastVia, b),
				FromClass:        lastVia.Class,
				ToClass:          b.Class,
				IsSegregated:     in.Segregated[r.ViaEdges[len(r.ViaEdges)-1]] || in.Segregated[bID],
				HasTrafficSignal: g.Signals[lastViaNode],
				NumberOfRoads:    len(g.In(lastViaNode)) + len(g.Out(lastViaNode)),
			})
			out.Edges = append(out.Edges, Edge{
				Source:   lastDup,
				Target:   model.NodeID(bID),
				Weight:   lastVia.Weight + penalty.Weight,
				Duration: lastVia.Duration + penalty.Duration,
				Forward:  true,
			})
		}
	}
}

type restrictionKey struct {
	from model.EdgeID
	via  model.NodeID
}

// indexNodeRestrictions splits single-via-node restrictions into
// forbidden-turn and mandatory-turn lookup tables keyed by (from-edge,
// via-node); rs must contain only model.NodeRestriction entries — way
// (multi-via) restrictions are handled separately by suppressedEntryEdges
// and expandWayRestrictions, since a plain key lookup can only ever be
// checked once, at the chain's first via node.
func indexNodeRestrictions(rs []nbgraph.ResolvedRestriction) (map[restrictionKey]map[model.EdgeID]bool, map[restrictionKey]model.EdgeID) {
	forbidden := make(map[restrictionKey]map[model.EdgeID]bool)
	only := make(map[restrictionKey]model.EdgeID)
	for _, r := range rs {
		key := restrictionKey{from: r.From, via: r.Via}
		if r.Only {
			only[key] = r.To
		} else {
			if forbidden[key] == nil {
				forbidden[key] = make(map[model.EdgeID]bool)
			}
			forbidden[key][r.To] = true
		}
	}
	return forbidden, only
}


// turnAngle computes the turn angle at v, where a arrives and b leaves
// (spec.md 4.H.2), in the convention profile.TurnDescription.AngleDegrees
// uses: 180 for continuing straight, falling toward 0 as the turn
// sharpens into a U-turn. Left and right turns of equal sharpness get the
// same value.
func turnAngle(g *nbgraph.Graph, a, b nbgraph.Edge) float64 {
	aNodes := g.DirectedNodes(a)
	bNodes := g.DirectedNodes(b)

	prev := g.Coordinates[aNodes[len(aNodes)-2]]
	v := g.Coordinates[aNodes[len(aNodes)-1]]
	next := g.Coordinates[bNodes[1]]

	incoming := geo.BearingTo(prev.LatDegrees(), prev.LonDegrees(), v.LatDegrees(), v.LonDegrees())
	outgoing := geo.BearingTo(v.LatDegrees(), v.LonDegrees(), next.LatDegrees(), next.LonDegrees())

	diff := outgoing - incoming
	for diff > 180 {
		diff -= 360
	}
	for diff < -180 {
		diff += 360
	}
	if diff < 0 {
		diff = -diff
	}
	return 180 - diff
}

// discoverLanes is the hook spec.md 4.H.5 reserves for turn-specific lane
// tuples (e.g. a turn:lanes tag naming exactly which lane feeds this
// movement) that were never seen at the node-based-edge level. The
// built-in profile does not produce per-turn lane data, so both edges'
// already-interned LaneIDs are reused as-is; a profile that does derive
// turn:lanes assignments would call lanes.Intern here with the discovered
// tuple before this function returns.
func discoverLanes(_ *Graph, _ *model.LaneDescriptionMap, _, _ nbgraph.Edge) {}
