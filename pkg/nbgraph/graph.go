// Package nbgraph builds the node-based graph (spec.md 4.F): a directed
// multigraph whose nodes are intersections and whose edges are road
// segments, frozen from the compact containers extract.PrepareData
// produces. It is grounded on the teacher's pkg/datastructure graph types,
// generalized from a fixed OSRM-CH edge shape to the annotation-indexed
// shape spec.md 3 specifies.
package nbgraph

import (
	"strconv"

	"github.com/lintang-b-s/graphextract/pkg/extract"
	"github.com/lintang-b-s/graphextract/pkg/model"
)

// Edge is one directed traversable half of a compressed way.
type Edge struct {
	ID           model.EdgeID
	From, To     model.NodeID
	Reversed     bool
	GeometryID   int // index into Graph.Geometry
	AnnotationID int // index into Graph.Annotations
	LaneID       uint32
	Class        model.PriorityClass
	Weight       float64
	Duration     float64
	Roundabout   bool
	AllowUTurn   bool
	// Twin is the ID of the opposite-direction edge sharing this edge's
	// geometry, or model.InvalidEdge if that direction does not exist.
	Twin model.EdgeID
}

// Graph is the frozen node-based graph: edges plus the side tables edges
// index into. Mutable only until Freeze is called.
type Graph struct {
	Edges       []Edge
	Annotations []model.AnnotationRecord
	Geometry    []model.CompressedEdge
	Coordinates []model.Coordinate

	Barriers map[model.NodeID]bool
	Denied   map[model.NodeID]bool // barrier nodes that block all traversal
	Signals  map[model.NodeID]bool

	outAdj [][]model.EdgeID
	inAdj  [][]model.EdgeID
	frozen bool
}

// NumNodes is the size of the compact node id space.
func (g *Graph) NumNodes() int { return len(g.Coordinates) }

// Out returns the ids of edges leaving node v. Only valid after Freeze.
func (g *Graph) Out(v model.NodeID) []model.EdgeID { return g.outAdj[v] }

// In returns the ids of edges arriving at node v. Only valid after Freeze.
func (g *Graph) In(v model.NodeID) []model.EdgeID { return g.inAdj[v] }

// Build assembles a Graph from PrepareData's output plus a shared lane
// map (spec.md 4.F). It also returns the resolved, sanitized turn
// restrictions ready for the edge-expanded graph factory.
func Build(pd *extract.PreparedData, laneMap *model.LaneDescriptionMap) (*Graph, []ResolvedRestriction, []ResolvedRestriction) {
	g := &Graph{
		Geometry:    pd.CompressedEdges,
		Coordinates: pd.Coordinates,
		Barriers:    make(map[model.NodeID]bool),
		Denied:      make(map[model.NodeID]bool),
		Signals:     make(map[model.NodeID]bool),
	}

	collectBarriers(g, pd)

	wayIndex := make(map[int64][]int) // way id -> indices into g.Edges
	for i, ce := range pd.CompressedEdges {
		meta := pd.EdgeMeta[i]

		annID := len(g.Annotations)
		g.Annotations = append(g.Annotations, model.AnnotationRecord{
			NameID:     meta.NameID,
			RefID:      meta.RefID,
			ClassMask:  meta.Mask,
			TravelMode: 1,
		})

		laneID := laneMap.Intern(sanitizeLanes(meta.Lanes, laneMap))

		var fwdID, bwdID model.EdgeID = model.InvalidEdge, model.InvalidEdge
		if meta.Forward {
			fwdID = model.EdgeID(len(g.Edges))
			g.Edges = append(g.Edges, Edge{
				ID: fwdID, From: ce.From, To: ce.To, Reversed: false,
				GeometryID: i, AnnotationID: annID, LaneID: laneID,
				Class: meta.Class, Weight: ce.Weight, Duration: ce.Duration,
				Roundabout: meta.Roundabout, AllowUTurn: meta.AllowUTurn,
				Twin: model.InvalidEdge,
			})
			wayIndex[meta.WayID] = append(wayIndex[meta.WayID], int(fwdID))
		}
		if meta.Backward {
			bwdID = model.EdgeID(len(g.Edges))
			g.Edges = append(g.Edges, Edge{
				ID: bwdID, From: ce.To, To: ce.From, Reversed: true,
				GeometryID: i, AnnotationID: annID, LaneID: laneID,
				Class: meta.Class, Weight: ce.Weight, Duration: ce.Duration,
				Roundabout: meta.Roundabout, AllowUTurn: meta.AllowUTurn,
				Twin: model.InvalidEdge,
			})
			wayIndex[meta.WayID] = append(wayIndex[meta.WayID], int(bwdID))
		}
		if fwdID != model.InvalidEdge && bwdID != model.InvalidEdge {
			g.Edges[fwdID].Twin = bwdID
			g.Edges[bwdID].Twin = fwdID
		}
	}

	unconditional := removeInvalidRestrictions(g.Edges, wayIndex, pd.UnconditionalRestrictions)
	conditional := removeInvalidRestrictions(g.Edges, wayIndex, pd.ConditionalRestrictions)

	g.Freeze()
	return g, unconditional, conditional
}

func collectBarriers(g *Graph, pd *extract.PreparedData) {
	for _, b := range pd.Barriers {
		id, ok := pd.NodeIDs.Peek(strconv.FormatInt(b.MapNodeID, 10))
		if !ok {
			continue
		}
		nid := model.NodeID(id)
		if b.Barrier {
			g.Barriers[nid] = true
			if b.Denied {
				g.Denied[nid] = true
			}
		}
		if b.TrafficSignal {
			g.Signals[nid] = true
		}
	}
}

// sanitizeLanes guarantees the returned tuple is safe to intern: nil stays
// nil (id 0, "no lane data"), everything else passes through unchanged.
// Kept as an explicit step, matching the teacher's factory pattern of a
// dedicated sanitation pass rather than trusting upstream data.
func sanitizeLanes(l model.LaneDescription, _ *model.LaneDescriptionMap) model.LaneDescription {
	if len(l) == 0 {
		return nil
	}
	return l
}

// DirectedNodes returns e's node sequence in e's own direction of travel
// (From ... To), regardless of whether e is the forward or reversed half
// of its underlying CompressedEdge.
func (g *Graph) DirectedNodes(e Edge) []model.NodeID {
	ce := g.Geometry[e.GeometryID]
	nodes := make([]model.NodeID, 0, len(ce.Intermediate)+2)
	nodes = append(nodes, ce.From)
	nodes = append(nodes, ce.Intermediate...)
	nodes = append(nodes, ce.To)
	if e.Reversed {
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
	}
	return nodes
}

// Freeze (re)builds the adjacency lists from the current Edges slice. Build
// calls it once after assembling edges; a caller that constructs or
// deserializes a Graph by hand (as tests do) must call it before Out/In
// are valid.
func (g *Graph) Freeze() {
	g.outAdj = make([][]model.EdgeID, len(g.Coordinates))
	g.inAdj = make([][]model.EdgeID, len(g.Coordinates))
	for _, e := range g.Edges {
		g.outAdj[e.From] = append(g.outAdj[e.From], e.ID)
		g.inAdj[e.To] = append(g.inAdj[e.To], e.ID)
	}
	g.frozen = true
}
