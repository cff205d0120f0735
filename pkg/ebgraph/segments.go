package ebgraph

import (
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
)

// buildSegments produces one EdgeBasedNodeSegment per compressed-edge
// geometry, pairing its forward and reverse directed halves (spec.md 3).
// Every segment is marked start-point-eligible: nothing in this profile's
// data model produces a segment that should be excluded from snapping, so
// the compaction step of spec.md 4.J.1 is a no-op here but is still run,
// to keep the invariant "the two arrays have equal length on entry" true
// for a profile that does mark some segments ineligible.
func buildSegments(g *nbgraph.Graph) []Segment {
	byGeometry := make(map[int]*Segment)
	order := make([]int, 0, len(g.Geometry))

	for _, e := range g.Edges {
		seg, ok := byGeometry[e.GeometryID]
		if !ok {
			ce := g.Geometry[e.GeometryID]
			seg = &Segment{
				ForwardSegmentID:   model.InvalidEdge,
				ReverseSegmentID:   model.InvalidEdge,
				Start:              g.Coordinates[ce.From],
				End:                g.Coordinates[ce.To],
				GeometryID:         uint32(e.GeometryID),
				StartPointEligible: true,
			}
			byGeometry[e.GeometryID] = seg
			order = append(order, e.GeometryID)
		}
		if e.Reversed {
			seg.ReverseSegmentID = e.ID
		} else {
			seg.ForwardSegmentID = e.ID
		}
	}

	out := make([]Segment, 0, len(order))
	for _, id := range order {
		out = append(out, *byGeometry[id])
	}
	return out
}
