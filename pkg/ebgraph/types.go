// Package ebgraph builds the edge-expanded (turn) graph of spec.md 4.H:
// one edge-based node per directed node-based-graph segment and one
// edge-based edge per legal movement between them, together with the
// side artifacts (segments for the spatial index, turn-penalty tables,
// intersection classes, lane assignments) the query engine layer this
// module deliberately excludes would otherwise consume.
package ebgraph

import (
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
)

// Node is one EdgeBasedNode: a directed segment of the node-based graph.
type Node struct {
	ID           model.NodeID
	AnnotationID int
	SegmentID    model.EdgeID // the nbgraph.Edge this EBN derives from
	Weight       float64
	Duration     float64
	// Constrained marks a duplicate node created by way-restriction
	// expansion (spec.md 4.H.4): its outgoing turns are limited to the
	// restriction's legal continuations (the next duplicate in the chain,
	// or at the chain's end the to-edge of an only_* restriction or every
	// exit except the to-edge of a no_* one), unlike its free twin.
	Constrained bool
	// EntryClassID/BearingClassID reference interned intersection-class
	// data (spec.md 4.H.6), populated once turn enumeration visits the
	// node-based node this EBN terminates at.
	EntryClassID   uint32
	BearingClassID uint32
}

// Edge is one EdgeBasedEdge: a legal turn from one EBN to another.
type Edge struct {
	Source, Target model.NodeID
	Weight         float64
	Duration       float64
	Forward        bool
	Backward       bool
}

// Segment is the geometry-bearing record spec.md 3 defines for spatial
// indexing.
type Segment struct {
	ForwardSegmentID, ReverseSegmentID model.EdgeID // model.InvalidEdge if that direction is absent
	Start, End                         model.Coordinate
	GeometryID                         uint32
	StartPointEligible                 bool
}

// Graph is the complete output of Build.
type Graph struct {
	Nodes    []Node
	Edges    []Edge
	Segments []Segment

	// Conditional carries every resolved restriction that has a time-window
	// condition attached, unabridged: its from/via/to edges, ViaWays/ViaEdges
	// chain data and Condition string all survive into .osrm.restrictions
	// alongside the unconditional set (spec.md 4.H.3, 8 scenario 6).
	Conditional []nbgraph.ResolvedRestriction

	BearingClasses []BearingClass
	EntryClasses   []EntryClass

	Lanes *model.LaneDescriptionMap
}
