package ebgraph

import (
	"testing"

	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
	"github.com/lintang-b-s/graphextract/pkg/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// straightThroughGraph builds a two-hop node-based graph 0->1->2 with no
// branching, useful for exercising the single-successor turn expansion.
func straightThroughGraph() *nbgraph.Graph {
	g := &nbgraph.Graph{
		Coordinates: []model.Coordinate{
			model.NewCoordinateFromDegrees(0, 0),
			model.NewCoordinateFromDegrees(0, 0.001),
			model.NewCoordinateFromDegrees(0, 0.002),
		},
		Geometry: []model.CompressedEdge{
			{From: 0, To: 1},
			{From: 1, To: 2},
		},
		Annotations: []model.AnnotationRecord{{}},
		Denied:      map[model.NodeID]bool{},
		Signals:     map[model.NodeID]bool{},
		Edges: []nbgraph.Edge{
			{ID: 0, From: 0, To: 1, GeometryID: 0, AnnotationID: 0, Weight: 100, Duration: 10, Class: model.ClassPrimary, Twin: model.InvalidEdge},
			{ID: 1, From: 1, To: 2, GeometryID: 1, AnnotationID: 0, Weight: 50, Duration: 5, Class: model.ClassPrimary, Twin: model.InvalidEdge},
		},
	}
	g.Freeze()
	return g
}

// branchingGraph adds a second outgoing edge at node 1, so a from-edge has
// two candidate successors to select between.
func branchingGraph() *nbgraph.Graph {
	g := straightThroughGraph()
	g.Coordinates = append(g.Coordinates, model.NewCoordinateFromDegrees(0.001, 0.001))
	g.Geometry = append(g.Geometry, model.CompressedEdge{From: 1, To: 3})
	g.Edges = append(g.Edges, nbgraph.Edge{
		ID: 2, From: 1, To: 3, GeometryID: 2, AnnotationID: 0, Weight: 60, Duration: 6, Class: model.ClassPrimary, Twin: model.InvalidEdge,
	})
	g.Freeze()
	return g
}

func baseInput(g *nbgraph.Graph) Input {
	return Input{
		Graph:      g,
		Segregated: map[model.EdgeID]bool{},
		Profile:    profile.NewDefaultProfile(),
		LaneMap:    model.NewLaneDescriptionMap(),
	}
}

func TestBuildExpandsSingleTurnAtIntersection(t *testing.T) {
	g := straightThroughGraph()
	ebg := Build(baseInput(g))

	require.Len(t, ebg.Edges, 1)
	assert.Equal(t, model.NodeID(0), ebg.Edges[0].Source)
	assert.Equal(t, model.NodeID(1), ebg.Edges[0].Target)
	assert.GreaterOrEqual(t, ebg.Edges[0].Weight, 100.0)
}

func TestBuildSkipsDeadEndNodes(t *testing.T) {
	g := straightThroughGraph()
	ebg := Build(baseInput(g))
	// Node 0 has no incoming edges, node 2 has no outgoing edges, so
	// neither contributes turns beyond the single 0->1->2 expansion.
	require.Len(t, ebg.Nodes, 2)
	assert.Len(t, ebg.Edges, 1)
}

func TestBuildHonorsOnlyRestriction(t *testing.T) {
	g := branchingGraph()
	in := baseInput(g)
	in.Unconditional = []nbgraph.ResolvedRestriction{
		{Kind: model.NodeRestriction, From: 0, Via: 1, To: 1, Only: true},
	}
	ebg := Build(in)

	require.Len(t, ebg.Edges, 1)
	assert.Equal(t, model.NodeID(1), ebg.Edges[0].Target)
}

func TestBuildHonorsForbiddenRestriction(t *testing.T) {
	g := branchingGraph()
	in := baseInput(g)
	in.Unconditional = []nbgraph.ResolvedRestriction{
		{Kind: model.NodeRestriction, From: 0, Via: 1, To: 2, Only: false},
	}
	ebg := Build(in)

	require.Len(t, ebg.Edges, 1)
	assert.Equal(t, model.NodeID(1), ebg.Edges[0].Target)
}

func TestBuildSuppressesUTurnUnlessAllowed(t *testing.T) {
	g := &nbgraph.Graph{
		Coordinates: []model.Coordinate{
			model.NewCoordinateFromDegrees(0, 0),
			model.NewCoordinateFromDegrees(0, 0.001),
		},
		Geometry: []model.CompressedEdge{{From: 0, To: 1}},
		Annotations: []model.AnnotationRecord{{}},
		Denied:      map[model.NodeID]bool{},
		Signals:     map[model.NodeID]bool{},
		Edges: []nbgraph.Edge{
			{ID: 0, From: 0, To: 1, GeometryID: 0, AnnotationID: 0, Weight: 10, Duration: 1, Twin: 1},
			{ID: 1, From: 1, To: 0, GeometryID: 0, AnnotationID: 0, Weight: 10, Duration: 1, Twin: 0, Reversed: true},
		},
	}
	g.Freeze()

	ebg := Build(baseInput(g))
	assert.Empty(t, ebg.Edges)
}

func TestBuildDeniedNodeBlocksAllTurns(t *testing.T) {
	g := straightThroughGraph()
	g.Denied[1] = true
	ebg := Build(baseInput(g))
	assert.Empty(t, ebg.Edges)
}

// chainGraph builds a 4-hop node-based graph 0->1->2->3->4 with an extra
// branch at node 2 (2->5), so a way restriction chaining edge 0 through
// edge 1 to edge 2 has both a restricted continuation and an alternative
// the restriction must not affect.
func chainGraph() *nbgraph.Graph {
	g := &nbgraph.Graph{
		Coordinates: []model.Coordinate{
			model.NewCoordinateFromDegrees(0, 0),
			model.NewCoordinateFromDegrees(0, 0.001),
			model.NewCoordinateFromDegrees(0, 0.002),
			model.NewCoordinateFromDegrees(0, 0.003),
			model.NewCoordinateFromDegrees(0, 0.004),
			model.NewCoordinateFromDegrees(0.001, 0.002),
		},
		Geometry: []model.CompressedEdge{
			{From: 0, To: 1},
			{From: 1, To: 2},
			{From: 2, To: 3},
			{From: 3, To: 4},
			{From: 2, To: 5},
		},
		Annotations: []model.AnnotationRecord{{}},
		Denied:      map[model.NodeID]bool{},
		Signals:     map[model.NodeID]bool{},
		Edges: []nbgraph.Edge{
			{ID: 0, From: 0, To: 1, GeometryID: 0, AnnotationID: 0, Weight: 10, Duration: 1, Class: model.ClassPrimary, Twin: model.InvalidEdge},
			{ID: 1, From: 1, To: 2, GeometryID: 1, AnnotationID: 0, Weight: 10, Duration: 1, Class: model.ClassPrimary, Twin: model.InvalidEdge},
			{ID: 2, From: 2, To: 3, GeometryID: 2, AnnotationID: 0, Weight: 10, Duration: 1, Class: model.ClassPrimary, Twin: model.InvalidEdge},
			{ID: 3, From: 3, To: 4, GeometryID: 3, AnnotationID: 0, Weight: 10, Duration: 1, Class: model.ClassPrimary, Twin: model.InvalidEdge},
			{ID: 4, From: 2, To: 5, GeometryID: 4, AnnotationID: 0, Weight: 10, Duration: 1, Class: model.ClassPrimary, Twin: model.InvalidEdge},
		},
	}
	g.Freeze()
	return g
}

func TestBuildExpandsWayRestrictionIntoConstrainedChain(t *testing.T) {
	g := chainGraph()
	in := baseInput(g)
	in.Unconditional = []nbgraph.ResolvedRestriction{
		{
			Kind:     model.WayRestriction,
			From:     0,
			ViaNodes: []model.NodeID{1, 2},
			ViaWays:  []int64{100},
			ViaEdges: []model.EdgeID{1},
			To:       2,
			Only:     false,
		},
	}
	ebg := Build(in)

	// The plain edge-0 -> edge-1 turn must be suppressed: it is only legal
	// via the constrained duplicate now.
	for _, e := range ebg.Edges {
		if e.Source == model.NodeID(0) {
			assert.NotEqual(t, model.NodeID(1), e.Target, "plain entry into the restricted via-edge must be suppressed")
		}
	}

	// A duplicate, Constrained node for via-edge 1 must exist beyond the
	// original per-edge EBN space (5 node-based edges -> ids 0..4).
	require.Greater(t, len(ebg.Nodes), 5)
	dup := ebg.Nodes[5]
	assert.True(t, dup.Constrained)
	assert.Equal(t, model.EdgeID(1), dup.SegmentID)

	// The duplicate must have an entry edge from edge 0 and an exit to
	// every legal successor of node 2 except the forbidden edge 2 (edge 4,
	// the 2->5 branch, remains legal).
	var sawEntry, sawExit bool
	for _, e := range ebg.Edges {
		if e.Source == model.NodeID(0) && e.Target == model.NodeID(5) {
			sawEntry = true
		}
		if e.Source == model.NodeID(5) && e.Target == model.NodeID(4) {
			sawExit = true
		}
		if e.Source == model.NodeID(5) && e.Target == model.NodeID(2) {
			t.Fatalf("forbidden continuation edge 1->2 must not be reachable from the constrained duplicate")
		}
	}
	assert.True(t, sawEntry, "expected entry edge from edge 0 into the constrained duplicate")
	assert.True(t, sawExit, "expected the constrained duplicate to keep the untouched 2->5 branch legal")
}
