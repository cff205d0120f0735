package scc

import (
	"testing"

	"github.com/lintang-b-s/graphextract/pkg/ebgraph"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/stretchr/testify/assert"
)

func node(id model.NodeID, segID model.EdgeID) ebgraph.Node {
	return ebgraph.Node{ID: id, SegmentID: segID}
}

// TestLabelMateEdgesJoinOppositeDirections builds a single one-way edge
// 0->1, which on its own leaves nodes 0 and 1 in separate components, then
// adds a segment pairing them as forward/reverse mates so both directions
// of the same underlying road merge into one component (spec.md 4.I.1).
func TestLabelMateEdgesJoinOppositeDirections(t *testing.T) {
	g := &ebgraph.Graph{
		Nodes: []ebgraph.Node{
			node(0, 0), node(1, 1), // forward/reverse EBNs of segment A
		},
		Edges: []ebgraph.Edge{
			{Source: 0, Target: 1, Forward: true},
		},
		Segments: []ebgraph.Segment{
			{ForwardSegmentID: 0, ReverseSegmentID: 1},
		},
	}

	labels := Label(g, 1)
	assert.Equal(t, labels.Component[0], labels.Component[1],
		"mate-edge should force the forward and reverse EBNs into one component")
}

// TestLabelDisjointComponentsGetDistinctIDs verifies two components with no
// edge or mate-edge relationship never share a label.
func TestLabelDisjointComponentsGetDistinctIDs(t *testing.T) {
	g := &ebgraph.Graph{
		Nodes: []ebgraph.Node{node(0, 0), node(1, 1), node(2, 2), node(3, 3)},
		Edges: []ebgraph.Edge{
			{Source: 0, Target: 1, Forward: true, Backward: true},
			{Source: 2, Target: 3, Forward: true, Backward: true},
		},
		Segments: []ebgraph.Segment{
			{ForwardSegmentID: 0, ReverseSegmentID: model.InvalidEdge},
			{ForwardSegmentID: 2, ReverseSegmentID: model.InvalidEdge},
		},
	}

	labels := Label(g, 1)
	assert.NotEqual(t, labels.Component[0], labels.Component[2])
	assert.Equal(t, labels.Component[0], labels.Component[1])
	assert.Equal(t, labels.Component[2], labels.Component[3])
}

// TestLabelTinyFlagsSmallComponents checks the size threshold: a
// 2-node component is tiny under threshold 3, but not under threshold 2.
func TestLabelTinyFlagsSmallComponents(t *testing.T) {
	g := &ebgraph.Graph{
		Nodes: []ebgraph.Node{node(0, 0), node(1, 1)},
		Edges: []ebgraph.Edge{
			{Source: 0, Target: 1, Forward: true, Backward: true},
		},
		Segments: []ebgraph.Segment{
			{ForwardSegmentID: 0, ReverseSegmentID: 1},
		},
	}

	small := Label(g, 3)
	assert.True(t, small.Tiny[0])
	assert.True(t, small.Tiny[1])

	notSmall := Label(g, 2)
	assert.False(t, notSmall.Tiny[0])
	assert.False(t, notSmall.Tiny[1])
}

// TestLabelDirectedCycleIsOneComponent covers a strongly connected
// 3-cycle formed purely by EdgeBasedEdges (no mate-edges involved).
func TestLabelDirectedCycleIsOneComponent(t *testing.T) {
	g := &ebgraph.Graph{
		Nodes: []ebgraph.Node{node(0, 0), node(1, 1), node(2, 2)},
		Edges: []ebgraph.Edge{
			{Source: 0, Target: 1, Forward: true},
			{Source: 1, Target: 2, Forward: true},
			{Source: 2, Target: 0, Forward: true},
		},
		Segments: []ebgraph.Segment{
			{ForwardSegmentID: 0, ReverseSegmentID: model.InvalidEdge},
			{ForwardSegmentID: 1, ReverseSegmentID: model.InvalidEdge},
			{ForwardSegmentID: 2, ReverseSegmentID: model.InvalidEdge},
		},
	}

	labels := Label(g, 1)
	assert.Equal(t, labels.Component[0], labels.Component[1])
	assert.Equal(t, labels.Component[1], labels.Component[2])
	assert.False(t, labels.Tiny[0], "a 3-node component exceeds a threshold of 1")
}
