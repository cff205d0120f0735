package nbgraph

import (
	"testing"

	"github.com/lintang-b-s/graphextract/pkg/extract"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoNodePreparedData(forward, backward bool) *extract.PreparedData {
	nodeIDs := util.NewIdMap()
	nodeIDs.GetID("1")
	nodeIDs.GetID("2")
	return &extract.PreparedData{
		NodeIDs:     nodeIDs,
		Coordinates: []model.Coordinate{model.NewCoordinateFromDegrees(0, 0), model.NewCoordinateFromDegrees(0, 0.001)},
		CompressedEdges: []model.CompressedEdge{
			{From: 0, To: 1, Weight: 100, Duration: 10},
		},
		EdgeMeta: []extract.CompressedEdgeMeta{
			{WayID: 1, Forward: forward, Backward: backward, Class: model.ClassPrimary},
		},
	}
}

func TestBuildCreatesForwardAndBackwardEdgesAsTwins(t *testing.T) {
	pd := twoNodePreparedData(true, true)
	g, unconditional, conditional := Build(pd, model.NewLaneDescriptionMap())

	require.Len(t, g.Edges, 2)
	assert.Empty(t, unconditional)
	assert.Empty(t, conditional)

	fwd, bwd := g.Edges[0], g.Edges[1]
	assert.Equal(t, model.NodeID(0), fwd.From)
	assert.Equal(t, model.NodeID(1), fwd.To)
	assert.Equal(t, model.NodeID(1), bwd.From)
	assert.Equal(t, model.NodeID(0), bwd.To)
	assert.Equal(t, bwd.ID, fwd.Twin)
	assert.Equal(t, fwd.ID, bwd.Twin)
}

func TestBuildOneWayHasNoTwin(t *testing.T) {
	pd := twoNodePreparedData(true, false)
	g, _, _ := Build(pd, model.NewLaneDescriptionMap())

	require.Len(t, g.Edges, 1)
	assert.Equal(t, model.InvalidEdge, g.Edges[0].Twin)
}

func TestBuildPopulatesAdjacencyAfterFreeze(t *testing.T) {
	pd := twoNodePreparedData(true, true)
	g, _, _ := Build(pd, model.NewLaneDescriptionMap())

	assert.Len(t, g.Out(0), 1)
	assert.Len(t, g.In(0), 1)
	assert.Len(t, g.Out(1), 1)
	assert.Len(t, g.In(1), 1)
}

func TestDirectedNodesReversesForBackwardEdge(t *testing.T) {
	pd := twoNodePreparedData(true, true)
	pd.CompressedEdges[0].Intermediate = []model.NodeID{}
	g, _, _ := Build(pd, model.NewLaneDescriptionMap())

	fwdNodes := g.DirectedNodes(g.Edges[0])
	bwdNodes := g.DirectedNodes(g.Edges[1])
	assert.Equal(t, []model.NodeID{0, 1}, fwdNodes)
	assert.Equal(t, []model.NodeID{1, 0}, bwdNodes)
}

func TestBuildDropsRestrictionWhoseViaNodeDoesNotMatchAnyEdge(t *testing.T) {
	pd := twoNodePreparedData(true, true)
	pd.UnconditionalRestrictions = []extract.PreparedRestriction{
		{FromWay: 1, ToWay: 1, Via: 99, Only: false},
	}
	_, unconditional, _ := Build(pd, model.NewLaneDescriptionMap())
	assert.Empty(t, unconditional)
}

func TestBuildResolvesValidNodeRestriction(t *testing.T) {
	pd := twoNodePreparedData(true, true)
	pd.UnconditionalRestrictions = []extract.PreparedRestriction{
		{FromWay: 1, ToWay: 1, Via: 1, Only: false},
	}
	_, unconditional, _ := Build(pd, model.NewLaneDescriptionMap())
	require.Len(t, unconditional, 1)
	assert.Equal(t, model.NodeRestriction, unconditional[0].Kind)
	assert.Equal(t, model.NodeID(1), unconditional[0].Via)
}

// fourNodePreparedData builds a straight chain 0->1->2->3 as three one-way
// ways (ids 1, 100, 2), for exercising multi-way restriction resolution.
func fourNodePreparedData() *extract.PreparedData {
	nodeIDs := util.NewIdMap()
	nodeIDs.GetID("1")
	nodeIDs.GetID("2")
	nodeIDs.GetID("3")
	nodeIDs.GetID("4")
	return &extract.PreparedData{
		NodeIDs: nodeIDs,
		Coordinates: []model.Coordinate{
			model.NewCoordinateFromDegrees(0, 0),
			model.NewCoordinateFromDegrees(0, 0.001),
			model.NewCoordinateFromDegrees(0, 0.002),
			model.NewCoordinateFromDegrees(0, 0.003),
		},
		CompressedEdges: []model.CompressedEdge{
			{From: 0, To: 1, Weight: 10, Duration: 1},
			{From: 1, To: 2, Weight: 10, Duration: 1},
			{From: 2, To: 3, Weight: 10, Duration: 1},
		},
		EdgeMeta: []extract.CompressedEdgeMeta{
			{WayID: 1, Forward: true, Class: model.ClassPrimary},
			{WayID: 100, Forward: true, Class: model.ClassPrimary},
			{WayID: 2, Forward: true, Class: model.ClassPrimary},
		},
	}
}

func TestBuildResolvesWayRestrictionChain(t *testing.T) {
	pd := fourNodePreparedData()
	pd.UnconditionalRestrictions = []extract.PreparedRestriction{
		{FromWay: 1, ToWay: 2, ViaNodes: []model.NodeID{1, 2}, ViaWays: []int64{100}, Only: false},
	}
	_, unconditional, _ := Build(pd, model.NewLaneDescriptionMap())

	require.Len(t, unconditional, 1)
	r := unconditional[0]
	assert.Equal(t, model.WayRestriction, r.Kind)
	assert.Equal(t, model.EdgeID(0), r.From)
	assert.Equal(t, model.EdgeID(2), r.To)
	require.Len(t, r.ViaEdges, 1)
	assert.Equal(t, model.EdgeID(1), r.ViaEdges[0])
}

func TestBuildDropsWayRestrictionWithUnresolvableChainHop(t *testing.T) {
	pd := fourNodePreparedData()
	pd.UnconditionalRestrictions = []extract.PreparedRestriction{
		// ViaWays names way 999, which does not exist in this graph, so the
		// chain cannot be walked.
		{FromWay: 1, ToWay: 2, ViaNodes: []model.NodeID{1, 2}, ViaWays: []int64{999}, Only: false},
	}
	_, unconditional, _ := Build(pd, model.NewLaneDescriptionMap())
	assert.Empty(t, unconditional)
}
