package segregated

import (
	"testing"

	"github.com/lintang-b-s/graphextract/pkg/errs"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coord places a node lonMicro micro-degrees of longitude east of the
// origin on the equator; the fixtures space nodes far enough apart in the test fixtures that Haversine lengths differ
// meaningfully between "short" (segregated) and "long" (not) edges.
func coord(lonMicro int32) model.Coordinate {
	return model.Coordinate{Lon: lonMicro, Lat: 0}
}

// buildFixture assembles a tiny node-based graph: two one-way carriageways
// (u->v and v->u) of the unnamed main road, plus two cross streets at each end
// sharing the same two names on both sides, satisfying the >=2 common
// neighbor names / >=2 same-class requirement of spec.md 4.G.
func buildFixture(t *testing.T, uvLenDegrees int32, class model.PriorityClass) (*nbgraph.Graph, model.EdgeID) {
	t.Helper()

	// nodes: 0=u, 1=v, 2=crossA@u, 3=crossB@u, 4=crossA@v, 5=crossB@v
	coords := []model.Coordinate{
		coord(0),
		coord(uvLenDegrees),
		coord(-100000),
		coord(0), // crossB@u collides in lon; lat differs below
		coord(uvLenDegrees - 100000),
		coord(uvLenDegrees),
	}
	coords[3].Lat = 100000
	coords[5].Lat = 100000

	g := &nbgraph.Graph{
		Coordinates: coords,
		Geometry: []model.CompressedEdge{
			{From: 0, To: 1}, // 0: main forward u->v
			{From: 1, To: 0}, // 1: main reverse v->u
			{From: 2, To: 0}, // 2: crossA into u
			{From: 3, To: 0}, // 3: crossB into u
			{From: 4, To: 1}, // 4: crossA into v
			{From: 5, To: 1}, // 5: crossB into v
		},
		Annotations: []model.AnnotationRecord{
			// Main St carries no name of its own (0 = unnamed), which
			// skips isSegregated's "own name must recur among neighbors"
			// check and leaves the pure common-neighbor structural test.
			{NameID: 0, ClassMask: 1},
			{NameID: 2, ClassMask: 1}, // cross A
			{NameID: 3, ClassMask: 1}, // cross B
		},
		Barriers: map[model.NodeID]bool{},
		Denied:   map[model.NodeID]bool{},
		Signals:  map[model.NodeID]bool{},
	}

	g.Edges = []nbgraph.Edge{
		{ID: 0, From: 0, To: 1, GeometryID: 0, AnnotationID: 0, Class: class, Twin: model.InvalidEdge},
		{ID: 1, From: 1, To: 0, GeometryID: 1, AnnotationID: 0, Class: class, Twin: model.InvalidEdge},
		{ID: 2, From: 2, To: 0, GeometryID: 2, AnnotationID: 1, Class: class, Twin: model.InvalidEdge},
		{ID: 3, From: 3, To: 0, GeometryID: 3, AnnotationID: 2, Class: class, Twin: model.InvalidEdge},
		{ID: 4, From: 4, To: 1, GeometryID: 4, AnnotationID: 1, Class: class, Twin: model.InvalidEdge},
		{ID: 5, From: 5, To: 1, GeometryID: 5, AnnotationID: 2, Class: class, Twin: model.InvalidEdge},
	}
	g.Freeze()

	return g, 0
}

func TestDetectShortSharedNameCarriagewayIsSegregated(t *testing.T) {
	// 100 micro-degrees of longitude at the equator is ~11m, under the
	// secondary class's 10m+10m combined threshold.
	g, mainEdge := buildFixture(t, 100, model.ClassSecondary)
	got, err := Detect(g)
	require.NoError(t, err)
	assert.True(t, got[mainEdge], "short divided-carriageway edge should be flagged segregated")
}

func TestDetectLongCarriagewayIsNotSegregated(t *testing.T) {
	// 200000 micro-degrees is ~22km, far past any class's length threshold.
	g, mainEdge := buildFixture(t, 200000, model.ClassSecondary)
	got, err := Detect(g)
	require.NoError(t, err)
	assert.False(t, got[mainEdge], "long edge exceeding the class threshold should not be flagged")
}

func TestNeighborsAtSkipsExcludedEndpoint(t *testing.T) {
	g, _ := buildFixture(t, 200000, model.ClassSecondary)
	neighbors, err := neighborsAt(g, 0, 1)
	require.NoError(t, err)
	for _, n := range neighbors {
		assert.NotEqual(t, model.NodeID(1), n.node, "excluded endpoint must not appear as a neighbor")
	}
	assert.Len(t, neighbors, 2, "u's two cross streets should be the only neighbors excluding v")
}

func TestNeighborsAtConflictingClassMaskIsInconsistentInput(t *testing.T) {
	g, _ := buildFixture(t, 200000, model.ClassSecondary)
	// Force node 2's annotation to disagree on class mask between the
	// original in-edge 2->0 and a synthetic out-edge 0->2.
	g.Edges = append(g.Edges, nbgraph.Edge{
		ID: 6, From: 0, To: 2, GeometryID: 2, AnnotationID: len(g.Annotations), Class: model.ClassSecondary, Twin: model.InvalidEdge,
	})
	g.Annotations = append(g.Annotations, model.AnnotationRecord{NameID: 2, ClassMask: 7})
	g.Freeze()

	_, err := neighborsAt(g, 0, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInconsistentInput)
}
