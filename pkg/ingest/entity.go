// Package ingest implements the parallel ingestion pipeline: reading a raw
// map dataset, caching node locations, dispatching tags to a profile, and
// sinking the results into extraction containers (spec.md 4.A). It is
// built on the same paulmach/osm + osmpbf streaming reader the teacher's
// pkg/osmparser used, wired into pkg/concurrent's stage-flow abstraction
// instead of the teacher's single hand-rolled loop.
package ingest

import (
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/profile"
	"github.com/paulmach/osm"
)

// EntityKind distinguishes the three OSM primitive types a buffer may
// carry, mirroring osm.Type without leaking the paulmach/osm package
// outside this file.
type EntityKind uint8

const (
	KindNode EntityKind = iota
	KindWay
	KindRelation
)

// Entity is one map-dataset primitive as seen by the pipeline. Only the
// fields the core needs survive from the underlying osm.Node/Way/Relation.
type Entity struct {
	Kind EntityKind

	NodeID int64
	Lon    float64
	Lat    float64

	WayID    int64
	WayNodes []int64

	RelationID int64
	Members    []osm.Member

	Tags osmTags
}

// osmTags adapts osm.Tags to the profile.Tags contract without importing
// paulmach/osm from pkg/profile.
type osmTags osm.Tags

func (t osmTags) Find(key string) string { return osm.Tags(t).Find(key) }

func (t osmTags) ForEach(fn func(key, value string)) {
	for _, tag := range t {
		fn(tag.Key, tag.Value)
	}
}

var _ profile.Tags = osmTags(nil)

// Buffer is a shared, immutable group of entities emitted by the reader in
// document order (spec.md 4.A's "read: serial-in-order, emits shared,
// immutable entity buffers").
type Buffer struct {
	Seq      int
	Entities []Entity

	// relations is populated by the relation pre-pass's extract-relations
	// stage and consumed by merge-into-index; unused in phase 2.
	relations []ExtractedRelation

	// nodeCoords, nodeResults and wayResults are populated by phase 2's
	// parallel "interpret-tags" stage and consumed by its serial-in-order
	// sink stage, which is the only place location cache Puts and
	// Containers mutations are allowed (spec.md 5's shared-resource
	// policy).
	nodeCoords  []nodeCoord
	nodeResults []nodeResult
	wayResults  []wayResult

	// viaWayNodes captures the node list of any way the restriction resolver
	// will need to walk a multi-way ("chain") turn restriction, independent
	// of whether the profile accepted the way as routable (spec.md 4.H.4):
	// a service road used only as a via-way segment may otherwise be
	// filtered out by ProcessWay entirely.
	viaWayNodes []wayNodeRecord
}

type wayNodeRecord struct {
	WayID      int64
	MapNodeIDs []int64
}

type nodeCoord struct {
	MapNodeID int64
	Lon, Lat  float64
}

type nodeResult struct {
	MapNodeID int64
	Extracted profile.ExtractedNode
}

type wayResult struct {
	WayID      int64
	MapNodeIDs []int64
	Extracted  profile.ExtractedWay
}

// Coordinate reads back an Entity's location as the model's fixed-precision
// type, once the reader/location-cache stage has resolved it.
func (e Entity) Coordinate() model.Coordinate {
	return model.NewCoordinateFromDegrees(e.Lon, e.Lat)
}
