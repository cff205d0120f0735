// Package extract accumulates the records the ingestion pipeline's sink
// stage produces and turns them, via PrepareData, into the compact,
// index-aligned containers the node-based graph factory consumes
// (spec.md 4.E).
package extract

import (
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/profile"
	"github.com/lintang-b-s/graphextract/pkg/util"
)

// RawEdge is one (from, to, way-metadata) record emitted while walking a
// way's node list; PrepareData compresses consecutive runs sharing a way
// into a single CompressedEdge.
type RawEdge struct {
	From, To int64 // map ids (OSM node ids do not fit uint32) until PrepareData rewrites them to model.NodeID

	WayID  int64
	Seq    int
	Name   string
	Ref    string
	Class  model.PriorityClass
	Mask   model.ClassData
	Lanes  model.LaneDescription

	Forward, Backward bool
	Roundabout        bool
	AllowUTurn        bool

	WeightPerMeter, DurationPerMeter float64
}

// RawBarrier is one node the profile flagged as a barrier or traffic
// signal, keyed by map id until PrepareData rewrites it.
type RawBarrier struct {
	MapNodeID     int64
	Barrier       bool
	TrafficSignal bool
	Denied        bool
}

// Containers is the mutable accumulator every sink invocation writes into.
// Per spec.md 5, it is mutated only from the pipeline's serial-in-order
// sink stage.
type Containers struct {
	RawEdges     []RawEdge
	Restrictions []profile.RawRestriction
	Barriers     []RawBarrier

	Names *util.IDMap
	Lanes *model.LaneDescriptionMap

	usedMapNodeIDs map[int64]struct{}
}

func NewContainers() *Containers {
	c := &Containers{
		Names:          util.NewIdMap(),
		Lanes:          model.NewLaneDescriptionMap(),
		usedMapNodeIDs: make(map[int64]struct{}),
	}
	c.Names.GetID("") // reserve id 0 for "no name", matching LaneDescriptionMap's id-0 convention.
	return c
}

// AddWay appends one RawEdge per consecutive node pair of a way, preserving
// the way's node order (spec.md 5's ordering guarantee).
func (c *Containers) AddWay(wayID int64, mapNodeIDs []int64, w profile.ExtractedWay) {
	laneID := c.Lanes.Intern(w.Lanes)
	_ = laneID // lane ids are resolved again from the tuple in nbgraph; interning here just dedupes early.

	for i := 0; i+1 < len(mapNodeIDs); i++ {
		from, to := mapNodeIDs[i], mapNodeIDs[i+1]
		c.usedMapNodeIDs[from] = struct{}{}
		c.usedMapNodeIDs[to] = struct{}{}
		c.RawEdges = append(c.RawEdges, RawEdge{
			From:            from,
			To:              to,
			WayID:           wayID,
			Seq:             i,
			Name:            w.Name,
			Ref:             w.Ref,
			Class:           w.Class,
			Mask:            w.ClassMask,
			Lanes:           w.Lanes,
			Forward:         w.Forward,
			Backward:        w.Backward,
			Roundabout:      w.Roundabout,
			AllowUTurn:      w.AllowUTurn,
			WeightPerMeter:  w.WeightPerMeter,
			DurationPerMeter: w.DurationPerMeter,
		})
	}
}

func (c *Containers) AddBarrier(mapNodeID int64, n profile.ExtractedNode) {
	c.Barriers = append(c.Barriers, RawBarrier{
		MapNodeID:     mapNodeID,
		Barrier:       n.Barrier,
		TrafficSignal: n.TrafficSignal,
		Denied:        n.Denied,
	})
}

func (c *Containers) AddRestriction(r profile.RawRestriction) {
	c.Restrictions = append(c.Restrictions, r)
}

// UsedMapNodeIDs are the map-id keys any raw edge referenced; PrepareData
// resolves coordinates for exactly this set.
func (c *Containers) UsedMapNodeIDs() map[int64]struct{} { return c.usedMapNodeIDs }
