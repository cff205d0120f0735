package extract

import (
	"strconv"

	"github.com/lintang-b-s/graphextract/pkg/errs"
	"github.com/lintang-b-s/graphextract/pkg/geo"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/profile"
	"github.com/lintang-b-s/graphextract/pkg/util"
)

// CoordinateLookup is the subset of ingest.LocationCache PrepareData needs;
// declared here so extract does not import ingest.
type CoordinateLookup interface {
	Get(mapNodeID int64) (model.Coordinate, bool)
}

// CompressedEdgeMeta is the per-CompressedEdge metadata the node-based
// graph factory turns into edges, annotation records and lane ids.
type CompressedEdgeMeta struct {
	WayID      int64
	Name       string
	NameID     int
	Ref        string
	RefID      int
	Class      model.PriorityClass
	Mask       model.ClassData
	Lanes      model.LaneDescription
	Forward    bool
	Backward   bool
	Roundabout bool
	AllowUTurn bool
}

// PreparedRestriction is a RawRestriction whose via node(s) have been
// rewritten into the compact node id space; from/to remain way ids until
// the node-based graph factory resolves them to edges.
type PreparedRestriction struct {
	FromWay   int64
	ToWay     int64
	Via       model.NodeID
	ViaNodes  []model.NodeID
	ViaWays   []int64
	Only      bool
	Condition string
}

func (r PreparedRestriction) IsConditional() bool { return r.Condition != "" }

// PreparedData is the output of PrepareData (spec.md 4.E): a compact node
// id space, aligned coordinates, one CompressedEdge per way, an interned
// name pool, and restrictions rewritten to that id space.
type PreparedData struct {
	NodeIDs         *util.IDMap
	Coordinates     []model.Coordinate
	CompressedEdges []model.CompressedEdge
	EdgeMeta        []CompressedEdgeMeta

	NameOffsets []uint32
	NameBlob    []byte

	UnconditionalRestrictions []PreparedRestriction
	ConditionalRestrictions   []PreparedRestriction

	Barriers []RawBarrier
}

// PrepareData implements spec.md 4.E steps 1-5. useMetadata gates whether a
// way's secondary Ref string (e.g. a highway shield number, as opposed to
// its Name) is interned and carried into CompressedEdgeMeta.RefID; when
// false, RefID stays 0 ("no ref") for every edge.
func PrepareData(c *Containers, coords CoordinateLookup, useMetadata bool) (*PreparedData, error) {
	if len(c.RawEdges) == 0 {
		return nil, errs.WrapErrorf(nil, errs.ErrInputExhaustedEmpty, "no edges survived tag interpretation")
	}

	nodeIDs := util.NewIdMap()
	// Step 1: compact node id space in first-seen order.
	for _, e := range c.RawEdges {
		nodeIDs.GetID(strconv.FormatInt(e.From, 10))
		nodeIDs.GetID(strconv.FormatInt(e.To, 10))
	}

	// Step 2: coordinate array aligned to that id space.
	coordinates := make([]model.Coordinate, nodeIDs.Len())
	for i := 0; i < nodeIDs.Len(); i++ {
		mapIDStr, _ := nodeIDs.Lookup(i)
		mapID, _ := strconv.ParseInt(mapIDStr, 10, 64)
		if coord, ok := coords.Get(mapID); ok {
			coordinates[i] = coord
		}
	}

	// Step 3: compress each way's consecutive raw edges into one
	// CompressedEdge. Raw edges of the same way are contiguous because
	// Containers.AddWay appends them in node order and the sink is
	// serial-in-order.
	compressed := make([]model.CompressedEdge, 0, len(c.RawEdges))
	meta := make([]CompressedEdgeMeta, 0, len(c.RawEdges))

	i := 0
	for i < len(c.RawEdges) {
		wayID := c.RawEdges[i].WayID
		j := i
		for j < len(c.RawEdges) && c.RawEdges[j].WayID == wayID {
			j++
		}
		run := c.RawEdges[i:j]

		fromID := model.NodeID(nodeIDs.GetID(strconv.FormatInt(run[0].From, 10)))
		toID := model.NodeID(nodeIDs.GetID(strconv.FormatInt(run[len(run)-1].To, 10)))

		intermediate := make([]model.NodeID, 0, len(run)-1)
		var weight, duration float64
		for _, e := range run {
			fromCoord := coordinates[nodeIDs.GetID(strconv.FormatInt(e.From, 10))]
			toCoord := coordinates[nodeIDs.GetID(strconv.FormatInt(e.To, 10))]
			segLen := geo.CalculateHaversineDistance(fromCoord.LatDegrees(), fromCoord.LonDegrees(),
				toCoord.LatDegrees(), toCoord.LonDegrees()) * 1000
			weight += segLen * e.WeightPerMeter
			duration += segLen * e.DurationPerMeter
		}
		for k := 1; k < len(run); k++ {
			intermediate = append(intermediate, model.NodeID(nodeIDs.GetID(strconv.FormatInt(run[k].From, 10))))
		}

		compressed = append(compressed, model.CompressedEdge{
			From:         fromID,
			To:           toID,
			Intermediate: intermediate,
			Weight:       weight,
			Duration:     duration,
		})

		first := run[0]
		nameID := 0
		if first.Name != "" {
			nameID = c.Names.GetID(first.Name)
		}
		refID := 0
		if useMetadata && first.Ref != "" {
			refID = c.Names.GetID(first.Ref)
		}
		meta = append(meta, CompressedEdgeMeta{
			WayID:      wayID,
			Name:       first.Name,
			NameID:     nameID,
			Ref:        first.Ref,
			RefID:      refID,
			Class:      first.Class,
			Mask:       first.Mask,
			Lanes:      first.Lanes,
			Forward:    first.Forward,
			Backward:   first.Backward,
			Roundabout: first.Roundabout,
			AllowUTurn: first.AllowUTurn,
		})

		i = j
	}

	// Step 4: name table, prefix-sum offsets over the intern order.
	offsets := make([]uint32, 0, c.Names.Len()+1)
	blob := make([]byte, 0)
	var off uint32
	for id := 0; id < c.Names.Len(); id++ {
		offsets = append(offsets, off)
		name, _ := c.Names.Lookup(id)
		blob = append(blob, name...)
		off += uint32(len(name))
	}
	offsets = append(offsets, off)

	// Step 5: split raw restrictions, rewriting via-node ids; drop
	// unresolved ones.
	var unconditional, conditional []PreparedRestriction
	for _, r := range c.Restrictions {
		prepared, ok := resolveRestriction(r, nodeIDs)
		if !ok {
			continue
		}
		if prepared.IsConditional() {
			conditional = append(conditional, prepared)
		} else {
			unconditional = append(unconditional, prepared)
		}
	}

	return &PreparedData{
		NodeIDs:                   nodeIDs,
		Coordinates:               coordinates,
		CompressedEdges:           compressed,
		EdgeMeta:                  meta,
		NameOffsets:               offsets,
		NameBlob:                  blob,
		UnconditionalRestrictions: unconditional,
		ConditionalRestrictions:   conditional,
		Barriers:                  c.Barriers,
	}, nil
}

func resolveRestriction(r profile.RawRestriction, nodeIDs *util.IDMap) (PreparedRestriction, bool) {
	via, viaOK := nodeIDs.Peek(strconv.FormatInt(r.ViaNode, 10))
	if len(r.ViaNodes) == 0 && !viaOK {
		return PreparedRestriction{}, false
	}
	var viaNodes []model.NodeID
	for _, v := range r.ViaNodes {
		id, ok := nodeIDs.Peek(strconv.FormatInt(v, 10))
		if !ok {
			return PreparedRestriction{}, false
		}
		viaNodes = append(viaNodes, model.NodeID(id))
	}
	var viaID model.NodeID
	if viaOK {
		viaID = model.NodeID(via)
	}
	return PreparedRestriction{
		FromWay:   r.FromWay,
		ToWay:     r.ToWay,
		Via:       viaID,
		ViaNodes:  viaNodes,
		ViaWays:   r.ViaWays,
		Only:      r.Only,
		Condition: r.Condition,
	}, true
}

