// Package spatial builds the R-tree used to snap arbitrary query
// coordinates onto edge-based node segments (spec.md 4.J), grounded on the
// teacher's pkg/spatialindex.Rtree wrapper around tidwall/rtree.
package spatial

import (
	"math"

	"github.com/lintang-b-s/graphextract/pkg/ebgraph"
	"github.com/lintang-b-s/graphextract/pkg/errs"
	"github.com/lintang-b-s/graphextract/pkg/geo"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/util"
	"github.com/tidwall/rtree"
)

// defaultLeafBoundingBoxRadiusKM is the padding Build uses when it is given
// a non-positive radius. The radius pads each segment's coordinates outward
// before insertion, so a query point that lands slightly off the recorded
// geometry (GPS noise, coordinate rounding) still falls inside a leaf's
// bounding box. Matches the teacher's boundingBoxRadius knob.
const defaultLeafBoundingBoxRadiusKM = 0.5

// Endpoint is the payload stored at each R-tree leaf: the two directed
// edge-based-node ids straddling one node-based-graph segment, plus the
// segment's own geometry id and endpoint coordinates.
type Endpoint struct {
	Forward    model.EdgeID
	Reverse    model.EdgeID
	GeometryID uint32
	Start      model.Coordinate
	End        model.Coordinate
}

// Leaf is one R-tree entry: its bounding box and payload, kept
// alongside the live tidwall/rtree so pkg/osrmio can persist the "in-RAM
// upper index + memory-mapped leaf file" pair of spec.md 4.J.3 without
// reaching into the R-tree's internal node structure.
type Leaf struct {
	Min, Max [2]float64
	Data     Endpoint
}

// Index wraps the R-tree over start-point-eligible segments.
type Index struct {
	tr                *rtree.RTreeG[Endpoint]
	leaves            []Leaf
	leafBoundingBoxKM float64
	size              int
}

// Build implements spec.md 4.J: compacts segs to the start-point-eligible
// subset, fails with errs.ErrNoSnappableEdges if that subset is empty, and
// inserts the survivors one at a time into an R-tree keyed by a padded
// bounding box around each segment's endpoints. The tree is built by
// repeated insertion; no packed bulk load is performed.
func Build(segs []ebgraph.Segment, leafBoundingBoxRadiusKM float64) (*Index, error) {
	if leafBoundingBoxRadiusKM <= 0 {
		leafBoundingBoxRadiusKM = defaultLeafBoundingBoxRadiusKM
	}

	eligible := make([]ebgraph.Segment, 0, len(segs))
	for _, s := range segs {
		if s.StartPointEligible {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return nil, errs.WrapErrorf(nil, errs.ErrNoSnappableEdges,
			"spatial index: 0 of %d segments are start-point eligible", len(segs))
	}

	var tr rtree.RTreeG[Endpoint]
	leaves := make([]Leaf, 0, len(eligible))
	for _, s := range eligible {
		min, max := paddedBox(s.Start, s.End, leafBoundingBoxRadiusKM)
		data := Endpoint{
			Forward:    s.ForwardSegmentID,
			Reverse:    s.ReverseSegmentID,
			GeometryID: s.GeometryID,
			Start:      s.Start,
			End:        s.End,
		}
		tr.Insert(min, max, data)
		leaves = append(leaves, Leaf{Min: min, Max: max, Data: data})
	}

	return &Index{tr: &tr, leaves: leaves, leafBoundingBoxKM: leafBoundingBoxRadiusKM, size: len(eligible)}, nil
}

// paddedBox returns the [min,max] corners (lon,lat order, matching
// tidwall/rtree's [2]float64 convention) of a's and b's bounding box,
// grown outward by radiusKM on every side.
func paddedBox(a, b model.Coordinate, radiusKM float64) ([2]float64, [2]float64) {
	aLowLat, aLowLon := geo.GetDestinationPoint(a.LatDegrees(), a.LonDegrees(), 225, radiusKM)
	aHighLat, aHighLon := geo.GetDestinationPoint(a.LatDegrees(), a.LonDegrees(), 45, radiusKM)
	bLowLat, bLowLon := geo.GetDestinationPoint(b.LatDegrees(), b.LonDegrees(), 225, radiusKM)
	bHighLat, bHighLon := geo.GetDestinationPoint(b.LatDegrees(), b.LonDegrees(), 45, radiusKM)

	minLat := math.Min(aLowLat, bLowLat)
	minLon := math.Min(aLowLon, bLowLon)
	maxLat := math.Max(aHighLat, bHighLat)
	maxLon := math.Max(aHighLon, bHighLon)

	return [2]float64{minLon, minLat}, [2]float64{maxLon, maxLat}
}

// Nearest returns up to k candidate endpoints whose padded bounding box
// contains a point within radiusKM of (lat,lon), nearest-first is not
// guaranteed — callers that need strict ordering re-rank by exact
// perpendicular distance to the segment geometry themselves.
func (idx *Index) Nearest(lat, lon, radiusKM float64, k int) []Endpoint {
	lowLat, lowLon := geo.GetDestinationPoint(lat, lon, 225, radiusKM)
	highLat, highLon := geo.GetDestinationPoint(lat, lon, 45, radiusKM)

	results := make([]Endpoint, 0, util.MinInt(k, idx.size))
	idx.tr.Search([2]float64{lowLon, lowLat}, [2]float64{highLon, highLat},
		func(_, _ [2]float64, data Endpoint) bool {
			results = append(results, data)
			return len(results) < k
		})
	return results
}

// Len reports the number of leaves inserted.
func (idx *Index) Len() int {
	return idx.size
}

// Leaves returns every inserted leaf in insertion order, for persistence.
func (idx *Index) Leaves() []Leaf {
	return idx.leaves
}
