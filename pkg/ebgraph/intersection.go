package ebgraph

import (
	"sort"

	"github.com/lintang-b-s/graphextract/pkg/geo"
	"github.com/lintang-b-s/graphextract/pkg/model"
	"github.com/lintang-b-s/graphextract/pkg/nbgraph"
)

// bearingEntry is one quantized direction incident to a node-based-graph
// node, tagged with whether it is a legal entrance.
type bearingEntry struct {
	sector int
	legal  bool
}

// sectorsAt gathers every incident road's quantized "away from v" bearing,
// merging duplicates and marking a sector legal if any incoming edge maps
// to it (spec.md 4.H.6).
func sectorsAt(g *nbgraph.Graph, v model.NodeID) []bearingEntry {
	sectors := make(map[int]bool)

	for _, id := range g.Out(v) {
		e := g.Edges[id]
		nodes := g.DirectedNodes(e)
		sector := awaySector(g, v, nodes[1])
		if _, ok := sectors[sector]; !ok {
			sectors[sector] = false
		}
	}
	for _, id := range g.In(v) {
		e := g.Edges[id]
		nodes := g.DirectedNodes(e)
		sector := awaySector(g, v, nodes[len(nodes)-2])
		sectors[sector] = true
	}

	entries := make([]bearingEntry, 0, len(sectors))
	for s, legal := range sectors {
		entries = append(entries, bearingEntry{sector: s, legal: legal})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].sector < entries[j].sector })
	return entries
}

func awaySector(g *nbgraph.Graph, v, adjacent model.NodeID) int {
	vc := g.Coordinates[v]
	ac := g.Coordinates[adjacent]
	bearing := geo.BearingTo(vc.LatDegrees(), vc.LonDegrees(), ac.LatDegrees(), ac.LonDegrees())
	return geo.QuantizeBearing(bearing, bearingSectors)
}

func classesFromSectors(entries []bearingEntry) (BearingClass, EntryClass) {
	bc := BearingClass{Bearings: make([]int, len(entries))}
	ec := EntryClass{Legal: make([]bool, len(entries))}
	for i, e := range entries {
		bc.Bearings[i] = e.sector
		ec.Legal[i] = e.legal
	}
	return bc, ec
}

// BearingClass is the sorted, quantized set of bearings of edges incident
// to one node-based-graph node (spec.md 4.H.6), interned so many
// structurally-identical intersections share one id.
type BearingClass struct {
	Bearings []int // quantized sectors, ascending, deduplicated
}

// EntryClass records which of a BearingClass's sectors are legal
// entrances into the intersection.
type EntryClass struct {
	Legal []bool // parallel to the owning BearingClass's Bearings
}

func bearingClassKey(b BearingClass) string {
	key := make([]byte, len(b.Bearings))
	for i, v := range b.Bearings {
		key[i] = byte(v)
	}
	return string(key)
}

func entryClassKey(e EntryClass) string {
	key := make([]byte, len(e.Legal))
	for i, v := range e.Legal {
		if v {
			key[i] = 1
		}
	}
	return string(key)
}

// classInterner deduplicates BearingClass/EntryClass values into dense ids.
type classInterner struct {
	bearingIDs map[string]uint32
	entryIDs   map[string]uint32
}

func newClassInterner() *classInterner {
	return &classInterner{
		bearingIDs: make(map[string]uint32),
		entryIDs:   make(map[string]uint32),
	}
}

func (ci *classInterner) internBearing(g *Graph, b BearingClass) uint32 {
	k := bearingClassKey(b)
	if id, ok := ci.bearingIDs[k]; ok {
		return id
	}
	id := uint32(len(g.BearingClasses))
	ci.bearingIDs[k] = id
	g.BearingClasses = append(g.BearingClasses, b)
	return id
}

func (ci *classInterner) internEntry(g *Graph, e EntryClass) uint32 {
	k := entryClassKey(e)
	if id, ok := ci.entryIDs[k]; ok {
		return id
	}
	id := uint32(len(g.EntryClasses))
	ci.entryIDs[k] = id
	g.EntryClasses = append(g.EntryClasses, e)
	return id
}
