// Package model holds the data-model types shared across the extraction
// stages: node and edge identifiers, the fixed-precision coordinate,
// compressed-edge geometry, edge-based nodes/edges, turn restrictions, lane
// descriptions and class bitmasks. Types here are dumb value/records; the
// factories that build them live in the sibling packages (nbgraph, ebgraph,
// scc, spatial, ...).
package model

import "math"

// NodeID is a dense, 0-based local node id. INVALID_NODE is a reserved
// sentinel meaning "no such node".
type NodeID uint32

const InvalidNode NodeID = math.MaxUint32

// EdgeID is a dense id local to one graph (node-based or edge-based).
type EdgeID uint32

const InvalidEdge EdgeID = math.MaxUint32

// Coordinate is a (longitude, latitude) pair stored as fixed-precision
// signed micro-degrees, matching the on-disk layout of the .osrm.* files.
type Coordinate struct {
	Lon int32
	Lat int32
}

const coordPrecision = 1e6

func NewCoordinateFromDegrees(lon, lat float64) Coordinate {
	return Coordinate{
		Lon: int32(math.Round(lon * coordPrecision)),
		Lat: int32(math.Round(lat * coordPrecision)),
	}
}

func (c Coordinate) LonDegrees() float64 { return float64(c.Lon) / coordPrecision }
func (c Coordinate) LatDegrees() float64 { return float64(c.Lat) / coordPrecision }

// CompressedEdge is an ordered polyline of intermediate node ids between
// two endpoint nodes, carrying the summed weight/duration of the raw edges
// it merges (spec.md 3).
type CompressedEdge struct {
	From, To     NodeID
	Intermediate []NodeID
	Weight       float64
	Duration     float64
}

// BoundingBox is an axis-aligned lat/lon box. The spatial index keeps its
// own [2]float64 corner pairs and does not use this type.
type BoundingBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// PriorityClass buckets a road's routing importance; used both for the
// node-based edge's road classification and for the segregated-edge
// detector's length threshold (spec.md 4.G step 7).
type PriorityClass uint8

const (
	ClassMotorway PriorityClass = iota
	ClassTrunk
	ClassPrimary
	ClassSecondary
	ClassTertiary
	ClassOther
)

func PriorityClassFromHighway(highway string) PriorityClass {
	switch highway {
	case "motorway", "motorway_link":
		return ClassMotorway
	case "trunk", "trunk_link":
		return ClassTrunk
	case "primary", "primary_link":
		return ClassPrimary
	case "secondary", "secondary_link":
		return ClassSecondary
	case "tertiary", "tertiary_link":
		return ClassTertiary
	default:
		return ClassOther
	}
}

// SegregatedLengthThreshold implements spec.md 4.G step 7: t(a) is
// priority-class dependent.
func SegregatedLengthThreshold(c PriorityClass) float64 {
	switch c {
	case ClassMotorway, ClassTrunk:
		return 30
	case ClassPrimary:
		return 20
	case ClassSecondary, ClassTertiary:
		return 10
	default:
		return 5
	}
}

// MaxClassIndex bounds the number of user-declared classes a profile may
// register (spec.md 6, ClassData).
const MaxClassIndex = 7

// MaxExcludableClasses bounds the number of saved excludable-class
// combinations a profile may register.
const MaxExcludableClasses = 8

// ClassData is a fixed-width bitmask over up to MaxClassIndex+1
// user-defined road classes.
type ClassData uint8

func (c ClassData) Has(bit int) bool { return c&(1<<uint(bit)) != 0 }
func (c *ClassData) Set(bit int)     { *c |= 1 << uint(bit) }

// ExcludableMask holds up to MaxExcludableClasses saved bitmasks; index 0
// is reserved as "nothing excluded".
type ExcludableMask struct {
	Masks []ClassData
}

func NewExcludableMask() ExcludableMask {
	return ExcludableMask{Masks: []ClassData{0}}
}

func (e *ExcludableMask) Add(mask ClassData) (int, bool) {
	if len(e.Masks) >= MaxExcludableClasses {
		return 0, false
	}
	e.Masks = append(e.Masks, mask)
	return len(e.Masks) - 1, true
}

// AnnotationRecord is the side table referenced by node-based-graph edges:
// name id, class bitmask, travel mode and access flags, kept out of the
// hot edge struct so many edges can share one annotation.
type AnnotationRecord struct {
	NameID     int
	ClassMask  ClassData
	TravelMode uint8
	AccessMask uint8
	// RefID indexes the same interned string pool as NameID, holding a
	// way's route reference (e.g. a highway shield number) rather than its
	// name. Left at 0 ("no ref") unless the run was configured to carry
	// this secondary metadata.
	RefID int
}

// LaneDescription is an ordered tuple of lane-type bitmasks for one edge.
type LaneDescription []uint16

// LaneDescriptionMap interns LaneDescription tuples into dense ids so
// identical lane layouts are deduplicated.
type LaneDescriptionMap struct {
	ids   map[string]uint32
	lanes []LaneDescription
}

func NewLaneDescriptionMap() *LaneDescriptionMap {
	// id 0 is reserved for "no lane data".
	return &LaneDescriptionMap{
		ids:   map[string]uint32{"": 0},
		lanes: []LaneDescription{nil},
	}
}

func laneKey(l LaneDescription) string {
	b := make([]byte, 0, len(l)*2)
	for _, m := range l {
		b = append(b, byte(m), byte(m>>8))
	}
	return string(b)
}

// Intern returns l's id, allocating a new one on first sight.
func (m *LaneDescriptionMap) Intern(l LaneDescription) uint32 {
	k := laneKey(l)
	if id, ok := m.ids[k]; ok {
		return id
	}
	id := uint32(len(m.lanes))
	m.ids[k] = id
	m.lanes = append(m.lanes, l)
	return id
}

func (m *LaneDescriptionMap) Valid(id uint32) bool {
	return int(id) < len(m.lanes)
}

func (m *LaneDescriptionMap) Len() int {
	return len(m.lanes)
}

func (m *LaneDescriptionMap) Get(id uint32) (LaneDescription, bool) {
	if !m.Valid(id) {
		return nil, false
	}
	return m.lanes[id], true
}

// TurnRestrictionKind distinguishes single-node from multi-via ("way")
// restrictions.
type TurnRestrictionKind uint8

const (
	NodeRestriction TurnRestrictionKind = iota
	WayRestriction
)

// TurnRestriction forbids (or, when Only is true, mandates) a specific
// from/via/to movement. Way restrictions carry an ordered sequence of via
// node ids instead of a single via node.
type TurnRestriction struct {
	Kind     TurnRestrictionKind
	From     EdgeID
	Via      NodeID   // valid when Kind == NodeRestriction
	ViaNodes []NodeID // valid when Kind == WayRestriction, in traversal order
	To       EdgeID
	Only     bool // true for "only_*" (mandatory), false for "no_*" (forbidden)

	// Condition holds a raw time-window expression string when this
	// restriction is conditional (spec.md 4.H.3). Empty for unconditional
	// restrictions.
	Condition string
}

func (r TurnRestriction) IsConditional() bool { return r.Condition != "" }

// TurnType classifies a turn's geometry, derived from the angle between an
// incoming and outgoing edge-based node at a node-based-graph node
// (spec.md 4.H.2). It has no effect on legality; the edge-based graph
// factory's interned intersection classes are built from bearings and do
// not use it.
type TurnType uint8

const (
	TurnStraightOn TurnType = iota
	TurnLeft
	TurnRight
	TurnUTurn
)

// ClassifyTurn buckets a turn angle in degrees, measured as the deviation
// from continuing straight (0 = straight ahead, +/-180 = a U-turn).
func ClassifyTurn(angleDegrees float64) TurnType {
	switch {
	case angleDegrees > -170 && angleDegrees < -10:
		return TurnRight
	case angleDegrees > 10 && angleDegrees < 170:
		return TurnLeft
	case angleDegrees >= 170 || angleDegrees <= -170:
		return TurnUTurn
	default:
		return TurnStraightOn
	}
}

// InfWeight marks an edge-based edge or turn as impassable without using a
// signed sentinel that could be mistaken for a real cost.
const InfWeight float64 = 1e15
