// Package profile defines the tag-interpretation collaborator contract
// (spec.md 6): given an OSM node or way's tags, a profile decides what, if
// anything, the core should extract from it. The core treats a Profile as
// an opaque, possibly non-reentrant collaborator — see IsolatedFactory for
// the per-worker instancing story.
package profile

import "github.com/lintang-b-s/graphextract/pkg/model"

// Tags is the minimal tag-bag view a profile needs; callers adapt whatever
// OSM tag type the reader produces (paulmach/osm's osm.Tags) into this.
type Tags interface {
	Find(key string) string
	ForEach(func(key, value string))
}

// ExtractedNode is what a profile returns for a routing-relevant node.
type ExtractedNode struct {
	Barrier       bool
	TrafficSignal bool
	// Denied marks a barrier that blocks traversal. It is a single flag,
	// not a per-mode mask (spec.md 9's open question), so a denied barrier
	// blocks every mode.
	Denied bool
}

// ExtractedWay is what a profile returns for a routing-relevant way.
type ExtractedWay struct {
	Name          string
	Ref           string
	Forward       bool
	Backward      bool
	Roundabout    bool
	Class         model.PriorityClass
	ClassMask     model.ClassData
	Lanes         model.LaneDescription
	WeightPerMeter, DurationPerMeter float64
	AllowUTurn    bool
}

// RawRestriction is what a profile (or the relation pre-pass acting on the
// profile's declared restriction vocabulary) emits for one turn-restriction
// relation, before ids are resolved against the compact node/edge space.
type RawRestriction struct {
	FromWay int64
	ViaNode int64 // valid for a single via node; zero when ViaWays is non-empty
	// ViaNodes holds the ordered junction node ids between consecutive via
	// ways when this is a multi-way ("chain") restriction: length is
	// len(ViaWays)+1, running from the from-way/via-way[0] junction to the
	// via-way[last]/to-way junction. Empty for a single-via-node restriction.
	ViaNodes []int64
	// ViaWays holds the ordered way ids of a multi-way restriction's
	// interior segments. Empty for a single-via-node restriction.
	ViaWays   []int64
	ToWay     int64
	Only      bool
	Condition string
}

// TurnDescription is what the core hands the profile when asking for turn
// penalties (spec.md 4.H.2).
type TurnDescription struct {
	AngleDegrees   float64
	FromClass      model.PriorityClass
	ToClass        model.PriorityClass
	IsSegregated   bool
	HasTrafficSignal bool
	NumberOfRoads  int
}

// TurnPenalty is (weight, duration) added to an EdgeBasedEdge on top of the
// source EBN's own weight/duration.
type TurnPenalty struct {
	Weight   float64
	Duration float64
}

// Profile is the collaborator contract of spec.md 6. Implementations must
// tolerate being called from many goroutines, or declare
// Reentrant()==false so the driver takes a fresh instance from the
// IsolatedFactory for every buffer it interprets.
type Profile interface {
	Relations() map[string]struct{}
	Restrictions() []string
	ClassNames() []string
	ExcludableClasses() [][]string

	ProcessNode(tags Tags) (ExtractedNode, bool)
	ProcessWay(tags Tags, relationMember bool) (ExtractedWay, bool)
	QueryTurnPenalty(td TurnDescription) TurnPenalty

	HasLocationDependentData() bool
	Reentrant() bool
}

// IsolatedFactory yields one Profile instance per call, so a worker pool
// can give each parallel worker its own private instance instead of
// sharing embedded-language state across goroutines (spec.md 5, "the
// profile collaborator must provide its own isolation").
type IsolatedFactory func() Profile
