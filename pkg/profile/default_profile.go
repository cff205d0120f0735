package profile

import (
	"strconv"
	"strings"

	"github.com/lintang-b-s/graphextract/pkg/model"
)

var acceptedHighway = map[string]struct{}{
	"motorway": {}, "trunk": {}, "primary": {}, "secondary": {}, "tertiary": {},
	"unclassified": {}, "residential": {}, "service": {},
	"motorway_link": {}, "trunk_link": {}, "primary_link": {}, "secondary_link": {}, "tertiary_link": {},
	"living_street": {}, "road": {}, "track": {}, "motorroad": {},
}

var acceptedBarrier = map[string]struct{}{
	"gate": {}, "bollard": {}, "lift_gate": {}, "block": {}, "cycle_barrier": {},
}

var highwaySpeedKPH = map[string]float64{
	"motorway": 90, "trunk": 85, "primary": 65, "secondary": 55, "tertiary": 40,
	"unclassified": 25, "residential": 25, "service": 15,
	"motorway_link": 45, "trunk_link": 40, "primary_link": 30, "secondary_link": 25, "tertiary_link": 25,
	"living_street": 10, "road": 20, "track": 15, "motorroad": 90,
}

// DefaultProfile is a plain-Go stand-in for the sandboxed scripting
// collaborator spec.md 6 describes. The retrieved example pack carries no
// embedded-scripting library, so the profile contract is implemented as a
// native, reentrant Go type instead of an interpreted one; it is one legitimate
// implementation of the Profile interface, not the interface itself.
type DefaultProfile struct {
	relations    map[string]struct{}
	restrictions []string
	classNames   []string
	excludable   [][]string
}

func NewDefaultProfile() *DefaultProfile {
	return &DefaultProfile{
		relations:    map[string]struct{}{"restriction": {}},
		restrictions: []string{"no_left_turn", "no_right_turn", "no_straight_on", "no_u_turn", "no_entry",
			"only_left_turn", "only_right_turn", "only_straight_on"},
		classNames: []string{"motorway", "trunk", "primary", "secondary", "tertiary", "link", "service", "track"},
		excludable: [][]string{{"motorway"}, {"track"}},
	}
}

func (p *DefaultProfile) Relations() map[string]struct{}  { return p.relations }
func (p *DefaultProfile) Restrictions() []string           { return p.restrictions }
func (p *DefaultProfile) ClassNames() []string             { return p.classNames }
func (p *DefaultProfile) ExcludableClasses() [][]string    { return p.excludable }
func (p *DefaultProfile) HasLocationDependentData() bool   { return false }
func (p *DefaultProfile) Reentrant() bool                  { return true }

func (p *DefaultProfile) ProcessNode(tags Tags) (ExtractedNode, bool) {
	barrier := tags.Find("barrier")
	access := tags.Find("access")
	signal := strings.Contains(tags.Find("highway"), "traffic_signals")

	var out ExtractedNode
	out.TrafficSignal = signal
	if _, ok := acceptedBarrier[barrier]; ok && barrier != "" {
		out.Barrier = true
		out.Denied = access == "no"
	}
	if !out.Barrier && !out.TrafficSignal {
		return out, false
	}
	return out, true
}

func (p *DefaultProfile) ProcessWay(tags Tags, _ bool) (ExtractedWay, bool) {
	highway := tags.Find("highway")
	junction := tags.Find("junction")
	if highway == "" && junction == "" {
		return ExtractedWay{}, false
	}
	if highway != "" {
		if _, ok := acceptedHighway[highway]; !ok {
			return ExtractedWay{}, false
		}
	}

	out := ExtractedWay{
		Name:       tags.Find("name"),
		Ref:        tags.Find("ref"),
		Forward:    true,
		Backward:   true,
		Roundabout: junction == "roundabout" || junction == "circular",
		Class:      model.PriorityClassFromHighway(highway),
		AllowUTurn: false,
	}
	out.ClassMask.Set(int(out.Class))

	oneway := tags.Find("oneway")
	switch {
	case oneway == "yes" || isRestrictedTag(tags.Find("vehicle:forward")) || isRestrictedTag(tags.Find("motor_vehicle:forward")):
		out.Backward = false
	case oneway == "-1" || isRestrictedTag(tags.Find("vehicle:backward")) || isRestrictedTag(tags.Find("motor_vehicle:backward")):
		out.Forward = false
	}

	speed := highwaySpeedKPH[highway]
	if speed == 0 {
		speed = 30
	}
	if ms := tags.Find("maxspeed"); ms != "" {
		if v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(ms), " km/h"), 64); err == nil {
			speed = v
		}
	}
	metersPerMinute := speed * 1000 / 60
	out.DurationPerMeter = 1.0 / metersPerMinute
	out.WeightPerMeter = out.DurationPerMeter

	lanes := uint16(1)
	if l, err := strconv.Atoi(tags.Find("lanes")); err == nil && l > 0 {
		lanes = uint16(l)
	}
	out.Lanes = model.LaneDescription{lanes}

	return out, true
}

func isRestrictedTag(v string) bool { return v == "no" || v == "restricted" }

// QueryTurnPenalty is a simple, deterministic stand-in for a routing
// engine's real cost model: sharp turns and traffic signals cost more,
// segregated carriageways avoid the false U-turn penalty per spec.md 4.G.
func (p *DefaultProfile) QueryTurnPenalty(td TurnDescription) TurnPenalty {
	penalty := TurnPenalty{}
	if td.HasTrafficSignal {
		penalty.Duration += 2.0
		penalty.Weight += 2.0
	}
	sharpness := 180 - absF(td.AngleDegrees)
	if sharpness > 90 && !td.IsSegregated {
		penalty.Duration += (sharpness - 90) / 45
		penalty.Weight += (sharpness - 90) / 45
	}
	return penalty
}

func absF(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
