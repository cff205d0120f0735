package ingest

import (
	"context"
	"strings"

	"github.com/lintang-b-s/graphextract/pkg/concurrent"
	"github.com/lintang-b-s/graphextract/pkg/extract"
	"github.com/lintang-b-s/graphextract/pkg/profile"
)

// RunExtraction implements spec.md 4.A phase 2: read -> interpret-tags
// (parallel, profile-isolated) -> sink (serial-in-order, the only stage
// allowed to mutate cache or containers). relIdx, built by
// RunRelationPrepass, tells way processing whether a way belongs to a
// preserved relation. parseConditionals gates whether "restriction:conditional"
// relations are resolved at all (spec.md 6's parse_conditionals knob); when
// false, only plain "restriction"-tagged relations are considered.
func RunExtraction(ctx context.Context, mapFile string, factory profile.IsolatedFactory, relIdx *RelationIndex, cache LocationCache, parallelism int, parseConditionals bool) (*extract.Containers, string, error) {
	containers := extract.NewContainers()
	sharedProfile := factory()
	reentrant := sharedProfile.Reentrant()
	neededWays := wayRestrictionMembers(relIdx, parseConditionals)

	var tokens []Buffer
	timestamp, err := ReadAll(ctx, mapFile, func(b Buffer) error {
		tokens = append(tokens, b)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	wayNodeLists := make(map[int64][]int64, len(neededWays))

	stages := []concurrent.Stage[Buffer]{
		{
			Name: "interpret-tags",
			Kind: concurrent.Parallel,
			Fn: func(_ context.Context, tok Buffer) (Buffer, error) {
				p := sharedProfile
				if !reentrant {
					p = factory()
				}
				for _, e := range tok.Entities {
					switch e.Kind {
					case KindNode:
						tok.nodeCoords = append(tok.nodeCoords, nodeCoord{MapNodeID: e.NodeID, Lon: e.Lon, Lat: e.Lat})
						if extracted, ok := p.ProcessNode(e.Tags); ok {
							tok.nodeResults = append(tok.nodeResults, nodeResult{MapNodeID: e.NodeID, Extracted: extracted})
						}
					case KindWay:
						if _, ok := neededWays[e.WayID]; ok {
							tok.viaWayNodes = append(tok.viaWayNodes, wayNodeRecord{WayID: e.WayID, MapNodeIDs: e.WayNodes})
						}
						memberOfRelation := relIdx.IsMember(e.WayID)
						if extracted, ok := p.ProcessWay(e.Tags, memberOfRelation); ok {
							tok.wayResults = append(tok.wayResults, wayResult{WayID: e.WayID, MapNodeIDs: e.WayNodes, Extracted: extracted})
						}
					}
				}
				return tok, nil
			},
		},
		{
			Name: "sink",
			Kind: concurrent.SerialInOrder,
			Fn: func(_ context.Context, tok Buffer) (Buffer, error) {
				for _, nc := range tok.nodeCoords {
					cache.Put(nc.MapNodeID, nc.Lon, nc.Lat)
				}
				for _, nr := range tok.nodeResults {
					containers.AddBarrier(nr.MapNodeID, nr.Extracted)
				}
				for _, wr := range tok.wayResults {
					containers.AddWay(wr.WayID, wr.MapNodeIDs, wr.Extracted)
				}
				for _, wn := range tok.viaWayNodes {
					wayNodeLists[wn.WayID] = wn.MapNodeIDs
				}
				return tok, nil
			},
		},
	}

	if err := concurrent.Run(ctx, parallelism, tokens, stages, func(b Buffer) int { return b.Seq }); err != nil {
		return nil, "", err
	}

	for _, r := range resolveRestrictions(relIdx, wayNodeLists, parseConditionals) {
		containers.AddRestriction(r)
	}

	return containers, timestamp, nil
}

// restrictionKindTag returns rel's effective "restriction"/"restriction:conditional"
// value, or "" if rel is not a restriction relation this run is configured
// to resolve: with parseConditionals false, a relation carrying only
// "restriction:conditional" is treated the same as one with neither tag.
func restrictionKindTag(rel ExtractedRelation, parseConditionals bool) string {
	if kind := rel.Tags["restriction"]; kind != "" {
		return kind
	}
	if parseConditionals {
		return rel.Tags["restriction:conditional"]
	}
	return ""
}

// wayRestrictionMembers returns the set of way ids appearing as a from, via
// or to member of any preserved "restriction" relation this run will
// actually resolve: the node lists the sink stage must capture up front so
// the chain resolver can walk multi-way via chains after the main pass
// completes (spec.md 4.H.4).
func wayRestrictionMembers(relIdx *RelationIndex, parseConditionals bool) map[int64]struct{} {
	needed := make(map[int64]struct{})
	for _, rel := range relIdx.OfType("restriction") {
		if restrictionKindTag(rel, parseConditionals) == "" {
			continue
		}
		for _, m := range rel.Members {
			if m.Type == KindWay {
				needed[m.Ref] = struct{}{}
			}
		}
	}
	return needed
}

// resolveRestrictions turns every preserved "restriction" relation into a
// profile.RawRestriction, reading the "restriction"/"restriction:conditional"
// tags and the from/via/to member roles the OSM restriction schema defines.
// A single via node resolves directly; a via-way chain is walked through
// wayNodeLists (populated by RunExtraction's interpret-tags stage for every
// way referenced by a restriction relation, whether or not the profile kept
// it as a routable way) to recover the junction node between each
// consecutive pair of ways in the chain (spec.md 4.H.4). parseConditionals
// gates conditional relations exactly as wayRestrictionMembers does.
func resolveRestrictions(relIdx *RelationIndex, wayNodeLists map[int64][]int64, parseConditionals bool) []profile.RawRestriction {
	var out []profile.RawRestriction
	for _, rel := range relIdx.OfType("restriction") {
		kind := restrictionKindTag(rel, parseConditionals)
		if kind == "" {
			continue
		}
		only := strings.HasPrefix(kind, "only_")

		var fromWay, toWay int64
		var viaNode int64
		viaIsNode := false
		var viaWays []int64
		for _, m := range rel.Members {
			switch m.Role {
			case "from":
				if m.Type == KindWay {
					fromWay = m.Ref
				}
			case "to":
				if m.Type == KindWay {
					toWay = m.Ref
				}
			case "via":
				switch m.Type {
				case KindNode:
					viaNode = m.Ref
					viaIsNode = true
				case KindWay:
					viaWays = append(viaWays, m.Ref)
				}
			}
		}
		if fromWay == 0 || toWay == 0 {
			continue
		}

		var condition string
		if parseConditionals {
			condition = rel.Tags["restriction:conditional"]
		}

		if viaIsNode {
			out = append(out, profile.RawRestriction{
				FromWay:   fromWay,
				ToWay:     toWay,
				ViaNode:   viaNode,
				Only:      only,
				Condition: condition,
			})
			continue
		}
		if len(viaWays) == 0 {
			continue
		}

		viaNodes, ok := chainJunctionNodes(fromWay, viaWays, toWay, wayNodeLists)
		if !ok {
			continue
		}
		out = append(out, profile.RawRestriction{
			FromWay:   fromWay,
			ToWay:     toWay,
			ViaNodes:  viaNodes,
			ViaWays:   viaWays,
			Only:      only,
			Condition: condition,
		})
	}
	return out
}

// chainJunctionNodes recovers the ordered junction node ids of a multi-way
// restriction chain fromWay -> viaWays[0] -> ... -> viaWays[n-1] -> toWay,
// one per consecutive pair (length len(viaWays)+1), by finding the node id
// each pair's ways share as an endpoint. Returns ok=false if any way's node
// list wasn't captured or two consecutive ways in the chain don't share an
// endpoint.
func chainJunctionNodes(fromWay int64, viaWays []int64, toWay int64, wayNodeLists map[int64][]int64) ([]int64, bool) {
	chain := make([]int64, 0, len(viaWays)+2)
	chain = append(chain, fromWay)
	chain = append(chain, viaWays...)
	chain = append(chain, toWay)

	junctions := make([]int64, 0, len(chain)-1)
	for i := 0; i+1 < len(chain); i++ {
		a, aOK := wayNodeLists[chain[i]]
		b, bOK := wayNodeLists[chain[i+1]]
		if !aOK || !bOK || len(a) == 0 || len(b) == 0 {
			return nil, false
		}
		junction, ok := sharedEndpoint(a, b)
		if !ok {
			return nil, false
		}
		junctions = append(junctions, junction)
	}
	return junctions, true
}

// sharedEndpoint returns the node id shared by an endpoint of a and an
// endpoint of b, as OSM's restriction schema requires consecutive chain
// members to connect end-to-end.
func sharedEndpoint(a, b []int64) (int64, bool) {
	bEnds := map[int64]struct{}{b[0]: {}, b[len(b)-1]: {}}
	for _, end := range [2]int64{a[0], a[len(a)-1]} {
		if _, ok := bEnds[end]; ok {
			return end, true
		}
	}
	return 0, false
}
