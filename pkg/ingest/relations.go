package ingest

import (
	"context"
	"sync"

	"github.com/lintang-b-s/graphextract/pkg/concurrent"
	"github.com/lintang-b-s/graphextract/pkg/profile"
)

// ExtractedRelation captures one routing-relevant relation's attributes and
// member roles, ready for resolveRestrictions to resolve into a
// profile.RawRestriction once phase 2's stage flow has finished
// (spec.md 4.A phase 1).
type ExtractedRelation struct {
	ID      int64
	Type    string
	Tags    map[string]string
	Members []RelationMember
}

type RelationMember struct {
	Ref  int64
	Type EntityKind
	Role string
}

// RelationIndex is the shared, read-only-after-build membership index
// phase 2's way processing consults (spec.md 4.A, 3's Lifecycle).
type RelationIndex struct {
	byID     map[int64]ExtractedRelation
	memberOf map[int64][]int64 // member ref -> relation ids containing it
}

func NewRelationIndex() *RelationIndex {
	return &RelationIndex{
		byID:     make(map[int64]ExtractedRelation),
		memberOf: make(map[int64][]int64),
	}
}

func (idx *RelationIndex) merge(rels []ExtractedRelation) {
	for _, r := range rels {
		idx.byID[r.ID] = r
		for _, m := range r.Members {
			idx.memberOf[m.Ref] = append(idx.memberOf[m.Ref], r.ID)
		}
	}
}

// Get returns a relation by id.
func (idx *RelationIndex) Get(id int64) (ExtractedRelation, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// IsMember reports whether entityRef belongs to any preserved relation.
func (idx *RelationIndex) IsMember(entityRef int64) bool {
	return len(idx.memberOf[entityRef]) > 0
}

// OfType returns every preserved relation whose "type" tag equals typ, in
// no particular order; used to resolve turn restrictions after the main
// entity pass completes.
func (idx *RelationIndex) OfType(typ string) []ExtractedRelation {
	var out []ExtractedRelation
	for _, r := range idx.byID {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

func entityKindOf(t string) EntityKind {
	switch t {
	case "way":
		return KindWay
	case "relation":
		return KindRelation
	default:
		return KindNode
	}
}

// RunRelationPrepass implements spec.md 4.A phase 1: (read) ->
// (extract-relations, parallel) -> (merge-into-index, serial-in-order).
// p supplies the set of relation "type" values worth preserving.
func RunRelationPrepass(ctx context.Context, mapFile string, p profile.Profile, parallelism int) (*RelationIndex, error) {
	wanted := p.Relations()
	idx := NewRelationIndex()
	var mergeMu sync.Mutex

	var tokens []Buffer
	if _, err := ReadAll(ctx, mapFile, func(b Buffer) error {
		tokens = append(tokens, b)
		return nil
	}); err != nil {
		return nil, err
	}

	stages := []concurrent.Stage[Buffer]{
		{
			Name: "extract-relations",
			Kind: concurrent.Parallel,
			Fn: func(_ context.Context, tok Buffer) (Buffer, error) {
				var found []ExtractedRelation
				for _, e := range tok.Entities {
					if e.Kind != KindRelation {
						continue
					}
					typ := e.Tags.Find("type")
					if _, ok := wanted[typ]; !ok {
						continue
					}
					tags := make(map[string]string)
					e.Tags.ForEach(func(k, v string) { tags[k] = v })
					rel := ExtractedRelation{ID: e.RelationID, Type: typ, Tags: tags}
					for _, m := range e.Members {
						rel.Members = append(rel.Members, RelationMember{
							Ref:  m.Ref,
							Type: entityKindOf(string(m.Type)),
							Role: m.Role,
						})
					}
					found = append(found, rel)
				}
				tok.relations = found
				return tok, nil
			},
		},
		{
			Name: "merge-into-index",
			Kind: concurrent.SerialInOrder,
			Fn: func(_ context.Context, tok Buffer) (Buffer, error) {
				mergeMu.Lock()
				idx.merge(tok.relations)
				mergeMu.Unlock()
				return tok, nil
			},
		},
	}

	if err := concurrent.Run(ctx, parallelism, tokens, stages, func(b Buffer) int { return b.Seq }); err != nil {
		return nil, err
	}
	return idx, nil
}
