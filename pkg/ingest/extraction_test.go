package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRestrictionsBuildsNodeRestriction(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   1,
			Type: "restriction",
			Tags: map[string]string{"restriction": "no_left_turn"},
			Members: []RelationMember{
				{Ref: 10, Type: KindWay, Role: "from"},
				{Ref: 99, Type: KindNode, Role: "via"},
				{Ref: 20, Type: KindWay, Role: "to"},
			},
		},
	})

	out := resolveRestrictions(idx, nil, true)
	require.Len(t, out, 1)
	assert.Equal(t, int64(10), out[0].FromWay)
	assert.Equal(t, int64(20), out[0].ToWay)
	assert.Equal(t, int64(99), out[0].ViaNode)
	assert.False(t, out[0].Only)
}

func TestResolveRestrictionsRecognizesOnlyPrefix(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   2,
			Type: "restriction",
			Tags: map[string]string{"restriction": "only_straight_on"},
			Members: []RelationMember{
				{Ref: 1, Type: KindWay, Role: "from"},
				{Ref: 2, Type: KindNode, Role: "via"},
				{Ref: 3, Type: KindWay, Role: "to"},
			},
		},
	})

	out := resolveRestrictions(idx, nil, true)
	require.Len(t, out, 1)
	assert.True(t, out[0].Only)
}

func TestResolveRestrictionsSkipsViaWayMembers(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   3,
			Type: "restriction",
			Tags: map[string]string{"restriction": "no_u_turn"},
			Members: []RelationMember{
				{Ref: 1, Type: KindWay, Role: "from"},
				{Ref: 2, Type: KindWay, Role: "via"}, // chain restriction; no via-way node lists captured, so no junction can be found
				{Ref: 3, Type: KindWay, Role: "to"},
			},
		},
	})

	assert.Empty(t, resolveRestrictions(idx, nil, true))
}

func TestResolveRestrictionsSkipsMissingEndpoints(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   4,
			Type: "restriction",
			Tags: map[string]string{"restriction": "no_right_turn"},
			Members: []RelationMember{
				{Ref: 2, Type: KindNode, Role: "via"},
				{Ref: 3, Type: KindWay, Role: "to"},
				// no "from" member
			},
		},
	})

	assert.Empty(t, resolveRestrictions(idx, nil, true))
}

func TestResolveRestrictionsIgnoresRelationsWithoutRestrictionTag(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{ID: 5, Type: "restriction", Tags: map[string]string{}},
	})
	assert.Empty(t, resolveRestrictions(idx, nil, true))
}

func TestResolveRestrictionsSkipsConditionalRelationsWhenDisabled(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   6,
			Type: "restriction",
			Tags: map[string]string{"restriction:conditional": "no_left_turn @ (Mo-Fr 07:00-09:00)"},
			Members: []RelationMember{
				{Ref: 10, Type: KindWay, Role: "from"},
				{Ref: 99, Type: KindNode, Role: "via"},
				{Ref: 20, Type: KindWay, Role: "to"},
			},
		},
	})

	assert.Empty(t, resolveRestrictions(idx, nil, false), "a relation with only a conditional tag must be ignored when parseConditionals is false")

	out := resolveRestrictions(idx, nil, true)
	require.Len(t, out, 1)
	assert.Equal(t, "no_left_turn @ (Mo-Fr 07:00-09:00)", out[0].Condition)
}

func TestResolveRestrictionsIgnoresConditionalTagOnPlainRestrictionWhenDisabled(t *testing.T) {
	idx := NewRelationIndex()
	idx.merge([]ExtractedRelation{
		{
			ID:   7,
			Type: "restriction",
			Tags: map[string]string{
				"restriction":             "no_left_turn",
				"restriction:conditional": "no_left_turn @ (Mo-Fr 07:00-09:00)",
			},
			Members: []RelationMember{
				{Ref: 10, Type: KindWay, Role: "from"},
				{Ref: 99, Type: KindNode, Role: "via"},
				{Ref: 20, Type: KindWay, Role: "to"},
			},
		},
	})

	out := resolveRestrictions(idx, nil, false)
	require.Len(t, out, 1, "the plain restriction tag still resolves even when parseConditionals is false")
	assert.Empty(t, out[0].Condition, "the condition string must not leak in when parseConditionals is false")
}
