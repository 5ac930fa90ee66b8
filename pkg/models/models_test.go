package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCollectionUnmarshalRootID(t *testing.T) {
	var tree []*Collection
	data := `[{"id":"root","name":"Our analytics"},{"id":3,"name":"Sales","children":[{"id":4,"name":"EU"}]}]`
	require.NoError(t, json.Unmarshal([]byte(data), &tree))
	assert.Equal(t, RootCollectionID, tree[0].ID)
	assert.Equal(t, 3, tree[1].ID)
	assert.Equal(t, 4, tree[1].Children[0].ID)
}

func TestFlexIDAcceptsStringsAndNumbers(t *testing.T) {
	var s Server
	require.NoError(t, json.Unmarshal([]byte(`{"host":"h","database":"2","collection":-1}`), &s))
	assert.Equal(t, 2, s.Database.Int())
	assert.Equal(t, NoRestriction, s.Collection.Int())

	require.NoError(t, yaml.Unmarshal([]byte("host: h\ndatabase: 5\ncollection: root\n"), &s))
	assert.Equal(t, 5, s.Database.Int())
	assert.Equal(t, RootCollectionID, s.Collection.Int())

	assert.Error(t, json.Unmarshal([]byte(`{"database":"abc"}`), &s))
}

func TestCardDependencies(t *testing.T) {
	q := DatasetQuery{
		Type: QueryTypeNative,
		Native: map[string]any{
			"query": "select * from {{#12-orders}} join {{#3-items}}",
			"template-tags": map[string]any{
				"#12-orders": map[string]any{"type": "card", "card-id": float64(12)},
				"#3-items":   map[string]any{"type": "card", "card-id": float64(3)},
				"start":      map[string]any{"type": "date"},
			},
		},
	}
	assert.True(t, q.IsDependent())
	assert.Equal(t, []int{3, 12}, q.CardDependencies())

	structured := DatasetQuery{Type: QueryTypeStructured, Query: map[string]any{"source-table": 1}}
	assert.False(t, structured.IsDependent())
	assert.Nil(t, structured.CardDependencies())

	nested := DatasetQuery{
		Type: QueryTypeStructured,
		Query: map[string]any{
			"source-query": map[string]any{"source-table": "card__7"},
			"joins": []any{
				map[string]any{"source-table": "card__4", "alias": "Items"},
				map[string]any{"source-table": float64(9)},
				map[string]any{"source-table": "card__7"},
			},
		},
	}
	assert.True(t, nested.IsDependent())
	assert.Equal(t, []int{4, 7}, nested.CardDependencies())
}

func TestChangesRequired(t *testing.T) {
	a := CardEntity(&Card{Name: "Rev", Description: "d", Display: "table"})
	b := CardEntity(&Card{Name: "Rev", Description: "d", Display: "table"})
	assert.False(t, ChangesRequired(a, b))

	b.Card.Name = "Revenue"
	assert.True(t, ChangesRequired(a, b))
}

func TestClassifyOutcome(t *testing.T) {
	assert.Equal(t, OutcomeComplete, ClassifyOutcome(3, 3))
	assert.Equal(t, OutcomePartial, ClassifyOutcome(1, 3))
	assert.Equal(t, OutcomeFailure, ClassifyOutcome(0, 3))
}

func TestMappingFilterMatches(t *testing.T) {
	m := SyncMapping{SourceServer: "a", SourceEntityID: "x", DestinationServer: "b", DestinationEntityID: "y", Type: EntityCard}
	assert.True(t, MappingFilter{SourceEntityID: "x"}.Matches(m))
	assert.True(t, MappingFilter{SourceEntityID: "x", Type: EntityCard, DestinationServer: "b"}.Matches(m))
	assert.False(t, MappingFilter{SourceEntityID: "x", Type: EntityDashboard}.Matches(m))
}
