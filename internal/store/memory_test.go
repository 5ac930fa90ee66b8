package store

import (
	"context"
	"testing"

	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapping(src, srcID, dst, dstID string, t models.EntityType) models.SyncMapping {
	return models.SyncMapping{SourceServer: src, SourceEntityID: srcID, DestinationServer: dst, DestinationEntityID: dstID, Type: t}
}

func TestMemoryStoreUpsertByNaturalKey(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Upsert(ctx, mapping("a", "E1", "b", "X1", models.EntityCard)))
	require.NoError(t, s.Upsert(ctx, mapping("a", "E1", "b", "X2", models.EntityCard)))
	require.NoError(t, s.Upsert(ctx, mapping("a", "E1", "c", "Y1", models.EntityCard)))

	found, err := s.Find(ctx, models.MappingFilter{SourceEntityID: "E1", DestinationServer: "b"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "X2", found[0].DestinationEntityID)

	all, err := s.Find(ctx, models.MappingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStoreUpdateMissing(t *testing.T) {
	err := NewMemoryStore().Update(context.Background(), mapping("a", "E1", "b", "X1", models.EntityCard))
	var nf *models.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestMemoryStoreDeleteForEntity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(
		mapping("a", "10", "b", "20", models.EntityDashboard),
		mapping("b", "20", "c", "30", models.EntityDashboard),
		mapping("a", "20", "b", "21", models.EntityCard),
	)

	n, err := s.DeleteForEntity(ctx, "b", "20", models.EntityDashboard)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "both sides are matched")

	left, _ := s.Find(ctx, models.MappingFilter{})
	assert.Equal(t, []models.SyncMapping{mapping("a", "20", "b", "21", models.EntityCard)}, left)
}

func TestMemoryStorePurge(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(
		mapping("a", "1", "b", "2", models.EntityCard),
		mapping("c", "1", "a", "2", models.EntityCard),
		mapping("c", "1", "d", "2", models.EntityCard),
	)
	n, err := s.Purge(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := FindOne(ctx, s, models.MappingFilter{SourceServer: "c"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "d", found.DestinationServer)

	none, err := FindOne(ctx, s, models.MappingFilter{SourceServer: "a"})
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStoreRecordBatch(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.RecordBatch(context.Background(), models.BatchRecord{ID: "b1", Outcome: models.OutcomePartial}))
	require.Len(t, s.Batches(), 1)
	assert.Equal(t, models.OutcomePartial, s.Batches()[0].Outcome)
}
