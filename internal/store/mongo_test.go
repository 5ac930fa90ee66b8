package store

import (
	"context"
	"testing"

	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("find decodes mappings", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		ns := mt.DB.Name() + "." + mappingsCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{
				{Key: "sourceServer", Value: "src"},
				{Key: "sourceCardID", Value: "E1"},
				{Key: "destinationServer", Value: "dest"},
				{Key: "destinationCardID", Value: "X1"},
				{Key: "type", Value: "card"},
			},
		))

		found, err := s.Find(ctx, models.MappingFilter{SourceEntityID: "E1", Type: models.EntityCard})
		require.NoError(mt, err)
		assert.Equal(mt, []models.SyncMapping{mapping("src", "E1", "dest", "X1", models.EntityCard)}, found)
	})

	mt.Run("upsert", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, s.Upsert(ctx, mapping("src", "E1", "dest", "X2", models.EntityCard)))
	})

	mt.Run("update of a missing mapping", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := s.Update(ctx, mapping("src", "E1", "dest", "X2", models.EntityCard))
		var nf *models.NotFoundError
		assert.ErrorAs(mt, err, &nf)
	})

	mt.Run("create rejects a duplicate natural key", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}))

		err := s.Create(ctx, mapping("src", "E1", "dest", "X1", models.EntityCard))
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("delete and purge report counts", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 2}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 7}),
		)

		n, err := s.DeleteForEntity(ctx, "dest", "42", models.EntityDashboard)
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)

		n, err = s.Purge(ctx, []string{"src", "dest"})
		require.NoError(mt, err)
		assert.Equal(mt, 7, n)
	})

	mt.Run("record batch and ensure indexes", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB, false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(), mtest.CreateSuccessResponse())

		require.NoError(mt, s.EnsureIndexes(ctx))
		require.NoError(mt, s.RecordBatch(ctx, models.BatchRecord{ID: "b1", Outcome: models.OutcomeFailure}))
	})
}

func TestFilterDoc(t *testing.T) {
	assert.Equal(t, bson.M{}, filterDoc(models.MappingFilter{}))
	assert.Equal(t,
		bson.M{"sourceCardID": "E1", "destinationServer": "dest", "type": models.EntityCard},
		filterDoc(models.MappingFilter{SourceEntityID: "E1", DestinationServer: "dest", Type: models.EntityCard}))
}
