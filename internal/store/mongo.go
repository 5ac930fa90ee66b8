package store

import (
	"context"
	"fmt"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mappingsCollection = "sync_mappings"
	batchLogCollection = "sync_log"
)

// MongoStore keeps mappings in one collection and the batch log in another.
type MongoStore struct {
	mappings *mongo.Collection
	batches  *mongo.Collection
	client   *mongo.Client
}

// NewMongoStore uses db. When owned is true Close disconnects the client.
func NewMongoStore(db *mongo.Database, owned bool) *MongoStore {
	s := &MongoStore{
		mappings: db.Collection(mappingsCollection),
		batches:  db.Collection(batchLogCollection),
	}
	if owned {
		s.client = db.Client()
	}
	return s
}

// EnsureIndexes creates the unique index on the natural key.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "sourceCardID", Value: 1},
			{Key: "destinationServer", Value: 1},
			{Key: "type", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("natural_key"),
	}
	if _, err := s.mappings.Indexes().CreateOne(ctx, model); err != nil {
		return fmt.Errorf("failed to create mapping index: %w", err)
	}
	return nil
}

func filterDoc(f models.MappingFilter) bson.M {
	doc := bson.M{}
	if f.SourceEntityID != "" {
		doc["sourceCardID"] = f.SourceEntityID
	}
	if f.Type != "" {
		doc["type"] = f.Type
	}
	if f.SourceServer != "" {
		doc["sourceServer"] = f.SourceServer
	}
	if f.DestinationServer != "" {
		doc["destinationServer"] = f.DestinationServer
	}
	return doc
}

func keyDoc(m models.SyncMapping) bson.M {
	return bson.M{
		"sourceCardID":      m.SourceEntityID,
		"destinationServer": m.DestinationServer,
		"type":              m.Type,
	}
}

func (s *MongoStore) Find(ctx context.Context, filter models.MappingFilter) ([]models.SyncMapping, error) {
	cursor, err := s.mappings.Find(ctx, filterDoc(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.SyncMapping
	for cursor.Next(ctx) {
		var m models.SyncMapping
		if err := cursor.Decode(&m); err != nil {
			logger.Errorf("Skipping undecodable mapping: %v", err)
			continue
		}
		out = append(out, m)
	}
	return out, cursor.Err()
}

func (s *MongoStore) Create(ctx context.Context, m models.SyncMapping) error {
	if _, err := s.mappings.InsertOne(ctx, m); err != nil {
		return fmt.Errorf("failed to create mapping %s: %w", naturalKey(m), err)
	}
	return nil
}

func (s *MongoStore) Update(ctx context.Context, m models.SyncMapping) error {
	res, err := s.mappings.UpdateOne(ctx, keyDoc(m), bson.M{"$set": m})
	if err != nil {
		return fmt.Errorf("failed to update mapping %s: %w", naturalKey(m), err)
	}
	if res.MatchedCount == 0 {
		return &models.NotFoundError{Kind: "mapping", ID: naturalKey(m)}
	}
	return nil
}

func (s *MongoStore) Upsert(ctx context.Context, m models.SyncMapping) error {
	opts := options.Update().SetUpsert(true)
	res, err := s.mappings.UpdateOne(ctx, keyDoc(m), bson.M{"$set": m}, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert mapping %s: %w", naturalKey(m), err)
	}
	logger.Debugf("Mapping upsert %s: match %d, mod %d, upsert %d", naturalKey(m), res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return nil
}

func (s *MongoStore) DeleteForEntity(ctx context.Context, host, entityID string, t models.EntityType) (int, error) {
	filter := bson.M{
		"type": t,
		"$or": bson.A{
			bson.M{"sourceServer": host, "sourceCardID": entityID},
			bson.M{"destinationServer": host, "destinationCardID": entityID},
		},
	}
	res, err := s.mappings.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete mappings of %s %s on %s: %w", t, entityID, host, err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) Purge(ctx context.Context, hosts []string) (int, error) {
	if len(hosts) == 0 {
		return 0, nil
	}
	filter := bson.M{"$or": bson.A{
		bson.M{"sourceServer": bson.M{"$in": hosts}},
		bson.M{"destinationServer": bson.M{"$in": hosts}},
	}}
	res, err := s.mappings.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to purge mappings: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) RecordBatch(ctx context.Context, rec models.BatchRecord) error {
	if _, err := s.batches.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to record batch %s: %w", rec.ID, err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
