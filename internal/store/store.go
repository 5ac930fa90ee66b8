// Package store persists sync mappings and the batch log.
package store

import (
	"context"

	"github.com/BartekS5/cardsync/pkg/models"
)

// MappingStore is the persistent table of source -> destination entity
// correspondences, plus the log of finished batches.
//
// The natural key of a mapping is (SourceEntityID, DestinationServer, Type).
type MappingStore interface {
	Find(ctx context.Context, filter models.MappingFilter) ([]models.SyncMapping, error)
	Create(ctx context.Context, m models.SyncMapping) error
	// Update rewrites the mapping with m's natural key; a missing row is a
	// *models.NotFoundError.
	Update(ctx context.Context, m models.SyncMapping) error
	Upsert(ctx context.Context, m models.SyncMapping) error
	// DeleteForEntity removes every mapping of type t in which entityID on
	// host appears, on either side.
	DeleteForEntity(ctx context.Context, host, entityID string, t models.EntityType) (int, error)
	// Purge removes every mapping that touches one of hosts on either side.
	Purge(ctx context.Context, hosts []string) (int, error)
	RecordBatch(ctx context.Context, rec models.BatchRecord) error
	Close(ctx context.Context) error
}

// FindOne returns the first mapping matching filter, or nil.
func FindOne(ctx context.Context, s MappingStore, filter models.MappingFilter) (*models.SyncMapping, error) {
	found, err := s.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

func naturalKey(m models.SyncMapping) string {
	return m.SourceEntityID + "|" + m.DestinationServer + "|" + string(m.Type)
}
