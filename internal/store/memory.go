package store

import (
	"context"
	"sync"

	"github.com/BartekS5/cardsync/pkg/models"
)

// MemoryStore keeps mappings for the lifetime of the process. Used for dry
// runs and tests.
type MemoryStore struct {
	mu       sync.Mutex
	mappings []models.SyncMapping
	batches  []models.BatchRecord
}

func NewMemoryStore(seed ...models.SyncMapping) *MemoryStore {
	return &MemoryStore{mappings: append([]models.SyncMapping(nil), seed...)}
}

func (s *MemoryStore) Find(_ context.Context, filter models.MappingFilter) ([]models.SyncMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncMapping
	for _, m := range s.mappings {
		if filter.Matches(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, m models.SyncMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = append(s.mappings, m)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, m models.SyncMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(m); i >= 0 {
		s.mappings[i] = m
		return nil
	}
	return &models.NotFoundError{Kind: "mapping", ID: naturalKey(m)}
}

func (s *MemoryStore) Upsert(_ context.Context, m models.SyncMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(m); i >= 0 {
		s.mappings[i] = m
		return nil
	}
	s.mappings = append(s.mappings, m)
	return nil
}

func (s *MemoryStore) indexOf(m models.SyncMapping) int {
	key := naturalKey(m)
	for i := range s.mappings {
		if naturalKey(s.mappings[i]) == key {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) DeleteForEntity(_ context.Context, host, entityID string, t models.EntityType) (int, error) {
	return s.deleteWhere(func(m models.SyncMapping) bool {
		return m.Type == t &&
			((m.SourceServer == host && m.SourceEntityID == entityID) ||
				(m.DestinationServer == host && m.DestinationEntityID == entityID))
	}), nil
}

func (s *MemoryStore) Purge(_ context.Context, hosts []string) (int, error) {
	set := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		set[h] = true
	}
	return s.deleteWhere(func(m models.SyncMapping) bool {
		return set[m.SourceServer] || set[m.DestinationServer]
	}), nil
}

func (s *MemoryStore) deleteWhere(match func(models.SyncMapping) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.mappings[:0]
	deleted := 0
	for _, m := range s.mappings {
		if match(m) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	s.mappings = kept
	return deleted
}

func (s *MemoryStore) RecordBatch(_ context.Context, rec models.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, rec)
	return nil
}

// Batches returns the recorded batch log.
func (s *MemoryStore) Batches() []models.BatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.BatchRecord(nil), s.batches...)
}

func (s *MemoryStore) Close(context.Context) error { return nil }
