package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/BartekS5/cardsync/internal/query"
	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
)

// syncCard rewrites the card's query for the destination, mirrors its
// collection, creates or updates it and records the mapping. The steps run
// strictly in this order.
func (s *Syncer) syncCard(ctx context.Context, src *Source, d *destination, st *models.SyncStatus) error {
	card := st.Entity.Card
	resolver := &cardResolver{store: s.store, src: src, dest: d}

	rw := &query.Rewriter{Source: src.Server.Schema, Dest: d.server.Schema, Cards: resolver}
	q, err := rw.RewriteDatasetQuery(ctx, card.DatasetQuery, d.server.Database.Int())
	if err != nil {
		return err
	}

	collectionID, err := d.mirror(ctx, src, models.CollectionIDOf(card.CollectionID))
	if err != nil {
		return err
	}

	mapping, err := store.FindOne(ctx, s.store, models.MappingFilter{
		SourceEntityID:    card.EntityID,
		DestinationServer: d.server.Host,
		Type:              models.EntityCard,
	})
	if err != nil {
		return err
	}

	var existing *models.Card
	if mapping != nil {
		existing, err = d.cardByEntityID(ctx, mapping.DestinationEntityID)
		if err != nil {
			return err
		}
		if existing == nil {
			s.dropStaleMapping(ctx, d, models.EntityCard, mapping.DestinationEntityID)
		}
	}

	body := cardBody(card, q, collectionID)
	var saved *models.Card
	if existing != nil {
		saved, err = d.client.UpdateCard(ctx, existing.ID, body)
		var nf *models.NotFoundError
		if errors.As(err, &nf) {
			return s.selfHeal(ctx, d, models.EntityCard, mapping.DestinationEntityID)
		}
		if err != nil {
			return err
		}
		logger.Infof("Updated card %q on %s (id %d)", card.Name, d.server.Host, saved.ID)
	} else {
		saved, err = d.client.CreateCard(ctx, body)
		if err != nil {
			return err
		}
		logger.Infof("Created card %q on %s (id %d)", card.Name, d.server.Host, saved.ID)
	}

	if saved.EntityID == "" {
		return fmt.Errorf("card %q saved on %s without an entity_id", card.Name, d.server.Host)
	}
	if err := s.store.Upsert(ctx, models.SyncMapping{
		SourceServer:        src.Server.Host,
		SourceEntityID:      card.EntityID,
		DestinationServer:   d.server.Host,
		DestinationEntityID: saved.EntityID,
		Type:                models.EntityCard,
	}); err != nil {
		return err
	}

	d.rememberCard(*saved)
	mapped := models.CardEntity(saved)
	st.Mapped = &mapped
	return nil
}

// dropStaleMapping deletes mappings that point at a destination entity which
// no longer exists. The caller goes on to create a fresh one.
func (s *Syncer) dropStaleMapping(ctx context.Context, d *destination, t models.EntityType, destKey string) {
	n, err := s.store.DeleteForEntity(ctx, d.server.Host, destKey, t)
	if err != nil {
		logger.Errorf("Failed to delete stale mapping of %s %s on %s: %v", t, destKey, d.server.Host, err)
		return
	}
	logger.Warnf("%s %s is gone from %s; deleted %d mapping(s)", t, destKey, d.server.Host, n)
}

// selfHeal drops the stale mappings of an entity that vanished while being
// written and reports it as not found.
func (s *Syncer) selfHeal(ctx context.Context, d *destination, t models.EntityType, destKey string) error {
	s.dropStaleMapping(ctx, d, t, destKey)
	return &models.NotFoundError{Kind: string(t), ID: destKey}
}
