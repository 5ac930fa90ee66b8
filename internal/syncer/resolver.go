package syncer

import (
	"context"

	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
)

// cardResolver follows a source card id through the mapping table to the
// numeric id of its counterpart on one destination.
type cardResolver struct {
	store store.MappingStore
	src   *Source
	dest  *destination
}

func (r *cardResolver) ResolveCard(ctx context.Context, sourceCardID int, displayName string) (int, error) {
	card := r.src.cardByID(sourceCardID)
	if card == nil {
		// The dependency may live outside the synced collection subtree.
		fetched, err := r.src.Client.GetCard(ctx, sourceCardID)
		if err != nil {
			logger.Debugf("Dependency %d of %s: %v", sourceCardID, r.src.Server.Host, err)
			return 0, &models.MissingDependencyError{DisplayName: displayName, Host: r.src.Server.Host, AtSource: true}
		}
		card = fetched
	}

	return r.destCardID(ctx, card.EntityID, displayName)
}

// destCardID maps a source card entity_id to the destination numeric id.
func (r *cardResolver) destCardID(ctx context.Context, entityID, displayName string) (int, error) {
	mapping, err := store.FindOne(ctx, r.store, models.MappingFilter{
		SourceEntityID:    entityID,
		DestinationServer: r.dest.server.Host,
		Type:              models.EntityCard,
	})
	if err != nil {
		return 0, err
	}
	if mapping == nil {
		return 0, &models.MissingDependencyError{DisplayName: displayName, Host: r.dest.server.Host}
	}
	destCard, err := r.dest.cardByEntityID(ctx, mapping.DestinationEntityID)
	if err != nil {
		return 0, err
	}
	if destCard == nil {
		return 0, &models.MissingDependencyError{DisplayName: displayName, Host: r.dest.server.Host}
	}
	return destCard.ID, nil
}
