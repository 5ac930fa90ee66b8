package syncer

import (
	"context"
	"errors"
	"strconv"

	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
)

// syncDashboard creates or updates the dashboard and then replaces its whole
// tile layout in a single request.
func (s *Syncer) syncDashboard(ctx context.Context, src *Source, d *destination, st *models.SyncStatus) error {
	summary := st.Entity.Dashboard

	collectionID, err := d.mirror(ctx, src, models.CollectionIDOf(summary.CollectionID))
	if err != nil {
		return err
	}

	full, err := src.Client.GetDashboard(ctx, summary.ID)
	if err != nil {
		return err
	}

	sourceKey := strconv.Itoa(summary.ID)
	mapping, err := store.FindOne(ctx, s.store, models.MappingFilter{
		SourceEntityID:    sourceKey,
		DestinationServer: d.server.Host,
		Type:              models.EntityDashboard,
	})
	if err != nil {
		return err
	}

	var (
		destID   int
		existing *models.Dashboard
	)
	if mapping != nil {
		existing, err = s.mappedDashboard(ctx, d, mapping.DestinationEntityID)
		if err != nil {
			return err
		}
	}
	if existing != nil {
		destID = existing.ID
	} else {
		created, err := d.client.CreateDashboard(ctx, dashboardCreateBody(full, collectionID))
		if err != nil {
			return err
		}
		destID = created.ID
		logger.Infof("Created dashboard %q on %s (id %d)", full.Name, d.server.Host, destID)
		if err := s.store.Upsert(ctx, models.SyncMapping{
			SourceServer:        src.Server.Host,
			SourceEntityID:      sourceKey,
			DestinationServer:   d.server.Host,
			DestinationEntityID: strconv.Itoa(destID),
			Type:                models.EntityDashboard,
		}); err != nil {
			return err
		}
	}

	updated, err := d.client.UpdateDashboard(ctx, destID, dashboardUpdateBody(full, collectionID))
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return s.selfHeal(ctx, d, models.EntityDashboard, strconv.Itoa(destID))
	}
	if err != nil {
		return err
	}

	tiles, err := s.dashboardTiles(ctx, &cardResolver{store: s.store, src: src, dest: d}, full, existing, destID)
	if err != nil {
		return err
	}
	if err := d.client.ReplaceDashboardCards(ctx, destID, tiles); err != nil {
		return err
	}
	logger.Infof("Synced dashboard %q on %s (id %d, %d tiles)", full.Name, d.server.Host, destID, len(tiles))

	updated.ID = destID
	mapped := models.DashboardEntity(updated)
	st.Mapped = &mapped
	return nil
}

// mappedDashboard fetches the dashboard a mapping points at. A mapping whose
// dashboard is gone is dropped and nil is returned.
func (s *Syncer) mappedDashboard(ctx context.Context, d *destination, destKey string) (*models.Dashboard, error) {
	id, err := strconv.Atoi(destKey)
	if err != nil {
		s.dropStaleMapping(ctx, d, models.EntityDashboard, destKey)
		return nil, nil
	}
	dash, err := d.client.GetDashboard(ctx, id)
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		s.dropStaleMapping(ctx, d, models.EntityDashboard, destKey)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dash, nil
}

// dashboardTiles assembles the new layout: free tiles (the destination's
// own, or the source's when markdown sync is on) followed by every question
// tile of the source with its card, series and parameter mappings pointed at
// destination cards. New tiles get negative ids.
func (s *Syncer) dashboardTiles(ctx context.Context, r *cardResolver, source, existing *models.Dashboard, destID int) ([]map[string]any, error) {
	var tiles []map[string]any
	next := -1

	if s.settings.SyncMarkdown {
		for _, t := range source.Tiles() {
			if t.IsQuestion() || s.excluded(t) {
				continue
			}
			tiles = append(tiles, tileBody(t, next, destID, nil, nil))
			next--
		}
	} else if existing != nil {
		for _, t := range existing.Tiles() {
			if t.IsQuestion() {
				continue
			}
			tiles = append(tiles, tileBody(t, t.ID, destID, nil, nil))
		}
	}

	for _, t := range source.Tiles() {
		if !t.IsQuestion() {
			continue
		}
		cardID, err := r.destCardID(ctx, t.Card.EntityID, t.Card.Name)
		if err != nil {
			return nil, err
		}
		series := make([]int, 0, len(t.Series))
		for _, sc := range t.Series {
			entityID := sc.EntityID
			if entityID == "" {
				if c := r.src.cardByID(sc.ID); c != nil {
					entityID = c.EntityID
				}
			}
			sid, err := r.destCardID(ctx, entityID, sc.Name)
			if err != nil {
				return nil, err
			}
			series = append(series, sid)
		}
		tiles = append(tiles, tileBody(t, next, destID, &cardID, series))
		next--
	}
	return tiles, nil
}

// excluded reports whether a free tile's text matches excludeRegex.
func (s *Syncer) excluded(t models.DashboardCard) bool {
	return s.excludeRe != nil && s.excludeRe.MatchString(t.Text())
}
