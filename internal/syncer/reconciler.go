package syncer

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/BartekS5/cardsync/internal/collection"
	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"golang.org/x/sync/errgroup"
)

// Reconcile computes the status of every (source entity, destination) pair.
// Duplicate source names are rejected up front; any other failure degrades
// the affected pair to ready.
func (s *Syncer) Reconcile(ctx context.Context, sources []*Source, dests []*models.Server) ([]*models.SyncStatus, error) {
	if err := ValidateBatch(sources); err != nil {
		return nil, err
	}
	s.resetCaches()

	if s.settings.RefreshMapping {
		if err := s.purge(ctx, sources, dests); err != nil {
			return nil, err
		}
	}

	// Warm the destination caches in parallel; failures surface per pair.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, srv := range dests {
		d := s.destination(srv)
		g.Go(func() error {
			if _, err := d.Cards(ctx); err != nil {
				logger.Warnf("Failed to list cards of %s: %v", d.server.Host, err)
			}
			if _, err := d.Dashboards(ctx); err != nil {
				logger.Warnf("Failed to list dashboards of %s: %v", d.server.Host, err)
			}
			if _, err := d.Tree(ctx); err != nil {
				logger.Warnf("Failed to fetch collections of %s: %v", d.server.Host, err)
			}
			return nil
		})
	}
	g.Wait()

	var out []*models.SyncStatus
	for _, src := range sources {
		for _, e := range src.Entities {
			for _, srv := range dests {
				out = append(out, s.reconcileOne(ctx, src, s.destination(srv), e))
			}
		}
	}
	SortStatuses(out)
	return out, nil
}

func (s *Syncer) purge(ctx context.Context, sources []*Source, dests []*models.Server) error {
	var hosts []string
	for _, src := range sources {
		hosts = append(hosts, src.Server.Host)
	}
	for _, d := range dests {
		hosts = append(hosts, d.Host)
	}
	n, err := s.store.Purge(ctx, hosts)
	if err != nil {
		return err
	}
	logger.Infof("Refreshing mappings: purged %d mappings touching %s", n, strings.Join(hosts, ", "))
	return nil
}

func (s *Syncer) reconcileOne(ctx context.Context, src *Source, d *destination, e models.Entity) *models.SyncStatus {
	st := &models.SyncStatus{
		ID:          models.StatusID(d.server.Host, e),
		Source:      src.Server,
		Destination: d.server,
		Entity:      e,
		Status:      models.StatusReady,
		Excluded:    d.server.IsExcluded(e.Key()) || d.server.IsExcluded(strconv.Itoa(e.ID())),
	}

	matched, err := s.match(ctx, src, d, e)
	if err != nil {
		logger.Warnf("Reconciling %s on %s: %v", st.ID, d.server.Host, err)
		st.Error = err.Error()
		return st
	}
	if matched == nil {
		return st
	}
	st.Mapped = matched
	if models.ChangesRequired(e, *matched) {
		st.Status = models.StatusOutdated
	} else {
		st.Status = models.StatusInSync
	}
	return st
}

// match returns the live destination counterpart of e, or nil. A recorded
// mapping whose target is gone counts as no mapping; without a usable
// mapping the counterpart is discovered by name and collection and the
// mapping is written back.
func (s *Syncer) match(ctx context.Context, src *Source, d *destination, e models.Entity) (*models.Entity, error) {
	mapping, err := store.FindOne(ctx, s.store, models.MappingFilter{
		SourceEntityID:    e.Key(),
		DestinationServer: d.server.Host,
		Type:              e.Type,
	})
	if err != nil {
		return nil, err
	}

	if mapping != nil {
		live, err := d.live(ctx, e.Type, mapping.DestinationEntityID)
		if err != nil {
			return nil, err
		}
		if live != nil {
			return live, nil
		}
		logger.Debugf("Mapping of %s points to a missing %s %s on %s", e.Key(), e.Type, mapping.DestinationEntityID, d.server.Host)
	}

	destTree, err := d.Tree(ctx)
	if err != nil {
		return nil, err
	}
	destCollection, err := collection.Locate(src.Server.Tree, destTree,
		src.Server.Collection.Int(), d.server.Collection.Int(), e.CollectionID())
	if err != nil {
		// The collection path does not exist yet: nothing to match.
		return nil, nil
	}

	found, err := d.byNameIn(ctx, e.Type, e.Name(), destCollection)
	if err != nil || found == nil {
		return nil, err
	}

	m := models.SyncMapping{
		SourceServer:        src.Server.Host,
		SourceEntityID:      e.Key(),
		DestinationServer:   d.server.Host,
		DestinationEntityID: found.Key(),
		Type:                e.Type,
	}
	if mapping != nil {
		err = s.store.Update(ctx, m)
	} else {
		err = s.store.Create(ctx, m)
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("Discovered %s %q on %s, mapped %s -> %s", e.Type, e.Name(), d.server.Host, m.SourceEntityID, m.DestinationEntityID)
	return found, nil
}

// live finds a destination entity by its mapping key.
func (d *destination) live(ctx context.Context, t models.EntityType, key string) (*models.Entity, error) {
	if t == models.EntityCard {
		cards, err := d.Cards(ctx)
		if err != nil {
			return nil, err
		}
		if c := findCard(cards, key); c != nil {
			e := models.CardEntity(c)
			return &e, nil
		}
		return nil, nil
	}

	dashboards, err := d.Dashboards(ctx)
	if err != nil {
		return nil, err
	}
	for i := range dashboards {
		if strconv.Itoa(dashboards[i].ID) == key {
			e := models.DashboardEntity(&dashboards[i])
			return &e, nil
		}
	}
	return nil, nil
}

func (d *destination) byNameIn(ctx context.Context, t models.EntityType, name string, collectionID int) (*models.Entity, error) {
	var candidates []models.Entity
	if t == models.EntityCard {
		cards, err := d.Cards(ctx)
		if err != nil {
			return nil, err
		}
		for i := range cards {
			candidates = append(candidates, models.CardEntity(&cards[i]))
		}
	} else {
		dashboards, err := d.Dashboards(ctx)
		if err != nil {
			return nil, err
		}
		for i := range dashboards {
			candidates = append(candidates, models.DashboardEntity(&dashboards[i]))
		}
	}
	for _, c := range candidates {
		if c.Name() == name && c.CollectionID() == collectionID && !c.Archived() {
			return &c, nil
		}
	}
	return nil, nil
}

// SortStatuses orders rows by destination, collection path, status and name.
func SortStatuses(statuses []*models.SyncStatus) {
	sort.SliceStable(statuses, func(i, j int) bool {
		a, b := statuses[i], statuses[j]
		if a.Destination.Host != b.Destination.Host {
			return a.Destination.Host < b.Destination.Host
		}
		pa, pb := strings.Join(a.Entity.CollectionPath, "/"), strings.Join(b.Entity.CollectionPath, "/")
		if pa != pb {
			return pa < pb
		}
		if a.Status.Rank() != b.Status.Rank() {
			return a.Status.Rank() < b.Status.Rank()
		}
		return a.Entity.Name() < b.Entity.Name()
	})
}
