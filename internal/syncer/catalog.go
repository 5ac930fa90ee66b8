package syncer

import (
	"context"
	"sort"

	"github.com/BartekS5/cardsync/internal/collection"
	"github.com/BartekS5/cardsync/pkg/models"
)

// LoadEntities lists the non-archived cards and dashboards of srv that live
// inside its configured collection subtree, each tagged with its collection
// path. Cards come first, then dashboards, each sorted by name.
func LoadEntities(ctx context.Context, c RemoteAnalyticsClient, srv *models.Server) ([]models.Entity, error) {
	if srv.Tree == nil {
		tree, err := c.CollectionTree(ctx)
		if err != nil {
			return nil, err
		}
		srv.Tree = tree
	}
	root := srv.Collection.Int()
	subtree := collection.SubtreeIDs(srv.Tree, root)

	cards, err := c.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	dashboards, err := c.ListDashboards(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Entity
	keep := func(e models.Entity) {
		if e.Archived() {
			return
		}
		if subtree != nil && !subtree[e.CollectionID()] {
			return
		}
		e.CollectionPath = collection.ResolvePath(srv.Tree, e.CollectionID(), root)
		out = append(out, e)
	}
	for i := range cards {
		keep(models.CardEntity(&cards[i]))
	}
	for i := range dashboards {
		keep(models.DashboardEntity(&dashboards[i]))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == models.EntityCard
		}
		return out[i].Name() < out[j].Name()
	})
	return out, nil
}
