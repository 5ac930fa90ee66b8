// Package syncer reconciles source entities against destination servers and
// runs sync batches: collection mirroring, query rewriting, create-or-update
// and mapping bookkeeping.
package syncer

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/BartekS5/cardsync/internal/collection"
	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/pkg/models"
)

const DefaultConcurrency = 4

// Syncer holds the collaborators shared by reconciliation and batches.
type Syncer struct {
	store       store.MappingStore
	clients     ClientFactory
	settings    models.Settings
	excludeRe   *regexp.Regexp
	concurrency int

	mu    sync.Mutex
	dests map[string]*destination
}

// New validates settings and returns a Syncer. concurrency < 1 uses
// DefaultConcurrency.
func New(st store.MappingStore, clients ClientFactory, settings models.Settings, concurrency int) (*Syncer, error) {
	s := &Syncer{
		store:       st,
		clients:     clients,
		settings:    settings,
		concurrency: concurrency,
		dests:       map[string]*destination{},
	}
	if s.concurrency < 1 {
		s.concurrency = DefaultConcurrency
	}
	if settings.ExcludeRegex != "" {
		re, err := regexp.Compile(settings.ExcludeRegex)
		if err != nil {
			cfgErr := &models.ConfigurationError{}
			cfgErr.Add("excludeRegex %q: %v", settings.ExcludeRegex, err)
			return nil, cfgErr
		}
		s.excludeRe = re
	}
	return s, nil
}

// Source is a source server with its loaded entity catalog.
type Source struct {
	Server   *models.Server
	Client   RemoteAnalyticsClient
	Entities []models.Entity
}

func (s *Source) cardByID(id int) *models.Card {
	for _, e := range s.Entities {
		if e.Type == models.EntityCard && e.Card.ID == id {
			return e.Card
		}
	}
	return nil
}

// LoadSource fetches the catalog of srv.
func (s *Syncer) LoadSource(ctx context.Context, srv *models.Server) (*Source, error) {
	client := s.clients(srv)
	entities, err := LoadEntities(ctx, client, srv)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities of %s: %w", srv.Host, err)
	}
	return &Source{Server: srv, Client: client, Entities: entities}, nil
}

// destination caches the live lists of one destination server for a run.
type destination struct {
	server *models.Server
	client RemoteAnalyticsClient

	mu               sync.Mutex
	cards            []models.Card
	cardsLoaded      bool
	cardsRefreshed   bool
	dashboards       []models.Dashboard
	dashboardsLoaded bool
	tree             *models.Collection

	// serializes collection creation on this server
	mirrorMu sync.Mutex
}

func (s *Syncer) destination(srv *models.Server) *destination {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dests[srv.Host]
	if !ok {
		d = &destination{server: srv, client: s.clients(srv)}
		s.dests[srv.Host] = d
	}
	return d
}

// resetCaches drops every cached destination list.
func (s *Syncer) resetCaches() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dests = map[string]*destination{}
}

func (d *destination) Cards(ctx context.Context) ([]models.Card, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.cardsLoaded {
		cards, err := d.client.ListCards(ctx)
		if err != nil {
			return nil, err
		}
		d.cards, d.cardsLoaded = cards, true
	}
	return d.cards, nil
}

// cardByEntityID looks the card up in the cached list and refetches the list
// once per run on a miss.
func (d *destination) cardByEntityID(ctx context.Context, entityID string) (*models.Card, error) {
	cards, err := d.Cards(ctx)
	if err != nil {
		return nil, err
	}
	if c := findCard(cards, entityID); c != nil {
		return c, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cardsRefreshed {
		return findCard(d.cards, entityID), nil
	}
	fresh, err := d.client.ListCards(ctx)
	if err != nil {
		return nil, err
	}
	d.cards, d.cardsRefreshed = fresh, true
	return findCard(d.cards, entityID), nil
}

func findCard(cards []models.Card, entityID string) *models.Card {
	for i := range cards {
		if cards[i].EntityID == entityID {
			c := cards[i]
			return &c
		}
	}
	return nil
}

// rememberCard records a card created or updated during the run.
func (d *destination) rememberCard(c models.Card) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.cards {
		if d.cards[i].EntityID == c.EntityID {
			d.cards[i] = c
			return
		}
	}
	d.cards = append(d.cards, c)
}

func (d *destination) Dashboards(ctx context.Context) ([]models.Dashboard, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.dashboardsLoaded {
		dashboards, err := d.client.ListDashboards(ctx)
		if err != nil {
			return nil, err
		}
		d.dashboards, d.dashboardsLoaded = dashboards, true
	}
	return d.dashboards, nil
}

func (d *destination) Tree(ctx context.Context) (*models.Collection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tree == nil {
		tree, err := d.client.CollectionTree(ctx)
		if err != nil {
			return nil, err
		}
		d.tree = tree
	}
	return d.tree, nil
}

// mirror reproduces the source collection path of an entity on d.
func (d *destination) mirror(ctx context.Context, src *Source, sourceCollectionID int) (int, error) {
	d.mirrorMu.Lock()
	defer d.mirrorMu.Unlock()
	return collection.Mirror(ctx, src.Server.Tree, d.client,
		src.Server.Collection.Int(), d.server.Collection.Int(), sourceCollectionID)
}
