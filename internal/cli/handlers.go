package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/BartekS5/cardsync/internal/config"
	"github.com/BartekS5/cardsync/internal/store"
	"github.com/BartekS5/cardsync/internal/syncer"
	"github.com/BartekS5/cardsync/pkg/analytics"
	"github.com/BartekS5/cardsync/pkg/database"
	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
)

// app is everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	servers *models.ServersConfig
	store   store.MappingStore

	mu      sync.Mutex
	clients map[string]*analytics.Client
}

type appOptions struct {
	configPath string
	hydrate    bool
	withStore  bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	servers, err := config.LoadServers(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(servers); err != nil {
		return nil, err
	}

	a := &app{servers: servers, clients: map[string]*analytics.Client{}}

	if opts.hydrate {
		if err := config.Hydrate(ctx, servers, func(srv *models.Server) config.ServerClient {
			return a.client(srv)
		}); err != nil {
			return nil, err
		}
	}

	if opts.withStore {
		cfg, err := config.LoadConfig()
		if err != nil {
			return nil, err
		}
		a.cfg = cfg
		a.store, err = openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

// client returns the cached client of srv, picking up a session token
// obtained after the client was created.
func (a *app) client(srv *models.Server) *analytics.Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.clients[srv.Host]
	if !ok {
		c = analytics.New(srv.Host, srv.SessionToken)
		a.clients[srv.Host] = c
	}
	c.SetSessionToken(srv.SessionToken)
	return c
}

func (a *app) syncer() (*syncer.Syncer, error) {
	return syncer.New(a.store, func(srv *models.Server) syncer.RemoteAnalyticsClient {
		return a.client(srv)
	}, a.servers.Settings, a.cfg.Concurrency)
}

func (a *app) close(ctx context.Context) {
	if a.store == nil {
		return
	}
	if err := a.store.Close(ctx); err != nil {
		logger.Warnf("Failed to close mapping store: %v", err)
	}
}

// reconcile loads every source catalog and classifies it against every
// destination.
func (a *app) reconcile(ctx context.Context, s *syncer.Syncer) ([]*syncer.Source, []*models.SyncStatus, error) {
	var sources []*syncer.Source
	for _, srv := range a.servers.SourceServers {
		src, err := s.LoadSource(ctx, srv)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("Loaded %d entities from %s", len(src.Entities), srv.Host)
		sources = append(sources, src)
	}
	statuses, err := s.Reconcile(ctx, sources, a.servers.DestinationServers)
	if err != nil {
		return nil, nil, err
	}
	return sources, statuses, nil
}

// server finds a configured server by host, sources first.
func (a *app) server(host string) (*models.Server, error) {
	for _, list := range [][]*models.Server{a.servers.SourceServers, a.servers.DestinationServers} {
		for _, srv := range list {
			if srv.Host == host {
				return srv, nil
			}
		}
	}
	return nil, fmt.Errorf("server %s is not configured", host)
}

func openStore(ctx context.Context, cfg *config.Config) (store.MappingStore, error) {
	switch cfg.MappingStore {
	case config.StoreSQLServer:
		db, err := database.ConnectSQL(ctx, cfg.SQLConnString)
		if err != nil {
			return nil, err
		}
		s := store.NewSQLStore(db)
		if err := s.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	case config.StoreMemory:
		logger.Warnf("Using the in-memory mapping store; mappings are lost on exit")
		return store.NewMemoryStore(), nil
	default:
		client, err := database.ConnectMongo(ctx, cfg.MongoConnString)
		if err != nil {
			return nil, err
		}
		s := store.NewMongoStore(client.Database(cfg.MongoDatabase), true)
		if err := s.EnsureIndexes(ctx); err != nil {
			s.Close(ctx)
			return nil, err
		}
		return s, nil
	}
}
