package syncer

import (
	"context"

	"github.com/BartekS5/cardsync/pkg/models"
)

// RemoteAnalyticsClient is the part of the analytics API the sync engine
// drives. *analytics.Client implements it.
type RemoteAnalyticsClient interface {
	Host() string
	CollectionTree(ctx context.Context) (*models.Collection, error)
	CreateCollection(ctx context.Context, name string, parentID int) (*models.Collection, error)
	ListCards(ctx context.Context) ([]models.Card, error)
	GetCard(ctx context.Context, id int) (*models.Card, error)
	CreateCard(ctx context.Context, body any) (*models.Card, error)
	UpdateCard(ctx context.Context, id int, body any) (*models.Card, error)
	ListDashboards(ctx context.Context) ([]models.Dashboard, error)
	GetDashboard(ctx context.Context, id int) (*models.Dashboard, error)
	CreateDashboard(ctx context.Context, body any) (*models.Dashboard, error)
	UpdateDashboard(ctx context.Context, id int, body any) (*models.Dashboard, error)
	ReplaceDashboardCards(ctx context.Context, id int, cards []map[string]any) error
}

// ClientFactory returns the client of a configured server.
type ClientFactory func(srv *models.Server) RemoteAnalyticsClient
