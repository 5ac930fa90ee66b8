package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/BartekS5/cardsync/internal/collection"
	"github.com/BartekS5/cardsync/pkg/models"
)

// fakeClient is an in-memory analytics server.
type fakeClient struct {
	mu         sync.Mutex
	host       string
	tree       *models.Collection
	cards      []models.Card
	dashboards []models.Dashboard
	nextID     int

	created    []string
	cardBodies map[string]map[string]any
	tiles      map[int][]map[string]any
	failCreate map[string]error

	// goneOnUpdate lists card ids that still show in listings but are
	// deleted by the time they are written.
	goneOnUpdate map[int]bool
}

func newFake(host string, tree *models.Collection) *fakeClient {
	return &fakeClient{
		host:       host,
		tree:       tree,
		nextID:     100,
		cardBodies: map[string]map[string]any{},
		tiles:      map[int][]map[string]any{},
		failCreate: map[string]error{},

		goneOnUpdate: map[int]bool{},
	}
}

func cloneTree(n *models.Collection) *models.Collection {
	c := &models.Collection{ID: n.ID, Name: n.Name}
	for _, child := range n.Children {
		c.Children = append(c.Children, cloneTree(child))
	}
	return c
}

func (f *fakeClient) Host() string { return f.host }

func (f *fakeClient) CollectionTree(context.Context) (*models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneTree(f.tree), nil
}

func (f *fakeClient) CreateCollection(_ context.Context, name string, parentID int) (*models.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := &models.Collection{ID: f.nextID, Name: name}
	parent := collection.Find(f.tree, parentID)
	parent.Children = append(parent.Children, c)
	return &models.Collection{ID: c.ID, Name: name}, nil
}

func (f *fakeClient) ListCards(context.Context) ([]models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Card(nil), f.cards...), nil
}

func (f *fakeClient) GetCard(_ context.Context, id int) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "card", ID: fmt.Sprint(id)}
}

func (f *fakeClient) applyCard(c *models.Card, body map[string]any) {
	c.Name, _ = body["name"].(string)
	c.Description, _ = body["description"].(string)
	c.Display, _ = body["display"].(string)
	c.CollectionID, _ = body["collection_id"].(*int)
	c.DatasetQuery, _ = body["dataset_query"].(models.DatasetQuery)
	f.cardBodies[c.Name] = body
}

func (f *fakeClient) CreateCard(_ context.Context, body any) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := body.(map[string]any)
	if err := f.failCreate[b["name"].(string)]; err != nil {
		return nil, err
	}
	f.nextID++
	c := models.Card{ID: f.nextID, EntityID: fmt.Sprintf("%s-card-%d", f.host, f.nextID)}
	f.applyCard(&c, b)
	f.cards = append(f.cards, c)
	f.created = append(f.created, c.Name)
	return &c, nil
}

func (f *fakeClient) UpdateCard(_ context.Context, id int, body any) (*models.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goneOnUpdate[id] {
		return nil, &models.NotFoundError{Kind: "card", ID: fmt.Sprint(id)}
	}
	for i := range f.cards {
		if f.cards[i].ID == id {
			f.applyCard(&f.cards[i], body.(map[string]any))
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "card", ID: fmt.Sprint(id)}
}

// ListDashboards drops the layouts, like the real list endpoint.
func (f *fakeClient) ListDashboards(context.Context) ([]models.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Dashboard, len(f.dashboards))
	for i, d := range f.dashboards {
		d.Dashcards, d.OrderedCards = nil, nil
		out[i] = d
	}
	return out, nil
}

func (f *fakeClient) GetDashboard(_ context.Context, id int) (*models.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.dashboards {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "dashboard", ID: fmt.Sprint(id)}
}

func (f *fakeClient) CreateDashboard(_ context.Context, body any) (*models.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := body.(map[string]any)
	f.nextID++
	d := models.Dashboard{ID: f.nextID}
	d.Name, _ = b["name"].(string)
	d.CollectionID, _ = b["collection_id"].(*int)
	f.dashboards = append(f.dashboards, d)
	return &d, nil
}

func (f *fakeClient) UpdateDashboard(_ context.Context, id int, body any) (*models.Dashboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := body.(map[string]any)
	for i := range f.dashboards {
		if f.dashboards[i].ID == id {
			f.dashboards[i].Name, _ = b["name"].(string)
			f.dashboards[i].Description, _ = b["description"].(string)
			f.dashboards[i].CollectionID, _ = b["collection_id"].(*int)
			d := f.dashboards[i]
			return &d, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "dashboard", ID: fmt.Sprint(id)}
}

func (f *fakeClient) ReplaceDashboardCards(_ context.Context, id int, cards []map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tiles[id] = cards
	return nil
}

func intp(v int) *int { return &v }
