package collection

import (
	"context"
	"io"
	"testing"

	"github.com/BartekS5/cardsync/pkg/logger"
	"github.com/BartekS5/cardsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetOutput(io.Discard)
}

func node(id int, name string, children ...*models.Collection) *models.Collection {
	return &models.Collection{ID: id, Name: name, Children: children}
}

func sourceTree() *models.Collection {
	return models.NewRootCollection([]*models.Collection{
		node(1, "Marketing", node(2, "Campaigns")),
		node(3, "Finance",
			node(4, "Reports",
				node(5, "Quarterly"),
				node(6, "Monthly"),
			),
			node(7, "Drafts"),
		),
	})
}

func TestResolvePath(t *testing.T) {
	tree := sourceTree()

	assert.Equal(t, []string{"Finance", "Reports", "Monthly"}, ResolvePath(tree, 6, 3))
	assert.Equal(t, []string{models.RootCollectionName, "Finance", "Drafts"}, ResolvePath(tree, 7, models.NoRestriction))
	assert.Equal(t, []string{"Finance"}, ResolvePath(tree, 3, 3))
	assert.Nil(t, ResolvePath(tree, 2, 3), "Campaigns is outside Finance")
	assert.Nil(t, ResolvePath(tree, 99, models.NoRestriction))
	assert.Nil(t, ResolvePath(tree, 6, 42), "unknown root")
}

func TestResolvePathRoundTrip(t *testing.T) {
	tree := sourceTree()
	for _, target := range []int{1, 2, 3, 4, 5, 6, 7} {
		path := ResolvePath(tree, target, models.NoRestriction)
		require.NotNil(t, path, "target %d", target)
		id, ok := ResolveIDByName(tree, path[len(path)-1], path[len(path)-2])
		require.True(t, ok, "target %d", target)
		assert.Equal(t, target, id)
	}
}

func TestResolveIDByName(t *testing.T) {
	tree := sourceTree()

	id, ok := ResolveIDByName(tree, "Reports", "Finance")
	require.True(t, ok)
	assert.Equal(t, 4, id)

	_, ok = ResolveIDByName(tree, "Quarterly", "Finance")
	assert.False(t, ok, "only direct children of the start node match")

	id, ok = ResolveIDByName(tree, "Drafts", "")
	require.True(t, ok)
	assert.Equal(t, 7, id)
}

func TestSubtreeIDs(t *testing.T) {
	tree := sourceTree()
	assert.Equal(t, map[int]bool{4: true, 5: true, 6: true}, SubtreeIDs(tree, 4))
	assert.Nil(t, SubtreeIDs(tree, models.NoRestriction))
}

type fakeCreator struct {
	tree    *models.Collection
	nextID  int
	created []string
	fetches int
}

func clone(n *models.Collection) *models.Collection {
	c := &models.Collection{ID: n.ID, Name: n.Name}
	for _, child := range n.Children {
		c.Children = append(c.Children, clone(child))
	}
	return c
}

// CollectionTree hands out a copy, as a server would.
func (f *fakeCreator) CollectionTree(ctx context.Context) (*models.Collection, error) {
	f.fetches++
	return clone(f.tree), nil
}

func (f *fakeCreator) CreateCollection(ctx context.Context, name string, parentID int) (*models.Collection, error) {
	f.nextID++
	c := &models.Collection{ID: f.nextID, Name: name}
	parent := Find(f.tree, parentID)
	parent.Children = append(parent.Children, c)
	f.created = append(f.created, name)
	return c, nil
}

func TestMirrorCreatesMissingSegmentsOnce(t *testing.T) {
	src := sourceTree()
	dest := &fakeCreator{
		tree:   models.NewRootCollection([]*models.Collection{node(10, "Shared", node(11, "Reports"))}),
		nextID: 100,
	}
	ctx := context.Background()

	id, err := Mirror(ctx, src, dest, 3, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, 101, id)
	assert.Equal(t, []string{"Monthly"}, dest.created)
	assert.Equal(t, 1, dest.fetches)

	again, err := Mirror(ctx, src, dest, 3, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.Len(t, dest.created, 1, "second run must not create anything")
	assert.Equal(t, 2, dest.fetches)
}

func TestMirrorBuildsNestedPath(t *testing.T) {
	src := sourceTree()
	dest := &fakeCreator{tree: models.NewRootCollection(nil), nextID: 20}

	id, err := Mirror(context.Background(), src, dest, models.NoRestriction, models.NoRestriction, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Finance", "Reports", "Quarterly"}, dest.created)
	assert.Equal(t, 23, id)
	assert.Equal(t, []string{models.RootCollectionName, "Finance", "Reports", "Quarterly"},
		ResolvePath(dest.tree, id, models.NoRestriction))
}

func TestMirrorRootEntity(t *testing.T) {
	dest := &fakeCreator{tree: models.NewRootCollection(nil)}
	id, err := Mirror(context.Background(), sourceTree(), dest, models.NoRestriction, models.NoRestriction, models.RootCollectionID)
	require.NoError(t, err)
	assert.Equal(t, models.RootCollectionID, id)
	assert.Empty(t, dest.created)
}

func TestMirrorUnresolvableSource(t *testing.T) {
	dest := &fakeCreator{tree: models.NewRootCollection(nil)}
	_, err := Mirror(context.Background(), sourceTree(), dest, 3, models.NoRestriction, 2)

	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Zero(t, dest.fetches, "no partial mirroring when the source path is unknown")
}

func TestLocate(t *testing.T) {
	src := sourceTree()
	destTree := models.NewRootCollection([]*models.Collection{node(10, "Shared", node(11, "Reports", node(12, "Monthly")))})

	id, err := Locate(src, destTree, 3, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, 12, id)

	_, err = Locate(src, destTree, 3, 10, 5)
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Len(t, Find(destTree, 11).Children, 1, "Locate never creates")
}

func TestMirrorMatchesOnlyDirectChildren(t *testing.T) {
	dest := &fakeCreator{
		tree: models.NewRootCollection([]*models.Collection{
			node(20, "Archive", node(21, "Reports", node(22, "Monthly"))),
			node(10, "Shared", node(23, "Shared")),
		}),
		nextID: 100,
	}

	id, err := Mirror(context.Background(), sourceTree(), dest, 3, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reports", "Monthly"}, dest.created, "Archive/Reports lives under another parent")
	assert.Equal(t, 102, id)
	assert.Equal(t, []string{"Shared", "Reports", "Monthly"}, ResolvePath(dest.tree, id, 10))
}
